package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/phonginreallife/leadtriage/internal/domainfilter"
	"github.com/phonginreallife/leadtriage/internal/sla"
)

// Config holds all application configuration
type Config struct {
	Env         string `mapstructure:"env"`
	DatabaseURL string `mapstructure:"database_url"`
	RedisURL    string `mapstructure:"redis_url"`
	Port        string `mapstructure:"port"`

	// HS256 secret for access tokens issued by the CRM auth service
	JWTSecret string `mapstructure:"jwt_secret"`

	// Default SLA thresholds, overridable per owner via sla_settings
	SLA sla.Config `mapstructure:"sla"`

	Worker   WorkerConfig   `mapstructure:"worker"`
	Grouping GroupingConfig `mapstructure:"grouping"`
}

type WorkerConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	DedupTTL time.Duration `mapstructure:"dedup_ttl"`
}

type GroupingConfig struct {
	UndeterminedLabel string `mapstructure:"undetermined_label"`
}

// App holds the global config instance
var App Config

// LoadConfig loads configuration from file and environment variables
func LoadConfig(path string) error {
	// Auto-load .env file if present (local development)
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded .env file")
	}

	v := viper.New()

	// Set default values
	v.SetDefault("env", "development")
	v.SetDefault("port", "8080")
	v.SetDefault("sla.ack_time_minutes", sla.DefaultAckTimeMinutes)
	v.SetDefault("sla.first_action_time_minutes", sla.DefaultFirstActionTimeMinutes)
	v.SetDefault("worker.interval", "60s")
	v.SetDefault("worker.dedup_ttl", "1h")
	v.SetDefault("grouping.undetermined_label", domainfilter.UndeterminedLabel)

	// Config file settings
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		v.SetConfigName("dev.config") // Look for dev.config.yaml
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("leadtriage")

	// Bind standard environment variables (Docker/deploy compatibility)
	_ = v.BindEnv("env", "APP_ENV")
	_ = v.BindEnv("database_url", "DATABASE_URL")
	_ = v.BindEnv("redis_url", "REDIS_URL")
	_ = v.BindEnv("port", "PORT")
	_ = v.BindEnv("jwt_secret", "JWT_SECRET")

	// SLA thresholds
	_ = v.BindEnv("sla.ack_time_minutes", "SLA_ACK_TIME_MINUTES")
	_ = v.BindEnv("sla.first_action_time_minutes", "SLA_FIRST_ACTION_TIME_MINUTES")

	// Worker
	_ = v.BindEnv("worker.interval", "SLA_WORKER_INTERVAL")
	_ = v.BindEnv("worker.dedup_ttl", "SLA_WORKER_DEDUP_TTL")

	_ = v.BindEnv("grouping.undetermined_label", "GROUP_UNDETERMINED_LABEL")

	v.AutomaticEnv()

	// 1. Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("No config file found, using defaults and environment variables")
		} else if !os.IsNotExist(err) {
			return err
		}
	} else {
		log.Printf("Loaded config from: %s", v.ConfigFileUsed())
	}

	// 2. Unmarshal into struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return err
	}

	// 3. Guard against zero or negative thresholds from env
	cfg.SLA = cfg.SLA.Normalize()
	if cfg.Worker.Interval <= 0 {
		cfg.Worker.Interval = time.Minute
	}

	App = cfg
	return nil
}
