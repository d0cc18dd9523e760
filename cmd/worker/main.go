package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"

	"github.com/phonginreallife/leadtriage/internal/config"
	"github.com/phonginreallife/leadtriage/services"
	"github.com/phonginreallife/leadtriage/workers"
)

func main() {
	log.Println("Starting workers...")

	// Load Config
	configPath := os.Getenv("LEADTRIAGE_CONFIG_PATH")

	if err := config.LoadConfig(configPath); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Database connection
	if config.App.DatabaseURL == "" {
		log.Fatal("DATABASE_URL environment variable (or config) is required")
	}
	if config.App.RedisURL == "" {
		log.Fatal("REDIS_URL environment variable (or config) is required")
	}

	pg, err := sql.Open("postgres", config.App.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pg.Close()

	// Test database connection
	if err := pg.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	// Set timezone to UTC for consistent time handling
	if _, err := pg.Exec("SET TIME ZONE 'UTC'"); err != nil {
		log.Printf("Failed to set timezone to UTC: %v", err)
	} else {
		log.Println("  Set database timezone to UTC")
	}

	log.Println("  Connected to database successfully")

	opts, err := redis.ParseURL(config.App.RedisURL)
	if err != nil {
		log.Fatalf("Invalid REDIS_URL: %v", err)
	}
	rdb := redis.NewClient(opts)
	defer rdb.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("Failed to ping redis: %v", err)
	}

	// Initialize services
	leadService := services.NewLeadService(pg)
	settingsService := services.NewSettingsService(pg, config.App.SLA)

	// Initialize workers
	notifier := workers.NewRedisNotifier(rdb, config.App.Worker.DedupTTL)
	slaWorker := workers.NewSLAWorker(leadService, settingsService, config.App.SLA, notifier, config.App.Worker.Interval)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Println("Starting SLA worker...")
		slaWorker.StartSLAWorker(ctx)
	}()

	// Wait for interrupt signal
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	log.Println("Workers started successfully. Press Ctrl+C to stop.")
	<-c

	log.Println("Shutting down workers...")
	cancel()
	wg.Wait()
}
