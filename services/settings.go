package services

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/phonginreallife/leadtriage/db"
	"github.com/phonginreallife/leadtriage/internal/sla"
)

// SettingsService stores per-owner SLA thresholds
type SettingsService struct {
	PG       *sql.DB
	Defaults sla.Config
}

func NewSettingsService(pg *sql.DB, defaults sla.Config) *SettingsService {
	return &SettingsService{PG: pg, Defaults: defaults.Normalize()}
}

// GetSLAConfig returns the owner's thresholds, or the defaults when none are saved
func (s *SettingsService) GetSLAConfig(ownerID string) (sla.Config, error) {
	// Subjects that are not UUIDs can never have a saved row
	if ownerID == "" || !isUUID(ownerID) {
		return s.Defaults, nil
	}

	var cfg sla.Config
	err := s.PG.QueryRow(`
		SELECT ack_time_minutes, first_action_time_minutes
		FROM sla_settings WHERE owner_id = $1`, ownerID,
	).Scan(&cfg.AckTimeMinutes, &cfg.FirstActionTimeMinutes)
	if err == sql.ErrNoRows {
		return s.Defaults, nil
	}
	if err != nil {
		return s.Defaults, fmt.Errorf("failed to get sla settings: %w", err)
	}
	return cfg.Normalize(), nil
}

// SaveSLAConfig upserts the owner's thresholds
func (s *SettingsService) SaveSLAConfig(ownerID string, cfg sla.Config) (*db.SLASettings, error) {
	if !isUUID(ownerID) {
		return nil, ErrInvalidOwner
	}
	cfg = cfg.Normalize()
	now := time.Now().UTC()

	_, err := s.PG.Exec(`
		INSERT INTO sla_settings (owner_id, ack_time_minutes, first_action_time_minutes, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (owner_id) DO UPDATE SET
			ack_time_minutes = EXCLUDED.ack_time_minutes,
			first_action_time_minutes = EXCLUDED.first_action_time_minutes,
			updated_at = EXCLUDED.updated_at`,
		ownerID, cfg.AckTimeMinutes, cfg.FirstActionTimeMinutes, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to save sla settings: %w", err)
	}

	return &db.SLASettings{
		OwnerID:                ownerID,
		AckTimeMinutes:         cfg.AckTimeMinutes,
		FirstActionTimeMinutes: cfg.FirstActionTimeMinutes,
		UpdatedAt:              now,
	}, nil
}

// ListSLAConfigs returns every saved override keyed by owner
func (s *SettingsService) ListSLAConfigs() (map[string]sla.Config, error) {
	rows, err := s.PG.Query(`SELECT owner_id, ack_time_minutes, first_action_time_minutes FROM sla_settings`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sla settings: %w", err)
	}
	defer rows.Close()

	out := map[string]sla.Config{}
	for rows.Next() {
		var ownerID string
		var cfg sla.Config
		if err := rows.Scan(&ownerID, &cfg.AckTimeMinutes, &cfg.FirstActionTimeMinutes); err != nil {
			log.Printf("WARNING: skipping unreadable sla_settings row: %v", err)
			continue
		}
		out[ownerID] = cfg.Normalize()
	}
	return out, rows.Err()
}
