package workers

import (
	"context"
	"log"
	"time"

	"github.com/phonginreallife/leadtriage/db"
	"github.com/phonginreallife/leadtriage/internal/sla"
	"github.com/phonginreallife/leadtriage/services"
)

// SettingsSource provides per-owner SLA thresholds
type SettingsSource interface {
	ListSLAConfigs() (map[string]sla.Config, error)
}

// SLAWorker periodically evaluates every lead and notifies owners about
// danger warnings. Evaluation is recomputed on each tick.
type SLAWorker struct {
	Leads    services.LeadLister
	Settings SettingsSource
	Defaults sla.Config
	Notifier Notifier
	Interval time.Duration
	Now      sla.Clock
}

func NewSLAWorker(leads services.LeadLister, settings SettingsSource, defaults sla.Config, notifier Notifier, interval time.Duration) *SLAWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &SLAWorker{
		Leads:    leads,
		Settings: settings,
		Defaults: defaults.Normalize(),
		Notifier: notifier,
		Interval: interval,
		Now:      time.Now,
	}
}

// StartSLAWorker runs until ctx is cancelled
func (w *SLAWorker) StartSLAWorker(ctx context.Context) {
	log.Printf("SLA worker started, checking every %s", w.Interval)

	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("SLA worker stopped")
			return
		case <-ticker.C:
			if _, err := w.RunOnce(ctx); err != nil {
				log.Printf("Worker: SLA check failed: %v", err)
			}
		}
	}
}

// RunOnce evaluates all leads and returns how many notifications were sent
func (w *SLAWorker) RunOnce(ctx context.Context) (int, error) {
	leads, err := w.Leads.ListLeads(nil)
	if err != nil {
		return 0, err
	}

	configs, err := w.Settings.ListSLAConfigs()
	if err != nil {
		// Fall back to defaults for everyone
		log.Printf("Worker: failed to load SLA settings: %v", err)
		configs = map[string]sla.Config{}
	}

	now := w.clock()
	byOwner := map[string][]db.Lead{}
	owners := []string{}
	for _, lead := range leads {
		if _, ok := byOwner[lead.OwnerID]; !ok {
			owners = append(owners, lead.OwnerID)
		}
		byOwner[lead.OwnerID] = append(byOwner[lead.OwnerID], lead)
	}

	sent := 0
	for _, owner := range owners {
		cfg, ok := configs[owner]
		if !ok {
			cfg = w.Defaults
		}

		warnings := sla.NewEvaluator(cfg, sla.FixedClock(now)).Calculate(byOwner[owner], owner)
		for _, warning := range warnings {
			if warning.Severity != sla.SeverityDanger {
				continue
			}
			if ctx.Err() != nil {
				return sent, ctx.Err()
			}

			ok, err := w.Notifier.Notify(ctx, toNotification(warning, now))
			if err != nil {
				log.Printf("Worker: failed to notify %s about lead %s: %v", owner, warning.Lead.ID, err)
				continue
			}
			if ok {
				sent++
			}
		}
	}

	if sent > 0 {
		log.Printf("Worker: sent %d SLA notifications", sent)
	}
	return sent, nil
}

func (w *SLAWorker) clock() time.Time {
	if w.Now == nil {
		return time.Now()
	}
	return w.Now()
}

func toNotification(warning sla.Warning, now time.Time) db.SLANotification {
	return db.SLANotification{
		LeadID:         warning.Lead.ID,
		LeadName:       warning.Lead.Name,
		OwnerID:        warning.Lead.OwnerID,
		Type:           string(warning.Type),
		Severity:       string(warning.Severity),
		Message:        warning.Message,
		TimeLeft:       warning.TimeLeft,
		MinutesOverdue: warning.MinutesOverdue,
		ActivityID:     warning.ActivityID,
		CreatedAt:      now,
	}
}
