package sla

import (
	"fmt"
	"sort"
	"time"

	"github.com/phonginreallife/leadtriage/db"
)

// WarningType identifies the rule that produced a warning
type WarningType string

const (
	WarningManual             WarningType = "manual_sla"
	WarningNotAcknowledged    WarningType = "not_acknowledged"
	WarningSlowInteraction    WarningType = "slow_interaction"
	WarningOverdueAppointment WarningType = "overdue_appointment"
)

// Severity of a warning. Informational only; ordering uses MinutesOverdue.
type Severity string

const (
	SeverityDanger  Severity = "danger"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// MissingTimeSentinel is MinutesOverdue for manual warnings on leads without a
// usable created_at, so they sort first.
const MissingTimeSentinel = 999999

// dangerLateMinutes is how late an appointment may be before it turns danger
const dangerLateMinutes = 60

// Message texts
const (
	defaultManualMessage   = "Cảnh báo SLA do quản lý thiết lập"
	defaultAppointmentName = "Lịch hẹn"
)

// Warning describes one reason a lead needs attention
type Warning struct {
	Type           WarningType `json:"type"`
	Lead           *db.Lead    `json:"lead"`
	Message        string      `json:"message"`
	Severity       Severity    `json:"severity"`
	TimeLeft       string      `json:"time_left"`
	MinutesOverdue int         `json:"minutes_overdue"`
	ActivityID     string      `json:"activity_id,omitempty"`
}

// Evaluator runs the SLA rule cascade over a set of leads
type Evaluator struct {
	Config Config
	Now    Clock
}

// NewEvaluator creates an evaluator; a nil clock uses time.Now
func NewEvaluator(cfg Config, clock Clock) *Evaluator {
	if clock == nil {
		clock = time.Now
	}
	return &Evaluator{Config: cfg.Normalize(), Now: clock}
}

// CalculateWarnings evaluates leads against the wall clock
func CalculateWarnings(leads []db.Lead, currentUserID string, cfg Config) []Warning {
	return NewEvaluator(cfg, nil).Calculate(leads, currentUserID)
}

// Calculate returns the warnings for leads, most overdue first. When
// currentUserID is set, leads owned by anyone else are skipped. Ties keep
// evaluation order (lead order, then rule order).
func (e *Evaluator) Calculate(leads []db.Lead, currentUserID string) []Warning {
	clock := e.Now
	if clock == nil {
		clock = time.Now
	}
	now := clock()
	cfg := e.Config.Normalize()

	warnings := []Warning{}
	for i := range leads {
		lead := &leads[i]
		if currentUserID != "" && lead.OwnerID != currentUserID {
			continue
		}

		if w, ok := triage(lead, now, cfg); ok {
			warnings = append(warnings, w)
		}
		warnings = append(warnings, overdueAppointments(lead, now)...)
	}

	sort.SliceStable(warnings, func(i, j int) bool {
		return warnings[i].MinutesOverdue > warnings[j].MinutesOverdue
	})
	return warnings
}

// triage returns the single primary warning for a lead, if any
func triage(lead *db.Lead, now time.Time, cfg Config) (Warning, bool) {
	created, hasCreated := ParseTime(lead.CreatedAt)

	if lead.SLAStatus != "" && lead.SLAStatus != db.SLAStatusNormal {
		minutes, timeLeft := MissingTimeSentinel, ""
		if hasCreated {
			minutes = minutesBetween(created, now)
			timeLeft = FormatDuration(minutes)
		}
		msg := lead.SLAReason
		if msg == "" {
			msg = defaultManualMessage
		}
		return Warning{
			Type:           WarningManual,
			Lead:           lead,
			Message:        msg,
			Severity:       manualSeverity(lead.SLAStatus),
			TimeLeft:       timeLeft,
			MinutesOverdue: minutes,
		}, true
	}

	if !hasCreated {
		return Warning{}, false
	}
	elapsed := minutesBetween(created, now)

	if ClassifyStatus(lead.Status) == StatusNew {
		if elapsed > cfg.AckTimeMinutes {
			return Warning{
				Type:           WarningNotAcknowledged,
				Lead:           lead,
				Message:        fmt.Sprintf("Lead mới chưa được tiếp nhận sau %d phút", elapsed),
				Severity:       SeverityDanger,
				TimeLeft:       FormatDuration(elapsed),
				MinutesOverdue: elapsed,
			}, true
		}
		return Warning{}, false
	}

	if countUserActivities(lead.Activities) == 0 && elapsed > cfg.FirstActionTimeMinutes {
		return Warning{
			Type:           WarningSlowInteraction,
			Lead:           lead,
			Message:        fmt.Sprintf("Chưa có tương tác nào sau %d giờ", elapsed/60),
			Severity:       SeverityWarning,
			TimeLeft:       FormatDuration(elapsed),
			MinutesOverdue: elapsed,
		}, true
	}
	return Warning{}, false
}

func manualSeverity(status string) Severity {
	switch status {
	case db.SLAStatusDanger:
		return SeverityDanger
	case db.SLAStatusWarning:
		return SeverityWarning
	default:
		return SeverityInfo
	}
}

func countUserActivities(activities []db.Activity) int {
	n := 0
	for _, a := range activities {
		if a.Type != db.ActivityTypeSystem {
			n++
		}
	}
	return n
}

// overdueAppointments returns one warning per scheduled activity whose due time has passed
func overdueAppointments(lead *db.Lead, now time.Time) []Warning {
	var out []Warning
	for _, a := range lead.Activities {
		if a.Type != db.ActivityTypeActivity || a.Datetime == "" {
			continue
		}
		if a.Status != "" && a.Status != db.ActivityStatusScheduled {
			continue
		}
		due, ok := ParseTime(a.Datetime)
		if !ok {
			continue
		}
		late := minutesBetween(due, now)
		if late <= 0 {
			continue
		}

		severity := SeverityWarning
		if late > dangerLateMinutes {
			severity = SeverityDanger
		}
		name := a.Description
		if name == "" {
			name = a.Title
		}
		if name == "" {
			name = defaultAppointmentName
		}
		lateText := fmt.Sprintf("%d phút", late)
		if late >= 60 {
			lateText = fmt.Sprintf("%d giờ", late/60)
		}

		out = append(out, Warning{
			Type:           WarningOverdueAppointment,
			Lead:           lead,
			Message:        fmt.Sprintf("Lịch hẹn \"%s\" đã quá hạn %s", name, lateText),
			Severity:       severity,
			TimeLeft:       FormatDuration(late),
			MinutesOverdue: late,
			ActivityID:     a.ID,
		})
	}
	return out
}

// UrgentCount returns the number of danger warnings
func UrgentCount(warnings []Warning) int {
	n := 0
	for _, w := range warnings {
		if w.Severity == SeverityDanger {
			n++
		}
	}
	return n
}
