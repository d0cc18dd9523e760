package sla

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/phonginreallife/leadtriage/db"
)

// Badge tiers returned by FormatSLATime
const (
	TierFresh = "fresh"
	TierAging = "aging"
	TierLate  = "late"
)

// Zone-less date-time layouts; read in local time the way browsers do.
// Bare dates are read as UTC.
var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseTime parses an ISO-8601 timestamp. ok is false for empty or
// unparsable input.
func ParseTime(value string) (t time.Time, ok bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, true
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return t, true
		}
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// minutesBetween returns whole minutes from since to now, truncated toward -inf
func minutesBetween(since, now time.Time) int {
	return int(math.Floor(now.Sub(since).Minutes()))
}

// FormatDuration renders minutes as "{h}h {m}p", or "{m}p" under an hour
func FormatDuration(minutes int) string {
	h := minutes / 60
	m := minutes % 60
	if h > 0 {
		return fmt.Sprintf("%dh %dp", h, m)
	}
	return fmt.Sprintf("%dp", m)
}

// FormatSLATime builds the age badge shown next to a lead.
// Unparsable createdAt gives an empty badge.
func FormatSLATime(createdAt string, now time.Time) db.SLABadge {
	created, ok := ParseTime(createdAt)
	if !ok {
		return db.SLABadge{}
	}
	minutes := minutesBetween(created, now)
	hours := minutes / 60

	switch {
	case hours > 24:
		return db.SLABadge{Text: fmt.Sprintf("%dh trễ", hours), Tier: TierLate}
	case hours > 4:
		return db.SLABadge{Text: fmt.Sprintf("%dh", hours), Tier: TierAging}
	default:
		return db.SLABadge{Text: fmt.Sprintf("%dp", minutes), Tier: TierFresh}
	}
}
