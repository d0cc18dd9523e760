package sla

import "time"

// Default thresholds in minutes
const (
	DefaultAckTimeMinutes         = 15
	DefaultFirstActionTimeMinutes = 60
)

// Config holds the tunable SLA thresholds
type Config struct {
	// AckTimeMinutes is how long a NEW lead may wait before someone picks it up
	AckTimeMinutes int `json:"ack_time_minutes" mapstructure:"ack_time_minutes"`
	// FirstActionTimeMinutes is how long a picked-up lead may go without any user activity
	FirstActionTimeMinutes int `json:"first_action_time_minutes" mapstructure:"first_action_time_minutes"`
}

// DefaultConfig returns {15, 60}
func DefaultConfig() Config {
	return Config{
		AckTimeMinutes:         DefaultAckTimeMinutes,
		FirstActionTimeMinutes: DefaultFirstActionTimeMinutes,
	}
}

// Normalize replaces non-positive thresholds with the defaults
func (c Config) Normalize() Config {
	if c.AckTimeMinutes <= 0 {
		c.AckTimeMinutes = DefaultAckTimeMinutes
	}
	if c.FirstActionTimeMinutes <= 0 {
		c.FirstActionTimeMinutes = DefaultFirstActionTimeMinutes
	}
	return c
}

// Clock returns the current instant
type Clock func() time.Time

// FixedClock always returns t
func FixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}
