package db

import "time"

// ===========================
// LEAD MODELS
// ===========================

// Lead represents a sales prospect in the CRM pipeline
type Lead struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	Source  string `json:"source,omitempty"`  // Facebook, Website, Referral, Hotline, ...
	Status  string `json:"status"`            // NEW, CONTACTED, pipeline stages, LOST (open vocabulary)
	OwnerID string `json:"owner_id,omitempty"` // Empty for unassigned leads

	// Study-abroad profile
	Country string `json:"country,omitempty"`
	Program string `json:"program,omitempty"`

	// CreatedAt is kept as the raw ISO-8601 string so that leads imported from
	// older exports with broken timestamps still load (they are skipped by SLA rules).
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`

	// Manual SLA override (set by admins/managers)
	SLAStatus string `json:"sla_status,omitempty"` // normal, warning, danger
	SLAReason string `json:"sla_reason,omitempty"`

	Activities []Activity `json:"activities"`

	// For API responses
	SLABadge *SLABadge `json:"sla_badge,omitempty"`
}

// Activity is a logged interaction or a scheduled task on a lead
type Activity struct {
	ID          string `json:"id"`
	LeadID      string `json:"lead_id,omitempty"`
	Type        string `json:"type"`             // system, note, activity, call, meeting, email, todo
	Status      string `json:"status,omitempty"` // scheduled, completed (empty means scheduled)
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Datetime    string `json:"datetime,omitempty"` // due time, only meaningful for type=activity
	Timestamp   string `json:"timestamp"`          // when the log entry was written
	CreatedBy   string `json:"created_by,omitempty"`
}

// SLABadge is the small "time since created" marker shown next to a lead
type SLABadge struct {
	Text string `json:"text"`
	Tier string `json:"tier"` // fresh, aging, late
}

// LeadStatusNew is the status a lead starts in. Pipeline stages after it are
// free-form strings owned by the CRM.
const LeadStatusNew = "NEW"

// Activity types
const (
	ActivityTypeSystem   = "system"
	ActivityTypeNote     = "note"
	ActivityTypeActivity = "activity"
	ActivityTypeCall     = "call"
	ActivityTypeMeeting  = "meeting"
	ActivityTypeEmail    = "email"
	ActivityTypeTodo     = "todo"
)

// ValidActivityTypes lists every accepted activity type
var ValidActivityTypes = []string{
	ActivityTypeSystem,
	ActivityTypeNote,
	ActivityTypeActivity,
	ActivityTypeCall,
	ActivityTypeMeeting,
	ActivityTypeEmail,
	ActivityTypeTodo,
}

// Activity status values
const (
	ActivityStatusScheduled = "scheduled"
	ActivityStatusCompleted = "completed"
)

// Manual SLA override values
const (
	SLAStatusNormal  = "normal"
	SLAStatusWarning = "warning"
	SLAStatusDanger  = "danger"
)

// IsValidActivityType reports whether t is in ValidActivityTypes
func IsValidActivityType(t string) bool {
	for _, v := range ValidActivityTypes {
		if v == t {
			return true
		}
	}
	return false
}

// ===========================
// SLA SETTINGS
// ===========================

// SLASettings is a per-owner override of the SLA thresholds
type SLASettings struct {
	OwnerID                string    `json:"owner_id"`
	AckTimeMinutes         int       `json:"ack_time_minutes"`
	FirstActionTimeMinutes int       `json:"first_action_time_minutes"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// SLANotification is the message published for urgent warnings
type SLANotification struct {
	LeadID         string    `json:"lead_id"`
	LeadName       string    `json:"lead_name"`
	OwnerID        string    `json:"owner_id"`
	Type           string    `json:"type"`
	Severity       string    `json:"severity"`
	Message        string    `json:"message"`
	TimeLeft       string    `json:"time_left"`
	MinutesOverdue int       `json:"minutes_overdue"`
	ActivityID     string    `json:"activity_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// ===========================
// REQUEST MODELS
// ===========================

type CreateLeadRequest struct {
	Name    string `json:"name" binding:"required"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Source  string `json:"source"`
	Status  string `json:"status"`
	OwnerID string `json:"owner_id"`
	Country string `json:"country"`
	Program string `json:"program"`
}

type UpdateLeadStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type SetSLAOverrideRequest struct {
	SLAStatus string `json:"sla_status" binding:"required"`
	SLAReason string `json:"sla_reason"`
}

type CreateActivityRequest struct {
	Type        string `json:"type" binding:"required"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Datetime    string `json:"datetime"`
	Status      string `json:"status"`
}

type UpdateSLASettingsRequest struct {
	AckTimeMinutes         int `json:"ack_time_minutes" binding:"required,min=1"`
	FirstActionTimeMinutes int `json:"first_action_time_minutes" binding:"required,min=1"`
}
