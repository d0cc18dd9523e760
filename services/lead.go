package services

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/phonginreallife/leadtriage/db"
	"github.com/phonginreallife/leadtriage/internal/sla"
)

var (
	ErrLeadNotFound     = errors.New("lead not found")
	ErrActivityNotFound = errors.New("activity not found")
	ErrInvalidSLAStatus = errors.New("invalid sla_status, must be one of: normal, warning, danger")
	ErrInvalidActivity  = errors.New("invalid activity type")
	ErrInvalidDatetime  = errors.New("invalid datetime, expected ISO-8601")
	ErrInvalidOwner     = errors.New("invalid owner id, expected UUID")
)

type LeadService struct {
	PG *sql.DB
}

func NewLeadService(pg *sql.DB) *LeadService {
	return &LeadService{PG: pg}
}

const leadColumns = `
	l.id, l.name, COALESCE(l.phone, ''), COALESCE(l.email, ''), COALESCE(l.source, ''),
	l.status, COALESCE(l.owner_id::text, ''), COALESCE(l.country, ''), COALESCE(l.program, ''),
	COALESCE(l.sla_status, ''), COALESCE(l.sla_reason, ''), l.created_at, l.updated_at`

const activityColumns = `
	a.id, a.lead_id, a.type, COALESCE(a.status, ''), COALESCE(a.title, ''),
	COALESCE(a.description, ''), a.datetime, a.created_at, COALESCE(a.created_by::text, '')`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanLead(row rowScanner) (db.Lead, error) {
	var l db.Lead
	var createdAt, updatedAt sql.NullTime
	err := row.Scan(
		&l.ID, &l.Name, &l.Phone, &l.Email, &l.Source,
		&l.Status, &l.OwnerID, &l.Country, &l.Program,
		&l.SLAStatus, &l.SLAReason, &createdAt, &updatedAt,
	)
	if err != nil {
		return l, err
	}
	// Imported leads may carry no creation time; SLA rules skip them
	l.CreatedAt = formatNullTime(createdAt)
	l.UpdatedAt = formatNullTime(updatedAt)
	l.Activities = []db.Activity{}
	return l, nil
}

func scanActivity(row rowScanner) (db.Activity, error) {
	var a db.Activity
	var due sql.NullTime
	var createdAt time.Time
	err := row.Scan(
		&a.ID, &a.LeadID, &a.Type, &a.Status, &a.Title,
		&a.Description, &due, &createdAt, &a.CreatedBy,
	)
	if err != nil {
		return a, err
	}
	a.Datetime = formatNullTime(due)
	a.Timestamp = createdAt.UTC().Format(time.RFC3339)
	return a, nil
}

// isUUID reports whether id can be bound to a UUID column without Postgres rejecting it
func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func formatNullTime(t sql.NullTime) string {
	if !t.Valid {
		return ""
	}
	return t.Time.UTC().Format(time.RFC3339)
}

// ListLeads returns leads narrowed by the coarse SQL filters, activities attached.
// Supported filters: owner_id, status, unassigned (bool).
// Fine-grained chip filtering happens in memory on the result.
func (s *LeadService) ListLeads(filters map[string]interface{}) ([]db.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads l WHERE 1=1`
	args := []interface{}{}
	argIndex := 1

	if ownerID, ok := filters["owner_id"].(string); ok && ownerID != "" {
		// No lead can be owned by an id that is not a UUID
		if !isUUID(ownerID) {
			return []db.Lead{}, nil
		}
		query += fmt.Sprintf(" AND l.owner_id = $%d", argIndex)
		args = append(args, ownerID)
		argIndex++
	}

	if status, ok := filters["status"].(string); ok && status != "" {
		query += fmt.Sprintf(" AND l.status = $%d", argIndex)
		args = append(args, status)
		argIndex++
	}

	if unassigned, ok := filters["unassigned"].(bool); ok && unassigned {
		query += " AND l.owner_id IS NULL"
	}

	query += " ORDER BY l.created_at DESC NULLS LAST, l.id"

	rows, err := s.PG.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	defer rows.Close()

	leads := []db.Lead{}
	ids := []string{}
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lead: %w", err)
		}
		leads = append(leads, l)
		ids = append(ids, l.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate leads: %w", err)
	}

	if len(leads) == 0 {
		return leads, nil
	}

	activities, err := s.activitiesFor(ids)
	if err != nil {
		return nil, err
	}
	for i := range leads {
		if acts, ok := activities[leads[i].ID]; ok {
			leads[i].Activities = acts
		}
	}
	return leads, nil
}

// activitiesFor loads activities for many leads in one round trip
func (s *LeadService) activitiesFor(leadIDs []string) (map[string][]db.Activity, error) {
	query := `SELECT ` + activityColumns + `
		FROM lead_activities a
		WHERE a.lead_id = ANY($1)
		ORDER BY a.created_at ASC`

	rows, err := s.PG.Query(query, pq.Array(leadIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]db.Activity, len(leadIDs))
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		out[a.LeadID] = append(out[a.LeadID], a)
	}
	return out, rows.Err()
}

// GetLead returns one lead with its activities
func (s *LeadService) GetLead(id string) (*db.Lead, error) {
	if !isUUID(id) {
		return nil, ErrLeadNotFound
	}
	row := s.PG.QueryRow(`SELECT `+leadColumns+` FROM leads l WHERE l.id = $1`, id)
	lead, err := scanLead(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrLeadNotFound
		}
		return nil, fmt.Errorf("failed to get lead: %w", err)
	}

	activities, err := s.activitiesFor([]string{id})
	if err != nil {
		return nil, err
	}
	if acts, ok := activities[id]; ok {
		lead.Activities = acts
	}
	return &lead, nil
}

// CreateLead inserts a lead and logs the creation as a system activity
func (s *LeadService) CreateLead(req db.CreateLeadRequest) (*db.Lead, error) {
	if req.OwnerID != "" && !isUUID(req.OwnerID) {
		return nil, ErrInvalidOwner
	}
	status := req.Status
	if status == "" {
		status = db.LeadStatusNew
	}
	now := time.Now().UTC()
	lead := db.Lead{
		ID:        uuid.New().String(),
		Name:      req.Name,
		Phone:     req.Phone,
		Email:     req.Email,
		Source:    req.Source,
		Status:    status,
		OwnerID:   req.OwnerID,
		Country:   req.Country,
		Program:   req.Program,
		CreatedAt: now.Format(time.RFC3339),
		UpdatedAt: now.Format(time.RFC3339),
	}

	tx, err := s.PG.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Exec(`
		INSERT INTO leads (id, name, phone, email, source, status, owner_id, country, program, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, '')::uuid, $8, $9, $10, $10)`,
		lead.ID, lead.Name, lead.Phone, lead.Email, lead.Source, lead.Status,
		lead.OwnerID, lead.Country, lead.Program, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create lead: %w", err)
	}

	created, err := insertActivity(tx, db.Activity{
		LeadID:    lead.ID,
		Type:      db.ActivityTypeSystem,
		Title:     "Lead được tạo",
		CreatedBy: db.GetSystemUserBySource(lead.Source),
	}, now)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	lead.Activities = []db.Activity{created}
	return &lead, nil
}

// UpdateLeadStatus moves a lead to a new pipeline status and logs the change
func (s *LeadService) UpdateLeadStatus(id, status string) error {
	if !isUUID(id) {
		return ErrLeadNotFound
	}
	now := time.Now().UTC()

	tx, err := s.PG.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.Exec(`UPDATE leads SET status = $1, updated_at = $2 WHERE id = $3`, status, now, id)
	if err != nil {
		return fmt.Errorf("failed to update lead status: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrLeadNotFound
	}

	_, err = insertActivity(tx, db.Activity{
		LeadID:    id,
		Type:      db.ActivityTypeSystem,
		Title:     fmt.Sprintf("Chuyển trạng thái sang %s", status),
		CreatedBy: db.SystemUserCRM,
	}, now)
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// SetSLAOverride pins a manual SLA status on a lead
func (s *LeadService) SetSLAOverride(id, status, reason string) error {
	switch status {
	case db.SLAStatusNormal, db.SLAStatusWarning, db.SLAStatusDanger:
	default:
		return ErrInvalidSLAStatus
	}
	if !isUUID(id) {
		return ErrLeadNotFound
	}

	result, err := s.PG.Exec(`
		UPDATE leads SET sla_status = $1, sla_reason = NULLIF($2, ''), updated_at = NOW()
		WHERE id = $3`, status, reason, id)
	if err != nil {
		return fmt.Errorf("failed to set sla override: %w", err)
	}
	return requireRow(result, ErrLeadNotFound)
}

// ClearSLAOverride removes a manual SLA status so automatic rules apply again
func (s *LeadService) ClearSLAOverride(id string) error {
	if !isUUID(id) {
		return ErrLeadNotFound
	}
	result, err := s.PG.Exec(`
		UPDATE leads SET sla_status = NULL, sla_reason = NULL, updated_at = NOW()
		WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to clear sla override: %w", err)
	}
	return requireRow(result, ErrLeadNotFound)
}

// AddActivity logs a user interaction or schedules an appointment on a lead
func (s *LeadService) AddActivity(leadID string, req db.CreateActivityRequest, userID string) (*db.Activity, error) {
	if !db.IsValidActivityType(req.Type) {
		return nil, ErrInvalidActivity
	}
	if req.Datetime != "" {
		if _, ok := sla.ParseTime(req.Datetime); !ok {
			return nil, ErrInvalidDatetime
		}
	}

	if !isUUID(leadID) {
		return nil, ErrLeadNotFound
	}
	// created_by is a UUID column; tokens minted outside the CRM may carry other subjects
	if !isUUID(userID) {
		userID = ""
	}

	var exists bool
	if err := s.PG.QueryRow(`SELECT EXISTS(SELECT 1 FROM leads WHERE id = $1)`, leadID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check lead: %w", err)
	}
	if !exists {
		return nil, ErrLeadNotFound
	}

	status := req.Status
	if status == "" && req.Type == db.ActivityTypeActivity {
		status = db.ActivityStatusScheduled
	}

	activity, err := insertActivity(s.PG, db.Activity{
		LeadID:      leadID,
		Type:        req.Type,
		Status:      status,
		Title:       req.Title,
		Description: req.Description,
		Datetime:    req.Datetime,
		CreatedBy:   userID,
	}, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	return &activity, nil
}

// CompleteActivity marks a scheduled appointment as done
func (s *LeadService) CompleteActivity(leadID, activityID string) error {
	if !isUUID(leadID) || !isUUID(activityID) {
		return ErrActivityNotFound
	}
	result, err := s.PG.Exec(`
		UPDATE lead_activities SET status = $1
		WHERE id = $2 AND lead_id = $3`,
		db.ActivityStatusCompleted, activityID, leadID)
	if err != nil {
		return fmt.Errorf("failed to complete activity: %w", err)
	}
	return requireRow(result, ErrActivityNotFound)
}

type execer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
}

func insertActivity(ex execer, a db.Activity, now time.Time) (db.Activity, error) {
	a.ID = uuid.New().String()
	a.Timestamp = now.Format(time.RFC3339)

	var due interface{}
	if t, ok := sla.ParseTime(a.Datetime); ok {
		due = t
		a.Datetime = t.UTC().Format(time.RFC3339)
	}

	_, err := ex.Exec(`
		INSERT INTO lead_activities (id, lead_id, type, status, title, description, datetime, created_at, created_by)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, NULLIF($9, '')::uuid)`,
		a.ID, a.LeadID, a.Type, a.Status, a.Title, a.Description, due, now, a.CreatedBy,
	)
	if err != nil {
		return a, fmt.Errorf("failed to create activity: %w", err)
	}
	return a, nil
}

func requireRow(result sql.Result, notFound error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return notFound
	}
	return nil
}
