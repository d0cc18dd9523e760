package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/phonginreallife/leadtriage/db"
	"github.com/phonginreallife/leadtriage/internal/domainfilter"
	"github.com/phonginreallife/leadtriage/internal/sla"
	"github.com/phonginreallife/leadtriage/services"
)

type LeadHandler struct {
	leadService   *services.LeadService
	triageService *services.TriageService
	now           sla.Clock
}

func NewLeadHandler(leadService *services.LeadService, triageService *services.TriageService) *LeadHandler {
	return &LeadHandler{
		leadService:   leadService,
		triageService: triageService,
		now:           time.Now,
	}
}

// SearchLeadsRequest carries the chips shown in the search bar
type SearchLeadsRequest struct {
	Filters []domainfilter.SearchFilter `json:"filters" binding:"dive"`
}

// ListLeads handles GET /leads
// Query: filter=<field>:<value> (repeatable), search=<text>, groupby=<field> (repeatable)
func (h *LeadHandler) ListLeads(c *gin.Context) {
	filters, err := chipsFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid filter", "details": err.Error()})
		return
	}
	h.search(c, filters)
}

// SearchLeads handles POST /leads/search
func (h *LeadHandler) SearchLeads(c *gin.Context) {
	var req SearchLeadsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	h.search(c, req.Filters)
}

func (h *LeadHandler) search(c *gin.Context, filters []domainfilter.SearchFilter) {
	result, err := h.triageService.Search(filters)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to search leads", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// chipsFromQuery turns query parameters into search chips
func chipsFromQuery(c *gin.Context) ([]domainfilter.SearchFilter, error) {
	filters := []domainfilter.SearchFilter{}

	for _, raw := range c.QueryArray("filter") {
		field, value, ok := strings.Cut(raw, ":")
		field = strings.TrimSpace(field)
		if !ok || field == "" {
			return nil, errors.New("filter must look like <field>:<value>, got " + raw)
		}
		filters = append(filters, domainfilter.SearchFilter{
			Field: field,
			Label: raw,
			Value: value,
			Type:  domainfilter.TypeFilter,
		})
	}

	for _, text := range c.QueryArray("search") {
		if strings.TrimSpace(text) == "" {
			continue
		}
		filters = append(filters, domainfilter.SearchFilter{
			Field: domainfilter.SearchField,
			Label: text,
			Value: text,
			Type:  domainfilter.TypeFilter,
		})
	}

	for _, field := range c.QueryArray("groupby") {
		if field == "" {
			continue
		}
		filters = append(filters, domainfilter.SearchFilter{
			Field: field,
			Label: field,
			Type:  domainfilter.TypeGroupBy,
		})
	}
	return filters, nil
}

// CreateLead handles POST /leads
func (h *LeadHandler) CreateLead(c *gin.Context) {
	var req db.CreateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	// Sales reps create leads for themselves unless they say otherwise.
	// Subjects that are not CRM user ids leave the lead unassigned.
	if req.OwnerID == "" {
		if userID := c.GetString("user_id"); isUserID(userID) {
			req.OwnerID = userID
		}
	}

	lead, err := h.leadService.CreateLead(req)
	if err != nil {
		respondServiceError(c, "Failed to create lead", err)
		return
	}
	c.JSON(http.StatusCreated, lead)
}

// GetLead handles GET /leads/:id
func (h *LeadHandler) GetLead(c *gin.Context) {
	lead, err := h.leadService.GetLead(c.Param("id"))
	if err != nil {
		respondServiceError(c, "Failed to get lead", err)
		return
	}

	badge := sla.FormatSLATime(lead.CreatedAt, h.now())
	if badge.Text != "" {
		lead.SLABadge = &badge
	}
	c.JSON(http.StatusOK, lead)
}

// UpdateLeadStatus handles PATCH /leads/:id/status
func (h *LeadHandler) UpdateLeadStatus(c *gin.Context) {
	var req db.UpdateLeadStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if err := h.leadService.UpdateLeadStatus(c.Param("id"), req.Status); err != nil {
		respondServiceError(c, "Failed to update lead status", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Lead status updated", "status": req.Status})
}

// SetSLAOverride handles PUT /leads/:id/sla
func (h *LeadHandler) SetSLAOverride(c *gin.Context) {
	var req db.SetSLAOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if err := h.leadService.SetSLAOverride(c.Param("id"), req.SLAStatus, req.SLAReason); err != nil {
		respondServiceError(c, "Failed to set SLA status", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "SLA status updated", "sla_status": req.SLAStatus})
}

// ClearSLAOverride handles DELETE /leads/:id/sla
func (h *LeadHandler) ClearSLAOverride(c *gin.Context) {
	if err := h.leadService.ClearSLAOverride(c.Param("id")); err != nil {
		respondServiceError(c, "Failed to clear SLA status", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "SLA status cleared"})
}

// AddActivity handles POST /leads/:id/activities
func (h *LeadHandler) AddActivity(c *gin.Context) {
	var req db.CreateActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	activity, err := h.leadService.AddActivity(c.Param("id"), req, c.GetString("user_id"))
	if err != nil {
		respondServiceError(c, "Failed to add activity", err)
		return
	}
	c.JSON(http.StatusCreated, activity)
}

// CompleteActivity handles POST /leads/:id/activities/:activity_id/complete
func (h *LeadHandler) CompleteActivity(c *gin.Context) {
	if err := h.leadService.CompleteActivity(c.Param("id"), c.Param("activity_id")); err != nil {
		respondServiceError(c, "Failed to complete activity", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Activity completed"})
}

// respondServiceError maps service errors to HTTP status codes
func respondServiceError(c *gin.Context, msg string, err error) {
	switch {
	case errors.Is(err, services.ErrLeadNotFound), errors.Is(err, services.ErrActivityNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidSLAStatus),
		errors.Is(err, services.ErrInvalidActivity),
		errors.Is(err, services.ErrInvalidDatetime),
		errors.Is(err, services.ErrInvalidOwner):
		c.JSON(http.StatusBadRequest, gin.H{"error": msg, "details": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg, "details": err.Error()})
	}
}

func isUserID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
