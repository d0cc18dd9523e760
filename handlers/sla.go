package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/phonginreallife/leadtriage/db"
	"github.com/phonginreallife/leadtriage/internal/sla"
	"github.com/phonginreallife/leadtriage/services"
)

type SLAHandler struct {
	triageService   *services.TriageService
	settingsService *services.SettingsService
}

func NewSLAHandler(triageService *services.TriageService, settingsService *services.SettingsService) *SLAHandler {
	return &SLAHandler{
		triageService:   triageService,
		settingsService: settingsService,
	}
}

// GetWarnings handles GET /sla/warnings
// Query: mine=true, ack_minutes, first_action_minutes, plus the chip params of GET /leads
func (h *SLAHandler) GetWarnings(c *gin.Context) {
	userID := c.GetString("user_id")
	mineOnly := c.Query("mine") == "true"

	cfg, err := h.settingsService.GetSLAConfig(userID)
	if err != nil {
		// Defaults are still usable
		log.Printf("WARNING: failed to load SLA settings for %s: %v", userID, err)
	}

	if v := c.Query("ack_minutes"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ack_minutes", "details": err.Error()})
			return
		}
		cfg.AckTimeMinutes = n
	}
	if v := c.Query("first_action_minutes"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid first_action_minutes", "details": err.Error()})
			return
		}
		cfg.FirstActionTimeMinutes = n
	}

	filters, err := chipsFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid filter", "details": err.Error()})
		return
	}

	result, err := h.triageService.Warnings(userID, mineOnly, cfg, filters)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to evaluate SLA", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetSettings handles GET /sla/settings
func (h *SLAHandler) GetSettings(c *gin.Context) {
	cfg, err := h.settingsService.GetSLAConfig(c.GetString("user_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get SLA settings", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, cfg)
}

// UpdateSettings handles PUT /sla/settings
func (h *SLAHandler) UpdateSettings(c *gin.Context) {
	var req db.UpdateSLASettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	saved, err := h.settingsService.SaveSLAConfig(c.GetString("user_id"), sla.Config{
		AckTimeMinutes:         req.AckTimeMinutes,
		FirstActionTimeMinutes: req.FirstActionTimeMinutes,
	})
	if err != nil {
		respondServiceError(c, "Failed to save SLA settings", err)
		return
	}
	c.JSON(http.StatusOK, saved)
}
