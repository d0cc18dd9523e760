package router

import (
	"database/sql"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"github.com/phonginreallife/leadtriage/handlers"
	"github.com/phonginreallife/leadtriage/internal/config"
	"github.com/phonginreallife/leadtriage/services"
)

func NewGinRouter(pg *sql.DB, rdb *redis.Client) *gin.Engine {
	r := gin.Default()

	// Add CORS middleware
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, PATCH, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Initialize services
	authService := services.NewAuthService(config.App.JWTSecret)
	leadService := services.NewLeadService(pg)
	settingsService := services.NewSettingsService(pg, config.App.SLA)
	triageService := services.NewTriageService(leadService, config.App.Grouping.UndeterminedLabel)

	// Initialize handlers
	leadHandler := handlers.NewLeadHandler(leadService, triageService)
	slaHandler := handlers.NewSLAHandler(triageService, settingsService)

	// Initialize middleware
	authMiddleware := handlers.NewAuthMiddleware(authService)

	// PUBLIC ENDPOINTS (no authentication required)
	r.GET("/health", func(c *gin.Context) {
		status := gin.H{"status": "ok", "database": "ok"}
		code := http.StatusOK
		if err := pg.PingContext(c.Request.Context()); err != nil {
			status["status"] = "degraded"
			status["database"] = err.Error()
			code = http.StatusServiceUnavailable
		}
		if rdb != nil {
			status["redis"] = "ok"
			if err := rdb.Ping(c.Request.Context()).Err(); err != nil {
				status["redis"] = err.Error()
			}
		}
		c.JSON(code, status)
	})

	// PROTECTED ENDPOINTS
	protected := r.Group("/")
	protected.Use(authMiddleware.RequireAuth())
	{
		leadRoutes := protected.Group("/leads")
		{
			leadRoutes.GET("", leadHandler.ListLeads)
			leadRoutes.POST("/search", leadHandler.SearchLeads)
			leadRoutes.POST("", leadHandler.CreateLead)
			leadRoutes.GET("/:id", leadHandler.GetLead)
			leadRoutes.PATCH("/:id/status", leadHandler.UpdateLeadStatus)

			// Manual SLA status: admins and managers only
			leadRoutes.PUT("/:id/sla", handlers.RequireSLAOverride(), leadHandler.SetSLAOverride)
			leadRoutes.DELETE("/:id/sla", handlers.RequireSLAOverride(), leadHandler.ClearSLAOverride)

			leadRoutes.POST("/:id/activities", leadHandler.AddActivity)
			leadRoutes.POST("/:id/activities/:activity_id/complete", leadHandler.CompleteActivity)
		}

		slaRoutes := protected.Group("/sla")
		{
			slaRoutes.GET("/warnings", slaHandler.GetWarnings)
			slaRoutes.GET("/settings", slaHandler.GetSettings)
			slaRoutes.PUT("/settings", slaHandler.UpdateSettings)
		}
	}

	return r
}
