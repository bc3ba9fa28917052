package main

import (
	"github.com/gin-gonic/gin"

	"github.com/eventgate/eventgate/internal/config"
	"github.com/eventgate/eventgate/internal/handlers"
	"github.com/eventgate/eventgate/internal/middleware"
	"github.com/eventgate/eventgate/internal/models"
	"github.com/eventgate/eventgate/pkg/logger"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, cfg *config.Config) {
	// Middleware
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CORS())

	// Rate limiter for the ingest route
	ingestLimiter := middleware.NewRateLimiter(cfg.Ingest.RateLimitRPS, cfg.Ingest.RateLimitBurst)

	// Health check
	healthHandler := handlers.NewHealthHandler()
	r.GET("/health", healthHandler.CheckHealth)

	// API routes
	api := r.Group("/api")
	{
		eventHandler := handlers.NewEventHandler(models.GetDB())
		api.GET("/events", eventHandler.List)
		api.GET("/events/stats", eventHandler.Stats)
		api.GET("/events/:event_id", eventHandler.GetByID)
		api.POST("/events", ingestLimiter.Middleware(), eventHandler.Ingest)
	}
}
