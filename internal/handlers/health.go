package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/eventgate/eventgate/internal/models"
)

// HealthHandler provides enhanced health check endpoints.
type HealthHandler struct{}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// CheckHealth returns the health status of all subsystems.
func (h *HealthHandler) CheckHealth(c *gin.Context) {
	overall := "healthy"

	// Database check
	dbStatus := "ok"
	sqlDB, err := models.GetDB().DB()
	if err != nil {
		dbStatus = "error: " + err.Error()
		overall = "unhealthy"
	} else if err := sqlDB.Ping(); err != nil {
		dbStatus = "error: " + err.Error()
		overall = "unhealthy"
	}

	// Claimable backlog
	var pendingCount, claimedCount int64
	models.GetDB().Model(&models.Event{}).
		Where("status = ?", models.EventStatusPending).
		Count(&pendingCount)
	models.GetDB().Model(&models.Event{}).
		Where("status = ?", models.EventStatusClaimed).
		Count(&claimedCount)

	c.JSON(200, gin.H{
		"status":  overall,
		"service": "eventgate",
		"components": gin.H{
			"database":       dbStatus,
			"pending_events": pendingCount,
			"claimed_events": claimedCount,
		},
	})
}
