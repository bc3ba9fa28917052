package main

import (
	"github.com/eventgate/eventgate/internal/config"
	"github.com/eventgate/eventgate/internal/models"
	"github.com/eventgate/eventgate/internal/services"
	"github.com/eventgate/eventgate/pkg/claim"
	"github.com/eventgate/eventgate/pkg/logger"
)

// appServices holds all initialized services needed by the application.
type appServices struct {
	cleanupService *services.CleanupService
}

// bootstrap initializes all application dependencies: database, claim stack
// sanity check, schedulers.
func bootstrap(cfg *config.Config) *appServices {
	// Initialize database
	if err := models.InitDB(&cfg.Database); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	// Auto migrate database
	if err := models.AutoMigrate(); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}

	// Fail fast if the configured driver has no claim lock adapter, rather
	// than surfacing it on a consumer's first claim attempt.
	if _, err := claim.NewLocker(models.GetDB()); err != nil {
		logger.Fatalf("Claim locking unavailable: %v", err)
	}

	// Start completed-event retention cleanup
	cleanupService := services.NewCleanupService(models.GetDB(), &cfg.Retention)
	if err := cleanupService.StartScheduler(); err != nil {
		logger.Fatalf("Failed to start cleanup scheduler: %v", err)
	}

	return &appServices{
		cleanupService: cleanupService,
	}
}

// shutdown gracefully stops all services.
func (s *appServices) shutdown() {
	s.cleanupService.StopScheduler()
	logger.Info().Msg("All schedulers stopped")
}
