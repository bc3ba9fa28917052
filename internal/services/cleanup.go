package services

import (
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/eventgate/eventgate/internal/config"
	"github.com/eventgate/eventgate/internal/models"
	"github.com/eventgate/eventgate/pkg/logger"
)

// CleanupService deletes completed events past the retention window.
// PENDING and CLAIMED rows are never touched: an unfinished event must stay
// claimable no matter how old it is.
type CleanupService struct {
	db            *gorm.DB
	cfg           *config.RetentionConfig
	cronScheduler *cron.Cron
}

func NewCleanupService(db *gorm.DB, cfg *config.RetentionConfig) *CleanupService {
	return &CleanupService{db: db, cfg: cfg}
}

// CleanupCompleted deletes completed events older than retentionDays.
// Returns the number of deleted records.
func (s *CleanupService) CleanupCompleted(retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}

	cutoffTime := time.Now().AddDate(0, 0, -retentionDays)
	result := s.db.
		Where("status = ? AND completed_at < ?", models.EventStatusCompleted, cutoffTime).
		Delete(&models.Event{})
	if result.Error != nil {
		return 0, result.Error
	}

	return result.RowsAffected, nil
}

// StartScheduler runs cleanup once immediately, then on the configured cron
// schedule.
func (s *CleanupService) StartScheduler() error {
	if s.cfg.CompletedDays <= 0 {
		logger.Info().Msg("completed event cleanup disabled (retention days <= 0)")
		return nil
	}

	s.runCleanup()

	s.cronScheduler = cron.New()
	if _, err := s.cronScheduler.AddFunc(s.cfg.CleanupCron, s.runCleanup); err != nil {
		return err
	}
	s.cronScheduler.Start()

	logger.Info().
		Str("cron", s.cfg.CleanupCron).
		Int("retention_days", s.cfg.CompletedDays).
		Msg("completed event cleanup scheduled")
	return nil
}

func (s *CleanupService) StopScheduler() {
	if s.cronScheduler != nil {
		s.cronScheduler.Stop()
	}
}

func (s *CleanupService) runCleanup() {
	deleted, err := s.CleanupCompleted(s.cfg.CompletedDays)
	if err != nil {
		logger.Error().Err(err).Msg("failed to cleanup completed events")
		return
	}

	if deleted > 0 {
		logger.Info().
			Int64("deleted", deleted).
			Int("retention_days", s.cfg.CompletedDays).
			Msg("cleaned up completed events")
	}
}
