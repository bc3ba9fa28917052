// Command consumer is an example event consumer built on pkg/claim. It polls
// for pending events and runs the claim protocol on each: claim, process,
// complete, commit. Contended and already-completed events are skipped;
// retry timing is this binary's policy, the claim core never retries.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/eventgate/eventgate/internal/config"
	"github.com/eventgate/eventgate/internal/models"
	"github.com/eventgate/eventgate/pkg/claim"
	"github.com/eventgate/eventgate/pkg/logger"
)

func main() {
	var (
		configPath = flag.String("config", os.Getenv("CONFIG_PATH"), "path to config file")
		consumerID = flag.String("id", "", "consumer identity (default: generated)")
		interval   = flag.Duration("interval", 2*time.Second, "poll interval")
		batchSize  = flag.Int("batch", 10, "events fetched per poll")
		workTime   = flag.Duration("work", 100*time.Millisecond, "simulated processing time per event")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(cfg.Log.Level)

	if err := models.InitDB(&cfg.Database); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	if err := models.AutoMigrate(); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}

	id := *consumerID
	if id == "" {
		id = "consumer-" + uuid.NewString()[:8]
	}

	locker, err := claim.NewLocker(models.GetDB())
	if err != nil {
		logger.Fatalf("Claim locking unavailable: %v", err)
	}
	uow := claim.NewUnitOfWork(models.GetDB(), locker)
	mgr := claim.NewManager(locker)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info().Str("consumer_id", id).Dur("interval", *interval).Msg("consumer started")

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Str("consumer_id", id).Msg("consumer stopped")
			return
		case <-ticker.C:
			pollOnce(ctx, mgr, uow, id, *batchSize, *workTime)
		}
	}
}

func pollOnce(ctx context.Context, mgr *claim.Manager, uow *claim.UnitOfWork, consumerID string, batchSize int, workTime time.Duration) {
	var ids []string
	err := models.GetDB().Model(&models.Event{}).
		Where("status = ?", models.EventStatusPending).
		Order("created_at ASC").
		Limit(batchSize).
		Pluck("event_id", &ids).Error
	if err != nil {
		logger.Error().Err(err).Msg("failed to list pending events")
		return
	}

	for _, eventID := range ids {
		err := mgr.Process(ctx, uow, eventID, consumerID, func(tx *gorm.DB) error {
			// Stand-in for real work. Consumers embedding pkg/claim run
			// their domain processing here, inside the claim transaction.
			time.Sleep(workTime)
			return nil
		})
		switch {
		case err == nil:
			logger.Info().Str("event_id", eventID).Str("consumer_id", consumerID).Msg("event processed")
		case claim.IsLockContention(err):
			logger.Debug().Str("event_id", eventID).Msg("event claimed elsewhere, skipping")
		case claim.IsAlreadyCompleted(err):
			logger.Debug().Str("event_id", eventID).Msg("event already completed, skipping")
		default:
			logger.Error().Err(err).Str("event_id", eventID).Msg("processing failed, event left claimable")
		}
	}
}
