package claim

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/eventgate/eventgate/internal/models"
)

// These tests exercise the advisory-lock adapter against a real PostgreSQL
// server. Set EVENTGATE_TEST_PG_DSN to run them, e.g.
//
//	EVENTGATE_TEST_PG_DSN="host=localhost user=postgres password=postgres dbname=eventgate_test" go test ./pkg/claim/
func openPostgresDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := os.Getenv("EVENTGATE_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("EVENTGATE_TEST_PG_DSN not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect postgres: %v", err)
	}
	if err := db.AutoMigrate(&models.Event{}, &models.ClaimLock{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func uniqueEventID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}

func TestAdvisoryLocker_SelectedForPostgres(t *testing.T) {
	db := openPostgresDB(t)

	locker, err := NewLocker(db)
	if err != nil {
		t.Fatalf("NewLocker() error: %v", err)
	}
	if _, ok := locker.(advisoryLocker); !ok {
		t.Errorf("postgres should select the advisory locker, got %T", locker)
	}
}

func TestAdvisoryLocker_MutualExclusion(t *testing.T) {
	db := openPostgresDB(t)
	locker, err := NewLocker(db)
	if err != nil {
		t.Fatalf("NewLocker() error: %v", err)
	}
	mgr := NewManager(locker)
	uow := NewUnitOfWork(db, locker)
	ctx := context.Background()
	eventID := uniqueEventID("pg-evt")

	aClaimed := make(chan struct{})
	releaseA := make(chan struct{})
	aResult := make(chan error, 1)

	go func() {
		aResult <- uow.Run(ctx, func(tx *gorm.DB) error {
			c, err := mgr.Claim(tx, eventID, "consumer-a")
			if err != nil {
				close(aClaimed)
				return err
			}
			close(aClaimed)
			<-releaseA
			return mgr.Complete(tx, c)
		})
	}()

	<-aClaimed

	err = uow.Run(ctx, func(tx *gorm.DB) error {
		_, err := mgr.Claim(tx, eventID, "consumer-b")
		return err
	})
	if !IsLockContention(err) {
		t.Fatalf("concurrent attempt error = %v, expected LockContentionError", err)
	}

	close(releaseA)
	if err := <-aResult; err != nil {
		t.Fatalf("consumer A's unit of work failed: %v", err)
	}

	err = uow.Run(ctx, func(tx *gorm.DB) error {
		_, err := mgr.Claim(tx, eventID, "consumer-c")
		return err
	})
	if !IsAlreadyCompleted(err) {
		t.Fatalf("late attempt error = %v, expected AlreadyCompletedError", err)
	}
}

func TestAdvisoryLocker_RollbackReleasesServerLock(t *testing.T) {
	db := openPostgresDB(t)
	locker, err := NewLocker(db)
	if err != nil {
		t.Fatalf("NewLocker() error: %v", err)
	}
	mgr := NewManager(locker)
	uow := NewUnitOfWork(db, locker)
	ctx := context.Background()
	eventID := uniqueEventID("pg-rb")

	err = mgr.Process(ctx, uow, eventID, "consumer-a", func(tx *gorm.DB) error {
		return fmt.Errorf("simulated processing failure")
	})
	if err == nil {
		t.Fatal("Process() should propagate the processing failure")
	}

	if err := mgr.Process(ctx, uow, eventID, "consumer-b", nil); err != nil {
		t.Fatalf("claim after rollback failed: %v", err)
	}
}
