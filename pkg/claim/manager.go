// Package claim guarantees at-most-one-active-claim and
// exactly-once-successful-processing semantics for events contended by
// independent consumer processes sharing one transactional store.
//
// A consumer opens a UnitOfWork, claims an event id through the Manager,
// performs its processing, marks the claim complete, and commits. Any
// failure on that path rolls the transaction back, which discards the
// provisional claim and releases the lock in one atomic step, leaving the
// event fully claimable again.
package claim

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/eventgate/eventgate/internal/models"
	"github.com/eventgate/eventgate/pkg/logger"
)

// Claim is the provisional, transaction-scoped assertion that a consumer
// owns the right to process an event. It is only durable once the enclosing
// transaction commits.
type Claim struct {
	EventID    string
	ConsumerID string
	LockKey    int64
	ClaimedAt  time.Time
}

// Manager orchestrates the lock primitive and the event table inside a
// caller-supplied transaction to implement the claim protocol.
type Manager struct {
	locker Locker
}

func NewManager(locker Locker) *Manager {
	return &Manager{locker: locker}
}

// Claim attempts to claim the event inside the given open transaction.
//
// Returns *LockContentionError if another live transaction holds the lock,
// *AlreadyCompletedError if a prior transaction already completed the event.
// Both are terminal for this attempt; nothing is retried internally. The
// completed check runs after lock acquisition, so an in-flight uncommitted
// completion is reported as contention, never as completed.
func (m *Manager) Claim(tx *gorm.DB, eventID, consumerID string) (*Claim, error) {
	acquired, err := m.locker.TryAcquire(tx, eventID)
	if err != nil {
		return nil, err
	}
	if !acquired {
		logger.Debug().
			Str("event_id", eventID).
			Str("consumer_id", consumerID).
			Msg("claim lock contended")
		return nil, &LockContentionError{EventID: eventID}
	}

	now := time.Now().UTC()
	var ev models.Event
	err = tx.Where("event_id = ?", eventID).Take(&ev).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		// First claim attempt for this id: create the record lazily. The
		// insert is provisional until the transaction commits.
		ev = models.Event{
			EventID:   eventID,
			Status:    models.EventStatusClaimed,
			ClaimedBy: consumerID,
			ClaimedAt: &now,
		}
		if err := tx.Create(&ev).Error; err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	case ev.Status == models.EventStatusCompleted:
		// The lock alone cannot detect finished work: a prior holder may
		// have committed and released the lock long ago.
		return nil, &AlreadyCompletedError{EventID: eventID}
	default:
		updates := map[string]interface{}{
			"status":     models.EventStatusClaimed,
			"claimed_by": consumerID,
			"claimed_at": now,
		}
		if err := tx.Model(&models.Event{}).Where("event_id = ?", eventID).Updates(updates).Error; err != nil {
			return nil, err
		}
	}

	logger.Debug().
		Str("event_id", eventID).
		Str("consumer_id", consumerID).
		Msg("claim established")

	return &Claim{
		EventID:    eventID,
		ConsumerID: consumerID,
		LockKey:    LockKeyFor(eventID),
		ClaimedAt:  now,
	}, nil
}

// Complete marks a claimed event as completed. It must run in the same
// transaction that established the claim, before the UnitOfWork commits.
func (m *Manager) Complete(tx *gorm.DB, c *Claim) error {
	res := tx.Model(&models.Event{}).
		Where("event_id = ? AND status = ?", c.EventID, models.EventStatusClaimed).
		Updates(map[string]interface{}{
			"status":       models.EventStatusCompleted,
			"completed_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("event %q is not claimed in this transaction", c.EventID)
	}
	return nil
}

// Process runs the full protocol in one unit of work: claim, invoke fn,
// complete, commit. Any error from any step rolls the whole attempt back
// and is returned unmodified.
func (m *Manager) Process(ctx context.Context, uow *UnitOfWork, eventID, consumerID string, fn func(tx *gorm.DB) error) error {
	return uow.Run(ctx, func(tx *gorm.DB) error {
		c, err := m.Claim(tx, eventID, consumerID)
		if err != nil {
			return err
		}
		if fn != nil {
			if err := fn(tx); err != nil {
				return err
			}
		}
		return m.Complete(tx, c)
	})
}
