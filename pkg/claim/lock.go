package claim

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	gomysql "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/eventgate/eventgate/internal/models"
)

// LockKeyFor derives the lock key for an event id: the first 8 bytes of the
// sha256 digest, interpreted as a signed big-endian 64-bit integer. The
// derivation is pure, so every consumer attempting the same event computes
// the same key regardless of process or host.
func LockKeyFor(eventID string) int64 {
	sum := sha256.Sum256([]byte(eventID))
	return int64(binary.BigEndian.Uint64(sum[:8]))
}

// Locker is a non-blocking, transaction-scoped mutual exclusion primitive.
//
// TryAcquire returns false immediately if another live transaction holds the
// lock for the event; it never waits or retries. Acquiring the same key twice
// within one transaction succeeds. The lock is released when the owning
// transaction ends (commit or rollback) with no explicit release call.
//
// ReleaseTx is invoked by the UnitOfWork after the transaction has ended.
// Store-released lockers treat it as a no-op.
type Locker interface {
	TryAcquire(tx *gorm.DB, eventID string) (bool, error)
	ReleaseTx(tx *gorm.DB)
}

// NewLocker selects the lock adapter for the store behind db.
func NewLocker(db *gorm.DB) (Locker, error) {
	switch name := db.Dialector.Name(); name {
	case "postgres":
		return advisoryLocker{}, nil
	case "mysql":
		return &rowLocker{db: db}, nil
	case "sqlite":
		return newLocalLocker(), nil
	default:
		return nil, fmt.Errorf("claim locking is not supported on driver %q", name)
	}
}

// advisoryLocker uses PostgreSQL transaction-scoped advisory locks. The
// server releases the lock at transaction end on every exit path, including
// connection loss.
type advisoryLocker struct{}

func (advisoryLocker) TryAcquire(tx *gorm.DB, eventID string) (bool, error) {
	var acquired bool
	err := tx.Raw("SELECT pg_try_advisory_xact_lock(?)", LockKeyFor(eventID)).Scan(&acquired).Error
	if err != nil {
		return false, err
	}
	return acquired, nil
}

func (advisoryLocker) ReleaseTx(*gorm.DB) {}

// MySQL server error numbers treated as lock contention.
const (
	mysqlErrLockNowait      = 3572 // NOWAIT is set and the lock is held
	mysqlErrLockWaitTimeout = 1205
)

// rowLocker locks a dedicated claim_locks row with SELECT ... FOR UPDATE
// NOWAIT (MySQL 8.0.1+). The row lock lives exactly as long as the claiming
// transaction. The lock row itself is upserted outside the claiming
// transaction so two first-time claimers never block on an uncommitted
// insert.
type rowLocker struct {
	db *gorm.DB
}

func (l *rowLocker) TryAcquire(tx *gorm.DB, eventID string) (bool, error) {
	key := LockKeyFor(eventID)

	lockRow := models.ClaimLock{LockKey: key, EventID: eventID}
	if err := l.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&lockRow).Error; err != nil {
		return false, err
	}

	var locked models.ClaimLock
	err := tx.Raw("SELECT lock_key, event_id FROM claim_locks WHERE lock_key = ? FOR UPDATE NOWAIT", key).
		Scan(&locked).Error
	if err != nil {
		var mysqlErr *gomysql.MySQLError
		if errors.As(err, &mysqlErr) &&
			(mysqlErr.Number == mysqlErrLockNowait || mysqlErr.Number == mysqlErrLockWaitTimeout) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (l *rowLocker) ReleaseTx(*gorm.DB) {}

// localLocker is a process-scoped registry used with sqlite, where the store
// is embedded and single-process, so process scope equals store scope. Keys
// are owned by the transaction's connection and released by the UnitOfWork
// when the transaction ends.
type localLocker struct {
	mu   sync.Mutex
	held map[int64]gorm.ConnPool
}

func newLocalLocker() *localLocker {
	return &localLocker{held: make(map[int64]gorm.ConnPool)}
}

func (l *localLocker) TryAcquire(tx *gorm.DB, eventID string) (bool, error) {
	key := LockKeyFor(eventID)
	owner := tx.Statement.ConnPool

	l.mu.Lock()
	defer l.mu.Unlock()

	if cur, ok := l.held[key]; ok {
		// Re-acquiring within the owning transaction is a no-op success.
		return cur == owner, nil
	}
	l.held[key] = owner
	return true, nil
}

func (l *localLocker) ReleaseTx(tx *gorm.DB) {
	owner := tx.Statement.ConnPool

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, cur := range l.held {
		if cur == owner {
			delete(l.held, key)
		}
	}
}
