package claim

import (
	"context"

	"gorm.io/gorm"
)

// UnitOfWork scopes one transaction per Run call. The body runs inside the
// transaction; a nil return commits, any error rolls back and is returned
// unmodified after rollback completes. A panic in the body also rolls back
// before propagating. Transactions are never shared between Run calls.
type UnitOfWork struct {
	db     *gorm.DB
	locker Locker
}

func NewUnitOfWork(db *gorm.DB, locker Locker) *UnitOfWork {
	return &UnitOfWork{db: db, locker: locker}
}

// Run executes fn within a fresh transaction.
func (u *UnitOfWork) Run(ctx context.Context, fn func(tx *gorm.DB) error) error {
	tx := u.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}

	committed := false
	defer func() {
		if !committed {
			// Rollback discards provisional claim writes; the store drops
			// transaction-scoped locks with the transaction. Rollback errors
			// are ignored in favor of the original failure.
			tx.Rollback()
		}
		u.locker.ReleaseTx(tx)
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit().Error; err != nil {
		return err
	}
	committed = true
	return nil
}
