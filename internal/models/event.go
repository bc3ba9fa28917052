package models

import "time"

// Event processing status values. Transitions are monotonic:
// PENDING -> CLAIMED -> COMPLETED. A rolled-back claim reverts the row to
// its pre-claim committed state instead of moving the status backward.
const (
	EventStatusPending   = "PENDING"
	EventStatusClaimed   = "CLAIMED"
	EventStatusCompleted = "COMPLETED"
)

// Event represents a unit of work claimed and processed by exactly one
// consumer. Rows are created either up front via the ingest API or lazily
// on the first claim attempt.
type Event struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	EventID     string     `gorm:"uniqueIndex;size:200;not null" json:"event_id"`
	Source      string     `gorm:"size:100;index" json:"source"`
	Payload     string     `gorm:"type:text" json:"payload"`
	Status      string     `gorm:"size:20;index;default:PENDING" json:"status"`
	ClaimedBy   string     `gorm:"size:100" json:"claimed_by"`
	ClaimedAt   *time.Time `json:"claimed_at"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (Event) TableName() string { return "consumer_events" }

// ClaimLock is the per-event lock row used on stores without an advisory
// lock primitive. The row itself never changes; claiming locks it with
// SELECT ... FOR UPDATE NOWAIT so the lock lives exactly as long as the
// claiming transaction.
type ClaimLock struct {
	LockKey   int64     `gorm:"primaryKey;autoIncrement:false" json:"lock_key"`
	EventID   string    `gorm:"size:200;index" json:"event_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (ClaimLock) TableName() string { return "claim_locks" }
