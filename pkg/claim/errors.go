package claim

import (
	"errors"
	"fmt"
)

// LockContentionError is returned when another live transaction currently
// holds the claim lock for the event. The attempt is terminal; retry policy
// is up to the caller.
type LockContentionError struct {
	EventID string
}

func (e *LockContentionError) Error() string {
	return fmt.Sprintf("event %q is locked by another consumer", e.EventID)
}

// AlreadyCompletedError is returned when the event was already processed to
// completion by a prior committed transaction. Not retryable.
type AlreadyCompletedError struct {
	EventID string
}

func (e *AlreadyCompletedError) Error() string {
	return fmt.Sprintf("event %q already completed", e.EventID)
}

// IsLockContention reports whether err is a LockContentionError.
func IsLockContention(err error) bool {
	var e *LockContentionError
	return errors.As(err, &e)
}

// IsAlreadyCompleted reports whether err is an AlreadyCompletedError.
func IsAlreadyCompleted(err error) bool {
	var e *AlreadyCompletedError
	return errors.As(err, &e)
}
