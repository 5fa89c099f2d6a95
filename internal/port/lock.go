package port

import (
	"context"
	"time"
)

// Lock is a distributed mutex. TryLock never blocks or retries; callers
// decide whether a busy lock means "skip" or "fail".
type Lock interface {
	TryLock(ctx context.Context, ttl time.Duration) (bool, error)

	// Unlock releases the lock only if this instance still owns it; a no-op
	// when the key expired or was re-acquired by another owner.
	Unlock(ctx context.Context) error
}

// LockFactory mints locks with owner tokens unique to this acquisition
// context across the fleet.
type LockFactory interface {
	NewLock(name string) Lock
}
