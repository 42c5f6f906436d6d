package lockmgr

import (
	"context"
	"time"
)

// LockManager hands out advisory locks.
type LockManager interface {
	// AcquireLock tries once to take the lock. ttl == 0 means no expiration.
	// It returns whether the lock was acquired and, if so, the owner ID needed to
	// release it.
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (ok bool, ownerID []byte, err error)

	// AcquireLockWait retries AcquireLock until it succeeds or ctx ends.
	AcquireLockWait(ctx context.Context, key string, ttl time.Duration) (ownerID []byte, err error)

	// ReleaseLock releases the lock if ownerID holds it. It also returns true if
	// the lock did not exist.
	ReleaseLock(ctx context.Context, key string, ownerID []byte) (ok bool, err error)
}
