package driven

import (
	"context"
	"time"
)

// DistributedLock serializes syncs for the same (connector, kind) key
// across worker instances. The sync core itself tolerates duplicate
// concurrent writes for the same id; locking only avoids wasted work.
type DistributedLock interface {
	// Acquire attempts to acquire a named lock with the given TTL.
	// Returns true if acquired, false if already held elsewhere.
	Acquire(ctx context.Context, name string, ttl time.Duration) (acquired bool, err error)

	// Release releases a named lock. Best-effort; TTL-backed
	// implementations auto-expire anyway. Safe to call when not held.
	Release(ctx context.Context, name string) error

	// Extend extends the TTL of a currently held lock.
	Extend(ctx context.Context, name string, ttl time.Duration) error
}
