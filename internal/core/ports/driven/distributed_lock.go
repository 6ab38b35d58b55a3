package driven

import (
	"context"
	"time"
)

// DistributedLock coordinates work across broker instances.
// Token refresh and the scheduled status check take a named lock so only
// one instance talks to the remote service at a time.
type DistributedLock interface {
	// Acquire attempts to acquire a named lock with the given TTL.
	// Returns false if another instance holds it.
	Acquire(ctx context.Context, name string, ttl time.Duration) (acquired bool, err error)

	// Release releases a named lock. Safe to call if the lock expired.
	Release(ctx context.Context, name string) error

	// Extend extends the TTL of a currently held lock.
	// Returns error if the lock is not held by this instance.
	Extend(ctx context.Context, name string, ttl time.Duration) error

	// Ping checks if the lock backend is healthy.
	Ping(ctx context.Context) error
}
