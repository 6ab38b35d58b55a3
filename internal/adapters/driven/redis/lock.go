package redis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/wafbroker/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DistributedLock = (*Lock)(nil)

// Lock implements DistributedLock using SET NX with a TTL.
// The value is this instance's owner ID so only the holder can release.
type Lock struct {
	client  redis.UniversalClient
	prefix  string
	ownerID string
}

// NewLock creates a Redis-backed distributed lock. An empty prefix uses
// DefaultPrefix.
func NewLock(client redis.UniversalClient, prefix string) *Lock {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	hostname, _ := os.Hostname()
	return &Lock{
		client:  client,
		prefix:  prefix + "lock:",
		ownerID: hostname + ":" + uuid.NewString(),
	}
}

// Acquire attempts to take the named lock.
func (l *Lock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.prefix+name, l.ownerID, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", name, err)
	}
	return ok, nil
}

// releaseScript deletes the lock only when the caller owns it.
var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	end
	return 0
`)

// Release releases the named lock if this instance holds it.
func (l *Lock) Release(ctx context.Context, name string) error {
	err := releaseScript.Run(ctx, l.client, []string{l.prefix + name}, l.ownerID).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release lock %s: %w", name, err)
	}
	return nil
}

// extendScript resets the TTL only when the caller owns the lock.
var extendScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("pexpire", KEYS[1], ARGV[2])
	end
	return 0
`)

// Extend pushes out the TTL of a lock held by this instance.
func (l *Lock) Extend(ctx context.Context, name string, ttl time.Duration) error {
	n, err := extendScript.Run(ctx, l.client, []string{l.prefix + name}, l.ownerID, ttl.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("extend lock %s: %w", name, err)
	}
	if n == 0 {
		return fmt.Errorf("lock %s not held by this instance", name)
	}
	return nil
}

// Ping checks if the Redis backend is healthy.
func (l *Lock) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

// OwnerID identifies this instance in lock values.
func (l *Lock) OwnerID() string {
	return l.ownerID
}
