package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/custodia-labs/wafbroker/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DistributedLock = (*AdvisoryLock)(nil)

// AdvisoryLock implements DistributedLock using PostgreSQL advisory locks.
//
// Advisory locks belong to a session, so each held lock pins one pooled
// connection until Release. The TTL is ignored: a lock lives until it is
// released or its connection drops.
type AdvisoryLock struct {
	db *DB

	mu    sync.Mutex
	conns map[string]*sql.Conn
}

// NewAdvisoryLock creates a new PostgreSQL advisory lock adapter.
func NewAdvisoryLock(db *DB) *AdvisoryLock {
	return &AdvisoryLock{db: db, conns: make(map[string]*sql.Conn)}
}

// hashLockName converts a lock name to a 64-bit advisory lock key.
func hashLockName(name string) int64 {
	h := fnv.New64a()
	h.Write([]byte("wafbroker:lock:" + name))
	return int64(h.Sum64())
}

// Acquire attempts to acquire a named advisory lock without blocking.
func (l *AdvisoryLock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, held := l.conns[name]; held {
		return false, nil
	}

	conn, err := l.db.Conn(ctx)
	if err != nil {
		return false, fmt.Errorf("reserve connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", hashLockName(name)).Scan(&acquired); err != nil {
		conn.Close()
		return false, err
	}
	if !acquired {
		conn.Close()
		return false, nil
	}

	l.conns[name] = conn
	return true, nil
}

// Release unlocks on the connection that took the lock and returns it to
// the pool. Safe to call when the lock is not held.
func (l *AdvisoryLock) Release(ctx context.Context, name string) error {
	l.mu.Lock()
	conn, held := l.conns[name]
	delete(l.conns, name)
	l.mu.Unlock()

	if !held {
		return nil
	}
	defer conn.Close()

	var released bool
	return conn.QueryRowContext(ctx, "SELECT pg_advisory_unlock($1)", hashLockName(name)).Scan(&released)
}

// Extend only checks the lock is held; advisory locks have no TTL.
func (l *AdvisoryLock) Extend(ctx context.Context, name string, ttl time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, held := l.conns[name]; !held {
		return fmt.Errorf("lock %s not held", name)
	}
	return nil
}

// Ping checks if the PostgreSQL backend is healthy.
func (l *AdvisoryLock) Ping(ctx context.Context) error {
	return l.db.PingContext(ctx)
}
