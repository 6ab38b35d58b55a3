package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/wafbroker/internal/core/ports/driven"
)

var _ driven.DistributedLock = (*MockDistributedLock)(nil)

// MockDistributedLock keeps locks in memory and counts calls.
// Hook fields override the default behaviour when set.
type MockDistributedLock struct {
	mu       sync.Mutex
	expiry   map[string]time.Time
	acquires int
	releases int

	AcquireFn func(name string, ttl time.Duration) (bool, error)
	ReleaseFn func(name string) error
}

// NewMockDistributedLock creates a new mock distributed lock.
func NewMockDistributedLock() *MockDistributedLock {
	return &MockDistributedLock{expiry: make(map[string]time.Time)}
}

func (m *MockDistributedLock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	m.acquires++
	m.mu.Unlock()

	if m.AcquireFn != nil {
		return m.AcquireFn(name, ttl)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if exp, ok := m.expiry[name]; ok && time.Now().Before(exp) {
		return false, nil
	}
	m.expiry[name] = time.Now().Add(ttl)
	return true, nil
}

func (m *MockDistributedLock) Release(ctx context.Context, name string) error {
	m.mu.Lock()
	m.releases++
	m.mu.Unlock()

	if m.ReleaseFn != nil {
		return m.ReleaseFn(name)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.expiry, name)
	return nil
}

func (m *MockDistributedLock) Extend(ctx context.Context, name string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	exp, ok := m.expiry[name]
	if !ok || time.Now().After(exp) {
		return fmt.Errorf("lock %s not held", name)
	}
	m.expiry[name] = time.Now().Add(ttl)
	return nil
}

func (m *MockDistributedLock) Ping(ctx context.Context) error { return nil }

// Hold marks a lock as held by another instance (for test setup).
func (m *MockDistributedLock) Hold(name string, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expiry[name] = time.Now().Add(ttl)
}

// IsHeld checks if a lock is currently held (for test assertions).
func (m *MockDistributedLock) IsHeld(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	exp, ok := m.expiry[name]
	return ok && time.Now().Before(exp)
}

// Calls returns how many times Acquire and Release were called.
func (m *MockDistributedLock) Calls() (acquires, releases int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.acquires, m.releases
}
