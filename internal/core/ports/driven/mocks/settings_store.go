package mocks

import (
	"context"
	"sync"

	"github.com/custodia-labs/wafbroker/internal/core/domain"
	"github.com/custodia-labs/wafbroker/internal/core/ports/driven"
)

var _ driven.SettingsStore = (*MockSettingsStore)(nil)

// MockSettingsStore is an in-memory SettingsStore for testing.
// Set FailWrites to make every write fail, or FailKeys to fail writes of
// single keys.
type MockSettingsStore struct {
	mu       sync.RWMutex
	values   map[string]string
	autoload map[string]bool

	FailWrites error
	FailReads  error
	FailKeys   map[string]error
}

func (m *MockSettingsStore) writeErr(key string) error {
	if m.FailWrites != nil {
		return m.FailWrites
	}
	return m.FailKeys[key]
}

// NewMockSettingsStore creates a new MockSettingsStore
func NewMockSettingsStore() *MockSettingsStore {
	return &MockSettingsStore{
		values:   make(map[string]string),
		autoload: make(map[string]bool),
	}
}

func (m *MockSettingsStore) Get(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.FailReads != nil {
		return "", m.FailReads
	}
	v, ok := m.values[key]
	if !ok {
		return "", domain.ErrNotFound
	}
	return v, nil
}

func (m *MockSettingsStore) Set(ctx context.Context, key, value string, autoload bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.writeErr(key); err != nil {
		return err
	}
	m.values[key] = value
	m.autoload[key] = autoload
	return nil
}

func (m *MockSettingsStore) Add(ctx context.Context, key, value string, autoload bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.writeErr(key); err != nil {
		return false, err
	}
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value
	m.autoload[key] = autoload
	return true, nil
}

func (m *MockSettingsStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.writeErr(key); err != nil {
		return err
	}
	delete(m.values, key)
	delete(m.autoload, key)
	return nil
}

// Autoload reports the autoload flag a key was written with (for test assertions).
func (m *MockSettingsStore) Autoload(key string) (autoload, ok bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok = m.values[key]
	return m.autoload[key], ok
}

// Raw returns the stored value without error mapping (for test assertions).
func (m *MockSettingsStore) Raw(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

// Len returns the number of stored keys.
func (m *MockSettingsStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.values)
}
