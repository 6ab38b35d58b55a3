package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/wafbroker/internal/core/domain"
	"github.com/custodia-labs/wafbroker/internal/core/ports/driven"
)

var (
	_ driven.CredentialStore   = (*MockCredentialStore)(nil)
	_ driven.TokenStore        = (*MockTokenStore)(nil)
	_ driven.SubscriptionCache = (*MockSubscriptionCache)(nil)
	_ driven.WizardStore       = (*MockWizardStore)(nil)
	_ driven.StatusStore       = (*MockStatusStore)(nil)
)

// MockCredentialStore keeps credentials in memory
type MockCredentialStore struct {
	mu    sync.RWMutex
	creds domain.Credentials

	SaveErr error
}

// NewMockCredentialStore creates a new MockCredentialStore
func NewMockCredentialStore() *MockCredentialStore {
	return &MockCredentialStore{}
}

func (m *MockCredentialStore) Save(ctx context.Context, clientID, clientSecret string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.creds = domain.Credentials{ClientID: clientID, ClientSecret: clientSecret}
	return nil
}

func (m *MockCredentialStore) ClientID(ctx context.Context) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.creds.ClientID, m.creds.ClientID != ""
}

func (m *MockCredentialStore) ClientSecret(ctx context.Context) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.creds.ClientSecret, m.creds.ClientSecret != ""
}

func (m *MockCredentialStore) Credentials(ctx context.Context) (domain.Credentials, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.creds, m.creds.IsComplete()
}

func (m *MockCredentialStore) HasCredentials(ctx context.Context) bool {
	_, ok := m.Credentials(ctx)
	return ok
}

func (m *MockCredentialStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds = domain.Credentials{}
	return nil
}

func (m *MockCredentialStore) RotateSecret(ctx context.Context, clientSecret string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds.ClientSecret = clientSecret
	return nil
}

// MockTokenStore keeps a token in memory without a buffer
type MockTokenStore struct {
	mu      sync.Mutex
	token   string
	expires time.Time
	sets    int
	clears  int
}

// NewMockTokenStore creates a new MockTokenStore
func NewMockTokenStore() *MockTokenStore {
	return &MockTokenStore{}
}

func (m *MockTokenStore) Get(ctx context.Context) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token == "" || !time.Now().Before(m.expires) {
		m.token = ""
		return "", false
	}
	return m.token, true
}

func (m *MockTokenStore) Set(ctx context.Context, token string, expiresIn time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	m.token = token
	m.expires = time.Now().Add(expiresIn)
	return nil
}

func (m *MockTokenStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clears++
	m.token = ""
	return nil
}

func (m *MockTokenStore) Remaining(ctx context.Context) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d := time.Until(m.expires); m.token != "" && d > 0 {
		return d
	}
	return 0
}

func (m *MockTokenStore) ExpiresAt(ctx context.Context) (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.expires, m.token != ""
}

// Calls returns how many times Set and Clear were called.
func (m *MockTokenStore) Calls() (sets, clears int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sets, m.clears
}

// MockSubscriptionCache keeps one subscription in memory
type MockSubscriptionCache struct {
	mu  sync.Mutex
	sub *domain.Subscription
}

// NewMockSubscriptionCache creates a cache, optionally pre-seeded.
func NewMockSubscriptionCache(seed *domain.Subscription) *MockSubscriptionCache {
	return &MockSubscriptionCache{sub: seed}
}

func (m *MockSubscriptionCache) Load(ctx context.Context) (*domain.Subscription, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sub == nil {
		return nil, false
	}
	cp := *m.sub
	return &cp, true
}

func (m *MockSubscriptionCache) Store(ctx context.Context, sub *domain.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *sub
	m.sub = &cp
	return nil
}

func (m *MockSubscriptionCache) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sub = nil
	return nil
}

// MockWizardStore keeps wizard progress in memory
type MockWizardStore struct {
	mu    sync.Mutex
	steps []domain.WizardStep
}

// NewMockWizardStore creates a new MockWizardStore
func NewMockWizardStore() *MockWizardStore {
	return &MockWizardStore{}
}

func (m *MockWizardStore) CompletedSteps(ctx context.Context) []domain.WizardStep {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.WizardStep(nil), m.steps...)
}

func (m *MockWizardStore) SaveCompletedSteps(ctx context.Context, steps []domain.WizardStep) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps = append([]domain.WizardStep(nil), steps...)
	return nil
}

func (m *MockWizardStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps = nil
	return nil
}

// MockStatusStore keeps the last protection status in memory
type MockStatusStore struct {
	mu     sync.Mutex
	status *domain.ProtectionStatus
	saves  int
}

// NewMockStatusStore creates a new MockStatusStore
func NewMockStatusStore() *MockStatusStore {
	return &MockStatusStore{}
}

func (m *MockStatusStore) LastStatus(ctx context.Context) (*domain.ProtectionStatus, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status == nil {
		return nil, false
	}
	cp := *m.status
	return &cp, true
}

func (m *MockStatusStore) SaveStatus(ctx context.Context, status *domain.ProtectionStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	cp := *status
	m.status = &cp
	return nil
}

func (m *MockStatusStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = nil
	return nil
}

// Saves returns how many times SaveStatus was called.
func (m *MockStatusStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
