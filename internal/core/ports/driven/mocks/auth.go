package mocks

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/custodia-labs/wafbroker/internal/core/domain"
	"github.com/custodia-labs/wafbroker/internal/core/ports/driven"
)

// Ensure MockAuthAdapter implements AuthAdapter
var _ driven.AuthAdapter = (*MockAuthAdapter)(nil)

// MockAuthAdapter is a mock implementation of AuthAdapter for testing.
// It uses plain text password comparison and base64-encoded JSON for tokens.
// NOT secure - only for testing.
type MockAuthAdapter struct{}

// NewMockAuthAdapter creates a new MockAuthAdapter
func NewMockAuthAdapter() *MockAuthAdapter {
	return &MockAuthAdapter{}
}

// HashPassword returns the password as-is (for testing only)
func (m *MockAuthAdapter) HashPassword(password string) (string, error) {
	return password, nil
}

// VerifyPassword compares password with hash directly (for testing only)
func (m *MockAuthAdapter) VerifyPassword(password, hash string) bool {
	return password == hash
}

// GenerateToken creates a base64-encoded JSON token from claims
func (m *MockAuthAdapter) GenerateToken(subject string, ttl time.Duration) (*domain.AdminSession, error) {
	now := time.Now()
	claims := domain.AdminClaims{Subject: subject, IssuedAt: now, ExpiresAt: now.Add(ttl)}
	data, err := json.Marshal(claims)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal claims: %w", err)
	}
	return &domain.AdminSession{
		Token:     base64.StdEncoding.EncodeToString(data),
		ExpiresAt: claims.ExpiresAt,
	}, nil
}

// ParseToken decodes a base64-encoded JSON token and returns claims
func (m *MockAuthAdapter) ParseToken(token string) (*domain.AdminClaims, error) {
	data, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return nil, domain.ErrUnauthorized
	}
	var claims domain.AdminClaims
	if err := json.Unmarshal(data, &claims); err != nil {
		return nil, domain.ErrUnauthorized
	}
	if claims.IsExpired() {
		return nil, domain.ErrUnauthorized
	}
	return &claims, nil
}
