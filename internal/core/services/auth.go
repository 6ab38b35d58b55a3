package services

import (
	"context"
	"time"

	"github.com/custodia-labs/wafbroker/internal/core/domain"
	"github.com/custodia-labs/wafbroker/internal/core/ports/driven"
	"github.com/custodia-labs/wafbroker/internal/core/ports/driving"
)

// Ensure adminAuthService implements AdminAuthService
var _ driving.AdminAuthService = (*adminAuthService)(nil)

// AdminSubject is the JWT subject issued to the site administrator.
const AdminSubject = "admin"

// DefaultSessionTTL is how long an admin session token stays valid.
const DefaultSessionTTL = 24 * time.Hour

// adminAuthService implements the AdminAuthService interface
type adminAuthService struct {
	authAdapter  driven.AuthAdapter
	passwordHash string
	tokenTTL     time.Duration
}

// NewAdminAuthService creates a new AdminAuthService.
// An empty passwordHash disables login.
func NewAdminAuthService(authAdapter driven.AuthAdapter, passwordHash string, tokenTTL time.Duration) driving.AdminAuthService {
	if tokenTTL <= 0 {
		tokenTTL = DefaultSessionTTL
	}
	return &adminAuthService{
		authAdapter:  authAdapter,
		passwordHash: passwordHash,
		tokenTTL:     tokenTTL,
	}
}

// Authenticate checks the admin password and issues a session token
func (s *adminAuthService) Authenticate(ctx context.Context, req domain.LoginRequest) (*domain.AdminSession, error) {
	if req.Password == "" {
		return nil, domain.ErrInvalidInput
	}
	if s.passwordHash == "" {
		return nil, domain.ErrUnauthorized
	}

	// Verify password
	if !s.authAdapter.VerifyPassword(req.Password, s.passwordHash) {
		return nil, domain.ErrUnauthorized
	}

	return s.authAdapter.GenerateToken(AdminSubject, s.tokenTTL)
}

// ValidateToken validates a JWT token and returns its claims
func (s *adminAuthService) ValidateToken(ctx context.Context, token string) (*domain.AdminClaims, error) {
	if token == "" {
		return nil, domain.ErrUnauthorized
	}

	claims, err := s.authAdapter.ParseToken(token)
	if err != nil {
		return nil, domain.ErrUnauthorized
	}

	// Check expiration
	if claims.IsExpired() || claims.Subject != AdminSubject {
		return nil, domain.ErrUnauthorized
	}

	return claims, nil
}
