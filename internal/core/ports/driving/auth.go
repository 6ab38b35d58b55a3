package driving

import (
	"context"

	"github.com/custodia-labs/wafbroker/internal/core/domain"
)

// AdminAuthService handles admin login for the management API
type AdminAuthService interface {
	// Authenticate checks the admin password and issues a session token
	Authenticate(ctx context.Context, req domain.LoginRequest) (*domain.AdminSession, error)

	// ValidateToken validates a JWT token and returns its claims
	ValidateToken(ctx context.Context, token string) (*domain.AdminClaims, error)
}

// RegistrationService manages the site's identity with the auth service
type RegistrationService interface {
	// RegisterSite registers the site and stores the issued credentials.
	// Returns domain.ErrAlreadyRegistered if credentials exist.
	RegisterSite(ctx context.Context, email string) (domain.CredentialSummary, error)

	// IsRegistered reports whether a usable credential pair is stored
	IsRegistered(ctx context.Context) bool

	// Registration returns the safe view of the stored credentials
	Registration(ctx context.Context) domain.CredentialSummary

	// VerifyAuthentication obtains a token to prove the credentials work
	VerifyAuthentication(ctx context.Context) error

	// ResetRegistration clears the token and credentials
	ResetRegistration(ctx context.Context) error
}
