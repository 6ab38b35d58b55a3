package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/wafbroker/internal/core/domain"
)

// CredentialStore persists the client id/secret pair.
// Read failures are logged by the implementation and reported as absent.
type CredentialStore interface {
	// Save stores the id in clear and the secret encrypted.
	// Returns nil only if both writes succeed.
	Save(ctx context.Context, clientID, clientSecret string) error

	ClientID(ctx context.Context) (string, bool)

	// ClientSecret decrypts on read; undecryptable secrets are absent.
	ClientSecret(ctx context.Context) (string, bool)

	// Credentials returns the pair when both halves are readable.
	Credentials(ctx context.Context) (domain.Credentials, bool)

	HasCredentials(ctx context.Context) bool

	// Clear deletes both entries. Idempotent.
	Clear(ctx context.Context) error

	// RotateSecret replaces only the secret.
	RotateSecret(ctx context.Context, clientSecret string) error
}

// TokenStore caches the bearer token with lazy expiry.
type TokenStore interface {
	// Get returns the token while it is unexpired; an expired entry is
	// cleared and reported absent.
	Get(ctx context.Context) (string, bool)

	// Set stores token with the server-declared lifetime minus the buffer.
	Set(ctx context.Context, token string, expiresIn time.Duration) error

	// Clear deletes the stored token. Idempotent.
	Clear(ctx context.Context) error

	// Remaining returns the time left, never negative.
	Remaining(ctx context.Context) time.Duration

	// ExpiresAt returns the effective expiry of the stored token.
	ExpiresAt(ctx context.Context) (time.Time, bool)
}

// SubscriptionCache stores the last fetched subscription.
type SubscriptionCache interface {
	Load(ctx context.Context) (*domain.Subscription, bool)
	Store(ctx context.Context, sub *domain.Subscription) error
	Clear(ctx context.Context) error
}

// WizardStore tracks which onboarding steps are done.
type WizardStore interface {
	CompletedSteps(ctx context.Context) []domain.WizardStep
	SaveCompletedSteps(ctx context.Context, steps []domain.WizardStep) error
	Clear(ctx context.Context) error
}

// StatusStore keeps the most recent aggregate protection status.
type StatusStore interface {
	LastStatus(ctx context.Context) (*domain.ProtectionStatus, bool)
	SaveStatus(ctx context.Context, status *domain.ProtectionStatus) error
	Clear(ctx context.Context) error
}
