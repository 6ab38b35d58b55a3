package driving

import (
	"context"

	"github.com/custodia-labs/wafbroker/internal/core/domain"
)

// ProtectionService is the facade presentation code talks to
type ProtectionService interface {
	// RegisterSite validates the email and registers the site
	RegisterSite(ctx context.Context, email string) (domain.CredentialSummary, error)

	// SetupProtection configures the WAF; DNS instructions are best effort
	SetupProtection(ctx context.Context, level domain.ProtectionLevel) (*domain.SetupResult, error)

	// ProtectionStatus never fails; sub-call errors become StateError
	ProtectionStatus(ctx context.Context) *domain.ProtectionStatus

	// LastStatus returns the status recorded by the most recent check
	LastStatus(ctx context.Context) (*domain.ProtectionStatus, bool)

	// Subscription delegates to the billing cache
	Subscription(ctx context.Context, forceRefresh bool) (*domain.Subscription, error)

	DashboardData(ctx context.Context) *domain.DashboardData

	// CompleteSetup runs registration, checkout and protection in one call
	CompleteSetup(ctx context.Context, req domain.CompleteSetupRequest) (*domain.CompleteSetupResult, error)

	ResetRegistration(ctx context.Context) error

	// Purge removes all broker state except the encryption key material
	Purge(ctx context.Context) error
}
