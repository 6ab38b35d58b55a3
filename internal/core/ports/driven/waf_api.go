package driven

import (
	"context"

	"github.com/custodia-labs/wafbroker/internal/core/domain"
)

// AuthAPI is the remote auth service.
type AuthAPI interface {
	// RegisterSite is unauthenticated; it issues the client credentials.
	RegisterSite(ctx context.Context, req domain.RegistrationRequest) (*domain.RegistrationResponse, error)

	// AccessToken returns a valid bearer token, requesting one if needed.
	AccessToken(ctx context.Context) (string, error)
}

// FirewallAPI is the remote WAF configuration service.
type FirewallAPI interface {
	ConfigureWAF(ctx context.Context, level domain.ProtectionLevel) (*domain.WAFConfiguration, error)
	WAFStatus(ctx context.Context) (*domain.WAFStatus, error)
	Statistics(ctx context.Context, period domain.Period) (domain.Statistics, error)
	Reports(ctx context.Context, period domain.Period, limit int) (domain.Reports, error)
	DNSStatus(ctx context.Context, siteDomain string) (*domain.DNSStatus, error)
	DNSInstructions(ctx context.Context, siteDomain string) (*domain.DNSInstructions, error)
	UpdateRuleSettings(ctx context.Context, rules domain.RuleSettings) (map[string]any, error)
	RuleSets(ctx context.Context) (domain.RuleSets, error)
}

// BillingAPI is the remote payment service.
type BillingAPI interface {
	CreateCheckoutSession(ctx context.Context, req domain.CheckoutRequest) (*domain.CheckoutSession, error)
	Subscription(ctx context.Context) (*domain.Subscription, error)
	UpdateSubscription(ctx context.Context, planID string) (*domain.Subscription, error)
	CancelSubscription(ctx context.Context) (*domain.Subscription, error)
	Plans(ctx context.Context) ([]domain.Plan, error)
	CustomerPortalURL(ctx context.Context, returnURL string) (string, error)
}

// WAFAPI is the full remote surface.
type WAFAPI interface {
	AuthAPI
	FirewallAPI
	BillingAPI
}
