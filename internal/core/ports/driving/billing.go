package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/wafbroker/internal/core/domain"
)

// BillingService manages the subscription with a read-through cache
type BillingService interface {
	// Subscription returns the cached subscription while fresh unless
	// forceRefresh. A failed refresh falls back to any cached copy.
	Subscription(ctx context.Context, forceRefresh bool) (*domain.Subscription, error)

	HasActiveSubscription(ctx context.Context) bool
	CurrentPlanID(ctx context.Context) (string, bool)
	SubscriptionExpiration(ctx context.Context) (time.Time, bool)
	ClearCache(ctx context.Context) error

	// UpdateSubscription and CancelSubscription refresh the cache afterwards
	UpdateSubscription(ctx context.Context, planID string) (*domain.Subscription, error)
	CancelSubscription(ctx context.Context) (*domain.Subscription, error)

	Plans(ctx context.Context) ([]domain.Plan, error)
	CheckoutSession(ctx context.Context, req domain.CheckoutRequest) (*domain.CheckoutSession, error)
	CustomerPortalURL(ctx context.Context, returnURL string) (string, error)

	// HandleEvent reacts to a payment-provider webhook event
	HandleEvent(ctx context.Context, event domain.BillingEvent) error
}
