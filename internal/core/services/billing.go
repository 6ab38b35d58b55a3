package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/custodia-labs/wafbroker/internal/core/domain"
	"github.com/custodia-labs/wafbroker/internal/core/ports/driven"
	"github.com/custodia-labs/wafbroker/internal/core/ports/driving"
)

// eventRefreshInterval is the minimum gap between webhook-driven refreshes.
const eventRefreshInterval = 5 * time.Second

// Ensure billingService implements BillingService
var _ driving.BillingService = (*billingService)(nil)

// billingService implements BillingService with a read-through cache
type billingService struct {
	api    driven.BillingAPI
	cache  driven.SubscriptionCache
	logger *slog.Logger
	now    func() time.Time
}

// BillingOption configures a billing service
type BillingOption func(*billingService)

// WithBillingClock overrides the clock used for cache freshness
func WithBillingClock(now func() time.Time) BillingOption {
	return func(s *billingService) { s.now = now }
}

// NewBillingService creates a new BillingService
func NewBillingService(api driven.BillingAPI, cache driven.SubscriptionCache, logger *slog.Logger, opts ...BillingOption) driving.BillingService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &billingService{
		api:    api,
		cache:  cache,
		logger: logger.With("component", "billing"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscription returns the cached subscription while it is fresh. A failed
// refresh returns whatever is cached, even if stale.
func (s *billingService) Subscription(ctx context.Context, forceRefresh bool) (*domain.Subscription, error) {
	now := s.now()

	cached, hasCache := s.cache.Load(ctx)
	if hasCache && !forceRefresh && cached.IsFreshAt(now) {
		return cached, nil
	}

	sub, err := s.api.Subscription(ctx)
	if err != nil {
		if hasCache {
			s.logger.Warn("subscription refresh failed, using cached copy", "error", err,
				"cached_at", time.Unix(cached.UpdatedAt, 0))
			return cached, nil
		}
		s.logger.Error("failed to get subscription", "error", err)
		return nil, err
	}

	sub.UpdatedAt = now.Unix()
	if err := s.cache.Store(ctx, sub); err != nil {
		s.logger.Warn("failed to cache subscription", "error", err)
	}
	return sub, nil
}

// HasActiveSubscription reports whether the current plan grants protection
func (s *billingService) HasActiveSubscription(ctx context.Context) bool {
	sub, err := s.Subscription(ctx, false)
	if err != nil {
		return false
	}
	return sub.IsActive()
}

// CurrentPlanID returns the subscribed plan, if any
func (s *billingService) CurrentPlanID(ctx context.Context) (string, bool) {
	sub, err := s.Subscription(ctx, false)
	if err != nil || sub == nil || sub.PlanID == "" {
		return "", false
	}
	return sub.PlanID, true
}

// SubscriptionExpiration returns the end of the current billing period
func (s *billingService) SubscriptionExpiration(ctx context.Context) (time.Time, bool) {
	sub, err := s.Subscription(ctx, false)
	if err != nil {
		return time.Time{}, false
	}
	return sub.Expiration()
}

// ClearCache drops the cached subscription
func (s *billingService) ClearCache(ctx context.Context) error {
	return s.cache.Clear(ctx)
}

// UpdateSubscription changes plan and refreshes the cache
func (s *billingService) UpdateSubscription(ctx context.Context, planID string) (*domain.Subscription, error) {
	sub, err := s.api.UpdateSubscription(ctx, planID)
	if err != nil {
		return nil, err
	}
	return s.refreshAfterChange(ctx, sub), nil
}

// CancelSubscription cancels and refreshes the cache
func (s *billingService) CancelSubscription(ctx context.Context) (*domain.Subscription, error) {
	sub, err := s.api.CancelSubscription(ctx)
	if err != nil {
		return nil, err
	}
	return s.refreshAfterChange(ctx, sub), nil
}

// refreshAfterChange caches the changed subscription so a failed forced
// refresh falls back to it rather than to the pre-change copy.
func (s *billingService) refreshAfterChange(ctx context.Context, changed *domain.Subscription) *domain.Subscription {
	if changed != nil && changed.Status != "" {
		changed.UpdatedAt = s.now().Unix()
		if err := s.cache.Store(ctx, changed); err != nil {
			s.logger.Warn("failed to cache subscription", "error", err)
		}
	}
	fresh, err := s.Subscription(ctx, true)
	if err != nil {
		s.logger.Warn("failed to refresh subscription after change", "error", err)
		return changed
	}
	return fresh
}

// Plans lists available plans
func (s *billingService) Plans(ctx context.Context) ([]domain.Plan, error) {
	return s.api.Plans(ctx)
}

// CheckoutSession creates a hosted checkout for a plan
func (s *billingService) CheckoutSession(ctx context.Context, req domain.CheckoutRequest) (*domain.CheckoutSession, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.api.CreateCheckoutSession(ctx, req)
}

// CustomerPortalURL returns a link to the billing portal
func (s *billingService) CustomerPortalURL(ctx context.Context, returnURL string) (string, error) {
	return s.api.CustomerPortalURL(ctx, returnURL)
}

// HandleEvent forces a subscription refresh for known billing events.
// Events arriving within eventRefreshInterval of the last refresh reuse
// the cached copy.
func (s *billingService) HandleEvent(ctx context.Context, event domain.BillingEvent) error {
	if !event.IsKnown() {
		return domain.NewValidationError("event", "unknown billing event %q", string(event))
	}
	s.logger.Info("billing event received", "event", string(event))

	if cached, ok := s.cache.Load(ctx); ok {
		if age := s.now().Sub(time.Unix(cached.UpdatedAt, 0)); age >= 0 && age < eventRefreshInterval {
			s.logger.Debug("subscription refreshed recently, skipping", "age", age)
			return nil
		}
	}

	_, err := s.Subscription(ctx, true)
	return err
}
