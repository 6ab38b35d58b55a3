package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/wafbroker/internal/core/domain"
	"github.com/custodia-labs/wafbroker/internal/core/ports/driven/mocks"
)

var billingNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newBillingFixture(seed *domain.Subscription) (*mocks.MockWAFAPI, *mocks.MockSubscriptionCache, *billingService) {
	api := mocks.NewMockWAFAPI()
	api.SubscriptionFn = func() (*domain.Subscription, error) {
		return &domain.Subscription{PlanID: "pro", Status: domain.SubscriptionActive, CurrentPeriodEnd: billingNow.Add(720 * time.Hour).Unix()}, nil
	}
	cache := mocks.NewMockSubscriptionCache(seed)
	svc := NewBillingService(api, cache, nil, WithBillingClock(func() time.Time { return billingNow })).(*billingService)
	return api, cache, svc
}

func cachedAt(age time.Duration) *domain.Subscription {
	return &domain.Subscription{PlanID: "basic", Status: domain.SubscriptionActive, UpdatedAt: billingNow.Add(-age).Unix()}
}

func TestBilling_FreshCacheMakesNoCalls(t *testing.T) {
	api, _, svc := newBillingFixture(cachedAt(30 * time.Minute))

	sub, err := svc.Subscription(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, "basic", sub.PlanID)
	assert.Equal(t, 0, api.Calls("Subscription"))
}

func TestBilling_StaleCacheRefreshes(t *testing.T) {
	api, cache, svc := newBillingFixture(cachedAt(2 * time.Hour))

	sub, err := svc.Subscription(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, "pro", sub.PlanID)
	assert.Equal(t, billingNow.Unix(), sub.UpdatedAt)
	assert.Equal(t, 1, api.Calls("Subscription"))

	stored, ok := cache.Load(context.Background())
	require.True(t, ok)
	assert.Equal(t, "pro", stored.PlanID)
	assert.Equal(t, billingNow.Unix(), stored.UpdatedAt)
}

func TestBilling_StaleCacheFallbackOnFailure(t *testing.T) {
	api, _, svc := newBillingFixture(cachedAt(2 * time.Hour))
	api.SubscriptionFn = func() (*domain.Subscription, error) {
		return nil, &domain.TransportError{Attempts: 4, Err: errors.New("down")}
	}

	sub, err := svc.Subscription(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, "basic", sub.PlanID)
	assert.Equal(t, 1, api.Calls("Subscription"))
}

func TestBilling_NoCacheFailurePropagates(t *testing.T) {
	api, _, svc := newBillingFixture(nil)
	remote := &domain.APIError{Status: 500, Code: "api_error", Message: "boom"}
	api.SubscriptionFn = func() (*domain.Subscription, error) { return nil, remote }

	_, err := svc.Subscription(context.Background(), false)
	assert.Same(t, remote, err)
	assert.False(t, svc.HasActiveSubscription(context.Background()))
}

func TestBilling_ForceRefreshBypassesFreshCache(t *testing.T) {
	api, _, svc := newBillingFixture(cachedAt(time.Minute))

	sub, err := svc.Subscription(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, "pro", sub.PlanID)
	assert.Equal(t, 1, api.Calls("Subscription"))
}

func TestBilling_Accessors(t *testing.T) {
	_, _, svc := newBillingFixture(nil)
	ctx := context.Background()

	assert.True(t, svc.HasActiveSubscription(ctx))

	plan, ok := svc.CurrentPlanID(ctx)
	assert.True(t, ok)
	assert.Equal(t, "pro", plan)

	exp, ok := svc.SubscriptionExpiration(ctx)
	assert.True(t, ok)
	assert.Equal(t, billingNow.Add(720*time.Hour).Unix(), exp.Unix())

	require.NoError(t, svc.ClearCache(ctx))
}

func TestBilling_UpdateFallsBackToChangedCopy(t *testing.T) {
	api, _, svc := newBillingFixture(cachedAt(time.Minute))
	api.UpdateSubscriptionFn = func(planID string) (*domain.Subscription, error) {
		return &domain.Subscription{PlanID: planID, Status: domain.SubscriptionActive}, nil
	}
	api.SubscriptionFn = func() (*domain.Subscription, error) { return nil, errors.New("down") }

	sub, err := svc.UpdateSubscription(context.Background(), "business")
	require.NoError(t, err)
	assert.Equal(t, "business", sub.PlanID)

	cached, err := svc.Subscription(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, "business", cached.PlanID)
}

func TestBilling_CancelRefreshes(t *testing.T) {
	api, _, svc := newBillingFixture(nil)
	api.CancelSubscriptionFn = func() (*domain.Subscription, error) {
		return &domain.Subscription{PlanID: "pro", Status: domain.SubscriptionActive, CancelAtPeriodEnd: true}, nil
	}

	_, err := svc.CancelSubscription(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, api.Calls("CancelSubscription"))
	assert.Equal(t, 1, api.Calls("Subscription"))
}

func TestBilling_CheckoutValidates(t *testing.T) {
	api, _, svc := newBillingFixture(nil)

	_, err := svc.CheckoutSession(context.Background(), domain.CheckoutRequest{PlanID: "pro"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, 0, api.Calls("CreateCheckoutSession"))
}

func TestBilling_HandleEvent(t *testing.T) {
	api, _, svc := newBillingFixture(cachedAt(time.Minute))

	err := svc.HandleEvent(context.Background(), "invoice.unknown")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, 0, api.Calls("Subscription"))

	require.NoError(t, svc.HandleEvent(context.Background(), domain.EventPaymentSucceeded))
	assert.Equal(t, 1, api.Calls("Subscription"))
}

func TestBilling_HandleEventSkipsRecentRefresh(t *testing.T) {
	api, _, svc := newBillingFixture(cachedAt(2 * time.Second))

	require.NoError(t, svc.HandleEvent(context.Background(), domain.EventPaymentSucceeded))
	assert.Equal(t, 0, api.Calls("Subscription"))

	svc.now = func() time.Time { return billingNow.Add(eventRefreshInterval) }
	require.NoError(t, svc.HandleEvent(context.Background(), domain.EventPaymentSucceeded))
	assert.Equal(t, 1, api.Calls("Subscription"))
}
