package options

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/wafbroker/internal/core/domain"
	"github.com/custodia-labs/wafbroker/internal/core/ports/driven/mocks"
)

func itoa(n int64) string { return strconv.FormatInt(n, 10) }

func TestSubscriptionCache(t *testing.T) {
	ctx := context.Background()
	settings := mocks.NewMockSettingsStore()
	cache := NewSubscriptionCache(settings, nil)

	_, ok := cache.Load(ctx)
	assert.False(t, ok)

	sub := &domain.Subscription{PlanID: "pro", Status: "active", CurrentPeriodEnd: 1_800_000_000, UpdatedAt: 1_700_000_000}
	require.NoError(t, cache.Store(ctx, sub))

	got, ok := cache.Load(ctx)
	require.True(t, ok)
	assert.Equal(t, sub, got)

	raw, _ := settings.Raw(domain.KeySubscription)
	assert.Contains(t, raw, `"updated_at":1700000000`)

	require.NoError(t, cache.Clear(ctx))
	require.NoError(t, cache.Clear(ctx))
	_, ok = cache.Load(ctx)
	assert.False(t, ok)
}

func TestWizardStore(t *testing.T) {
	ctx := context.Background()
	store := NewWizardStore(mocks.NewMockSettingsStore(), nil)

	assert.Empty(t, store.CompletedSteps(ctx))

	require.NoError(t, store.SaveCompletedSteps(ctx, []domain.WizardStep{domain.StepWelcome, domain.StepPlan}))
	assert.Equal(t, []domain.WizardStep{domain.StepWelcome, domain.StepPlan}, store.CompletedSteps(ctx))

	require.NoError(t, store.Clear(ctx))
	assert.Empty(t, store.CompletedSteps(ctx))
}

func TestStatusStore(t *testing.T) {
	ctx := context.Background()
	store := NewStatusStore(mocks.NewMockSettingsStore(), nil)

	status := &domain.ProtectionStatus{
		Status:        domain.StateActive,
		Message:       "ok",
		DNSConfigured: true,
		LastCheck:     time.Unix(1_700_000_000, 0).UTC(),
	}
	require.NoError(t, store.SaveStatus(ctx, status))

	got, ok := store.LastStatus(ctx)
	require.True(t, ok)
	assert.Equal(t, status.Status, got.Status)
	assert.True(t, status.LastCheck.Equal(got.LastCheck))
}

func TestJSONOptionUnreadableValue(t *testing.T) {
	ctx := context.Background()
	settings := mocks.NewMockSettingsStore()
	require.NoError(t, settings.Set(ctx, domain.KeySubscription, "[broken", true))

	_, ok := NewSubscriptionCache(settings, nil).Load(ctx)
	assert.False(t, ok)
}
