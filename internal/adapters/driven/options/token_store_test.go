package options

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/wafbroker/internal/core/domain"
	"github.com/custodia-labs/wafbroker/internal/core/ports/driven/mocks"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTokenStore() (*TokenStore, *mocks.MockSettingsStore, *fakeClock) {
	settings := mocks.NewMockSettingsStore()
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	return NewTokenStore(settings, nil, WithClock(clock.Now)), settings, clock
}

func TestTokenStore_FreshnessWindow(t *testing.T) {
	ctx := context.Background()

	for _, expiresIn := range []time.Duration{301 * time.Second, 10 * time.Minute, time.Hour, 24 * time.Hour} {
		store, settings, clock := newTokenStore()
		require.NoError(t, store.Set(ctx, "tok", expiresIn))

		effective := expiresIn - domain.DefaultTokenBuffer

		clock.Advance(effective - time.Second)
		got, ok := store.Get(ctx)
		assert.True(t, ok, "expires_in=%v should be fresh 1s before buffer", expiresIn)
		assert.Equal(t, "tok", got)

		clock.Advance(time.Second)
		_, ok = store.Get(ctx)
		assert.False(t, ok, "expires_in=%v should expire at buffer", expiresIn)

		_, stored := settings.Raw(domain.KeyAuthToken)
		assert.False(t, stored, "expired entry should be cleared")
	}
}

func TestTokenStore_ShortLifetimeIsImmediatelyStale(t *testing.T) {
	ctx := context.Background()
	store, _, clock := newTokenStore()

	require.NoError(t, store.Set(ctx, "tok", 60*time.Second))

	_, ok := store.Get(ctx)
	assert.False(t, ok)
	assert.Equal(t, time.Duration(0), store.Remaining(ctx))

	require.NoError(t, store.Set(ctx, "tok", 60*time.Second))
	exp, ok := store.ExpiresAt(ctx)
	require.True(t, ok)
	assert.True(t, exp.Equal(clock.Now()), "expiry clamped to now, got %v", exp)
}

func TestTokenStore_Remaining(t *testing.T) {
	ctx := context.Background()
	store, _, clock := newTokenStore()

	assert.Equal(t, time.Duration(0), store.Remaining(ctx))

	require.NoError(t, store.Set(ctx, "tok", time.Hour))
	assert.Equal(t, 55*time.Minute, store.Remaining(ctx))

	clock.Advance(2 * time.Hour)
	assert.Equal(t, time.Duration(0), store.Remaining(ctx))
}

func TestTokenStore_ClearIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newTokenStore()
	require.NoError(t, store.Set(ctx, "tok", time.Hour))

	require.NoError(t, store.Clear(ctx))
	require.NoError(t, store.Clear(ctx))

	_, ok := store.Get(ctx)
	assert.False(t, ok)
}

func TestTokenStore_NewTokenSupersedes(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newTokenStore()

	require.NoError(t, store.Set(ctx, "old", time.Hour))
	require.NoError(t, store.Set(ctx, "new", time.Hour))

	got, ok := store.Get(ctx)
	assert.True(t, ok)
	assert.Equal(t, "new", got)
}

func TestTokenStore_PersistedLayout(t *testing.T) {
	ctx := context.Background()
	store, settings, clock := newTokenStore()
	require.NoError(t, store.Set(ctx, "tok", time.Hour))

	raw, ok := settings.Raw(domain.KeyAuthToken)
	require.True(t, ok)
	assert.JSONEq(t, `{"token":"tok","expires_at":`+itoa(clock.Now().Add(55*time.Minute).Unix())+`,"created_at":`+itoa(clock.Now().Unix())+`}`, raw)

	autoload, _ := settings.Autoload(domain.KeyAuthToken)
	assert.False(t, autoload)
}

func TestTokenStore_CorruptEntryDiscarded(t *testing.T) {
	ctx := context.Background()
	store, settings, _ := newTokenStore()
	require.NoError(t, settings.Set(ctx, domain.KeyAuthToken, "{not json", false))

	_, ok := store.Get(ctx)
	assert.False(t, ok)
	_, stored := settings.Raw(domain.KeyAuthToken)
	assert.False(t, stored)
}

func TestTokenStore_CustomBuffer(t *testing.T) {
	ctx := context.Background()
	settings := mocks.NewMockSettingsStore()
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	store := NewTokenStore(settings, nil, WithClock(clock.Now), WithBuffer(0))

	require.NoError(t, store.Set(ctx, "tok", 60*time.Second))
	assert.Equal(t, 60*time.Second, store.Remaining(ctx))
}
