package redis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/wafbroker/internal/core/domain"
)

func TestSettingsStore_RoundTrip(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()
	store := NewSettingsStore(client, "")

	_, err := store.Get(ctx, domain.KeyClientID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, store.Set(ctx, domain.KeyClientID, "abc", true))
	v, err := store.Get(ctx, domain.KeyClientID)
	require.NoError(t, err)
	assert.Equal(t, "abc", v)

	assert.True(t, mr.Exists(DefaultPrefix+"settings:"+domain.KeyClientID))
	assert.Equal(t, int64(0), int64(mr.TTL(DefaultPrefix+"settings:"+domain.KeyClientID)), "settings never expire")
}

func TestSettingsStore_AddOnlyOnce(t *testing.T) {
	client, _ := setupTestRedis(t)
	ctx := context.Background()
	store := NewSettingsStore(client, "")

	added, err := store.Add(ctx, domain.KeyEncryptionKey, "first", false)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = store.Add(ctx, domain.KeyEncryptionKey, "second", false)
	require.NoError(t, err)
	assert.False(t, added)

	v, _ := store.Get(ctx, domain.KeyEncryptionKey)
	assert.Equal(t, "first", v)
}

func TestSettingsStore_DeleteIdempotent(t *testing.T) {
	client, _ := setupTestRedis(t)
	ctx := context.Background()
	store := NewSettingsStore(client, "")

	require.NoError(t, store.Set(ctx, "k", "v", false))
	require.NoError(t, store.Delete(ctx, "k"))
	require.NoError(t, store.Delete(ctx, "k"))

	_, err := store.Get(ctx, "k")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSettingsStore_ServerDown(t *testing.T) {
	client, mr := setupTestRedis(t)
	store := NewSettingsStore(client, "")
	mr.Close()

	_, err := store.Get(context.Background(), "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
}
