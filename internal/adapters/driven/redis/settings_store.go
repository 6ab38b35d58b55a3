package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/wafbroker/internal/core/domain"
	"github.com/custodia-labs/wafbroker/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.SettingsStore = (*SettingsStore)(nil)

// SettingsStore implements driven.SettingsStore with one string key per
// setting. autoload has no meaning in Redis; every read goes to the server.
type SettingsStore struct {
	client redis.UniversalClient
	prefix string
}

// NewSettingsStore creates a Redis-backed settings store. An empty prefix
// uses DefaultPrefix.
func NewSettingsStore(client redis.UniversalClient, prefix string) *SettingsStore {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &SettingsStore{client: client, prefix: prefix + "settings:"}
}

func (s *SettingsStore) key(name string) string {
	return s.prefix + name
}

// Get retrieves a setting value
func (s *SettingsStore) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get setting %q: %w", key, err)
	}
	return v, nil
}

// Set stores a setting value without expiry
func (s *SettingsStore) Set(ctx context.Context, key, value string, autoload bool) error {
	if err := s.client.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	return nil
}

// Add stores a setting only if it is absent
func (s *SettingsStore) Add(ctx context.Context, key, value string, autoload bool) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.key(key), value, 0).Result()
	if err != nil {
		return false, fmt.Errorf("add setting %q: %w", key, err)
	}
	return ok, nil
}

// Delete removes a setting
func (s *SettingsStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("delete setting %q: %w", key, err)
	}
	return nil
}

// Ping checks the server is reachable.
func (s *SettingsStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
