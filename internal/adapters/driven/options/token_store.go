package options

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/goccy/go-json"

	"github.com/custodia-labs/wafbroker/internal/core/domain"
	"github.com/custodia-labs/wafbroker/internal/core/ports/driven"
)

var _ driven.TokenStore = (*TokenStore)(nil)

// TokenStore caches the bearer token under domain.KeyAuthToken.
type TokenStore struct {
	settings driven.SettingsStore
	buffer   time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

// TokenStoreOption configures a TokenStore.
type TokenStoreOption func(*TokenStore)

// WithBuffer overrides the early-refresh buffer.
func WithBuffer(d time.Duration) TokenStoreOption {
	return func(s *TokenStore) { s.buffer = d }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) TokenStoreOption {
	return func(s *TokenStore) { s.now = now }
}

// NewTokenStore creates a TokenStore with the default 300s buffer.
func NewTokenStore(settings driven.SettingsStore, logger *slog.Logger, opts ...TokenStoreOption) *TokenStore {
	if logger == nil {
		logger = slog.Default()
	}
	s := &TokenStore{
		settings: settings,
		buffer:   domain.DefaultTokenBuffer,
		now:      time.Now,
		logger:   logger.With("component", "token_store"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// storedToken is the persisted layout, in unix seconds.
type storedToken struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
	CreatedAt int64  `json:"created_at"`
}

// Get returns the token if it is still fresh.
func (s *TokenStore) Get(ctx context.Context) (string, bool) {
	tok, ok := s.load(ctx)
	if !ok {
		return "", false
	}
	if !tok.ValidAt(s.now()) {
		_ = s.Clear(ctx)
		return "", false
	}
	return tok.Value, true
}

// Set stores token; see domain.NewToken for the clamp on short lifetimes.
func (s *TokenStore) Set(ctx context.Context, token string, expiresIn time.Duration) error {
	tok := domain.NewToken(token, expiresIn, s.buffer, s.now())
	data, err := json.Marshal(storedToken{
		Token:     tok.Value,
		ExpiresAt: tok.ExpiresAt.Unix(),
		CreatedAt: tok.CreatedAt.Unix(),
	})
	if err != nil {
		return fmt.Errorf("marshal token: %w", err)
	}
	if err := s.settings.Set(ctx, domain.KeyAuthToken, string(data), false); err != nil {
		s.logger.Error("failed to save token", "error", err)
		return fmt.Errorf("%w: save token: %v", domain.ErrStorageFailed, err)
	}
	if tok.RemainingAt(tok.CreatedAt) == 0 {
		s.logger.Warn("token lifetime is within refresh buffer", "expires_in", expiresIn, "buffer", s.buffer)
	}
	return nil
}

// Clear removes the stored token.
func (s *TokenStore) Clear(ctx context.Context) error {
	if err := s.settings.Delete(ctx, domain.KeyAuthToken); err != nil {
		s.logger.Error("failed to clear token", "error", err)
		return fmt.Errorf("%w: clear token: %v", domain.ErrStorageFailed, err)
	}
	return nil
}

// Remaining returns max(0, expires_at - now).
func (s *TokenStore) Remaining(ctx context.Context) time.Duration {
	tok, ok := s.load(ctx)
	if !ok {
		return 0
	}
	return tok.RemainingAt(s.now())
}

// ExpiresAt returns the effective expiry of the stored token.
func (s *TokenStore) ExpiresAt(ctx context.Context) (time.Time, bool) {
	tok, ok := s.load(ctx)
	if !ok {
		return time.Time{}, false
	}
	return tok.ExpiresAt, true
}

func (s *TokenStore) load(ctx context.Context) (domain.Token, bool) {
	raw, err := s.settings.Get(ctx, domain.KeyAuthToken)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Error("failed to read token", "error", err)
		}
		return domain.Token{}, false
	}

	var st storedToken
	if err := json.Unmarshal([]byte(raw), &st); err != nil || st.Token == "" {
		s.logger.Warn("discarding unreadable token entry")
		_ = s.settings.Delete(ctx, domain.KeyAuthToken)
		return domain.Token{}, false
	}
	return domain.Token{
		Value:     st.Token,
		ExpiresAt: time.Unix(st.ExpiresAt, 0),
		CreatedAt: time.Unix(st.CreatedAt, 0),
	}, true
}
