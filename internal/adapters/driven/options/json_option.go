package options

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/goccy/go-json"

	"github.com/custodia-labs/wafbroker/internal/core/domain"
	"github.com/custodia-labs/wafbroker/internal/core/ports/driven"
)

// jsonOption reads and writes one JSON-encoded setting.
type jsonOption[T any] struct {
	settings driven.SettingsStore
	key      string
	autoload bool
	logger   *slog.Logger
}

func (o jsonOption[T]) load(ctx context.Context) (T, bool) {
	var v T
	raw, err := o.settings.Get(ctx, o.key)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			o.logger.Error("failed to read setting", "setting", o.key, "error", err)
		}
		return v, false
	}
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		o.logger.Warn("discarding unreadable setting", "setting", o.key, "error", err)
		return v, false
	}
	return v, true
}

func (o jsonOption[T]) store(ctx context.Context, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", o.key, err)
	}
	if err := o.settings.Set(ctx, o.key, string(data), o.autoload); err != nil {
		o.logger.Error("failed to save setting", "setting", o.key, "error", err)
		return fmt.Errorf("%w: save %s: %v", domain.ErrStorageFailed, o.key, err)
	}
	return nil
}

func (o jsonOption[T]) clear(ctx context.Context) error {
	if err := o.settings.Delete(ctx, o.key); err != nil {
		o.logger.Error("failed to delete setting", "setting", o.key, "error", err)
		return fmt.Errorf("%w: delete %s: %v", domain.ErrStorageFailed, o.key, err)
	}
	return nil
}

var (
	_ driven.SubscriptionCache = (*SubscriptionCache)(nil)
	_ driven.WizardStore       = (*WizardStore)(nil)
	_ driven.StatusStore       = (*StatusStore)(nil)
)

// SubscriptionCache keeps the last fetched subscription.
type SubscriptionCache struct {
	opt jsonOption[domain.Subscription]
}

// NewSubscriptionCache creates a SubscriptionCache.
func NewSubscriptionCache(settings driven.SettingsStore, logger *slog.Logger) *SubscriptionCache {
	return &SubscriptionCache{opt: newOption[domain.Subscription](settings, domain.KeySubscription, true, logger)}
}

func (c *SubscriptionCache) Load(ctx context.Context) (*domain.Subscription, bool) {
	sub, ok := c.opt.load(ctx)
	if !ok {
		return nil, false
	}
	return &sub, true
}

func (c *SubscriptionCache) Store(ctx context.Context, sub *domain.Subscription) error {
	return c.opt.store(ctx, *sub)
}

func (c *SubscriptionCache) Clear(ctx context.Context) error { return c.opt.clear(ctx) }

// WizardStore keeps the completed onboarding steps.
type WizardStore struct {
	opt jsonOption[[]domain.WizardStep]
}

// NewWizardStore creates a WizardStore.
func NewWizardStore(settings driven.SettingsStore, logger *slog.Logger) *WizardStore {
	return &WizardStore{opt: newOption[[]domain.WizardStep](settings, domain.KeyCompletedSteps, true, logger)}
}

func (w *WizardStore) CompletedSteps(ctx context.Context) []domain.WizardStep {
	steps, _ := w.opt.load(ctx)
	return steps
}

func (w *WizardStore) SaveCompletedSteps(ctx context.Context, steps []domain.WizardStep) error {
	return w.opt.store(ctx, steps)
}

func (w *WizardStore) Clear(ctx context.Context) error { return w.opt.clear(ctx) }

// StatusStore keeps the most recent protection status.
type StatusStore struct {
	opt jsonOption[domain.ProtectionStatus]
}

// NewStatusStore creates a StatusStore.
func NewStatusStore(settings driven.SettingsStore, logger *slog.Logger) *StatusStore {
	return &StatusStore{opt: newOption[domain.ProtectionStatus](settings, domain.KeyProtectionStatus, true, logger)}
}

func (s *StatusStore) LastStatus(ctx context.Context) (*domain.ProtectionStatus, bool) {
	st, ok := s.opt.load(ctx)
	if !ok {
		return nil, false
	}
	return &st, true
}

func (s *StatusStore) SaveStatus(ctx context.Context, status *domain.ProtectionStatus) error {
	return s.opt.store(ctx, *status)
}

func (s *StatusStore) Clear(ctx context.Context) error { return s.opt.clear(ctx) }

func newOption[T any](settings driven.SettingsStore, key string, autoload bool, logger *slog.Logger) jsonOption[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return jsonOption[T]{
		settings: settings,
		key:      key,
		autoload: autoload,
		logger:   logger.With("component", "options"),
	}
}
