package services

import (
	"context"
	"log/slog"
	"slices"

	"github.com/custodia-labs/wafbroker/internal/core/domain"
	"github.com/custodia-labs/wafbroker/internal/core/ports/driven"
	"github.com/custodia-labs/wafbroker/internal/core/ports/driving"
)

// Ensure wizardService implements WizardService
var _ driving.WizardService = (*wizardService)(nil)

type wizardService struct {
	store  driven.WizardStore
	logger *slog.Logger
}

// NewWizardService creates a new WizardService
func NewWizardService(store driven.WizardStore, logger *slog.Logger) driving.WizardService {
	if logger == nil {
		logger = slog.Default()
	}
	return &wizardService{store: store, logger: logger.With("component", "wizard")}
}

func (s *wizardService) CompletedSteps(ctx context.Context) []domain.WizardStep {
	return s.store.CompletedSteps(ctx)
}

// MarkCompleted records step and returns the completed steps in flow order
func (s *wizardService) MarkCompleted(ctx context.Context, step domain.WizardStep) ([]domain.WizardStep, error) {
	if err := step.Validate(); err != nil {
		return nil, err
	}

	done := s.store.CompletedSteps(ctx)
	if slices.Contains(done, step) {
		return done, nil
	}
	done = append(done, step)

	ordered := make([]domain.WizardStep, 0, len(done))
	for _, known := range domain.WizardSteps() {
		if slices.Contains(done, known) {
			ordered = append(ordered, known)
		}
	}

	if err := s.store.SaveCompletedSteps(ctx, ordered); err != nil {
		return nil, err
	}
	s.logger.Debug("wizard step completed", "step", string(step))
	return ordered, nil
}

func (s *wizardService) IsCompleted(ctx context.Context, step domain.WizardStep) bool {
	return slices.Contains(s.store.CompletedSteps(ctx), step)
}

func (s *wizardService) Reset(ctx context.Context) error {
	return s.store.Clear(ctx)
}
