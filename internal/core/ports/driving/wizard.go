package driving

import (
	"context"

	"github.com/custodia-labs/wafbroker/internal/core/domain"
)

// WizardService tracks onboarding progress
type WizardService interface {
	CompletedSteps(ctx context.Context) []domain.WizardStep
	MarkCompleted(ctx context.Context, step domain.WizardStep) ([]domain.WizardStep, error)
	IsCompleted(ctx context.Context, step domain.WizardStep) bool
	Reset(ctx context.Context) error
}
