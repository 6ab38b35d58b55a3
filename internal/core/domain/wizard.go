package domain

// WizardStep is one stage of the onboarding flow.
type WizardStep string

const (
	StepWelcome      WizardStep = "welcome"
	StepPlan         WizardStep = "plan"
	StepPayment      WizardStep = "payment"
	StepVerification WizardStep = "verification"
	StepComplete     WizardStep = "complete"
)

// WizardSteps returns the steps in order.
func WizardSteps() []WizardStep {
	return []WizardStep{StepWelcome, StepPlan, StepPayment, StepVerification, StepComplete}
}

// Validate returns a ValidationError for unknown steps.
func (s WizardStep) Validate() error {
	for _, known := range WizardSteps() {
		if s == known {
			return nil
		}
	}
	return NewValidationError("step", "unknown wizard step %q", string(s))
}

// CompleteSetupRequest runs the whole onboarding in one call.
type CompleteSetupRequest struct {
	Email      string          `json:"email"`
	PlanID     string          `json:"plan_id"`
	Level      ProtectionLevel `json:"protection_level"`
	SuccessURL string          `json:"success_url"`
	CancelURL  string          `json:"cancel_url"`
}

// CompleteSetupResult reports each stage of CompleteSetup.
type CompleteSetupResult struct {
	Registered bool             `json:"registered"`
	Checkout   *CheckoutSession `json:"checkout,omitempty"`
	Setup      *SetupResult     `json:"setup,omitempty"`
	Steps      []WizardStep     `json:"completed_steps"`
}
