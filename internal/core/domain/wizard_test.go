package domain

import "testing"

func TestWizardStepValidate(t *testing.T) {
	for _, s := range WizardSteps() {
		if err := s.Validate(); err != nil {
			t.Errorf("%s should be valid", s)
		}
	}
	if err := WizardStep("billing").Validate(); err == nil {
		t.Error("unknown step should be rejected")
	}
}
