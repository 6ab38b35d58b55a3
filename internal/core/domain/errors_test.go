package domain

import (
	"errors"
	"fmt"
	"io"
	"testing"
)

func TestErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		msg  string
	}{
		{"ErrNotFound", ErrNotFound, "not found"},
		{"ErrInvalidInput", ErrInvalidInput, "invalid input"},
		{"ErrUnauthorized", ErrUnauthorized, "unauthorized"},
		{"ErrMissingCredentials", ErrMissingCredentials, "missing credentials"},
		{"ErrAlreadyRegistered", ErrAlreadyRegistered, "site already registered"},
		{"ErrNotRegistered", ErrNotRegistered, "site not registered"},
		{"ErrDecryption", ErrDecryption, "decryption failed"},
		{"ErrStorageFailed", ErrStorageFailed, "storage failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Error() != tt.msg {
				t.Errorf("expected %q, got %q", tt.msg, tt.err.Error())
			}
		})
	}
}

func TestErrorsAreDistinct(t *testing.T) {
	allErrors := []error{
		ErrNotFound,
		ErrInvalidInput,
		ErrUnauthorized,
		ErrMissingCredentials,
		ErrAlreadyRegistered,
		ErrNotRegistered,
		ErrDecryption,
		ErrStorageFailed,
	}

	for i, err1 := range allErrors {
		for j, err2 := range allErrors {
			if i != j && errors.Is(err1, err2) {
				t.Errorf("errors %v and %v should be distinct", err1, err2)
			}
		}
	}
}

func TestTypedErrorsUnwrap(t *testing.T) {
	if !errors.Is(NewValidationError("level", "bad"), ErrInvalidInput) {
		t.Error("ValidationError should unwrap to ErrInvalidInput")
	}
	if !errors.Is(&AuthError{Message: "x"}, ErrUnauthorized) {
		t.Error("AuthError should unwrap to ErrUnauthorized")
	}
	if !errors.Is(&TransportError{Attempts: 4, Err: io.ErrUnexpectedEOF}, io.ErrUnexpectedEOF) {
		t.Error("TransportError should unwrap to its cause")
	}

	wrapped := fmt.Errorf("configure: %w", &APIError{Status: 403, Code: "forbidden", Message: "nope"})
	var apiErr *APIError
	if !errors.As(wrapped, &apiErr) || apiErr.Status != 403 {
		t.Errorf("errors.As failed on wrapped APIError: %v", wrapped)
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"nil", nil, ""},
		{"validation", NewValidationError("period", "bad"), CodeValidation},
		{"api error keeps remote code", &APIError{Status: 402, Code: "payment_required", Message: "pay"}, "payment_required"},
		{"token request", &TokenRequestError{Status: 400, Message: "bad client"}, CodeTokenRequest},
		{"auth", &AuthError{Message: "rejected"}, CodeAuth},
		{"transport", &TransportError{Attempts: 4, Err: io.EOF}, CodeTransport},
		{"protocol", &ProtocolError{Message: "invalid JSON"}, CodeProtocol},
		{"missing credentials", fmt.Errorf("token: %w", ErrMissingCredentials), CodeMissingCredentials},
		{"already registered", ErrAlreadyRegistered, CodeAlreadyRegistered},
		{"not registered", ErrNotRegistered, CodeNotRegistered},
		{"decryption", ErrDecryption, CodeDecryption},
		{"storage", fmt.Errorf("save: %w", ErrStorageFailed), CodeStorage},
		{"unknown", errors.New("boom"), CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Describe(tt.err)
			if d.Code != tt.code {
				t.Errorf("expected code %q, got %q", tt.code, d.Code)
			}
			if tt.err != nil && d.Message == "" {
				t.Error("expected a message")
			}
		})
	}
}
