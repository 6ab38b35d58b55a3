package domain

import (
	"errors"
	"fmt"
)

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates authentication failed or missing
	ErrUnauthorized = errors.New("unauthorized")

	// ErrMissingCredentials indicates no client id/secret pair is stored.
	// The site must register before any authenticated call can be made.
	ErrMissingCredentials = errors.New("missing credentials")

	// ErrAlreadyRegistered indicates the site already holds credentials
	ErrAlreadyRegistered = errors.New("site already registered")

	// ErrNotRegistered indicates an operation needs registration first
	ErrNotRegistered = errors.New("site not registered")

	// ErrDecryption indicates a stored secret could not be decrypted
	ErrDecryption = errors.New("decryption failed")

	// ErrStorageFailed indicates a settings write did not complete
	ErrStorageFailed = errors.New("storage failed")
)

// ValidationError reports bad input rejected before any network call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// NewValidationError creates a ValidationError for field.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// TokenRequestError indicates the auth service rejected a token request.
type TokenRequestError struct {
	Status  int
	Message string
}

func (e *TokenRequestError) Error() string {
	return fmt.Sprintf("token request failed (status %d): %s", e.Status, e.Message)
}

// AuthError indicates the remote service rejected a freshly issued token.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	return "authentication failed: " + e.Message
}

func (e *AuthError) Unwrap() error { return ErrUnauthorized }

// TransportError wraps the last network failure after retries ran out.
type TransportError struct {
	Attempts int
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError indicates a response that could not be understood.
type ProtocolError struct {
	Message string
	Err     error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("protocol error: %s: %v", e.Message, e.Err)
	}
	return "protocol error: " + e.Message
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// APIError is a remote 4xx/5xx response.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d (%s): %s", e.Status, e.Code, e.Message)
}

// ErrorDescriptor is the error shape handed to presentation code.
type ErrorDescriptor struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes used in descriptors.
const (
	CodeValidation         = "validation_error"
	CodeMissingCredentials = "missing_credentials"
	CodeTokenRequest       = "token_request_failed"
	CodeAuth               = "auth_failed"
	CodeTransport          = "transport_error"
	CodeProtocol           = "invalid_response"
	CodeDecryption         = "decryption_failed"
	CodeAlreadyRegistered  = "already_registered"
	CodeNotRegistered      = "not_registered"
	CodeStorage            = "storage_failed"
	CodeNotFound           = "not_found"
	CodeUnauthorized       = "unauthorized"
	CodeInternal           = "internal_error"
)

// Describe converts any error into a descriptor. APIError keeps the
// remote code so callers can branch on it.
func Describe(err error) ErrorDescriptor {
	var (
		validation *ValidationError
		tokenReq   *TokenRequestError
		authErr    *AuthError
		transport  *TransportError
		protocol   *ProtocolError
		apiErr     *APIError
	)

	switch {
	case err == nil:
		return ErrorDescriptor{}
	case errors.As(err, &validation):
		return ErrorDescriptor{Code: CodeValidation, Message: validation.Error()}
	case errors.As(err, &apiErr):
		return ErrorDescriptor{Code: apiErr.Code, Message: apiErr.Message}
	case errors.As(err, &tokenReq):
		return ErrorDescriptor{Code: CodeTokenRequest, Message: tokenReq.Message}
	case errors.As(err, &authErr):
		return ErrorDescriptor{Code: CodeAuth, Message: authErr.Message}
	case errors.As(err, &transport):
		return ErrorDescriptor{Code: CodeTransport, Message: transport.Error()}
	case errors.As(err, &protocol):
		return ErrorDescriptor{Code: CodeProtocol, Message: protocol.Error()}
	case errors.Is(err, ErrMissingCredentials):
		return ErrorDescriptor{Code: CodeMissingCredentials, Message: "Site is not registered. Please register first."}
	case errors.Is(err, ErrAlreadyRegistered):
		return ErrorDescriptor{Code: CodeAlreadyRegistered, Message: "Site is already registered."}
	case errors.Is(err, ErrNotRegistered):
		return ErrorDescriptor{Code: CodeNotRegistered, Message: "Site is not registered. Please register first."}
	case errors.Is(err, ErrDecryption):
		return ErrorDescriptor{Code: CodeDecryption, Message: "Stored credentials are unreadable. Please register again."}
	case errors.Is(err, ErrStorageFailed):
		return ErrorDescriptor{Code: CodeStorage, Message: err.Error()}
	case errors.Is(err, ErrNotFound):
		return ErrorDescriptor{Code: CodeNotFound, Message: err.Error()}
	case errors.Is(err, ErrInvalidInput):
		return ErrorDescriptor{Code: CodeValidation, Message: err.Error()}
	case errors.Is(err, ErrUnauthorized):
		return ErrorDescriptor{Code: CodeUnauthorized, Message: err.Error()}
	default:
		return ErrorDescriptor{Code: CodeInternal, Message: err.Error()}
	}
}
