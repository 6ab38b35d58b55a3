package driven

import "time"

// Request outcomes recorded by the API client.
const (
	OutcomeSuccess   = "success"
	OutcomeAPIError  = "api_error"
	OutcomeAuth      = "auth_error"
	OutcomeTransport = "transport_error"
	OutcomeProtocol  = "protocol_error"
)

// Retry reasons.
const (
	RetryTransport    = "transport"
	RetryUnauthorized = "unauthorized"
)

// Metrics records API client activity.
type Metrics interface {
	ObserveRequest(service, outcome string, elapsed time.Duration)
	IncRetry(service, reason string)
	IncTokenRefresh(result string)
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) ObserveRequest(string, string, time.Duration) {}
func (NopMetrics) IncRetry(string, string)                      {}
func (NopMetrics) IncTokenRefresh(string)                       {}
