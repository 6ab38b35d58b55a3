package domain

import (
	"net/mail"
	"strings"
	"time"
)

// ProtectionLevel is the coarse WAF aggressiveness setting.
type ProtectionLevel string

const (
	ProtectionLow    ProtectionLevel = "low"
	ProtectionMedium ProtectionLevel = "medium"
	ProtectionHigh   ProtectionLevel = "high"
)

// DefaultProtectionLevel is used when setup does not name one.
const DefaultProtectionLevel = ProtectionMedium

// IsValid checks if the level is known
func (l ProtectionLevel) IsValid() bool {
	switch l {
	case ProtectionLow, ProtectionMedium, ProtectionHigh:
		return true
	}
	return false
}

// Validate returns a ValidationError for unknown levels.
func (l ProtectionLevel) Validate() error {
	if !l.IsValid() {
		return NewValidationError("protection_level", "%q is not one of low, medium, high", string(l))
	}
	return nil
}

// Period is a statistics/report aggregation window.
type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

// Validate returns a ValidationError for unknown periods.
func (p Period) Validate() error {
	switch p {
	case PeriodDay, PeriodWeek, PeriodMonth, PeriodYear:
		return nil
	}
	return NewValidationError("period", "%q is not one of day, week, month, year", string(p))
}

// Report limit bounds.
const (
	MinReportLimit     = 1
	MaxReportLimit     = 1000
	DefaultReportLimit = 100
)

// ValidateReportLimit checks limit is within [1,1000].
func ValidateReportLimit(limit int) error {
	if limit < MinReportLimit || limit > MaxReportLimit {
		return NewValidationError("limit", "%d is outside [%d,%d]", limit, MinReportLimit, MaxReportLimit)
	}
	return nil
}

// ValidateEmail checks the address parses as a bare RFC 5322 address.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return NewValidationError("email", "is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return NewValidationError("email", "%q is not a valid address", email)
	}
	return nil
}

// RemoteStatus values reported by the config service.
const (
	RemoteStatusActive  = "active"
	RemoteStatusIssues  = "issues"
	RemoteStatusPending = "pending"
)

// WAFConfiguration is returned by the configure endpoint.
type WAFConfiguration struct {
	Status  string `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
	Level   string `json:"level,omitempty"`
}

// WAFStatus is the remote firewall health.
type WAFStatus struct {
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	Level     string `json:"level,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// DNSStatus reports whether the site's DNS records have propagated.
type DNSStatus struct {
	Configured bool     `json:"configured"`
	Message    string   `json:"message,omitempty"`
	Records    []Record `json:"records,omitempty"`
}

// Record is a DNS record the site owner must create.
type Record struct {
	Type    string `json:"type"`
	Name    string `json:"name"`
	Content string `json:"content"`
	TTL     int    `json:"ttl,omitempty"`
	Proxied bool   `json:"proxied,omitempty"`
}

// DNSInstructions tells the site owner how to point DNS at the WAF.
type DNSInstructions struct {
	Records      []Record `json:"records"`
	Instructions string   `json:"instructions,omitempty"`
}

// Statistics and Reports are passed through as the remote shapes them.
type (
	Statistics map[string]any
	Reports    map[string]any
	RuleSets   map[string]any
)

// RuleSettings is the payload for rule updates, forwarded verbatim.
type RuleSettings map[string]any

// ProtectionState is the aggregate state shown to site owners.
type ProtectionState string

const (
	StateNotRegistered  ProtectionState = "not_registered"
	StateNoSubscription ProtectionState = "no_subscription"
	StateDNSPending     ProtectionState = "dns_pending"
	StateActive         ProtectionState = "active"
	StateIssues         ProtectionState = "issues"
	StateInactive       ProtectionState = "inactive"
	StateError          ProtectionState = "error"
)

// ProtectionStatus is the composed view of registration, WAF, billing, DNS.
type ProtectionStatus struct {
	Status             ProtectionState `json:"status"`
	Message            string          `json:"message"`
	WAFStatus          *WAFStatus      `json:"waf_status,omitempty"`
	SubscriptionStatus string          `json:"subscription_status,omitempty"`
	DNSConfigured      bool            `json:"dns_configured"`
	LastCheck          time.Time       `json:"last_check"`
}

// SetupResult describes a protection setup, including soft failures.
type SetupResult struct {
	Success          bool             `json:"success"`
	Message          string           `json:"message"`
	ProtectionStatus string           `json:"protection_status"`
	Level            ProtectionLevel  `json:"level"`
	DNSInstructions  *DNSInstructions `json:"dns_instructions,omitempty"`
	Warning          string           `json:"warning,omitempty"`
}

// DashboardData bundles status with recent traffic for the dashboard.
type DashboardData struct {
	Status     ProtectionStatus `json:"status"`
	Statistics Statistics       `json:"statistics,omitempty"`
	Reports    Reports          `json:"reports,omitempty"`
}

// RegistrationRequest is sent to the auth service /register endpoint.
type RegistrationRequest struct {
	Domain     string `json:"domain"`
	Email      string `json:"email"`
	SiteURL    string `json:"site_url"`
	AppVersion string `json:"app_version"`
}

// RegistrationResponse carries the issued credentials.
type RegistrationResponse struct {
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
	Message      string `json:"message,omitempty"`
}
