package domain

import (
	"fmt"
	"net/url"
	"strings"
)

// Service names one of the remote backends.
type Service string

const (
	ServiceAuth    Service = "auth"
	ServiceConfig  Service = "config"
	ServiceBilling Service = "billing"
)

// Services lists every known backend.
func Services() []Service {
	return []Service{ServiceAuth, ServiceConfig, ServiceBilling}
}

// Default worker base URLs.
const (
	DefaultAuthURL    = "https://auth.your-workers.dev"
	DefaultConfigURL  = "https://cloudflare-api.your-workers.dev"
	DefaultBillingURL = "https://payment.your-workers.dev"
)

// Endpoints maps each service to its base URL.
type Endpoints struct {
	Auth    string `yaml:"auth" json:"auth"`
	Config  string `yaml:"config" json:"config"`
	Billing string `yaml:"billing" json:"billing"`
}

// DefaultEndpoints returns the hosted worker URLs.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Auth:    DefaultAuthURL,
		Config:  DefaultConfigURL,
		Billing: DefaultBillingURL,
	}
}

// BaseURL resolves the base URL for a service without a trailing slash.
func (e Endpoints) BaseURL(s Service) (string, error) {
	var raw string
	switch s {
	case ServiceAuth:
		raw = e.Auth
	case ServiceConfig:
		raw = e.Config
	case ServiceBilling:
		raw = e.Billing
	default:
		return "", NewValidationError("service", "unknown service %q", s)
	}
	if raw == "" {
		return "", NewValidationError("service", "no endpoint configured for %q", s)
	}
	return strings.TrimRight(raw, "/"), nil
}

// Validate checks every endpoint is an absolute http(s) URL.
func (e Endpoints) Validate() error {
	for _, s := range Services() {
		raw, err := e.BaseURL(s)
		if err != nil {
			return err
		}
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			return NewValidationError("endpoint", "%s endpoint %q is not an absolute http(s) URL", s, raw)
		}
	}
	return nil
}

// String implements fmt.Stringer
func (s Service) String() string { return string(s) }

// Site describes the installation the broker acts for.
type Site struct {
	URL        string `yaml:"url" json:"url"`
	Domain     string `yaml:"domain" json:"domain"`
	Salt       string `yaml:"salt" json:"-"`
	AppVersion string `yaml:"-" json:"app_version"`
}

// HostDomain returns Domain, falling back to the host of URL.
func (s Site) HostDomain() string {
	if s.Domain != "" {
		return s.Domain
	}
	u, err := url.Parse(s.URL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// Describe returns a short identifier for logs.
func (s Site) Describe() string {
	return fmt.Sprintf("%s (%s)", s.HostDomain(), s.URL)
}
