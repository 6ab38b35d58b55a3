package services

import (
	"context"
	"log/slog"

	"github.com/custodia-labs/wafbroker/internal/core/domain"
	"github.com/custodia-labs/wafbroker/internal/core/ports/driven"
	"github.com/custodia-labs/wafbroker/internal/core/ports/driving"
)

// Ensure firewallService implements FirewallService
var _ driving.FirewallService = (*firewallService)(nil)

// firewallService implements FirewallService on top of the config API
type firewallService struct {
	api    driven.FirewallAPI
	site   domain.Site
	logger *slog.Logger
}

// NewFirewallService creates a new FirewallService
func NewFirewallService(api driven.FirewallAPI, site domain.Site, logger *slog.Logger) driving.FirewallService {
	if logger == nil {
		logger = slog.Default()
	}
	return &firewallService{
		api:    api,
		site:   site,
		logger: logger.With("component", "firewall"),
	}
}

// Configure sets the protection level
func (s *firewallService) Configure(ctx context.Context, level domain.ProtectionLevel) (*domain.WAFConfiguration, error) {
	if err := level.Validate(); err != nil {
		return nil, err
	}
	cfg, err := s.api.ConfigureWAF(ctx, level)
	if err != nil {
		s.logger.Error("failed to configure WAF", "level", string(level), "error", err)
		return nil, err
	}
	s.logger.Info("WAF configured", "level", string(level), "status", cfg.Status)
	return cfg, nil
}

// Status gets the remote WAF status
func (s *firewallService) Status(ctx context.Context) (*domain.WAFStatus, error) {
	return s.api.WAFStatus(ctx)
}

// Statistics gets traffic statistics for a period
func (s *firewallService) Statistics(ctx context.Context, period domain.Period) (domain.Statistics, error) {
	return s.api.Statistics(ctx, period)
}

// Reports gets attack reports for a period
func (s *firewallService) Reports(ctx context.Context, period domain.Period, limit int) (domain.Reports, error) {
	return s.api.Reports(ctx, period, limit)
}

// DNSStatus checks DNS for the configured site
func (s *firewallService) DNSStatus(ctx context.Context) (*domain.DNSStatus, error) {
	return s.api.DNSStatus(ctx, s.site.HostDomain())
}

// DNSInstructions gets DNS instructions for the configured site
func (s *firewallService) DNSInstructions(ctx context.Context) (*domain.DNSInstructions, error) {
	return s.api.DNSInstructions(ctx, s.site.HostDomain())
}

// UpdateRuleSettings forwards rule settings to the config service
func (s *firewallService) UpdateRuleSettings(ctx context.Context, rules domain.RuleSettings) (map[string]any, error) {
	if len(rules) == 0 {
		return nil, domain.NewValidationError("rules", "rule settings must not be empty")
	}
	s.logger.Info("updating WAF rule settings", "rules", len(rules))
	return s.api.UpdateRuleSettings(ctx, rules)
}

// RuleSets lists available rule sets
func (s *firewallService) RuleSets(ctx context.Context) (domain.RuleSets, error) {
	return s.api.RuleSets(ctx)
}
