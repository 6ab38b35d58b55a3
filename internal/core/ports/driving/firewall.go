package driving

import (
	"context"

	"github.com/custodia-labs/wafbroker/internal/core/domain"
)

// FirewallService exposes WAF configuration and traffic data
type FirewallService interface {
	Configure(ctx context.Context, level domain.ProtectionLevel) (*domain.WAFConfiguration, error)
	Status(ctx context.Context) (*domain.WAFStatus, error)
	Statistics(ctx context.Context, period domain.Period) (domain.Statistics, error)
	Reports(ctx context.Context, period domain.Period, limit int) (domain.Reports, error)

	// DNSStatus and DNSInstructions use the configured site domain
	DNSStatus(ctx context.Context) (*domain.DNSStatus, error)
	DNSInstructions(ctx context.Context) (*domain.DNSInstructions, error)

	UpdateRuleSettings(ctx context.Context, rules domain.RuleSettings) (map[string]any, error)
	RuleSets(ctx context.Context) (domain.RuleSets, error)
}
