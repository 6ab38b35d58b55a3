package wafapi

import (
	"context"
	"net/http"

	"github.com/custodia-labs/wafbroker/internal/core/domain"
)

// ConfigureWAF sets the protection level for the site.
func (c *Client) ConfigureWAF(ctx context.Context, level domain.ProtectionLevel) (*domain.WAFConfiguration, error) {
	if err := level.Validate(); err != nil {
		return nil, err
	}

	c.logger.Info("configuring WAF protection", "level", string(level))

	resp, err := doJSON[domain.WAFConfiguration](ctx, c, Call{
		Service: domain.ServiceConfig,
		Path:    "/waf/configure",
		Method:  http.MethodPost,
		Body: map[string]any{
			"domain":           c.site.HostDomain(),
			"protection_level": level,
		},
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// WAFStatus gets the remote protection status.
func (c *Client) WAFStatus(ctx context.Context) (*domain.WAFStatus, error) {
	resp, err := doJSON[domain.WAFStatus](ctx, c, Call{
		Service: domain.ServiceConfig,
		Path:    "/waf/status",
		Method:  http.MethodGet,
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Statistics gets traffic statistics for period.
func (c *Client) Statistics(ctx context.Context, period domain.Period) (domain.Statistics, error) {
	if err := period.Validate(); err != nil {
		return nil, err
	}
	return doJSON[domain.Statistics](ctx, c, Call{
		Service: domain.ServiceConfig,
		Path:    "/waf/statistics",
		Method:  http.MethodGet,
		Body:    map[string]any{"period": period},
	})
}

// Reports gets up to limit attack reports for period.
func (c *Client) Reports(ctx context.Context, period domain.Period, limit int) (domain.Reports, error) {
	if err := period.Validate(); err != nil {
		return nil, err
	}
	if err := domain.ValidateReportLimit(limit); err != nil {
		return nil, err
	}
	return doJSON[domain.Reports](ctx, c, Call{
		Service: domain.ServiceConfig,
		Path:    "/waf/reports",
		Method:  http.MethodGet,
		Body:    map[string]any{"period": period, "limit": limit},
	})
}

// DNSStatus checks whether the DNS records for siteDomain are in place.
// An empty siteDomain uses the configured site.
func (c *Client) DNSStatus(ctx context.Context, siteDomain string) (*domain.DNSStatus, error) {
	d, err := c.domainOrDefault(siteDomain)
	if err != nil {
		return nil, err
	}
	resp, err := doJSON[domain.DNSStatus](ctx, c, Call{
		Service: domain.ServiceConfig,
		Path:    "/waf/dns/status",
		Method:  http.MethodGet,
		Body:    map[string]any{"domain": d},
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// DNSInstructions gets the records the site owner must create.
func (c *Client) DNSInstructions(ctx context.Context, siteDomain string) (*domain.DNSInstructions, error) {
	d, err := c.domainOrDefault(siteDomain)
	if err != nil {
		return nil, err
	}
	resp, err := doJSON[domain.DNSInstructions](ctx, c, Call{
		Service: domain.ServiceConfig,
		Path:    "/waf/dns/instructions",
		Method:  http.MethodGet,
		Body:    map[string]any{"domain": d},
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdateRuleSettings forwards rule settings verbatim.
func (c *Client) UpdateRuleSettings(ctx context.Context, rules domain.RuleSettings) (map[string]any, error) {
	if len(rules) == 0 {
		return nil, domain.NewValidationError("rules", "at least one rule setting is required")
	}
	return doJSON[map[string]any](ctx, c, Call{
		Service: domain.ServiceConfig,
		Path:    "/waf/rules",
		Method:  http.MethodPut,
		Body:    rules,
	})
}

// RuleSets lists the available managed rule sets.
func (c *Client) RuleSets(ctx context.Context) (domain.RuleSets, error) {
	return doJSON[domain.RuleSets](ctx, c, Call{
		Service: domain.ServiceConfig,
		Path:    "/waf/rule-sets",
		Method:  http.MethodGet,
	})
}

func (c *Client) domainOrDefault(siteDomain string) (string, error) {
	if siteDomain == "" {
		siteDomain = c.site.HostDomain()
	}
	if siteDomain == "" {
		return "", domain.NewValidationError("domain", "is required")
	}
	return siteDomain, nil
}
