package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/wafbroker/internal/core/domain"
	"github.com/custodia-labs/wafbroker/internal/core/ports/driven/mocks"
)

func TestFirewall_ConfigureRejectsUnknownLevel(t *testing.T) {
	api := mocks.NewMockWAFAPI()
	svc := NewFirewallService(api, testSite, nil)

	_, err := svc.Configure(context.Background(), "extreme")

	var validation *domain.ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "protection_level", validation.Field)
	assert.Equal(t, 0, api.Calls("ConfigureWAF"))
}

func TestFirewall_DNSUsesSiteDomain(t *testing.T) {
	api := mocks.NewMockWAFAPI()
	var domains []string
	api.DNSStatusFn = func(siteDomain string) (*domain.DNSStatus, error) {
		domains = append(domains, siteDomain)
		return &domain.DNSStatus{Configured: true}, nil
	}
	api.DNSInstructionsFn = func(siteDomain string) (*domain.DNSInstructions, error) {
		domains = append(domains, siteDomain)
		return &domain.DNSInstructions{}, nil
	}
	svc := NewFirewallService(api, testSite, nil)

	status, err := svc.DNSStatus(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Configured)
	_, err = svc.DNSInstructions(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"shop.example.com", "shop.example.com"}, domains)
}

func TestFirewall_UpdateRuleSettingsRequiresRules(t *testing.T) {
	api := mocks.NewMockWAFAPI()
	svc := NewFirewallService(api, testSite, nil)

	_, err := svc.UpdateRuleSettings(context.Background(), domain.RuleSettings{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.UpdateRuleSettings(context.Background(), domain.RuleSettings{"xss": "block"})
	assert.NoError(t, err)
	assert.Equal(t, 1, api.Calls("UpdateRuleSettings"))
}
