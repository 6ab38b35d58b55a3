package mocks

import (
	"context"
	"sync"

	"github.com/custodia-labs/wafbroker/internal/core/domain"
	"github.com/custodia-labs/wafbroker/internal/core/ports/driven"
)

var _ driven.WAFAPI = (*MockWAFAPI)(nil)

// MockWAFAPI is a mock remote API. Unset hooks return zero values.
type MockWAFAPI struct {
	mu    sync.Mutex
	calls map[string]int

	RegisterSiteFn          func(req domain.RegistrationRequest) (*domain.RegistrationResponse, error)
	AccessTokenFn           func() (string, error)
	ConfigureWAFFn          func(level domain.ProtectionLevel) (*domain.WAFConfiguration, error)
	WAFStatusFn             func() (*domain.WAFStatus, error)
	StatisticsFn            func(period domain.Period) (domain.Statistics, error)
	ReportsFn               func(period domain.Period, limit int) (domain.Reports, error)
	DNSStatusFn             func(siteDomain string) (*domain.DNSStatus, error)
	DNSInstructionsFn       func(siteDomain string) (*domain.DNSInstructions, error)
	UpdateRuleSettingsFn    func(rules domain.RuleSettings) (map[string]any, error)
	RuleSetsFn              func() (domain.RuleSets, error)
	CreateCheckoutSessionFn func(req domain.CheckoutRequest) (*domain.CheckoutSession, error)
	SubscriptionFn          func() (*domain.Subscription, error)
	UpdateSubscriptionFn    func(planID string) (*domain.Subscription, error)
	CancelSubscriptionFn    func() (*domain.Subscription, error)
	PlansFn                 func() ([]domain.Plan, error)
	CustomerPortalURLFn     func(returnURL string) (string, error)
}

// NewMockWAFAPI creates a new MockWAFAPI
func NewMockWAFAPI() *MockWAFAPI {
	return &MockWAFAPI{calls: make(map[string]int)}
}

func (m *MockWAFAPI) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[name]++
}

// Calls returns how often the named method was invoked.
func (m *MockWAFAPI) Calls(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[name]
}

func (m *MockWAFAPI) RegisterSite(ctx context.Context, req domain.RegistrationRequest) (*domain.RegistrationResponse, error) {
	m.record("RegisterSite")
	if m.RegisterSiteFn != nil {
		return m.RegisterSiteFn(req)
	}
	return &domain.RegistrationResponse{}, nil
}

func (m *MockWAFAPI) AccessToken(ctx context.Context) (string, error) {
	m.record("AccessToken")
	if m.AccessTokenFn != nil {
		return m.AccessTokenFn()
	}
	return "mock-token", nil
}

func (m *MockWAFAPI) ConfigureWAF(ctx context.Context, level domain.ProtectionLevel) (*domain.WAFConfiguration, error) {
	m.record("ConfigureWAF")
	if m.ConfigureWAFFn != nil {
		return m.ConfigureWAFFn(level)
	}
	return &domain.WAFConfiguration{}, nil
}

func (m *MockWAFAPI) WAFStatus(ctx context.Context) (*domain.WAFStatus, error) {
	m.record("WAFStatus")
	if m.WAFStatusFn != nil {
		return m.WAFStatusFn()
	}
	return &domain.WAFStatus{}, nil
}

func (m *MockWAFAPI) Statistics(ctx context.Context, period domain.Period) (domain.Statistics, error) {
	m.record("Statistics")
	if m.StatisticsFn != nil {
		return m.StatisticsFn(period)
	}
	return domain.Statistics{}, nil
}

func (m *MockWAFAPI) Reports(ctx context.Context, period domain.Period, limit int) (domain.Reports, error) {
	m.record("Reports")
	if m.ReportsFn != nil {
		return m.ReportsFn(period, limit)
	}
	return domain.Reports{}, nil
}

func (m *MockWAFAPI) DNSStatus(ctx context.Context, siteDomain string) (*domain.DNSStatus, error) {
	m.record("DNSStatus")
	if m.DNSStatusFn != nil {
		return m.DNSStatusFn(siteDomain)
	}
	return &domain.DNSStatus{}, nil
}

func (m *MockWAFAPI) DNSInstructions(ctx context.Context, siteDomain string) (*domain.DNSInstructions, error) {
	m.record("DNSInstructions")
	if m.DNSInstructionsFn != nil {
		return m.DNSInstructionsFn(siteDomain)
	}
	return &domain.DNSInstructions{}, nil
}

func (m *MockWAFAPI) UpdateRuleSettings(ctx context.Context, rules domain.RuleSettings) (map[string]any, error) {
	m.record("UpdateRuleSettings")
	if m.UpdateRuleSettingsFn != nil {
		return m.UpdateRuleSettingsFn(rules)
	}
	return map[string]any{}, nil
}

func (m *MockWAFAPI) RuleSets(ctx context.Context) (domain.RuleSets, error) {
	m.record("RuleSets")
	if m.RuleSetsFn != nil {
		return m.RuleSetsFn()
	}
	return domain.RuleSets{}, nil
}

func (m *MockWAFAPI) CreateCheckoutSession(ctx context.Context, req domain.CheckoutRequest) (*domain.CheckoutSession, error) {
	m.record("CreateCheckoutSession")
	if m.CreateCheckoutSessionFn != nil {
		return m.CreateCheckoutSessionFn(req)
	}
	return &domain.CheckoutSession{}, nil
}

func (m *MockWAFAPI) Subscription(ctx context.Context) (*domain.Subscription, error) {
	m.record("Subscription")
	if m.SubscriptionFn != nil {
		return m.SubscriptionFn()
	}
	return &domain.Subscription{}, nil
}

func (m *MockWAFAPI) UpdateSubscription(ctx context.Context, planID string) (*domain.Subscription, error) {
	m.record("UpdateSubscription")
	if m.UpdateSubscriptionFn != nil {
		return m.UpdateSubscriptionFn(planID)
	}
	return &domain.Subscription{}, nil
}

func (m *MockWAFAPI) CancelSubscription(ctx context.Context) (*domain.Subscription, error) {
	m.record("CancelSubscription")
	if m.CancelSubscriptionFn != nil {
		return m.CancelSubscriptionFn()
	}
	return &domain.Subscription{}, nil
}

func (m *MockWAFAPI) Plans(ctx context.Context) ([]domain.Plan, error) {
	m.record("Plans")
	if m.PlansFn != nil {
		return m.PlansFn()
	}
	return nil, nil
}

func (m *MockWAFAPI) CustomerPortalURL(ctx context.Context, returnURL string) (string, error) {
	m.record("CustomerPortalURL")
	if m.CustomerPortalURLFn != nil {
		return m.CustomerPortalURLFn(returnURL)
	}
	return "", nil
}
