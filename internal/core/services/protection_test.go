package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/wafbroker/internal/core/domain"
	"github.com/custodia-labs/wafbroker/internal/core/ports/driven/mocks"
)

var protectionNow = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

type protectionFixture struct {
	api      *mocks.MockWAFAPI
	creds    *mocks.MockCredentialStore
	tokens   *mocks.MockTokenStore
	status   *mocks.MockStatusStore
	settings *mocks.MockSettingsStore
	wizard   *mocks.MockWizardStore
	svc      *protectionService
}

func newProtectionFixture(t *testing.T) *protectionFixture {
	t.Helper()
	f, err := buildProtectionFixture()
	require.NoError(t, err)
	return f
}

// buildProtectionFixture wires the real controllers over mocks. By default
// the site is registered and subscribed, with DNS configured and the WAF active.
func buildProtectionFixture() (*protectionFixture, error) {
	f := &protectionFixture{
		api:      mocks.NewMockWAFAPI(),
		creds:    mocks.NewMockCredentialStore(),
		tokens:   mocks.NewMockTokenStore(),
		status:   mocks.NewMockStatusStore(),
		settings: mocks.NewMockSettingsStore(),
		wizard:   mocks.NewMockWizardStore(),
	}
	if err := f.creds.Save(context.Background(), "abc", "xyz"); err != nil {
		return nil, err
	}

	f.api.RegisterSiteFn = func(domain.RegistrationRequest) (*domain.RegistrationResponse, error) {
		return &domain.RegistrationResponse{ClientID: "abc", ClientSecret: "xyz"}, nil
	}
	f.api.WAFStatusFn = func() (*domain.WAFStatus, error) {
		return &domain.WAFStatus{Status: domain.RemoteStatusActive}, nil
	}
	f.api.SubscriptionFn = func() (*domain.Subscription, error) {
		return &domain.Subscription{PlanID: "pro", Status: domain.SubscriptionActive}, nil
	}
	f.api.DNSStatusFn = func(string) (*domain.DNSStatus, error) {
		return &domain.DNSStatus{Configured: true}, nil
	}
	f.api.ConfigureWAFFn = func(level domain.ProtectionLevel) (*domain.WAFConfiguration, error) {
		return &domain.WAFConfiguration{Status: "active", Level: string(level)}, nil
	}
	f.api.DNSInstructionsFn = func(string) (*domain.DNSInstructions, error) {
		return &domain.DNSInstructions{Records: []domain.Record{{Type: "CNAME", Name: "www", Content: "edge.test"}}}, nil
	}

	clock := func() time.Time { return protectionNow }
	f.svc = NewProtectionService(ProtectionServiceConfig{
		Registration: NewRegistrationService(f.api, f.creds, f.tokens, testSite, nil),
		Firewall:     NewFirewallService(f.api, testSite, nil),
		Billing:      NewBillingService(f.api, mocks.NewMockSubscriptionCache(nil), nil, WithBillingClock(clock)),
		Wizard:       NewWizardService(f.wizard, nil),
		Status:       f.status,
		Settings:     f.settings,
		Now:          clock,
	}).(*protectionService)
	return f, nil
}

func TestSetupProtection(t *testing.T) {
	f := newProtectionFixture(t)

	result, err := f.svc.SetupProtection(context.Background(), domain.ProtectionHigh)
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, MsgSetupComplete, result.Message)
	assert.Equal(t, "active", result.ProtectionStatus)
	assert.Equal(t, domain.ProtectionHigh, result.Level)
	require.NotNil(t, result.DNSInstructions)
	assert.Len(t, result.DNSInstructions.Records, 1)
	assert.Empty(t, result.Warning)
}

func TestSetupProtection_DefaultsToPendingAndMedium(t *testing.T) {
	f := newProtectionFixture(t)
	var configured domain.ProtectionLevel
	f.api.ConfigureWAFFn = func(level domain.ProtectionLevel) (*domain.WAFConfiguration, error) {
		configured = level
		return &domain.WAFConfiguration{}, nil
	}

	result, err := f.svc.SetupProtection(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, domain.ProtectionMedium, configured)
	assert.Equal(t, domain.RemoteStatusPending, result.ProtectionStatus)
}

func TestSetupProtection_DNSFailureIsWarning(t *testing.T) {
	f := newProtectionFixture(t)
	f.api.DNSInstructionsFn = func(string) (*domain.DNSInstructions, error) {
		return nil, &domain.TransportError{Attempts: 4, Err: errors.New("timeout")}
	}

	result, err := f.svc.SetupProtection(context.Background(), domain.ProtectionLow)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, MsgSetupNoDNSInfo, result.Message)
	assert.Equal(t, MsgSetupNoDNSInfo, result.Warning)
	assert.Nil(t, result.DNSInstructions)
}

func TestSetupProtection_RequiresRegistration(t *testing.T) {
	f := newProtectionFixture(t)
	require.NoError(t, f.creds.Clear(context.Background()))

	_, err := f.svc.SetupProtection(context.Background(), domain.ProtectionHigh)
	assert.ErrorIs(t, err, domain.ErrNotRegistered)
	assert.Equal(t, 0, f.api.Calls("ConfigureWAF"))
}

func TestSetupProtection_RegistrationCheckedBeforeLevel(t *testing.T) {
	f := newProtectionFixture(t)
	require.NoError(t, f.creds.Clear(context.Background()))

	_, err := f.svc.SetupProtection(context.Background(), "extreme")
	assert.ErrorIs(t, err, domain.ErrNotRegistered)
	assert.Equal(t, 0, f.api.Calls("ConfigureWAF"))
}

func TestSetupProtection_ConfigureErrorPropagates(t *testing.T) {
	f := newProtectionFixture(t)
	remote := &domain.APIError{Status: 402, Code: "payment_required", Message: "Subscribe first"}
	f.api.ConfigureWAFFn = func(domain.ProtectionLevel) (*domain.WAFConfiguration, error) { return nil, remote }

	_, err := f.svc.SetupProtection(context.Background(), domain.ProtectionHigh)
	assert.Same(t, remote, err)
}

func TestProtectionStatus_Precedence(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(f *protectionFixture)
		wantState  domain.ProtectionState
		wantMsg    string
		wantRemote bool
	}{
		{
			name:      "not registered",
			setup:     func(f *protectionFixture) { _ = f.creds.Clear(context.Background()) },
			wantState: domain.StateNotRegistered,
			wantMsg:   "Site is not registered",
		},
		{
			name: "no subscription beats dns",
			setup: func(f *protectionFixture) {
				f.api.SubscriptionFn = func() (*domain.Subscription, error) {
					return &domain.Subscription{Status: "canceled"}, nil
				}
				f.api.DNSStatusFn = func(string) (*domain.DNSStatus, error) { return &domain.DNSStatus{}, nil }
			},
			wantState:  domain.StateNoSubscription,
			wantMsg:    "No active subscription",
			wantRemote: true,
		},
		{
			name: "dns pending beats active",
			setup: func(f *protectionFixture) {
				f.api.DNSStatusFn = func(string) (*domain.DNSStatus, error) { return &domain.DNSStatus{}, nil }
			},
			wantState:  domain.StateDNSPending,
			wantMsg:    "DNS configuration pending",
			wantRemote: true,
		},
		{
			name:       "active",
			setup:      func(f *protectionFixture) {},
			wantState:  domain.StateActive,
			wantMsg:    "Protection is active",
			wantRemote: true,
		},
		{
			name: "issues uses remote message",
			setup: func(f *protectionFixture) {
				f.api.WAFStatusFn = func() (*domain.WAFStatus, error) {
					return &domain.WAFStatus{Status: domain.RemoteStatusIssues, Message: "Origin unreachable"}, nil
				}
			},
			wantState:  domain.StateIssues,
			wantMsg:    "Origin unreachable",
			wantRemote: true,
		},
		{
			name: "unknown remote status is inactive",
			setup: func(f *protectionFixture) {
				f.api.WAFStatusFn = func() (*domain.WAFStatus, error) {
					return &domain.WAFStatus{Status: "paused"}, nil
				}
			},
			wantState:  domain.StateInactive,
			wantMsg:    "Protection is not active",
			wantRemote: true,
		},
		{
			name: "waf error",
			setup: func(f *protectionFixture) {
				f.api.WAFStatusFn = func() (*domain.WAFStatus, error) {
					return nil, &domain.APIError{Status: 500, Code: "api_error", Message: "Internal"}
				}
			},
			wantState: domain.StateError,
			wantMsg:   "Error getting WAF status: Internal",
		},
		{
			name: "dns error",
			setup: func(f *protectionFixture) {
				f.api.DNSStatusFn = func(string) (*domain.DNSStatus, error) {
					return nil, &domain.APIError{Status: 502, Code: "api_error", Message: "Bad gateway"}
				}
			},
			wantState: domain.StateError,
			wantMsg:   "Error getting DNS status: Bad gateway",
		},
		{
			name: "subscription error without cache",
			setup: func(f *protectionFixture) {
				f.api.SubscriptionFn = func() (*domain.Subscription, error) {
					return nil, domain.ErrMissingCredentials
				}
			},
			wantState: domain.StateError,
			wantMsg:   "Error getting subscription status: Site is not registered. Please register first.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newProtectionFixture(t)
			tt.setup(f)

			status := f.svc.ProtectionStatus(context.Background())
			assert.Equal(t, tt.wantState, status.Status)
			assert.Equal(t, tt.wantMsg, status.Message)
			assert.Equal(t, protectionNow, status.LastCheck)
			if tt.wantRemote {
				assert.NotNil(t, status.WAFStatus)
			}

			last, ok := f.svc.LastStatus(context.Background())
			require.True(t, ok)
			assert.Equal(t, tt.wantState, last.Status)
		})
	}
}

func TestProtectionStatus_IncludesDetails(t *testing.T) {
	f := newProtectionFixture(t)

	status := f.svc.ProtectionStatus(context.Background())
	assert.Equal(t, domain.SubscriptionActive, status.SubscriptionStatus)
	assert.True(t, status.DNSConfigured)
	assert.Equal(t, domain.RemoteStatusActive, status.WAFStatus.Status)
	assert.Equal(t, 1, f.status.Saves())
}

func TestDashboardData(t *testing.T) {
	f := newProtectionFixture(t)
	var gotLimit int
	f.api.StatisticsFn = func(period domain.Period) (domain.Statistics, error) {
		return domain.Statistics{"blocked": 12.0, "period": string(period)}, nil
	}
	f.api.ReportsFn = func(period domain.Period, limit int) (domain.Reports, error) {
		gotLimit = limit
		return nil, errors.New("reports unavailable")
	}

	data := f.svc.DashboardData(context.Background())
	assert.Equal(t, domain.StateActive, data.Status.Status)
	assert.Equal(t, "week", data.Statistics["period"])
	assert.Empty(t, data.Reports)
	assert.Equal(t, 10, gotLimit)
}

func TestDashboardData_InactiveSkipsTraffic(t *testing.T) {
	f := newProtectionFixture(t)
	f.api.DNSStatusFn = func(string) (*domain.DNSStatus, error) { return &domain.DNSStatus{}, nil }

	data := f.svc.DashboardData(context.Background())
	assert.Equal(t, domain.StateDNSPending, data.Status.Status)
	assert.Equal(t, 0, f.api.Calls("Statistics"))
	assert.Equal(t, 0, f.api.Calls("Reports"))
}

func TestCompleteSetup(t *testing.T) {
	f := newProtectionFixture(t)
	require.NoError(t, f.creds.Clear(context.Background()))
	f.api.CreateCheckoutSessionFn = func(req domain.CheckoutRequest) (*domain.CheckoutSession, error) {
		return &domain.CheckoutSession{URL: "https://pay.test/" + req.PlanID}, nil
	}

	result, err := f.svc.CompleteSetup(context.Background(), domain.CompleteSetupRequest{
		Email:      "admin@example.com",
		PlanID:     "pro",
		Level:      domain.ProtectionHigh,
		SuccessURL: "https://shop.example.com/ok",
		CancelURL:  "https://shop.example.com/cancel",
	})
	require.NoError(t, err)

	assert.True(t, result.Registered)
	assert.Equal(t, "https://pay.test/pro", result.Checkout.URL)
	assert.Equal(t, MsgSetupComplete, result.Setup.Message)
	assert.Equal(t, []domain.WizardStep{domain.StepWelcome, domain.StepPlan, domain.StepComplete}, result.Steps)
	assert.Equal(t, 1, f.api.Calls("RegisterSite"))
}

func TestCompleteSetup_WithoutPlan(t *testing.T) {
	f := newProtectionFixture(t)

	result, err := f.svc.CompleteSetup(context.Background(), domain.CompleteSetupRequest{})
	require.NoError(t, err)
	assert.Nil(t, result.Checkout)
	assert.Equal(t, domain.ProtectionMedium, result.Setup.Level)
	assert.Equal(t, 0, f.api.Calls("RegisterSite"))
	assert.Equal(t, 0, f.api.Calls("CreateCheckoutSession"))
}

func TestCompleteSetup_RegistrationErrorStops(t *testing.T) {
	f := newProtectionFixture(t)
	require.NoError(t, f.creds.Clear(context.Background()))

	_, err := f.svc.CompleteSetup(context.Background(), domain.CompleteSetupRequest{Email: "bad"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, 0, f.api.Calls("ConfigureWAF"))
}

func TestPurgeKeepsEncryptionMaterial(t *testing.T) {
	f := newProtectionFixture(t)
	ctx := context.Background()
	for _, key := range append(domain.PurgeableKeys(), domain.KeyEncryptionKey, domain.KeyInstallationSecret) {
		require.NoError(t, f.settings.Set(ctx, key, "v", false))
	}

	require.NoError(t, f.svc.Purge(ctx))

	for _, key := range domain.PurgeableKeys() {
		_, ok := f.settings.Raw(key)
		assert.False(t, ok, key)
	}
	_, ok := f.settings.Raw(domain.KeyEncryptionKey)
	assert.True(t, ok)
	_, ok = f.settings.Raw(domain.KeyInstallationSecret)
	assert.True(t, ok)
}

func TestResetRegistration(t *testing.T) {
	f := newProtectionFixture(t)

	require.NoError(t, f.svc.ResetRegistration(context.Background()))
	status := f.svc.ProtectionStatus(context.Background())
	assert.Equal(t, domain.StateNotRegistered, status.Status)
}
