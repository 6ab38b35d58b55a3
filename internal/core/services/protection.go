package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/custodia-labs/wafbroker/internal/core/domain"
	"github.com/custodia-labs/wafbroker/internal/core/ports/driven"
	"github.com/custodia-labs/wafbroker/internal/core/ports/driving"
)

// Ensure protectionService implements ProtectionService
var _ driving.ProtectionService = (*protectionService)(nil)

// Setup result messages.
const (
	MsgSetupComplete  = "WAF protection configured successfully."
	MsgSetupNoDNSInfo = "WAF protection configured successfully, but could not get DNS instructions."
)

// Dashboard data window.
const (
	dashboardPeriod      = domain.PeriodWeek
	dashboardReportLimit = 10
)

// ProtectionServiceConfig holds the facade's collaborators.
type ProtectionServiceConfig struct {
	Registration driving.RegistrationService
	Firewall     driving.FirewallService
	Billing      driving.BillingService
	Wizard       driving.WizardService
	Status       driven.StatusStore
	Settings     driven.SettingsStore // Purge deletes broker keys directly
	Logger       *slog.Logger
	Now          func() time.Time
}

// protectionService composes the controllers into site-level operations
type protectionService struct {
	registration driving.RegistrationService
	firewall     driving.FirewallService
	billing      driving.BillingService
	wizard       driving.WizardService
	status       driven.StatusStore
	settings     driven.SettingsStore
	logger       *slog.Logger
	now          func() time.Time
}

// NewProtectionService creates the facade
func NewProtectionService(cfg ProtectionServiceConfig) driving.ProtectionService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &protectionService{
		registration: cfg.Registration,
		firewall:     cfg.Firewall,
		billing:      cfg.Billing,
		wizard:       cfg.Wizard,
		status:       cfg.Status,
		settings:     cfg.Settings,
		logger:       logger.With("component", "protection"),
		now:          now,
	}
}

// RegisterSite registers the site with the auth service
func (s *protectionService) RegisterSite(ctx context.Context, email string) (domain.CredentialSummary, error) {
	return s.registration.RegisterSite(ctx, email)
}

// SetupProtection configures the WAF. Registration is checked before the
// level, so an unregistered site always gets ErrNotRegistered. Failing to
// fetch DNS instructions afterwards is reported as a warning, not an error.
func (s *protectionService) SetupProtection(ctx context.Context, level domain.ProtectionLevel) (*domain.SetupResult, error) {
	if !s.registration.IsRegistered(ctx) {
		s.logger.Error("cannot setup protection: site not registered")
		return nil, domain.ErrNotRegistered
	}

	if level == "" {
		level = domain.DefaultProtectionLevel
	}
	if err := level.Validate(); err != nil {
		return nil, err
	}

	s.logger.Info("setting up WAF protection", "level", string(level))

	cfg, err := s.firewall.Configure(ctx, level)
	if err != nil {
		return nil, err
	}

	status := domain.RemoteStatusPending
	if cfg != nil && cfg.Status != "" {
		status = cfg.Status
	}

	result := &domain.SetupResult{
		Success:          true,
		Message:          MsgSetupComplete,
		ProtectionStatus: status,
		Level:            level,
	}

	instructions, err := s.firewall.DNSInstructions(ctx)
	if err != nil {
		s.logger.Warn("failed to get DNS instructions", "error", err)
		result.Message = MsgSetupNoDNSInfo
		result.Warning = MsgSetupNoDNSInfo
		return result, nil
	}
	result.DNSInstructions = instructions

	return result, nil
}

// ProtectionStatus composes registration, WAF, subscription and DNS state.
// It never fails; sub-call errors produce StateError.
func (s *protectionService) ProtectionStatus(ctx context.Context) *domain.ProtectionStatus {
	status := s.computeStatus(ctx)
	status.LastCheck = s.now().UTC()

	if err := s.status.SaveStatus(ctx, status); err != nil {
		s.logger.Warn("failed to persist protection status", "error", err)
	}
	return status
}

func (s *protectionService) computeStatus(ctx context.Context) *domain.ProtectionStatus {
	if !s.registration.IsRegistered(ctx) {
		return &domain.ProtectionStatus{Status: domain.StateNotRegistered, Message: "Site is not registered"}
	}

	waf, err := s.firewall.Status(ctx)
	if err != nil {
		return errorStatus("Error getting WAF status: ", err)
	}

	sub, err := s.billing.Subscription(ctx, false)
	if err != nil {
		return errorStatus("Error getting subscription status: ", err)
	}

	dns, err := s.firewall.DNSStatus(ctx)
	if err != nil {
		return errorStatus("Error getting DNS status: ", err)
	}

	result := &domain.ProtectionStatus{
		WAFStatus:     waf,
		DNSConfigured: dns != nil && dns.Configured,
	}
	if sub != nil {
		result.SubscriptionStatus = sub.Status
	}

	switch {
	case !sub.IsActive():
		result.Status, result.Message = domain.StateNoSubscription, "No active subscription"
	case !result.DNSConfigured:
		result.Status, result.Message = domain.StateDNSPending, "DNS configuration pending"
	case waf != nil && waf.Status == domain.RemoteStatusActive:
		result.Status, result.Message = domain.StateActive, "Protection is active"
	case waf != nil && waf.Status == domain.RemoteStatusIssues:
		result.Status, result.Message = domain.StateIssues, "Protection has issues"
		if waf.Message != "" {
			result.Message = waf.Message
		}
	default:
		result.Status, result.Message = domain.StateInactive, "Protection is not active"
	}
	return result
}

func errorStatus(prefix string, err error) *domain.ProtectionStatus {
	return &domain.ProtectionStatus{
		Status:  domain.StateError,
		Message: prefix + domain.Describe(err).Message,
	}
}

// LastStatus returns the most recently recorded status
func (s *protectionService) LastStatus(ctx context.Context) (*domain.ProtectionStatus, bool) {
	return s.status.LastStatus(ctx)
}

// Subscription delegates to the billing cache
func (s *protectionService) Subscription(ctx context.Context, forceRefresh bool) (*domain.Subscription, error) {
	return s.billing.Subscription(ctx, forceRefresh)
}

// DashboardData returns the status plus a week of statistics and the ten
// latest reports while protection is active.
func (s *protectionService) DashboardData(ctx context.Context) *domain.DashboardData {
	status := s.ProtectionStatus(ctx)
	data := &domain.DashboardData{
		Status:     *status,
		Statistics: domain.Statistics{},
		Reports:    domain.Reports{},
	}
	if status.Status != domain.StateActive {
		return data
	}

	if stats, err := s.firewall.Statistics(ctx, dashboardPeriod); err != nil {
		s.logger.Warn("failed to get statistics", "error", err)
	} else if stats != nil {
		data.Statistics = stats
	}

	if reports, err := s.firewall.Reports(ctx, dashboardPeriod, dashboardReportLimit); err != nil {
		s.logger.Warn("failed to get reports", "error", err)
	} else if reports != nil {
		data.Reports = reports
	}

	return data
}

// CompleteSetup registers if needed, opens checkout when a plan is given,
// then configures protection.
func (s *protectionService) CompleteSetup(ctx context.Context, req domain.CompleteSetupRequest) (*domain.CompleteSetupResult, error) {
	s.logger.Info("completing setup wizard", "plan_id", req.PlanID, "level", string(req.Level))

	result := &domain.CompleteSetupResult{}

	if !s.registration.IsRegistered(ctx) {
		if _, err := s.registration.RegisterSite(ctx, req.Email); err != nil {
			return nil, err
		}
	}
	result.Registered = true
	s.markStep(ctx, domain.StepWelcome)

	if req.PlanID != "" {
		checkout, err := s.billing.CheckoutSession(ctx, domain.CheckoutRequest{
			PlanID:     req.PlanID,
			SuccessURL: req.SuccessURL,
			CancelURL:  req.CancelURL,
		})
		if err != nil {
			return nil, err
		}
		result.Checkout = checkout
		s.markStep(ctx, domain.StepPlan)
	}

	setup, err := s.SetupProtection(ctx, req.Level)
	if err != nil {
		return nil, err
	}
	result.Setup = setup
	result.Steps = s.markStep(ctx, domain.StepComplete)

	return result, nil
}

func (s *protectionService) markStep(ctx context.Context, step domain.WizardStep) []domain.WizardStep {
	steps, err := s.wizard.MarkCompleted(ctx, step)
	if err != nil {
		s.logger.Warn("failed to record wizard step", "step", string(step), "error", err)
		return s.wizard.CompletedSteps(ctx)
	}
	return steps
}

// ResetRegistration clears the token and credentials
func (s *protectionService) ResetRegistration(ctx context.Context) error {
	return s.registration.ResetRegistration(ctx)
}

// Purge removes every broker setting except the encryption key material
func (s *protectionService) Purge(ctx context.Context) error {
	s.logger.Info("purging broker state")

	var errs []error
	for _, key := range domain.PurgeableKeys() {
		if err := s.settings.Delete(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
