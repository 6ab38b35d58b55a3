package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/custodia-labs/wafbroker/internal/core/domain"
)

// ErrorResponse represents an API error response
// @Description API error response
type ErrorResponse struct {
	Code    string `json:"code" example:"validation_error"`
	Message string `json:"message" example:"invalid email: is required"`
}

// StatusResponse represents a simple status response
// @Description Simple status response
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// VersionResponse represents the API version response
// @Description API version response
type VersionResponse struct {
	Version string `json:"version" example:"1.0.0"`
}

// RegisterRequest is the body of a registration call
type RegisterRequest struct {
	Email string `json:"email" example:"admin@example.com"`
}

// SetupProtectionRequest selects the protection level
type SetupProtectionRequest struct {
	Level domain.ProtectionLevel `json:"protection_level" example:"medium"`
}

// UpdateSubscriptionRequest switches the subscription plan
type UpdateSubscriptionRequest struct {
	PlanID string `json:"plan_id" example:"pro"`
}

// PortalRequest carries the URL the billing portal returns to
type PortalRequest struct {
	ReturnURL string `json:"return_url"`
}

// PortalResponse carries the billing portal URL
type PortalResponse struct {
	URL string `json:"url"`
}

// WizardStepRequest marks one wizard step as completed
type WizardStepRequest struct {
	Step domain.WizardStep `json:"step" example:"plan"`
}

// WizardStepsResponse lists completed wizard steps
type WizardStepsResponse struct {
	Steps []domain.WizardStep `json:"steps"`
}

// BillingWebhookRequest is the payment provider event notification
type BillingWebhookRequest struct {
	Event domain.BillingEvent `json:"event" example:"subscription_updated"`
}

// Health endpoints

// handleHealth godoc
// @Summary      Health check
// @Description  Returns the health status of the API
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// handleReady godoc
// @Summary      Readiness check
// @Description  Returns the readiness status of the API (checks the settings backend)
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Failure      503  {object}  ErrorResponse  "Settings backend unavailable"
// @Router       /ready [get]
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.storage != nil {
		if err := s.storage.Ping(r.Context()); err != nil {
			s.logger.Warn("readiness check failed", "error", err)
			writeError(w, http.StatusServiceUnavailable, domain.CodeStorage, "settings backend unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ready"})
}

// handleVersion godoc
// @Summary      Get API version
// @Description  Returns the current API version
// @Tags         Health
// @Produce      json
// @Success      200  {object}  VersionResponse
// @Router       /version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{Version: s.version})
}

// Auth endpoints

// handleLogin godoc
// @Summary      Admin login
// @Description  Authenticate with the admin password to receive a JWT token
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        request  body      domain.LoginRequest  true  "Admin password"
// @Success      200      {object}  domain.AdminSession
// @Failure      400      {object}  ErrorResponse  "Invalid request body"
// @Failure      401      {object}  ErrorResponse  "Invalid credentials"
// @Router       /auth/login [post]
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	session, err := s.services.Auth.Authenticate(r.Context(), req)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			writeError(w, http.StatusUnauthorized, domain.CodeUnauthorized, "invalid credentials")
			return
		}
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, session)
}

// handleVerifyAuthentication godoc
// @Summary      Verify site credentials
// @Description  Obtains an access token to prove the stored credentials work
// @Tags         Registration
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  StatusResponse
// @Failure      412  {object}  ErrorResponse  "Site not registered"
// @Failure      502  {object}  ErrorResponse  "Auth service rejected the credentials"
// @Router       /auth/verify [post]
func (s *Server) handleVerifyAuthentication(w http.ResponseWriter, r *http.Request) {
	if err := s.services.Registration.VerifyAuthentication(r.Context()); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// Registration endpoints

// handleGetRegistration godoc
// @Summary      Registration state
// @Description  Returns whether the site is registered and its client id
// @Tags         Registration
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.CredentialSummary
// @Router       /registration [get]
func (s *Server) handleGetRegistration(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.services.Registration.Registration(r.Context()))
}

// handleRegister godoc
// @Summary      Register site
// @Description  Registers the site with the auth service and stores the issued credentials
// @Tags         Registration
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      RegisterRequest  true  "Owner email"
// @Success      201      {object}  domain.CredentialSummary
// @Failure      400      {object}  ErrorResponse  "Invalid email"
// @Failure      409      {object}  ErrorResponse  "Already registered"
// @Router       /registration [post]
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeBody(w, r, &req) {
		return
	}

	summary, err := s.services.Registration.RegisterSite(r.Context(), req.Email)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, summary)
}

// handleResetRegistration godoc
// @Summary      Reset registration
// @Description  Clears the access token and stored credentials
// @Tags         Registration
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  StatusResponse
// @Router       /registration [delete]
func (s *Server) handleResetRegistration(w http.ResponseWriter, r *http.Request) {
	if err := s.services.Protection.ResetRegistration(r.Context()); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// Protection endpoints

// handleSetupProtection godoc
// @Summary      Set up protection
// @Description  Configures the WAF at the given level and returns DNS instructions when available
// @Tags         Protection
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      SetupProtectionRequest  true  "Protection level"
// @Success      200      {object}  domain.SetupResult
// @Failure      400      {object}  ErrorResponse  "Invalid level"
// @Failure      412      {object}  ErrorResponse  "Site not registered"
// @Router       /protection [post]
func (s *Server) handleSetupProtection(w http.ResponseWriter, r *http.Request) {
	var req SetupProtectionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := s.services.Protection.SetupProtection(r.Context(), req.Level)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleProtectionStatus godoc
// @Summary      Protection status
// @Description  Computes the composed protection status. With cached=true the last recorded status is returned instead.
// @Tags         Protection
// @Produce      json
// @Security     BearerAuth
// @Param        cached  query     bool  false  "Return the last recorded status"
// @Success      200     {object}  domain.ProtectionStatus
// @Failure      404     {object}  ErrorResponse  "No status recorded yet"
// @Router       /protection/status [get]
func (s *Server) handleProtectionStatus(w http.ResponseWriter, r *http.Request) {
	if queryBool(r, "cached") {
		status, ok := s.services.Protection.LastStatus(r.Context())
		if !ok {
			writeError(w, http.StatusNotFound, domain.CodeNotFound, "no status recorded yet")
			return
		}
		writeJSON(w, http.StatusOK, status)
		return
	}

	writeJSON(w, http.StatusOK, s.services.Protection.ProtectionStatus(r.Context()))
}

// handleDashboard godoc
// @Summary      Dashboard data
// @Description  Returns the protection status and, while active, a week of statistics and recent reports
// @Tags         Protection
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.DashboardData
// @Router       /dashboard [get]
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.services.Protection.DashboardData(r.Context()))
}

// handleCompleteSetup godoc
// @Summary      Complete setup wizard
// @Description  Registers if needed, opens checkout when a plan is given, then configures protection
// @Tags         Protection
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      domain.CompleteSetupRequest  true  "Setup choices"
// @Success      200      {object}  domain.CompleteSetupResult
// @Failure      400      {object}  ErrorResponse  "Invalid input"
// @Router       /setup/complete [post]
func (s *Server) handleCompleteSetup(w http.ResponseWriter, r *http.Request) {
	var req domain.CompleteSetupRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := s.services.Protection.CompleteSetup(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handlePurge godoc
// @Summary      Uninstall
// @Description  Removes all broker state except the encryption key material
// @Tags         Protection
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  StatusResponse
// @Router       /installation [delete]
func (s *Server) handlePurge(w http.ResponseWriter, r *http.Request) {
	if err := s.services.Protection.Purge(r.Context()); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// Firewall endpoints

// handleStatistics godoc
// @Summary      Traffic statistics
// @Tags         Firewall
// @Produce      json
// @Security     BearerAuth
// @Param        period  query     string  false  "day, week, month or year"  default(week)
// @Success      200     {object}  domain.Statistics
// @Failure      400     {object}  ErrorResponse  "Invalid period"
// @Router       /waf/statistics [get]
func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := s.services.Firewall.Statistics(r.Context(), queryPeriod(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleReports godoc
// @Summary      Security reports
// @Tags         Firewall
// @Produce      json
// @Security     BearerAuth
// @Param        period  query     string  false  "day, week, month or year"  default(week)
// @Param        limit   query     int     false  "Number of reports, 1-1000"  default(100)
// @Success      200     {object}  domain.Reports
// @Failure      400     {object}  ErrorResponse  "Invalid period or limit"
// @Router       /waf/reports [get]
func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	limit := domain.DefaultReportLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeServiceError(w, domain.NewValidationError("limit", "%q is not a number", raw))
			return
		}
		limit = n
	}

	reports, err := s.services.Firewall.Reports(r.Context(), queryPeriod(r), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

// handleRuleSets godoc
// @Summary      Available rule sets
// @Tags         Firewall
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.RuleSets
// @Router       /waf/rule-sets [get]
func (s *Server) handleRuleSets(w http.ResponseWriter, r *http.Request) {
	sets, err := s.services.Firewall.RuleSets(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sets)
}

// handleUpdateRules godoc
// @Summary      Update rule settings
// @Tags         Firewall
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      domain.RuleSettings  true  "Rule settings"
// @Success      200      {object}  map[string]any
// @Failure      400      {object}  ErrorResponse  "Empty rule settings"
// @Router       /waf/rules [put]
func (s *Server) handleUpdateRules(w http.ResponseWriter, r *http.Request) {
	var rules domain.RuleSettings
	if !decodeBody(w, r, &rules) {
		return
	}

	result, err := s.services.Firewall.UpdateRuleSettings(r.Context(), rules)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleDNSStatus godoc
// @Summary      DNS status
// @Tags         Firewall
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.DNSStatus
// @Router       /dns/status [get]
func (s *Server) handleDNSStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.services.Firewall.DNSStatus(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// handleDNSInstructions godoc
// @Summary      DNS instructions
// @Tags         Firewall
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.DNSInstructions
// @Router       /dns/instructions [get]
func (s *Server) handleDNSInstructions(w http.ResponseWriter, r *http.Request) {
	instructions, err := s.services.Firewall.DNSInstructions(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, instructions)
}

// Billing endpoints

// handlePlans godoc
// @Summary      Available plans
// @Tags         Billing
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}  domain.Plan
// @Router       /plans [get]
func (s *Server) handlePlans(w http.ResponseWriter, r *http.Request) {
	plans, err := s.services.Billing.Plans(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if plans == nil {
		plans = []domain.Plan{}
	}
	writeJSON(w, http.StatusOK, plans)
}

// handleSubscription godoc
// @Summary      Current subscription
// @Description  Returns the cached subscription while fresh. refresh=true forces a remote fetch.
// @Tags         Billing
// @Produce      json
// @Security     BearerAuth
// @Param        refresh  query     bool  false  "Bypass the cache"
// @Success      200      {object}  domain.Subscription
// @Router       /subscription [get]
func (s *Server) handleSubscription(w http.ResponseWriter, r *http.Request) {
	sub, err := s.services.Billing.Subscription(r.Context(), queryBool(r, "refresh"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

// handleUpdateSubscription godoc
// @Summary      Change plan
// @Tags         Billing
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      UpdateSubscriptionRequest  true  "New plan"
// @Success      200      {object}  domain.Subscription
// @Router       /subscription/update [post]
func (s *Server) handleUpdateSubscription(w http.ResponseWriter, r *http.Request) {
	var req UpdateSubscriptionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	sub, err := s.services.Billing.UpdateSubscription(r.Context(), req.PlanID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

// handleCancelSubscription godoc
// @Summary      Cancel subscription
// @Tags         Billing
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.Subscription
// @Router       /subscription/cancel [post]
func (s *Server) handleCancelSubscription(w http.ResponseWriter, r *http.Request) {
	sub, err := s.services.Billing.CancelSubscription(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

// handleCheckout godoc
// @Summary      Create checkout session
// @Tags         Billing
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      domain.CheckoutRequest  true  "Plan and redirect URLs"
// @Success      201      {object}  domain.CheckoutSession
// @Failure      400      {object}  ErrorResponse  "Invalid input"
// @Router       /checkout [post]
func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var req domain.CheckoutRequest
	if !decodeBody(w, r, &req) {
		return
	}

	session, err := s.services.Billing.CheckoutSession(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

// handleCustomerPortal godoc
// @Summary      Billing portal URL
// @Tags         Billing
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      PortalRequest  true  "Return URL"
// @Success      200      {object}  PortalResponse
// @Router       /billing/portal [post]
func (s *Server) handleCustomerPortal(w http.ResponseWriter, r *http.Request) {
	var req PortalRequest
	if !decodeBody(w, r, &req) {
		return
	}

	url, err := s.services.Billing.CustomerPortalURL(r.Context(), req.ReturnURL)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PortalResponse{URL: url})
}

// handleBillingWebhook godoc
// @Summary      Billing webhook
// @Description  Payment provider event notification. Known events force a subscription refresh.
// @Tags         Billing
// @Accept       json
// @Produce      json
// @Param        request  body      BillingWebhookRequest  true  "Event"
// @Success      202      {object}  StatusResponse
// @Failure      400      {object}  ErrorResponse  "Unknown event"
// @Router       /webhooks/billing [post]
func (s *Server) handleBillingWebhook(w http.ResponseWriter, r *http.Request) {
	var req BillingWebhookRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := s.services.Billing.HandleEvent(r.Context(), req.Event); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, StatusResponse{Status: "accepted"})
}

// Wizard endpoints

// handleWizardSteps godoc
// @Summary      Completed wizard steps
// @Tags         Wizard
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  WizardStepsResponse
// @Router       /wizard/steps [get]
func (s *Server) handleWizardSteps(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, WizardStepsResponse{Steps: nonNilSteps(s.services.Wizard.CompletedSteps(r.Context()))})
}

// handleMarkWizardStep godoc
// @Summary      Mark wizard step
// @Tags         Wizard
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      WizardStepRequest  true  "Step"
// @Success      200      {object}  WizardStepsResponse
// @Failure      400      {object}  ErrorResponse  "Unknown step"
// @Router       /wizard/steps [post]
func (s *Server) handleMarkWizardStep(w http.ResponseWriter, r *http.Request) {
	var req WizardStepRequest
	if !decodeBody(w, r, &req) {
		return
	}

	steps, err := s.services.Wizard.MarkCompleted(r.Context(), req.Step)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, WizardStepsResponse{Steps: nonNilSteps(steps)})
}

// handleResetWizard godoc
// @Summary      Reset wizard
// @Tags         Wizard
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  StatusResponse
// @Router       /wizard/steps [delete]
func (s *Server) handleResetWizard(w http.ResponseWriter, r *http.Request) {
	if err := s.services.Wizard.Reset(r.Context()); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// Helper functions

func nonNilSteps(steps []domain.WizardStep) []domain.WizardStep {
	if steps == nil {
		return []domain.WizardStep{}
	}
	return steps
}

func queryPeriod(r *http.Request) domain.Period {
	if p := r.URL.Query().Get("period"); p != "" {
		return domain.Period(p)
	}
	return domain.PeriodWeek
}

func queryBool(r *http.Request, name string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(name))
	return err == nil && v
}

// maxBodyBytes caps every decoded request body.
const maxBodyBytes = 64 << 10

// decodeBody decodes a JSON request body, writing a 400 on failure
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, domain.CodeValidation, "invalid request body")
		return false
	}
	return true
}

// statusFor maps a service error to an HTTP status. Remote 4xx statuses
// pass through except authentication failures, which are the broker's
// problem rather than the admin caller's.
func statusFor(err error) int {
	var apiErr *domain.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Status >= 400 && apiErr.Status < 500 &&
			apiErr.Status != http.StatusUnauthorized && apiErr.Status != http.StatusForbidden {
			return apiErr.Status
		}
		return http.StatusBadGateway
	}

	switch domain.Describe(err).Code {
	case domain.CodeValidation:
		return http.StatusBadRequest
	case domain.CodeAlreadyRegistered:
		return http.StatusConflict
	case domain.CodeNotRegistered, domain.CodeMissingCredentials:
		return http.StatusPreconditionFailed
	case domain.CodeNotFound:
		return http.StatusNotFound
	case domain.CodeUnauthorized:
		return http.StatusUnauthorized
	case domain.CodeTokenRequest, domain.CodeAuth, domain.CodeProtocol:
		return http.StatusBadGateway
	case domain.CodeTransport:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	desc := domain.Describe(err)
	writeError(w, statusFor(err), desc.Code, desc.Message)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}
