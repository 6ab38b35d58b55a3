package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/custodia-labs/wafbroker/internal/core/ports/driving"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services groups the driving ports the API exposes.
type Services struct {
	Auth         driving.AdminAuthService
	Registration driving.RegistrationService
	Firewall     driving.FirewallService
	Billing      driving.BillingService
	Wizard       driving.WizardService
	Protection   driving.ProtectionService
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	version    string
	logger     *slog.Logger

	services Services

	// Infrastructure
	metrics http.Handler // Prometheus exposition (optional)
	storage Pinger       // Settings backend health check (optional)

	allowedOrigins  []string
	shutdownTimeout time.Duration
}

// Config holds server configuration
type Config struct {
	Host            string
	Port            int
	Version         string
	AllowedOrigins  []string
	ShutdownTimeout time.Duration
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:            "0.0.0.0",
		Port:            8080,
		Version:         "dev",
		ShutdownTimeout: 30 * time.Second,
	}
}

// NewServer creates a new HTTP server. metrics and storage may be nil.
func NewServer(
	cfg Config,
	services Services,
	metrics http.Handler,
	storage Pinger,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}

	s := &Server{
		router:          http.NewServeMux(),
		version:         cfg.Version,
		logger:          logger.With("component", "http"),
		services:        services,
		metrics:         metrics,
		storage:         storage,
		allowedOrigins:  cfg.AllowedOrigins,
		shutdownTimeout: cfg.ShutdownTimeout,
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.setupRoutes()
	return s
}

// Handler returns the router wrapped in the middleware chain
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.router
	h = NewCORSMiddleware(s.allowedOrigins).Handler(h)
	h = NewLoggingMiddleware(s.logger).Handler(h)
	h = NewRecoveryMiddleware(s.logger).Handler(h)
	h = NewRequestIDMiddleware().Handler(h)
	return h
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	authMiddleware := NewAuthMiddleware(s.services.Auth)
	admin := func(h http.HandlerFunc) http.Handler {
		return authMiddleware.Authenticate(h)
	}

	// Health endpoints (no auth)
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)
	if s.metrics != nil {
		s.router.Handle("GET /metrics", s.metrics)
	}

	// Auth endpoints (public)
	s.router.HandleFunc("POST /api/v1/auth/login", s.handleLogin)

	// Payment provider callbacks are public and only trigger a refresh
	s.router.HandleFunc("POST /api/v1/webhooks/billing", s.handleBillingWebhook)

	// Registration
	s.router.Handle("GET /api/v1/registration", admin(s.handleGetRegistration))
	s.router.Handle("POST /api/v1/registration", admin(s.handleRegister))
	s.router.Handle("DELETE /api/v1/registration", admin(s.handleResetRegistration))
	s.router.Handle("POST /api/v1/auth/verify", admin(s.handleVerifyAuthentication))

	// Protection
	s.router.Handle("POST /api/v1/protection", admin(s.handleSetupProtection))
	s.router.Handle("GET /api/v1/protection/status", admin(s.handleProtectionStatus))
	s.router.Handle("GET /api/v1/dashboard", admin(s.handleDashboard))
	s.router.Handle("POST /api/v1/setup/complete", admin(s.handleCompleteSetup))
	s.router.Handle("DELETE /api/v1/installation", admin(s.handlePurge))

	// Firewall
	s.router.Handle("GET /api/v1/waf/statistics", admin(s.handleStatistics))
	s.router.Handle("GET /api/v1/waf/reports", admin(s.handleReports))
	s.router.Handle("GET /api/v1/waf/rule-sets", admin(s.handleRuleSets))
	s.router.Handle("PUT /api/v1/waf/rules", admin(s.handleUpdateRules))
	s.router.Handle("GET /api/v1/dns/status", admin(s.handleDNSStatus))
	s.router.Handle("GET /api/v1/dns/instructions", admin(s.handleDNSInstructions))

	// Billing
	s.router.Handle("GET /api/v1/plans", admin(s.handlePlans))
	s.router.Handle("GET /api/v1/subscription", admin(s.handleSubscription))
	s.router.Handle("POST /api/v1/subscription/update", admin(s.handleUpdateSubscription))
	s.router.Handle("POST /api/v1/subscription/cancel", admin(s.handleCancelSubscription))
	s.router.Handle("POST /api/v1/checkout", admin(s.handleCheckout))
	s.router.Handle("POST /api/v1/billing/portal", admin(s.handleCustomerPortal))

	// Wizard
	s.router.Handle("GET /api/v1/wizard/steps", admin(s.handleWizardSteps))
	s.router.Handle("POST /api/v1/wizard/steps", admin(s.handleMarkWizardStep))
	s.router.Handle("DELETE /api/v1/wizard/steps", admin(s.handleResetWizard))
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
