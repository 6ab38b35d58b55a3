package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/custodia-labs/wafbroker/internal/core/domain"
	"github.com/custodia-labs/wafbroker/internal/core/ports/driven"
	"github.com/custodia-labs/wafbroker/internal/core/ports/driving"
)

// Ensure registrationService implements RegistrationService
var _ driving.RegistrationService = (*registrationService)(nil)

// registrationService implements the RegistrationService interface
type registrationService struct {
	api         driven.AuthAPI
	credentials driven.CredentialStore
	tokens      driven.TokenStore
	site        domain.Site
	logger      *slog.Logger
}

// NewRegistrationService creates a new RegistrationService
func NewRegistrationService(
	api driven.AuthAPI,
	credentials driven.CredentialStore,
	tokens driven.TokenStore,
	site domain.Site,
	logger *slog.Logger,
) driving.RegistrationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &registrationService{
		api:         api,
		credentials: credentials,
		tokens:      tokens,
		site:        site,
		logger:      logger.With("component", "registration"),
	}
}

// RegisterSite registers the site and stores the issued credentials
func (s *registrationService) RegisterSite(ctx context.Context, email string) (domain.CredentialSummary, error) {
	email = strings.TrimSpace(email)
	if err := domain.ValidateEmail(email); err != nil {
		return domain.CredentialSummary{}, err
	}

	if s.credentials.HasCredentials(ctx) {
		return domain.CredentialSummary{}, domain.ErrAlreadyRegistered
	}

	s.logger.Info("beginning site registration", "domain", s.site.HostDomain())

	resp, err := s.api.RegisterSite(ctx, domain.RegistrationRequest{
		Domain:     s.site.HostDomain(),
		Email:      email,
		SiteURL:    s.site.URL,
		AppVersion: s.site.AppVersion,
	})
	if err != nil {
		s.logger.Error("registration failed", "error", err)
		return domain.CredentialSummary{}, err
	}

	if resp == nil || resp.ClientID == "" || resp.ClientSecret == "" {
		s.logger.Error("registration failed: invalid response")
		return domain.CredentialSummary{}, &domain.ProtocolError{Message: "invalid response from registration endpoint"}
	}

	if err := s.credentials.Save(ctx, resp.ClientID, resp.ClientSecret); err != nil {
		if !errors.Is(err, domain.ErrStorageFailed) {
			err = fmt.Errorf("%w: %w", domain.ErrStorageFailed, err)
		}
		s.logger.Error("failed to store credentials", "error", err)
		return domain.CredentialSummary{}, err
	}

	// A token cached for an earlier identity must not outlive it.
	if err := s.tokens.Clear(ctx); err != nil {
		s.logger.Warn("failed to clear stale token", "error", err)
	}

	s.logger.Info("site registered successfully", "client_id", resp.ClientID)

	return domain.CredentialSummary{Registered: true, ClientID: resp.ClientID}, nil
}

// IsRegistered reports whether a usable credential pair is stored
func (s *registrationService) IsRegistered(ctx context.Context) bool {
	return s.credentials.HasCredentials(ctx)
}

// Registration returns the safe view of the stored credentials
func (s *registrationService) Registration(ctx context.Context) domain.CredentialSummary {
	creds, ok := s.credentials.Credentials(ctx)
	if !ok {
		return domain.CredentialSummary{}
	}
	return creds.ToSummary()
}

// VerifyAuthentication obtains a token to prove the credentials work
func (s *registrationService) VerifyAuthentication(ctx context.Context) error {
	if !s.credentials.HasCredentials(ctx) {
		return domain.ErrNotRegistered
	}
	_, err := s.api.AccessToken(ctx)
	return err
}

// ResetRegistration clears the token and credentials
func (s *registrationService) ResetRegistration(ctx context.Context) error {
	s.logger.Info("resetting registration")
	return errors.Join(s.tokens.Clear(ctx), s.credentials.Clear(ctx))
}
