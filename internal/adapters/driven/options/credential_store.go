// Package options implements the broker's stores on top of a
// driven.SettingsStore, the way the host keeps plugin options.
package options

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/custodia-labs/wafbroker/internal/core/domain"
	"github.com/custodia-labs/wafbroker/internal/core/ports/driven"
)

var _ driven.CredentialStore = (*CredentialStore)(nil)

// CredentialStore keeps the client id in clear and the secret encrypted.
type CredentialStore struct {
	settings driven.SettingsStore
	cipher   driven.SecretCipher
	logger   *slog.Logger
}

// NewCredentialStore creates a CredentialStore.
func NewCredentialStore(settings driven.SettingsStore, cipher driven.SecretCipher, logger *slog.Logger) *CredentialStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &CredentialStore{
		settings: settings,
		cipher:   cipher,
		logger:   logger.With("component", "credential_store"),
	}
}

// Save stores both halves of the pair. The secret is written first and
// removed again if the id cannot be written, so a failed Save never leaves
// a client id behind.
func (s *CredentialStore) Save(ctx context.Context, clientID, clientSecret string) error {
	encrypted, err := s.cipher.Encrypt(ctx, clientSecret)
	if err != nil {
		s.logger.Error("failed to encrypt client secret", "error", err)
		return fmt.Errorf("%w: encrypt client secret: %v", domain.ErrStorageFailed, err)
	}
	if err := s.settings.Set(ctx, domain.KeyClientSecret, encrypted, false); err != nil {
		s.logger.Error("failed to save client secret", "error", err)
		return fmt.Errorf("%w: save client secret: %v", domain.ErrStorageFailed, err)
	}
	if err := s.settings.Set(ctx, domain.KeyClientID, clientID, true); err != nil {
		s.logger.Error("failed to save client id", "error", err)
		if delErr := s.settings.Delete(ctx, domain.KeyClientSecret); delErr != nil {
			s.logger.Error("failed to roll back client secret", "error", delErr)
		}
		return fmt.Errorf("%w: save client id: %v", domain.ErrStorageFailed, err)
	}
	s.logger.Info("credentials saved", "client_id", clientID)
	return nil
}

// ClientID returns the stored client id.
func (s *CredentialStore) ClientID(ctx context.Context) (string, bool) {
	id, ok := s.read(ctx, domain.KeyClientID)
	return id, ok && id != ""
}

// ClientSecret decrypts the stored secret. A secret that cannot be
// decrypted is reported absent; the site must register again.
func (s *CredentialStore) ClientSecret(ctx context.Context) (string, bool) {
	encrypted, ok := s.read(ctx, domain.KeyClientSecret)
	if !ok || encrypted == "" {
		return "", false
	}
	secret, err := s.cipher.Decrypt(ctx, encrypted)
	if err != nil {
		s.logger.Error("failed to decrypt client secret", "error", err)
		return "", false
	}
	return secret, secret != ""
}

// Credentials returns the pair when both halves are readable.
func (s *CredentialStore) Credentials(ctx context.Context) (domain.Credentials, bool) {
	id, ok := s.ClientID(ctx)
	if !ok {
		return domain.Credentials{}, false
	}
	secret, ok := s.ClientSecret(ctx)
	if !ok {
		return domain.Credentials{}, false
	}
	return domain.Credentials{ClientID: id, ClientSecret: secret}, true
}

// HasCredentials reports pair completeness.
func (s *CredentialStore) HasCredentials(ctx context.Context) bool {
	_, ok := s.Credentials(ctx)
	return ok
}

// Clear removes both entries.
func (s *CredentialStore) Clear(ctx context.Context) error {
	errID := s.settings.Delete(ctx, domain.KeyClientID)
	errSecret := s.settings.Delete(ctx, domain.KeyClientSecret)
	if err := errors.Join(errID, errSecret); err != nil {
		s.logger.Error("failed to clear credentials", "error", err)
		return fmt.Errorf("%w: clear credentials: %v", domain.ErrStorageFailed, err)
	}
	return nil
}

// RotateSecret re-encrypts and replaces the secret only.
func (s *CredentialStore) RotateSecret(ctx context.Context, clientSecret string) error {
	encrypted, err := s.cipher.Encrypt(ctx, clientSecret)
	if err != nil {
		s.logger.Error("failed to encrypt rotated secret", "error", err)
		return fmt.Errorf("%w: encrypt client secret: %v", domain.ErrStorageFailed, err)
	}
	if err := s.settings.Set(ctx, domain.KeyClientSecret, encrypted, false); err != nil {
		s.logger.Error("failed to save rotated secret", "error", err)
		return fmt.Errorf("%w: save client secret: %v", domain.ErrStorageFailed, err)
	}
	return nil
}

func (s *CredentialStore) read(ctx context.Context, key string) (string, bool) {
	v, err := s.settings.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Error("failed to read setting", "setting", key, "error", err)
		}
		return "", false
	}
	return v, true
}
