package crypto

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"

	"github.com/custodia-labs/wafbroker/internal/core/domain"
	"github.com/custodia-labs/wafbroker/internal/core/ports/driven"
)

var (
	_ driven.InstallationSecretSource = StaticSecret("")
	_ driven.InstallationSecretSource = (*KeyringSecret)(nil)
)

// StaticSecret is an installation secret supplied through configuration.
type StaticSecret string

// InstallationSecret returns the configured value.
func (s StaticSecret) InstallationSecret(ctx context.Context) (string, error) {
	if s == "" {
		return "", domain.ErrNotFound
	}
	return string(s), nil
}

// DefaultKeyringService is the keyring service name for broker secrets.
const DefaultKeyringService = "wafbroker"

const keyringUser = "installation-secret"

// KeyringSecret keeps the installation secret in the OS keychain so it
// never lands in the settings store next to the ciphertexts.
type KeyringSecret struct {
	service string
	create  bool
}

// NewKeyringSecret creates a keyring-backed source. With create set, a
// missing secret is generated and written to the keyring.
func NewKeyringSecret(service string, create bool) *KeyringSecret {
	if service == "" {
		service = DefaultKeyringService
	}
	return &KeyringSecret{service: service, create: create}
}

// InstallationSecret reads the secret, generating it when allowed.
func (k *KeyringSecret) InstallationSecret(ctx context.Context) (string, error) {
	secret, err := keyring.Get(k.service, keyringUser)
	if err == nil {
		return secret, nil
	}
	if !errors.Is(err, keyring.ErrNotFound) {
		return "", fmt.Errorf("keyring get: %w", err)
	}
	if !k.create {
		return "", domain.ErrNotFound
	}

	raw := make([]byte, installationSecretSize)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate installation secret: %w", err)
	}
	secret = base64.StdEncoding.EncodeToString(raw)
	if err := keyring.Set(k.service, keyringUser, secret); err != nil {
		return "", fmt.Errorf("keyring set: %w", err)
	}
	return secret, nil
}
