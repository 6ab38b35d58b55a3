// Package crypto encrypts client secrets at rest.
package crypto

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/custodia-labs/wafbroker/internal/core/domain"
	"github.com/custodia-labs/wafbroker/internal/core/ports/driven"
)

const (
	// nonceSize is the AES-GCM nonce size (12 bytes is standard)
	nonceSize = 12

	// keySize is the required key size for AES-256
	keySize = 32

	// installationSecretSize is the length of a generated installation secret
	installationSecretSize = 64
)

// ErrInvalidKeySize is returned when a stored key is not 32 bytes.
var ErrInvalidKeySize = errors.New("encryption key must be 32 bytes")

var _ driven.SecretCipher = (*SecretStore)(nil)

// SecretStoreConfig holds dependencies for SecretStore.
type SecretStoreConfig struct {
	Settings driven.SettingsStore

	// Sources are asked in order for an installation secret. When none
	// has one, a random secret is generated and kept in Settings.
	Sources []driven.InstallationSecretSource

	SiteURL string
	Salt    string
	Logger  *slog.Logger
}

// SecretStore handles AES-256-GCM encryption of secrets with a key that
// is derived once per installation and persisted in the settings store.
// The encrypted format is: base64(nonce(12) || ciphertext(N))
type SecretStore struct {
	settings driven.SettingsStore
	sources  []driven.InstallationSecretSource
	siteURL  string
	salt     string
	logger   *slog.Logger

	mu   sync.Mutex
	aead cipher.AEAD
}

// NewSecretStore creates a SecretStore. The key is not touched until the
// first Encrypt or Decrypt.
func NewSecretStore(cfg SecretStoreConfig) *SecretStore {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SecretStore{
		settings: cfg.Settings,
		sources:  cfg.Sources,
		siteURL:  cfg.SiteURL,
		salt:     cfg.Salt,
		logger:   logger.With("component", "secret_store"),
	}
}

// DeriveKey returns SHA-256(secret || siteURL || salt).
func DeriveKey(secret, siteURL, salt string) []byte {
	sum := sha256.Sum256([]byte(secret + siteURL + salt))
	return sum[:keySize]
}

// Encrypt encrypts plaintext with a fresh nonce.
// Empty input returns empty output.
func (s *SecretStore) Encrypt(ctx context.Context, plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	aead, err := s.cipher(ctx, true)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	blob := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(blob), nil
}

// Decrypt reverses Encrypt. Wrong key, corrupted or truncated input, and
// a missing key all return domain.ErrDecryption.
func (s *SecretStore) Decrypt(ctx context.Context, ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}

	blob, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: invalid base64", domain.ErrDecryption)
	}

	aead, err := s.cipher(ctx, false)
	if err != nil {
		return "", err
	}

	if len(blob) < nonceSize+aead.Overhead() {
		return "", fmt.Errorf("%w: ciphertext too short", domain.ErrDecryption)
	}

	plaintext, err := aead.Open(nil, blob[:nonceSize], blob[nonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("%w: authentication failed", domain.ErrDecryption)
	}
	return string(plaintext), nil
}

// cipher returns the cached AEAD, loading the key from settings and
// creating it when create is set.
func (s *SecretStore) cipher(ctx context.Context, create bool) (cipher.AEAD, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.aead != nil {
		return s.aead, nil
	}

	key, err := s.loadKey(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		if !create {
			return nil, fmt.Errorf("%w: encryption key not found", domain.ErrDecryption)
		}
		key, err = s.createKey(ctx)
	}
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create AES cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}

	s.aead = aead
	return aead, nil
}

func (s *SecretStore) loadKey(ctx context.Context) ([]byte, error) {
	encoded, err := s.settings.Get(ctx, domain.KeyEncryptionKey)
	if err != nil {
		return nil, err
	}
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode encryption key: %w", err)
	}
	if len(key) != keySize {
		return nil, fmt.Errorf("%w: got %d bytes", ErrInvalidKeySize, len(key))
	}
	return key, nil
}

func (s *SecretStore) createKey(ctx context.Context) ([]byte, error) {
	secret, err := s.installationSecret(ctx)
	if err != nil {
		return nil, err
	}

	key := DeriveKey(secret, s.siteURL, s.salt)
	added, err := s.settings.Add(ctx, domain.KeyEncryptionKey, base64.StdEncoding.EncodeToString(key), false)
	if err != nil {
		return nil, fmt.Errorf("persist encryption key: %w", err)
	}
	if !added {
		// Another instance created the key first.
		return s.loadKey(ctx)
	}

	s.logger.Info("encryption key created")
	return key, nil
}

func (s *SecretStore) installationSecret(ctx context.Context) (string, error) {
	for _, src := range s.sources {
		secret, err := src.InstallationSecret(ctx)
		if err == nil && secret != "" {
			return secret, nil
		}
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("installation secret source failed", "error", err)
		}
	}

	stored, err := s.settings.Get(ctx, domain.KeyInstallationSecret)
	if err == nil && stored != "" {
		return stored, nil
	}
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return "", fmt.Errorf("read installation secret: %w", err)
	}

	raw := make([]byte, installationSecretSize)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate installation secret: %w", err)
	}
	generated := base64.StdEncoding.EncodeToString(raw)

	added, err := s.settings.Add(ctx, domain.KeyInstallationSecret, generated, false)
	if err != nil {
		return "", fmt.Errorf("persist installation secret: %w", err)
	}
	if !added {
		return s.settings.Get(ctx, domain.KeyInstallationSecret)
	}
	return generated, nil
}
