package driven

import "context"

// SecretCipher encrypts secrets at rest.
// Empty input maps to empty output in both directions.
type SecretCipher interface {
	Encrypt(ctx context.Context, plaintext string) (string, error)

	// Decrypt returns domain.ErrDecryption when the ciphertext cannot be
	// authenticated with the current key.
	Decrypt(ctx context.Context, ciphertext string) (string, error)
}

// InstallationSecretSource yields a long-lived high-entropy secret that is
// unique to this installation. Returns domain.ErrNotFound if the source has
// no secret; callers fall through to the next source.
type InstallationSecretSource interface {
	InstallationSecret(ctx context.Context) (string, error)
}
