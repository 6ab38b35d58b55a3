package driven

import "context"

// SettingsStore is the key-value store holding all broker state:
// credentials, token, subscription cache, encryption key, wizard progress.
type SettingsStore interface {
	// Get returns the stored value.
	// Returns domain.ErrNotFound if the key is not set.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key, replacing any previous value.
	// autoload marks values that hosts may preload on every request;
	// secrets are always written with autoload=false.
	Set(ctx context.Context, key, value string, autoload bool) error

	// Add stores value only if key is not already set.
	// Returns false without error when the key exists.
	Add(ctx context.Context, key, value string, autoload bool) (bool, error)

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
