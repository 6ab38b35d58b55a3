package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/custodia-labs/wafbroker/internal/core/domain"
	"github.com/custodia-labs/wafbroker/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.SettingsStore = (*SettingsStore)(nil)

// SettingsStore implements driven.SettingsStore using SQLite
type SettingsStore struct {
	db *DB
}

// NewSettingsStore creates a new SettingsStore
func NewSettingsStore(db *DB) *SettingsStore {
	return &SettingsStore{db: db}
}

// Get retrieves a setting value
func (s *SettingsStore) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.Reader.QueryRowContext(ctx, `SELECT value FROM settings WHERE name = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get setting %q: %w", key, err)
	}
	return value, nil
}

// Set upserts a setting value
func (s *SettingsStore) Set(ctx context.Context, key, value string, autoload bool) error {
	const query = `
		INSERT INTO settings (name, value, autoload, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (name) DO UPDATE SET
			value = excluded.value,
			autoload = excluded.autoload,
			updated_at = CURRENT_TIMESTAMP
	`
	if _, err := s.db.Writer.ExecContext(ctx, query, key, value, autoload); err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	return nil
}

// Add inserts a setting only if it does not exist yet
func (s *SettingsStore) Add(ctx context.Context, key, value string, autoload bool) (bool, error) {
	res, err := s.db.Writer.ExecContext(ctx,
		`INSERT INTO settings (name, value, autoload) VALUES (?, ?, ?) ON CONFLICT (name) DO NOTHING`,
		key, value, autoload)
	if err != nil {
		return false, fmt.Errorf("add setting %q: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("add setting %q: %w", key, err)
	}
	return n == 1, nil
}

// Delete removes a setting
func (s *SettingsStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.Writer.ExecContext(ctx, `DELETE FROM settings WHERE name = ?`, key); err != nil {
		return fmt.Errorf("delete setting %q: %w", key, err)
	}
	return nil
}
