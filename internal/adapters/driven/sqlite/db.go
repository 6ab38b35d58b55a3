// Package sqlite stores broker settings in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB provides dual reader/writer connections with WAL mode enabled.
// The writer is limited to a single connection to avoid "database is locked" errors.
type DB struct {
	Writer *sql.DB
	Reader *sql.DB
}

// Open creates the database at path and applies pending migrations.
func Open(ctx context.Context, path string) (*DB, error) {
	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)",
		path,
	)
	db, err := openDSN(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := RunMigrations(db.Writer); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func openDSN(ctx context.Context, dsn string) (*DB, error) {
	writer, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open writer: %w", err)
	}
	writer.SetMaxOpenConns(1)

	if err := writer.PingContext(ctx); err != nil {
		_ = writer.Close()
		return nil, fmt.Errorf("ping writer: %w", err)
	}

	reader, err := sql.Open("sqlite", dsn)
	if err != nil {
		_ = writer.Close()
		return nil, fmt.Errorf("open reader: %w", err)
	}
	reader.SetMaxOpenConns(4)

	if err := reader.PingContext(ctx); err != nil {
		_ = reader.Close()
		_ = writer.Close()
		return nil, fmt.Errorf("ping reader: %w", err)
	}

	return &DB{Writer: writer, Reader: reader}, nil
}

// Ping checks the writer connection.
func (db *DB) Ping(ctx context.Context) error {
	return db.Writer.PingContext(ctx)
}

// Close closes both connections. Returns the first error encountered.
func (db *DB) Close() error {
	var firstErr error
	if err := db.Reader.Close(); err != nil {
		firstErr = fmt.Errorf("close reader: %w", err)
	}
	if err := db.Writer.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("close writer: %w", err)
	}
	return firstErr
}
