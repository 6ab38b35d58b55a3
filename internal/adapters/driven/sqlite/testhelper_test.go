package sqlite

import (
	"context"
	"fmt"
	"net/url"
	"testing"
)

// setupTestDB creates a named shared in-memory SQLite database for testing.
// A unique name derived from t.Name() keeps tests isolated.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=busy_timeout(5000)", url.PathEscape(t.Name()))
	db, err := openDSN(context.Background(), dsn)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := RunMigrations(db.Writer); err != nil {
		_ = db.Close()
		t.Fatalf("run migrations: %v", err)
	}

	t.Cleanup(func() { _ = db.Close() })
	return db
}
