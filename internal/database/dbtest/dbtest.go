// Package dbtest opens throwaway SQLite databases with the schema applied.
package dbtest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/volunteerconnect/event-registration/internal/database"
)

// Open returns a migrated SQLite database in a temp dir that is closed when
// the test ends.
func Open(t testing.TB) *database.DB {
	t.Helper()

	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := database.Migrate(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}
