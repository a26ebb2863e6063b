package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"testing/fstest"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "migrate.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func countRows(t *testing.T, db *DB, query string) int {
	t.Helper()
	var n int
	if err := db.QueryRow(query).Scan(&n); err != nil {
		t.Fatalf("query %q: %v", query, err)
	}
	return n
}

func TestMigrateEmbeddedSchemaIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := Migrate(ctx, db); err != nil {
		t.Fatalf("first migrate: %v", err)
	}
	if err := Migrate(ctx, db); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	if n := countRows(t, db, "SELECT COUNT(*) FROM schema_migrations"); n != 1 {
		t.Fatalf("schema_migrations rows = %d, want 1", n)
	}
	for _, table := range []string{"users", "events", "registrations", "attendance", "notifications", "refresh_tokens"} {
		n := countRows(t, db, "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = '"+table+"'")
		if n != 1 {
			t.Fatalf("table %s missing", table)
		}
	}
}

func TestApplyMigrationsDoesNotRecordFailedFile(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	bad := fstest.MapFS{
		"001_bad.sql": &fstest.MapFile{Data: []byte("-- +migrate Up\nCREAT TABLE things(id INT);")},
	}
	if err := ApplyMigrations(ctx, db, bad, "."); err == nil {
		t.Fatal("expected bad migration to fail")
	}
	if n := countRows(t, db, "SELECT COUNT(*) FROM schema_migrations"); n != 0 {
		t.Fatalf("failed migration recorded %d rows", n)
	}
}

func TestSplitStatements(t *testing.T) {
	script := `
-- leading comment
CREATE TABLE a (id INT);
CREATE INDEX idx_a ON a (id);

`
	got := SplitStatements(script)
	if len(got) != 2 {
		t.Fatalf("statements = %d (%q), want 2", len(got), got)
	}
	if got[0] != "CREATE TABLE a (id INT)" {
		t.Fatalf("first statement = %q", got[0])
	}
}

func TestExtractUpMigration(t *testing.T) {
	content := "-- +migrate Up\nCREATE TABLE a (id INT);\n-- +migrate Down\nDROP TABLE a;"
	up := ExtractUpMigration(content)
	if got := SplitStatements(up); len(got) != 1 || got[0] != "CREATE TABLE a (id INT)" {
		t.Fatalf("up statements = %q", got)
	}
}

func TestInTxRollsBackOnError(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	if _, err := db.ExecContext(ctx, "CREATE TABLE t (id INTEGER PRIMARY KEY)"); err != nil {
		t.Fatalf("create: %v", err)
	}

	errBoom := errors.New("boom")
	err := db.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "INSERT INTO t (id) VALUES (1)"); err != nil {
			return err
		}
		return errBoom
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("InTx err = %v, want boom", err)
	}
	if n := countRows(t, db, "SELECT COUNT(*) FROM t"); n != 0 {
		t.Fatalf("rows after rollback = %d, want 0", n)
	}
}
