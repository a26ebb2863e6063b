package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/volunteerconnect/event-registration/internal/database/migrations"
)

const migrationTable = "schema_migrations"

const (
	upMarker   = "-- +migrate Up"
	downMarker = "-- +migrate Down"
)

// Migrate applies the embedded schema for the connected engine.  Each file is
// applied at most once and recorded in schema_migrations.
func Migrate(ctx context.Context, db *DB) error {
	return ApplyMigrations(ctx, db, migrations.FS, string(db.Driver))
}

// ApplyMigrations executes the .sql files found in root of migrationFS in
// lexical order, skipping those already recorded.
func ApplyMigrations(ctx context.Context, db *DB, migrationFS fs.FS, root string) error {
	if db == nil || db.DB == nil {
		return errors.New("sql db is required")
	}
	root = strings.TrimSpace(root)
	if root == "" {
		root = "."
	}

	entries, err := fs.ReadDir(migrationFS, root)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	createSQL := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    name VARCHAR(255) NOT NULL PRIMARY KEY,
    applied_at BIGINT NOT NULL
)`, migrationTable)
	if _, err := db.ExecContext(ctx, createSQL); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}

	for _, file := range files {
		applied, err := db.isApplied(ctx, file)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", file, err)
		}
		if applied {
			continue
		}

		content, err := fs.ReadFile(migrationFS, path.Join(root, file))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		stmts := SplitStatements(ExtractUpMigration(string(content)))
		if len(stmts) == 0 {
			continue
		}

		err = db.InTx(ctx, func(tx *sql.Tx) error {
			for _, stmt := range stmts {
				if _, err := tx.ExecContext(ctx, stmt); err != nil && !isAlreadyExists(err) {
					return fmt.Errorf("exec migration %s: %w", file, err)
				}
			}
			_, err := tx.ExecContext(ctx,
				db.Rebind("INSERT INTO "+migrationTable+" (name, applied_at) VALUES (?, ?)"),
				file, time.Now().UTC().UnixMilli())
			if err != nil {
				return fmt.Errorf("record migration %s: %w", file, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// ExtractUpMigration returns the SQL between the Up and Down markers.  A file
// without markers is treated as all Up.
func ExtractUpMigration(content string) string {
	upIdx := strings.Index(content, upMarker)
	if upIdx == -1 {
		return content
	}
	rest := content[upIdx+len(upMarker):]
	if downIdx := strings.Index(rest, downMarker); downIdx != -1 {
		return rest[:downIdx]
	}
	return rest
}

// SplitStatements breaks a script on ';'.  Neither MySQL nor Postgres accept
// several statements in one Exec by default, so they are sent one at a time.
func SplitStatements(script string) []string {
	var out []string
	for _, part := range strings.Split(script, ";") {
		var lines []string
		for _, line := range strings.Split(part, "\n") {
			if strings.HasPrefix(strings.TrimSpace(line), "--") {
				continue
			}
			lines = append(lines, line)
		}
		stmt := strings.TrimSpace(strings.Join(lines, "\n"))
		if stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}

func isAlreadyExists(err error) bool {
	v := strings.ToLower(err.Error())
	return strings.Contains(v, "already exists") || strings.Contains(v, "duplicate column name")
}

func (db *DB) isApplied(ctx context.Context, name string) (bool, error) {
	var found int
	err := db.QueryRowContext(ctx, db.Rebind("SELECT 1 FROM "+migrationTable+" WHERE name = ?"), name).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
