// Package database opens the SQL store and hides the few differences between
// the supported engines (placeholder syntax, generated ids, unique-key
// errors) behind the DB type.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/volunteerconnect/event-registration/internal/config"
)

// Driver names the SQL engine behind a DB.
type Driver string

const (
	DriverMySQL    Driver = "mysql"
	DriverPostgres Driver = "postgres"
	DriverSQLite   Driver = "sqlite"
)

// Querier is satisfied by both *sql.DB and *sql.Tx so repository methods can
// run inside or outside a transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DB wraps a connection pool together with the engine it talks to.
type DB struct {
	*sql.DB
	Driver Driver
}

// Open connects to the configured engine and verifies the connection.
func Open(cfg config.DBConfig) (*DB, error) {
	switch Driver(cfg.Driver) {
	case DriverMySQL:
		return openMySQL(cfg)
	case DriverPostgres:
		return openPostgres(cfg)
	case DriverSQLite:
		return OpenSQLite(cfg.Path)
	default:
		return nil, fmt.Errorf("unsupported driver %q", cfg.Driver)
	}
}

func openMySQL(cfg config.DBConfig) (*DB, error) {
	auth := cfg.User
	if cfg.Pass != "" {
		auth = fmt.Sprintf("%s:%s", cfg.User, cfg.Pass)
	}
	// timestamps are stored as unix millis, so no parseTime/loc handling is needed.
	// clientFoundRows makes RowsAffected count matched rows, which the
	// compare-and-set updates rely on.
	dsn := fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&clientFoundRows=true", auth, cfg.Host, cfg.Port, cfg.Name)
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)
	return ping(&DB{DB: db, Driver: DriverMySQL})
}

func openPostgres(cfg config.DBConfig) (*DB, error) {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Pass, cfg.Name, cfg.SSLMode)
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return ping(&DB{DB: db, Driver: DriverPostgres})
}

// OpenSQLite opens (or creates) a SQLite database file.  SQLite allows a
// single writer, so the pool is limited to one connection and transactions
// take the write lock when they begin.
func OpenSQLite(path string) (*DB, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	q := url.Values{}
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Set("_txlock", "immediate")
	db, err := sql.Open("sqlite", "file:"+path+"?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	return ping(&DB{DB: db, Driver: DriverSQLite})
}

func ping(db *DB) (*DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", db.Driver, err)
	}
	return db, nil
}

// InTx runs fn inside a transaction.  The transaction is committed when fn
// returns nil and rolled back otherwise (including on panic).
func (db *DB) InTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	committed = true
	return nil
}
