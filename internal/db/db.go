// Package db provides the SQL record store for leadflow.
//
// The default database is SQLite stored at ~/.leadflow/leadflow.db. The pgx
// driver is accepted for shared PostgreSQL deployments; every query is written
// with ? placeholders and rebound for the active driver.
// Use Open() to connect and Init() to create the schema.
package db

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/baiirun/leadflow/internal/model"
	"github.com/baiirun/leadflow/internal/repository"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

const schema = `
CREATE TABLE IF NOT EXISTS processes (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	position INTEGER NOT NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS stages (
	id TEXT PRIMARY KEY,
	process_id TEXT NOT NULL REFERENCES processes(id),
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	color TEXT NOT NULL DEFAULT '',
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	position INTEGER NOT NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS lead_placements (
	lead_id TEXT PRIMARY KEY,
	process_id TEXT NOT NULL,
	stage_id TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS document_requirements (
	id TEXT PRIMARY KEY,
	process_id TEXT NOT NULL,
	stage_id TEXT NOT NULL DEFAULT '',
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	required BOOLEAN NOT NULL DEFAULT FALSE,
	file_types TEXT NOT NULL DEFAULT '[]',
	max_size_mb INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS submitted_documents (
	id TEXT PRIMARY KEY,
	lead_id TEXT NOT NULL,
	name TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending',
	uploaded_at TIMESTAMP NOT NULL,
	file_url TEXT NOT NULL DEFAULT '',
	file_type TEXT NOT NULL DEFAULT '',
	notes TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS reminders (
	id TEXT PRIMARY KEY,
	lead_id TEXT NOT NULL,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	due_date TIMESTAMP NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending',
	priority TEXT NOT NULL DEFAULT 'medium',
	assigned_to TEXT NOT NULL,
	created_by TEXT NOT NULL DEFAULT '',
	notify_before INTEGER NOT NULL DEFAULT 0,
	completed_at TIMESTAMP,
	completed_by TEXT,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS reminder_alerts (
	reminder_id TEXT PRIMARY KEY,
	alerted_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	email TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_stages_process ON stages(process_id);
CREATE INDEX IF NOT EXISTS idx_requirements_bucket ON document_requirements(process_id, stage_id);
CREATE INDEX IF NOT EXISTS idx_submissions_lead ON submitted_documents(lead_id);
CREATE INDEX IF NOT EXISTS idx_reminders_lead ON reminders(lead_id);
CREATE INDEX IF NOT EXISTS idx_reminders_assignee ON reminders(assigned_to, status);
`

// DB is the record store. Outside a transaction ext is the pool; inside
// Atomic it is the open transaction.
type DB struct {
	root   *sqlx.DB
	ext    sqlx.ExtContext
	driver string
}

var _ repository.Store = (*DB)(nil)

// DefaultPath returns the default database path (~/.leadflow/leadflow.db)
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".leadflow", "leadflow.db"), nil
}

// Open opens or creates the database. For sqlite, dsn is a file path.
func Open(driver, dsn string) (*DB, error) {
	switch driver {
	case DriverSQLite, "":
		return openSQLite(dsn)
	case DriverPostgres:
		return openPostgres(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
}

func openSQLite(path string) (*DB, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sqlx.Open(DriverSQLite, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection makes every transaction atomic to all readers and
	// keeps the PRAGMAs below applied.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return &DB{root: db, ext: db, driver: DriverSQLite}, nil
}

func openPostgres(dsn string) (*DB, error) {
	db, err := sqlx.Open(DriverPostgres, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{root: db, ext: db, driver: DriverPostgres}, nil
}

// Init creates the schema.
func (db *DB) Init() error {
	if _, err := db.root.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (db *DB) Close() error {
	return db.root.Close()
}

// orderingLockKey names the Postgres advisory lock held by Atomic.
const orderingLockKey = 4_217_001

// atomicLockQuery takes the write lock that serializes Atomic transactions
// across every process sharing the database, before fn reads anything.
func atomicLockQuery(driver string) (string, []any) {
	switch driver {
	case DriverPostgres:
		return `SELECT pg_advisory_xact_lock(?)`, []any{orderingLockKey}
	default:
		// A write statement takes SQLite's reserved lock even when it
		// matches no rows, waiting out busy_timeout for other writers.
		return `UPDATE processes SET position = position WHERE 1 = 0`, nil
	}
}

// Atomic runs fn inside one transaction. Nested calls join the outer
// transaction. Atomic transactions run one at a time across processes, so a
// read-then-write inside fn never races another writer.
func (db *DB) Atomic(ctx context.Context, fn func(repository.Records) error) error {
	return db.withTx(ctx, func(tx *DB) error {
		query, args := atomicLockQuery(tx.driver)
		if _, err := tx.exec(ctx, query, args...); err != nil {
			return model.StoreFailure("lock transaction", err)
		}
		return fn(tx)
	})
}

func (db *DB) withTx(ctx context.Context, fn func(*DB) error) error {
	if _, inTx := db.ext.(*sqlx.Tx); inTx {
		return fn(db)
	}

	tx, err := db.root.BeginTxx(ctx, nil)
	if err != nil {
		return model.StoreFailure("begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(&DB{root: db.root, ext: tx, driver: db.driver}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return model.StoreFailure("commit transaction", err)
	}
	return nil
}

func (db *DB) get(ctx context.Context, dest any, query string, args ...any) error {
	return sqlx.GetContext(ctx, db.ext, dest, db.ext.Rebind(query), args...)
}

func (db *DB) selectAll(ctx context.Context, dest any, query string, args ...any) error {
	return sqlx.SelectContext(ctx, db.ext, dest, db.ext.Rebind(query), args...)
}

// exec runs a statement and returns the affected row count.
func (db *DB) exec(ctx context.Context, query string, args ...any) (int64, error) {
	result, err := db.ext.ExecContext(ctx, db.ext.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	rows, _ := result.RowsAffected()
	return rows, nil
}
