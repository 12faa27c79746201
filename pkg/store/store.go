// Package store persists the reaction network: stationary species,
// transition structures, and harvested energies, in a SQLite database.
//
// Identifiers are content-addressed; a unique index on amchi_identifier
// in both node tables is the safety net that makes reconciliation
// idempotent even after a partially failed pass.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const driverName = "sqlite"

// Config selects the database location.
type Config struct {
	// Path is a local filesystem path to the database, or ":memory:".
	Path string
}

// Store wraps the reaction network database.
type Store struct {
	db *sql.DB
}

// Open opens (and creates if needed) the network database.
//
// Local files get WAL and a busy timeout for predictable CLI behavior;
// parent directories are created when missing.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	dsn, err := buildDSN(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, &StoreError{Op: "open", Err: err}
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, &StoreError{Op: "ping", Err: err}
	}
	if err := configureSQLite(ctx, db, dsn); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for read-only consumers (status API).
func (s *Store) DB() *sql.DB {
	return s.db
}

func buildDSN(cfg Config) (string, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return "", errors.New("store path is required")
	}
	if path == ":memory:" {
		return path, nil
	}
	if err := ensureStoreDir(path); err != nil {
		return "", err
	}
	return "file:" + filepath.Clean(path), nil
}

func ensureStoreDir(path string) error {
	dir := filepath.Dir(filepath.Clean(path))
	if dir == "." || dir == string(filepath.Separator) {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &StoreError{Op: "create store directory", Err: err}
	}
	return nil
}

func configureSQLite(ctx context.Context, db *sql.DB, dsn string) error {
	// A single connection keeps PRAGMA state and in-memory databases
	// coherent, and sidesteps writer lock contention.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if dsn == ":memory:" {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var journalMode string
	if err := db.QueryRowContext(ctx, "PRAGMA journal_mode=WAL").Scan(&journalMode); err != nil {
		return &StoreError{Op: "enable WAL mode", Err: err}
	}
	var busyTimeout int
	if err := db.QueryRowContext(ctx, "PRAGMA busy_timeout=5000").Scan(&busyTimeout); err != nil {
		return &StoreError{Op: "set busy timeout", Err: err}
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		return &StoreError{Op: "enable foreign keys", Err: err}
	}
	return nil
}

// StoreError reports a persistence-layer failure. Fatal to the operation
// that hit it; never silently recovered.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// IsStoreError reports whether err originates in the persistence layer.
func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}
