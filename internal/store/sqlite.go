package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteStore persists credential records in a local SQLite database.
// It satisfies Store and is the default backend: a single-machine install
// needs no external service, and the database file survives restarts.
//
// Design decision: The schema is a single flat key-value table rather
// than typed columns per record field. The record format is owned by
// EncodeRecord/DecodeRecord and shared with the Redis backend, so the two
// backends cannot drift apart, and schema migrations reduce to record
// format changes.
type SQLiteStore struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string

	// logger receives skip-and-log diagnostics for unreadable entries.
	logger *slog.Logger
}

// Options configures SQLiteStore behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	// This is recommended for most use cases.
	EnableWAL bool

	// Logger receives diagnostics. Defaults to slog.Default() when nil.
	Logger *slog.Logger
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a SQLiteStore in the specified directory.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is
// returned; the status command uses this to avoid creating empty stores.
func Open(dir string, opts Options) (*SQLiteStore, error) {
	dbPath := filepath.Join(dir, "password-alert.db")

	// Check if we should create the database or require it to exist
	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("store not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check store path: %w", err)
		}
	} else {
		// Ensure directory exists
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	// Build connection string
	// We use modernc.org/sqlite which uses a different connection string format.
	// When CreateIfNotExists is false, we use mode=rw to prevent creating new files.
	// When CreateIfNotExists is true, we use mode=rwc to allow creation.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	// Configure connection pool
	// SQLite doesn't benefit from multiple connections for writes,
	// but a single connection also keeps Apply batches naturally serialized
	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &SQLiteStore{
		db:     db,
		dbPath: dbPath,
		logger: logger,
	}

	// Enable WAL mode if requested
	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := s.createTable(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// createTable creates the flat key-value schema if it doesn't exist.
// Keys are fingerprint strings plus the reserved salt entry; values are
// the JSON record form (or the raw salt string for the salt entry).
func (s *SQLiteStore) createTable() error {
	schema := `
	CREATE TABLE IF NOT EXISTS entries (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`

	_, err := s.db.ExecContext(context.Background(), schema)
	return err
}

// Lookup returns the record for the fingerprint.
func (s *SQLiteStore) Lookup(ctx context.Context, fingerprint string) (Record, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM entries WHERE key = ?`, fingerprint).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrRecordNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("failed to look up record: %w", err)
	}

	rec, err := DecodeRecord([]byte(value))
	if err != nil {
		// An unreadable entry cannot match anything; treat it as absent
		s.logger.Warn("skipping unreadable store entry", "key", fingerprint, "error", err)
		return Record{}, ErrRecordNotFound
	}
	return rec, nil
}

// Put writes the record for the fingerprint, replacing any previous value.
func (s *SQLiteStore) Put(ctx context.Context, fingerprint string, rec Record) error {
	value, err := EncodeRecord(rec)
	if err != nil {
		return err
	}

	query := `
	INSERT INTO entries (key, value) VALUES (?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`
	if _, err := s.db.ExecContext(ctx, query, fingerprint, string(value)); err != nil {
		return fmt.Errorf("failed to put record: %w", err)
	}
	return nil
}

// Snapshot returns all decodable records keyed by fingerprint.
// The salt entry is excluded; unreadable entries are skipped and logged.
func (s *SQLiteStore) Snapshot(ctx context.Context) (map[string]Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM entries WHERE key != ?`, saltKey)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot store: %w", err)
	}
	defer rows.Close()

	snapshot := make(map[string]Record)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}

		rec, err := DecodeRecord([]byte(value))
		if err != nil {
			s.logger.Warn("skipping unreadable store entry", "key", key, "error", err)
			continue
		}
		snapshot[key] = rec
	}

	return snapshot, rows.Err()
}

// Apply executes a batch of mutations in a single transaction.
// Deletes run before puts so a key appearing in both ends up written.
func (s *SQLiteStore) Apply(ctx context.Context, batch Batch) error {
	if batch.Empty() {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin batch: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after commit is a no-op

	for _, key := range batch.Delete {
		if _, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE key = ?`, key); err != nil {
			return fmt.Errorf("failed to delete record: %w", err)
		}
	}

	upsert := `
	INSERT INTO entries (key, value) VALUES (?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`
	for key, rec := range batch.Put {
		value, err := EncodeRecord(rec)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, upsert, key, string(value)); err != nil {
			return fmt.Errorf("failed to put record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}

// Salt returns the persisted salt, or an empty string when none exists.
func (s *SQLiteStore) Salt(ctx context.Context) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM entries WHERE key = ?`, saltKey).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load salt: %w", err)
	}
	return value, nil
}

// PutSalt persists the per-install salt.
func (s *SQLiteStore) PutSalt(ctx context.Context, salt string) error {
	query := `
	INSERT INTO entries (key, value) VALUES (?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`
	if _, err := s.db.ExecContext(ctx, query, saltKey, salt); err != nil {
		return fmt.Errorf("failed to persist salt: %w", err)
	}
	return nil
}
