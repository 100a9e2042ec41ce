package vault

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore is the on-disk credential store.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) a credential vault at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("vault: open db: %w", err)
	}
	// WAL keeps readers unblocked while a refresh writes back.
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("vault: wal mode: %w", err)
	}
	const schema = `CREATE TABLE IF NOT EXISTS credentials (
		service TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("vault: migrate: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Get returns the entry for service, or (nil, nil) when none is stored.
func (s *SQLiteStore) Get(ctx context.Context, service string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT value FROM credentials WHERE service = ?`, service)
	var value string
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("vault: get '%s': %w", service, err)
	}
	return &Entry{Service: service, Value: value}, nil
}

// Upsert stores or replaces the entry for its service.
func (s *SQLiteStore) Upsert(ctx context.Context, entry Entry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO credentials (service, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(service) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		entry.Service, entry.Value, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("vault: upsert '%s': %w", entry.Service, err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
