// Package ledger persists the engine's fire-and-forget records: the
// audit trail of executed commands and the usage/cost accounting.
package ledger

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"skill-engine/internal/engine"
)

// SQLiteLedger implements engine.AuditSink and engine.UsageSink over one
// on-disk database.
type SQLiteLedger struct {
	db *sql.DB
}

// Open opens (or creates) the ledger database at path.
func Open(path string) (*SQLiteLedger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("ledger: open db: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger: wal mode: %w", err)
	}
	const schema = `
	CREATE TABLE IF NOT EXISTS audit_log (
		id TEXT PRIMARY KEY,
		skill TEXT NOT NULL,
		command TEXT NOT NULL,
		agent_id TEXT,
		mission_id TEXT,
		success INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		recorded_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS usage_log (
		id TEXT PRIMARY KEY,
		skill TEXT NOT NULL,
		command TEXT NOT NULL,
		agent_id TEXT,
		mission_id TEXT,
		tokens INTEGER NOT NULL,
		cost TEXT NOT NULL,
		recorded_at INTEGER NOT NULL
	);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger: migrate: %w", err)
	}
	return &SQLiteLedger{db: db}, nil
}

// RecordAudit appends one audit record.
func (l *SQLiteLedger) RecordAudit(ctx context.Context, rec engine.AuditRecord) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO audit_log (id, skill, command, agent_id, mission_id, success, duration_ms, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Skill, rec.Command, rec.AgentID, rec.MissionID,
		boolToInt(rec.Success), rec.Duration.Milliseconds(), rec.Timestamp.UnixMilli())
	if err != nil {
		return fmt.Errorf("ledger: audit insert: %w", err)
	}
	return nil
}

// RecordUsage appends one usage record. Cost is stored as its decimal
// string form to avoid float drift.
func (l *SQLiteLedger) RecordUsage(ctx context.Context, rec engine.UsageRecord) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO usage_log (id, skill, command, agent_id, mission_id, tokens, cost, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Skill, rec.Command, rec.AgentID, rec.MissionID,
		rec.Tokens, rec.Cost.String(), rec.Timestamp.UnixMilli())
	if err != nil {
		return fmt.Errorf("ledger: usage insert: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
