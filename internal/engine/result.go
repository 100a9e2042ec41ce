package engine

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Result is the only artifact that crosses the engine's public boundary.
type Result struct {
	Success  bool
	Output   string
	Error    string
	Tokens   int
	Cost     decimal.Decimal
	Duration time.Duration
	ImageURL string
}

// Options carries caller-identity fields used only for audit and usage
// attribution, never for control flow.
type Options struct {
	AgentID   string
	MissionID string
}

// AuditRecord notes one successfully executed command.
type AuditRecord struct {
	ID        string
	Skill     string
	Command   string
	AgentID   string
	MissionID string
	Success   bool
	Duration  time.Duration
	Timestamp time.Time
}

// UsageRecord accounts the cost of one command execution.
type UsageRecord struct {
	ID        string
	Skill     string
	Command   string
	AgentID   string
	MissionID string
	Tokens    int
	Cost      decimal.Decimal
	Timestamp time.Time
}

// AuditSink and UsageSink are fire-and-forget record sinks. Failures are
// logged and never fail the surrounding command.
type AuditSink interface {
	RecordAudit(ctx context.Context, rec AuditRecord) error
}

type UsageSink interface {
	RecordUsage(ctx context.Context, rec UsageRecord) error
}
