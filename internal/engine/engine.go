// Package engine orchestrates skill command execution: credential
// resolution, request building, the network call, response
// interpretation, post-processing and output templating, for the three
// command shapes (single request, multi-request fan-out, CLI template).
package engine

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"skill-engine/internal/errs"
	"skill-engine/internal/logging"
	"skill-engine/internal/postproc"
	"skill-engine/internal/skill"
)

// DefaultTimeout bounds every direct HTTP call the engine makes. The
// reference behavior inherited ambient platform timeouts; an explicit
// bound makes failure modes testable.
const DefaultTimeout = 30 * time.Second

// CredentialResolver yields the access token or API key for a skill.
type CredentialResolver interface {
	Resolve(ctx context.Context, def *skill.Definition) (string, error)
}

// GatewayExecutor runs a shell command on the remote exec relay.
type GatewayExecutor interface {
	Exec(ctx context.Context, command string, timeout time.Duration) (string, error)
}

// Config holds the engine's operational settings.
type Config struct {
	RelayEndpoint string
	HTTPTimeout   time.Duration
	// PaceDelay separates consecutive multi-request iterations.
	PaceDelay time.Duration
}

// Opts injects the engine's collaborators; nil fields get defaults.
// The pattern allows replacing implementations with mocks in tests.
type Opts struct {
	Credentials CredentialResolver
	HTTPClient  *http.Client
	Gateway     GatewayExecutor
	Uploader    postproc.Uploader
	Audit       AuditSink
	Usage       UsageSink
	Sleep       func(time.Duration)
	Now         func() time.Time
}

// Engine executes skill commands.
type Engine struct {
	cfg         Config
	credentials CredentialResolver
	http        *http.Client
	gateway     GatewayExecutor
	pipeline    *postproc.Pipeline
	audit       AuditSink
	usage       UsageSink
	sleep       func(time.Duration)
	now         func() time.Time
}

// New creates an engine with the given settings and collaborators.
func New(cfg Config, opts Opts) *Engine {
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = DefaultTimeout
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.HTTPTimeout}
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		cfg:         cfg,
		credentials: opts.Credentials,
		http:        client,
		gateway:     opts.Gateway,
		pipeline:    &postproc.Pipeline{Uploader: opts.Uploader},
		audit:       opts.Audit,
		usage:       opts.Usage,
		sleep:       sleep,
		now:         now,
	}
}

// Execute runs one named command of a skill and returns the normalized
// result. All failures, configuration and upstream alike, surface as a
// Result with Success=false rather than an error.
func (e *Engine) Execute(ctx context.Context, def *skill.Definition, commandName string, params map[string]interface{}, opts Options) Result {
	start := e.now()
	cmd := def.FindCommand(commandName)
	if cmd == nil {
		return e.failure(start, errs.Configf("skill '%s' has no command '%s'", def.Name, commandName))
	}
	merged := cmd.DefaultParams(params)

	switch cmd.ExecutionStrategy() {
	case skill.StrategyMultiRequest:
		return e.runMulti(ctx, def, cmd, merged, opts)
	case skill.StrategyCLITemplate:
		return e.runCLI(ctx, def, cmd, merged, opts)
	default:
		return e.runSingle(ctx, def, cmd, cmd.Request, merged, opts)
	}
}

// failure builds the uniform failed result: zero cost and tokens, the
// elapsed duration, and the error text.
func (e *Engine) failure(start time.Time, err error) Result {
	return Result{
		Error:    err.Error(),
		Duration: e.now().Sub(start),
	}
}

// do sends the request and reads the full body.
func (e *Engine) do(req *http.Request) (*http.Response, []byte, error) {
	logging.Logf(logging.Debug, "Sending %s %s", req.Method, req.URL.String())
	resp, err := e.http.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read response body (status %d): %w", resp.StatusCode, err)
	}
	return resp, body, nil
}

// record emits the audit record and, for nonzero cost, the usage record.
// Sink failures are logged and never fail the command.
func (e *Engine) record(ctx context.Context, def *skill.Definition, cmd *skill.Command, opts Options, res Result) {
	ts := e.now()
	if e.audit != nil {
		rec := AuditRecord{
			ID:        uuid.NewString(),
			Skill:     def.Name,
			Command:   cmd.Name,
			AgentID:   opts.AgentID,
			MissionID: opts.MissionID,
			Success:   res.Success,
			Duration:  res.Duration,
			Timestamp: ts,
		}
		if err := e.audit.RecordAudit(ctx, rec); err != nil {
			logging.Logf(logging.Warning, "Audit record for %s.%s dropped: %v", def.Name, cmd.Name, err)
		}
	}
	if e.usage != nil && res.Cost.IsPositive() {
		rec := UsageRecord{
			ID:        uuid.NewString(),
			Skill:     def.Name,
			Command:   cmd.Name,
			AgentID:   opts.AgentID,
			MissionID: opts.MissionID,
			Tokens:    res.Tokens,
			Cost:      res.Cost,
			Timestamp: ts,
		}
		if err := e.usage.RecordUsage(ctx, rec); err != nil {
			logging.Logf(logging.Warning, "Usage record for %s.%s dropped: %v", def.Name, cmd.Name, err)
		}
	}
}
