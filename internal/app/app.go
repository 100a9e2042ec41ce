// Package app wires the engine's collaborators from configuration and
// drives one command execution from the command line.
package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"skill-engine/internal/config"
	"skill-engine/internal/credential"
	"skill-engine/internal/engine"
	"skill-engine/internal/ledger"
	"skill-engine/internal/logging"
	"skill-engine/internal/relay"
	"skill-engine/internal/skill"
	"skill-engine/internal/vault"
)

// Common application-layer errors.
var (
	ErrUsage       = errors.New("usage error")
	ErrMissingArgs = errors.New("missing required arguments")
)

const usageText = `Usage:
  skill-engine [options] <skill> <command> [param=value ...]

Options:
  -config string
        YAML engine configuration file (default "engine.yaml")
  -skills string
        Directory of skill definition JSON files (default "skills")
  -agent string
        Agent identity recorded on audit/usage entries
  -mission string
        Mission identity recorded on audit/usage entries
  -log string
        Log level override (none|error|warn|info|debug)

Parameters are given as key=value pairs after the command name.
`

// AppRunner executes one skill command from parsed CLI arguments.
type AppRunner struct {
	out io.Writer
}

// NewAppRunner creates the application runner writing output to out.
func NewAppRunner(out io.Writer) *AppRunner {
	return &AppRunner{out: out}
}

// Usage prints command-line help.
func (a *AppRunner) Usage(w io.Writer) {
	fmt.Fprint(w, usageText)
}

// Run parses args, loads configuration and the skill catalog, executes
// the requested command and prints its output. A failed command returns
// an error so main can exit nonzero.
func (a *AppRunner) Run(args []string) error {
	flags := flag.NewFlagSet("skill-engine", flag.ContinueOnError)
	configPath := flags.String("config", "engine.yaml", "engine configuration file")
	skillsDir := flags.String("skills", "skills", "skill definitions directory")
	agentID := flags.String("agent", "", "agent identity for attribution")
	missionID := flags.String("mission", "", "mission identity for attribution")
	logLevel := flags.String("log", "", "log level override")
	flags.SetOutput(io.Discard)
	if err := flags.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}

	rest := flags.Args()
	if len(rest) < 2 {
		return fmt.Errorf("%w: need <skill> and <command>", ErrMissingArgs)
	}
	skillName, commandName := rest[0], rest[1]
	params, err := parseParams(rest[2:])
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	levelStr := cfg.Logging.Level
	if *logLevel != "" {
		levelStr = *logLevel
	}
	level, err := logging.ParseLevel(levelStr)
	if err != nil {
		return err
	}
	logging.SetLevel(level)

	catalog, err := skill.LoadCatalog(*skillsDir)
	if err != nil {
		return err
	}
	def := catalog.Get(skillName)
	if def == nil {
		return fmt.Errorf("skill '%s' not found; available: %s", skillName, strings.Join(catalog.Names(), ", "))
	}

	eng, cleanup, err := buildEngine(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	result := eng.Execute(context.Background(), def, commandName, params, engine.Options{
		AgentID:   *agentID,
		MissionID: *missionID,
	})
	if !result.Success {
		return fmt.Errorf("command failed: %s", result.Error)
	}
	fmt.Fprintln(a.out, result.Output)
	if result.ImageURL != "" {
		logging.Logf(logging.Info, "Image: %s", result.ImageURL)
	}
	logging.Logf(logging.Info, "Completed in %s (tokens=%d cost=%s)", result.Duration, result.Tokens, result.Cost)
	return nil
}

// buildEngine assembles the engine and its collaborators from config.
// The returned cleanup closes any opened databases.
func buildEngine(cfg *config.Config) (*engine.Engine, func(), error) {
	var closers []func() error
	cleanup := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				logging.Logf(logging.Warning, "Cleanup failed: %v", err)
			}
		}
	}

	var store vault.Store
	if cfg.Vault.Path != "" {
		sqliteStore, err := vault.OpenSQLite(cfg.Vault.Path)
		if err != nil {
			return nil, cleanup, err
		}
		closers = append(closers, sqliteStore.Close)
		store = sqliteStore
	} else {
		store = vault.NewMemoryStore()
	}

	timeout := time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second
	directClient := &http.Client{Timeout: timeout}

	// Token exchanges ride through the relay when one is configured.
	exchangeClient := directClient
	if cfg.Relay.Endpoint != "" {
		exchangeClient = &http.Client{
			Timeout:   timeout,
			Transport: &relay.Transport{Endpoint: cfg.Relay.Endpoint},
		}
	}
	resolver := &credential.Resolver{Store: store, HTTP: exchangeClient}

	opts := engine.Opts{
		Credentials: resolver,
		HTTPClient:  directClient,
		Gateway:     &relay.GatewayClient{Endpoint: cfg.Gateway.Endpoint, HTTP: directClient},
		Uploader:    &relay.UploadClient{Endpoint: cfg.Upload.Endpoint, HTTP: directClient},
	}
	if cfg.Ledger.Path != "" {
		db, err := ledger.Open(cfg.Ledger.Path)
		if err != nil {
			return nil, cleanup, err
		}
		closers = append(closers, db.Close)
		opts.Audit = db
		opts.Usage = db
	}

	eng := engine.New(engine.Config{
		RelayEndpoint: cfg.Relay.Endpoint,
		HTTPTimeout:   timeout,
		PaceDelay:     time.Duration(cfg.Multi.PaceMillis) * time.Millisecond,
	}, opts)
	return eng, cleanup, nil
}

// parseParams turns trailing key=value arguments into the parameter map.
func parseParams(args []string) (map[string]interface{}, error) {
	params := make(map[string]interface{}, len(args))
	for _, arg := range args {
		key, value, found := strings.Cut(arg, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid parameter '%s', expected key=value", arg)
		}
		params[key] = value
	}
	return params, nil
}
