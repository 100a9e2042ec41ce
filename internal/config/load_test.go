package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "engine.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadValid(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: debug
http:
  timeout_seconds: 60
relay:
  endpoint: https://relay.example/fetch
gateway:
  endpoint: https://relay.example/exec
vault:
  path: /tmp/vault.db
ledger:
  path: /tmp/ledger.db
multi_request:
  pace_ms: 500
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 60, cfg.HTTP.TimeoutSeconds)
	assert.Equal(t, "https://relay.example/fetch", cfg.Relay.Endpoint)
	assert.Equal(t, "https://relay.example/exec", cfg.Gateway.Endpoint)
	assert.Equal(t, "/tmp/vault.db", cfg.Vault.Path)
	assert.Equal(t, 500, cfg.Multi.PaceMillis)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `{}`))
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 30, cfg.HTTP.TimeoutSeconds)
	assert.Equal(t, 250, cfg.Multi.PaceMillis)
	assert.Empty(t, cfg.Relay.Endpoint)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadMalformedYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "logging: [unclosed"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantMsg string
	}{
		{
			"Bad Log Level",
			func(c *Config) { c.Logging.Level = "verbose" },
			"invalid log level 'verbose'",
		},
		{
			"Bad Relay Scheme",
			func(c *Config) { c.Relay.Endpoint = "ftp://relay.example" },
			"invalid URL scheme 'ftp'",
		},
		{
			"Unparsable Gateway URL",
			func(c *Config) { c.Gateway.Endpoint = "not a url" },
			"Config.Gateway.Endpoint",
		},
		{
			"Negative Pace",
			func(c *Config) { c.Multi.PaceMillis = -1 },
			"cannot be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := Validate(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestValidateReportsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Logging.Level = "verbose"
	cfg.Multi.PaceMillis = -1

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
	assert.Contains(t, err.Error(), "cannot be negative")
}
