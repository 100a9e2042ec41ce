package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Default reasonable settings for an unconfigured engine.
func Default() *Config {
	return &Config{
		Logging: Logging{Level: "info"},
		HTTP:    HTTP{TimeoutSeconds: 30},
		Multi:   Multi{PaceMillis: 250},
	}
}

// Load reads, parses and validates the YAML configuration file.
func Load(filename string) (*Config, error) {
	fileBytes, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", filename, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(fileBytes, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML in '%s': %w", filename, err)
	}
	if cfg.HTTP.TimeoutSeconds <= 0 {
		cfg.HTTP.TimeoutSeconds = 30
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

var knownLogLevels = []string{"none", "error", "warn", "warning", "info", "debug"}

// Validate checks the loaded configuration and reports every problem at
// once.
func Validate(cfg *Config) error {
	var allErrors []string

	levelOK := false
	for _, level := range knownLogLevels {
		if strings.ToLower(cfg.Logging.Level) == level {
			levelOK = true
			break
		}
	}
	if !levelOK {
		allErrors = append(allErrors, fmt.Sprintf("- Config.Logging.Level: invalid log level '%s', must be one of %v", cfg.Logging.Level, knownLogLevels))
	}

	for name, endpoint := range map[string]string{
		"Config.Relay.Endpoint":   cfg.Relay.Endpoint,
		"Config.Gateway.Endpoint": cfg.Gateway.Endpoint,
		"Config.Upload.Endpoint":  cfg.Upload.Endpoint,
	} {
		if endpoint == "" {
			continue
		}
		parsed, err := url.ParseRequestURI(endpoint)
		if err != nil {
			allErrors = append(allErrors, fmt.Sprintf("- %s: invalid URL format: %v", name, err))
		} else if scheme := strings.ToLower(parsed.Scheme); scheme != "http" && scheme != "https" {
			allErrors = append(allErrors, fmt.Sprintf("- %s: invalid URL scheme '%s', must be http or https", name, parsed.Scheme))
		}
	}

	if cfg.Multi.PaceMillis < 0 {
		allErrors = append(allErrors, "- Config.Multi.PaceMillis: cannot be negative")
	}

	if len(allErrors) > 0 {
		return fmt.Errorf("configuration validation failed:\n%s", strings.Join(allErrors, "\n"))
	}
	return nil
}
