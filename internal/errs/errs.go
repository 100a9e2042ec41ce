// Package errs defines the error taxonomy shared across the engine:
// configuration errors (bad or missing skill metadata, never retried) and
// upstream errors (the remote API reported a failure). Anything else is a
// transport error and stays a plain wrapped error.
package errs

import (
	"errors"
	"fmt"
)

// ConfigError reports invalid or incomplete skill/engine configuration.
// It is terminal: retrying cannot fix it.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string {
	return "configuration error: " + e.Msg
}

// Configf builds a ConfigError from a format string.
func Configf(format string, v ...interface{}) error {
	return &ConfigError{Msg: fmt.Sprintf(format, v...)}
}

// IsConfig reports whether err is (or wraps) a ConfigError.
func IsConfig(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// UpstreamError reports a failure signaled by the remote API, either a
// non-2xx HTTP status or a declared error field in an otherwise successful
// response (in which case Status is the original, successful status code).
type UpstreamError struct {
	Status int
	Msg    string
}

func (e *UpstreamError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("upstream error: status %d", e.Status)
	}
	return e.Msg
}

// IsUpstream reports whether err is (or wraps) an UpstreamError.
func IsUpstream(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}
