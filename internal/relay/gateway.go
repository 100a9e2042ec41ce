package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"skill-engine/internal/util"
)

// DefaultExecTimeout bounds gateway shell executions when the command
// does not declare its own timeout.
const DefaultExecTimeout = 30 * time.Second

// GatewayClient talks to the remote shell-exec endpoint.
type GatewayClient struct {
	Endpoint string
	HTTP     *http.Client
}

// Exec posts a shell command to the gateway and returns its result field.
// The gateway answers {"result": ...} on success or {"error": ...}.
func (g *GatewayClient) Exec(ctx context.Context, command string, timeout time.Duration) (string, error) {
	if g.Endpoint == "" {
		return "", fmt.Errorf("gateway endpoint is not configured")
	}
	if timeout <= 0 {
		timeout = DefaultExecTimeout
	}
	payload, err := json.Marshal(map[string]interface{}{
		"command": command,
		"timeout": int(timeout.Seconds()),
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode gateway payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout+5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read gateway response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if msg := gjson.GetBytes(body, "error"); msg.Exists() {
			return "", fmt.Errorf("gateway execution failed: %s", msg.String())
		}
		return "", fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, util.Snippet(body))
	}
	if result := gjson.GetBytes(body, "result"); result.Exists() {
		return result.String(), nil
	}
	// Older gateways answer with the bare output.
	return string(body), nil
}
