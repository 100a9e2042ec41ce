// Package request assembles a concrete HTTP request from a declarative
// request specification, the variable context and a resolved credential.
// Building is pure: identical inputs always produce an identical request.
package request

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"skill-engine/internal/errs"
	"skill-engine/internal/relay"
	"skill-engine/internal/skill"
	"skill-engine/internal/template"
)

// Build constructs the outbound request for spec. relayEndpoint is only
// consulted when the spec declares proxy routing.
func Build(ctx context.Context, def *skill.Definition, spec *skill.RequestSpec, params map[string]interface{}, cred, relayEndpoint string) (*http.Request, error) {
	vars := make(map[string]interface{}, len(params)+2)
	for k, v := range params {
		vars[k] = v
	}
	if def.API.Model != "" {
		vars["model"] = def.API.Model
	}
	if cred != "" {
		vars["credential"] = cred
	}

	urlStr := joinURL(def.API.BaseURL, template.Interpolate(spec.Path, vars))

	// Query string: templated entries plus the credential when the skill
	// authenticates in the query rather than a header.
	query := url.Values{}
	for key, valueTmpl := range spec.Query {
		query.Set(key, template.Interpolate(valueTmpl, vars))
	}
	authInQuery := def.API.AuthQueryParam != ""
	if authInQuery && cred != "" && def.RequiresCredential() {
		query.Set(def.API.AuthQueryParam, cred)
	}
	if len(query) > 0 {
		sep := "?"
		if strings.Contains(urlStr, "?") {
			sep = "&"
		}
		urlStr += sep + query.Encode()
	}

	// Skill-level static headers first, request-level templates win on
	// collision.
	headers := make(map[string]string, len(def.API.Headers)+len(spec.Headers)+2)
	for key, value := range def.API.Headers {
		headers[key] = value
	}
	for key, valueTmpl := range spec.Headers {
		headers[key] = template.Interpolate(valueTmpl, vars)
	}
	if cred != "" && !authInQuery && def.RequiresCredential() {
		name := def.API.AuthHeader
		if name == "" {
			name = "Authorization"
		}
		prefix := def.API.AuthPrefix
		if prefix == "" {
			prefix = "Bearer"
		}
		headers[name] = strings.TrimSpace(prefix + " " + cred)
	}

	if spec.Proxy {
		var err error
		urlStr, err = wrapProxied(def, urlStr, relayEndpoint, headers)
		if err != nil {
			return nil, err
		}
	}

	method := strings.ToUpper(spec.Method)
	if method == "" {
		method = http.MethodGet
	}

	var bodyReader io.Reader
	if method != http.MethodGet && spec.Body != nil {
		bodyBytes, err := renderBody(spec.Body, vars)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(bodyBytes)
		if _, set := headers["Content-Type"]; !set {
			headers["Content-Type"] = "application/json"
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, urlStr, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for '%s': %w", urlStr, err)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	return req, nil
}

// wrapProxied absolutizes a relative URL against the skill's declared hub
// and wraps the result behind the relay endpoint. Accept is renamed to
// X-Accept so it survives the relay.
func wrapProxied(def *skill.Definition, urlStr, relayEndpoint string, headers map[string]string) (string, error) {
	if relayEndpoint == "" {
		return "", errs.Configf("skill '%s' declares a proxied request but no relay endpoint is configured", def.Name)
	}
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return "", errs.Configf("skill '%s' produced an unparsable URL '%s': %v", def.Name, urlStr, err)
	}
	if !parsed.IsAbs() {
		// Stale or incomplete skill metadata, not a runtime fault.
		if def.API.HubURL == "" {
			return "", errs.Configf("skill '%s' uses a relative proxied URL '%s' but declares no hub", def.Name, urlStr)
		}
		urlStr = joinURL(def.API.HubURL, urlStr)
	}
	if accept, ok := headers["Accept"]; ok {
		headers["X-Accept"] = accept
		delete(headers, "Accept")
	}
	return relay.WrapURL(relayEndpoint, urlStr), nil
}

// joinURL joins a base URL and a path with exactly one slash at the seam.
// An empty path yields the base verbatim.
func joinURL(base, path string) string {
	if path == "" {
		return base
	}
	if base == "" {
		return path
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

func renderBody(body interface{}, vars map[string]interface{}) ([]byte, error) {
	rendered := template.InterpolateValue(body, vars)
	if s, ok := rendered.(string); ok {
		return []byte(s), nil
	}
	encoded, err := json.Marshal(rendered)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize request body: %w", err)
	}
	return encoded, nil
}
