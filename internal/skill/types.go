// Package skill defines the declarative skill format: an integration with
// an external API or CLI, described entirely as data, plus the catalog
// loader that validates and indexes skill definitions.
package skill

// Risk classifications for a skill.
const (
	RiskNormal    = "normal"
	RiskDangerous = "dangerous"
)

// Response formats a request can declare.
const (
	FormatJSON   = "json"
	FormatText   = "text"
	FormatBinary = "binary"
)

// Merge strategies for multi-request fan-out.
const (
	MergeConcat = "concat"
	MergeObject = "object"
	MergeArray  = "array"
)

// Definition describes one skill. It is immutable for the duration of an
// execution.
type Definition struct {
	Name string `json:"name"`
	Risk string `json:"risk,omitempty"`
	// VaultService names the stored credential this skill needs.
	// Empty or "none" means no credential is required.
	VaultService string       `json:"vault_service,omitempty"`
	API          APIConfig    `json:"api"`
	OAuth        *OAuthConfig `json:"oauth,omitempty"`
	Commands     []*Command   `json:"commands"`
}

// RequiresCredential reports whether the skill declares a vault service.
func (d *Definition) RequiresCredential() bool {
	return d.VaultService != "" && d.VaultService != "none"
}

// FindCommand returns the named command, or nil if the skill does not
// define it.
func (d *Definition) FindCommand(name string) *Command {
	for _, c := range d.Commands {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// APIConfig is the base API configuration shared by a skill's commands.
type APIConfig struct {
	BaseURL string            `json:"base_url,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
	// AuthHeader/AuthPrefix control credential injection into a header
	// (defaults: Authorization / Bearer). AuthQueryParam routes the
	// credential into the query string instead.
	AuthHeader     string `json:"auth_header,omitempty"`
	AuthPrefix     string `json:"auth_prefix,omitempty"`
	AuthQueryParam string `json:"auth_query_param,omitempty"`
	Model          string `json:"model,omitempty"`
	// HubURL is the skill's fixed hub used to absolutize relative
	// proxied URLs. Required for proxied commands with a relative base.
	HubURL string `json:"hub_url,omitempty"`
}

// OAuthConfig declares the OAuth provider behind a skill's credential.
type OAuthConfig struct {
	Provider string `json:"provider"`
	TokenURL string `json:"token_url,omitempty"`
}

// ParamDecl declares one command parameter with an optional default.
type ParamDecl struct {
	Name    string      `json:"name"`
	Default interface{} `json:"default,omitempty"`
}

// Command is one named operation exposed by a skill. Exactly one of
// Request, MultiRequest or CLITemplate must be set; Validate enforces
// this at catalog load so dispatch can rely on it.
type Command struct {
	Name           string             `json:"name"`
	Params         []ParamDecl        `json:"params,omitempty"`
	Request        *RequestSpec       `json:"request,omitempty"`
	MultiRequest   *MultiRequestSpec  `json:"multi_request,omitempty"`
	CLITemplate    *CLITemplateSpec   `json:"cli_template,omitempty"`
	Response       *ResponseSpec      `json:"response,omitempty"`
	OutputTemplate string             `json:"output_template,omitempty"`
	PostProcessors []PostProcessorRef `json:"post_processors,omitempty"`
}

// Strategy identifies which executor handles a command.
type Strategy int

const (
	StrategyRequest Strategy = iota
	StrategyMultiRequest
	StrategyCLITemplate
)

// ExecutionStrategy returns the command's strategy tag. It assumes the
// command passed Validate.
func (c *Command) ExecutionStrategy() Strategy {
	switch {
	case c.MultiRequest != nil:
		return StrategyMultiRequest
	case c.CLITemplate != nil:
		return StrategyCLITemplate
	default:
		return StrategyRequest
	}
}

// DefaultParams returns the declared parameter defaults merged with the
// caller-supplied values (caller wins).
func (c *Command) DefaultParams(params map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(c.Params)+len(params))
	for _, p := range c.Params {
		if p.Default != nil {
			merged[p.Name] = p.Default
		}
	}
	for k, v := range params {
		merged[k] = v
	}
	return merged
}

// RequestSpec declares a single HTTP request.
type RequestSpec struct {
	Method  string            `json:"method,omitempty"`
	Path    string            `json:"path,omitempty"`
	Query   map[string]string `json:"query,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    interface{}       `json:"body,omitempty"`
	// ResponseFormat is json (default), text or binary.
	ResponseFormat string `json:"response_format,omitempty"`
	// Proxy routes the call through the same-origin relay.
	Proxy bool `json:"proxy,omitempty"`
}

// ResponseSpec declares how a response is checked and reshaped.
type ResponseSpec struct {
	// ErrorPath is probed first; a truthy value there fails the request
	// even on HTTP 200.
	ErrorPath   string            `json:"error_path,omitempty"`
	Extract     map[string]string `json:"extract,omitempty"`
	ExtractRaw  string            `json:"extract_raw,omitempty"`
	Passthrough bool              `json:"passthrough,omitempty"`
	ImageField  string            `json:"image_field,omitempty"`
}

// MultiRequestSpec repeats a request once per enumerated value of one
// parameter and merges the partial results.
type MultiRequestSpec struct {
	Param         string        `json:"param"`
	Values        []interface{} `json:"values"`
	MergeStrategy string        `json:"merge_strategy,omitempty"`
	Request       *RequestSpec  `json:"request"`
}

// CLITemplateSpec is the alternate execution path for commands expressed
// as a URL template or a remote shell-command template. The two modes are
// mutually exclusive.
type CLITemplateSpec struct {
	URLTemplate  string            `json:"url_template,omitempty"`
	Method       string            `json:"method,omitempty"`
	Headers      map[string]string `json:"headers,omitempty"`
	ResponseType string            `json:"response_type,omitempty"`

	GatewayExec     bool   `json:"gateway_exec,omitempty"`
	CommandTemplate string `json:"command_template,omitempty"`
	TimeoutSeconds  int    `json:"timeout_seconds,omitempty"`
}

// PostProcessorRef names a post-processing step with its config blob.
type PostProcessorRef struct {
	Kind   string                 `json:"kind"`
	Config map[string]interface{} `json:"config,omitempty"`
}

// Known post-processor kinds. Unknown kinds fail catalog validation
// rather than silently no-op at run time.
const (
	PostUploadImage  = "upload_image"
	PostEstimateCost = "estimate_cost"
)
