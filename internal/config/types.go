package config

// Config holds the engine's operational configuration: the forwarding
// collaborators, storage paths and timing knobs.
type Config struct {
	Logging Logging `yaml:"logging"`
	HTTP    HTTP    `yaml:"http"`
	Relay   Relay   `yaml:"relay"`
	Gateway Gateway `yaml:"gateway"`
	Upload  Upload  `yaml:"upload"`
	Vault   Vault   `yaml:"vault"`
	Ledger  Ledger  `yaml:"ledger"`
	Multi   Multi   `yaml:"multi_request"`
}

// Logging holds logging settings.
type Logging struct {
	Level string `yaml:"level"`
}

// HTTP bounds direct outbound calls.
type HTTP struct {
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// Relay is the same-origin forwarding endpoint for CORS-restricted calls
// and OAuth token exchanges.
type Relay struct {
	Endpoint string `yaml:"endpoint,omitempty"`
}

// Gateway is the remote shell-exec endpoint.
type Gateway struct {
	Endpoint string `yaml:"endpoint,omitempty"`
}

// Upload is the binary upload collaborator.
type Upload struct {
	Endpoint string `yaml:"endpoint,omitempty"`
}

// Vault locates the credential store database. Empty means an in-memory
// store (credentials last for the process lifetime only).
type Vault struct {
	Path string `yaml:"path,omitempty"`
}

// Ledger locates the audit/usage database. Empty disables persistence.
type Ledger struct {
	Path string `yaml:"path,omitempty"`
}

// Multi tunes multi-request fan-out pacing.
type Multi struct {
	PaceMillis int `yaml:"pace_ms"`
}
