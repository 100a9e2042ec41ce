// Package vault stores named secrets for external services. A value is
// either an opaque API key string or a JSON-encoded OAuth token bundle;
// the engine only writes back during a token refresh.
package vault

import (
	"context"
	"encoding/json"
	"time"
)

// Entry is a named secret keyed by service name.
type Entry struct {
	Service string
	Value   string
}

// TokenBundle is a structured OAuth credential value. ExpiresAt is unix
// milliseconds; zero means no known expiry.
type TokenBundle struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresAt    int64  `json:"expires_at,omitempty"`
}

// ParseBundle attempts to decode value as a token bundle. It returns
// false for plain API keys (anything that is not JSON with a non-empty
// access_token field).
func ParseBundle(value string) (*TokenBundle, bool) {
	var bundle TokenBundle
	if err := json.Unmarshal([]byte(value), &bundle); err != nil {
		return nil, false
	}
	if bundle.AccessToken == "" {
		return nil, false
	}
	return &bundle, true
}

// Encode renders the bundle back into its stored JSON form.
func (b *TokenBundle) Encode() (string, error) {
	data, err := json.Marshal(b)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ExpiresIn returns the time remaining until the bundle expires relative
// to now. A zero ExpiresAt reports a very large duration.
func (b *TokenBundle) ExpiresIn(now time.Time) time.Duration {
	if b.ExpiresAt == 0 {
		return time.Duration(1<<62 - 1)
	}
	return time.UnixMilli(b.ExpiresAt).Sub(now)
}

// ClientCredentials is the paired OAuth client entry for a provider,
// stored under "oauth_client:<provider>".
type ClientCredentials struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// ClientKey returns the vault key holding a provider's OAuth client
// credentials.
func ClientKey(provider string) string {
	return "oauth_client:" + provider
}

// Store is the credential store collaborator. Get returns (nil, nil) when
// no entry exists for the service.
type Store interface {
	Get(ctx context.Context, service string) (*Entry, error)
	Upsert(ctx context.Context, entry Entry) error
}
