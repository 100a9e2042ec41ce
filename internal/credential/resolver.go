// Package credential resolves the stored secret a skill needs and keeps
// OAuth token bundles fresh, refreshing them transparently through the
// relay when they near expiry.
package credential

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"skill-engine/internal/errs"
	"skill-engine/internal/logging"
	"skill-engine/internal/skill"
	"skill-engine/internal/vault"
)

// RefreshSkew is how close to expiry a token bundle may get before a
// refresh is forced.
const RefreshSkew = 5 * time.Minute

// fallbackTokenLifetime is assumed when a provider's token response
// carries no expiry.
const fallbackTokenLifetime = time.Hour

// defaultTokenURLs maps provider names to their token endpoints, used
// when the skill does not declare one.
var defaultTokenURLs = map[string]string{
	"google":    "https://oauth2.googleapis.com/token",
	"microsoft": "https://login.microsoftonline.com/common/oauth2/v2.0/token",
	"github":    "https://github.com/login/oauth/access_token",
}

// Resolver looks up skill credentials and refreshes OAuth bundles.
// Concurrent refreshes for the same service coalesce into one exchange.
type Resolver struct {
	Store vault.Store
	// HTTP performs the token exchange; it is expected to carry the
	// relay transport so exchanges ride through the same-origin relay.
	HTTP *http.Client
	Now  func() time.Time

	group singleflight.Group
}

// Resolve returns the access token (or plain API key) for the skill's
// declared vault service. Skills without a credential requirement resolve
// to the empty string.
func (r *Resolver) Resolve(ctx context.Context, def *skill.Definition) (string, error) {
	if !def.RequiresCredential() {
		return "", nil
	}
	service := def.VaultService
	entry, err := r.Store.Get(ctx, service)
	if err != nil {
		return "", fmt.Errorf("credential lookup for '%s' failed: %w", service, err)
	}
	if entry == nil {
		return "", errs.Configf("no credential stored for service '%s'", service)
	}

	bundle, isBundle := vault.ParseBundle(entry.Value)
	if !isBundle {
		// Plain API key, returned unchanged.
		return entry.Value, nil
	}
	if bundle.ExpiresIn(r.now()) > RefreshSkew {
		return bundle.AccessToken, nil
	}

	// The singleflight key is the service name, so concurrent refreshes
	// for one service collapse into a single exchange. The winner
	// re-reads the entry in case another process refreshed meanwhile.
	token, err, _ := r.group.Do(service, func() (interface{}, error) {
		return r.refresh(ctx, def, service)
	})
	if err != nil {
		return "", err
	}
	return token.(string), nil
}

func (r *Resolver) refresh(ctx context.Context, def *skill.Definition, service string) (string, error) {
	entry, err := r.Store.Get(ctx, service)
	if err != nil {
		return "", fmt.Errorf("credential lookup for '%s' failed: %w", service, err)
	}
	if entry == nil {
		return "", errs.Configf("no credential stored for service '%s'", service)
	}
	bundle, isBundle := vault.ParseBundle(entry.Value)
	if !isBundle {
		return entry.Value, nil
	}
	if bundle.ExpiresIn(r.now()) > RefreshSkew {
		// Refreshed by a concurrent caller while we waited.
		return bundle.AccessToken, nil
	}

	provider := ""
	tokenURL := ""
	if def.OAuth != nil {
		provider = def.OAuth.Provider
		tokenURL = def.OAuth.TokenURL
	}
	if tokenURL == "" {
		tokenURL = defaultTokenURLs[provider]
	}
	if tokenURL == "" {
		return "", errs.Configf("no token endpoint known for OAuth provider '%s'", provider)
	}

	clientEntry, err := r.Store.Get(ctx, vault.ClientKey(provider))
	if err != nil {
		return "", fmt.Errorf("OAuth client lookup for provider '%s' failed: %w", provider, err)
	}
	if clientEntry == nil {
		return "", errs.Configf("no client credentials stored for OAuth provider '%s'", provider)
	}
	var client vault.ClientCredentials
	if parseErr := json.Unmarshal([]byte(clientEntry.Value), &client); parseErr != nil {
		return "", errs.Configf("malformed client credentials for OAuth provider '%s': %v", provider, parseErr)
	}

	conf := &oauth2.Config{
		ClientID:     client.ClientID,
		ClientSecret: client.ClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: tokenURL},
	}
	exchangeCtx := ctx
	if r.HTTP != nil {
		exchangeCtx = context.WithValue(ctx, oauth2.HTTPClient, r.HTTP)
	}
	logging.Logf(logging.Debug, "Refreshing OAuth token for service '%s' via %s", service, tokenURL)
	token, err := conf.TokenSource(exchangeCtx, &oauth2.Token{RefreshToken: bundle.RefreshToken}).Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			return "", &errs.UpstreamError{
				Status: retrieveErr.Response.StatusCode,
				Msg:    fmt.Sprintf("token refresh for '%s' failed with status %d", service, retrieveErr.Response.StatusCode),
			}
		}
		return "", fmt.Errorf("token refresh for '%s' failed: %w", service, err)
	}

	updated := &vault.TokenBundle{
		AccessToken:  token.AccessToken,
		RefreshToken: bundle.RefreshToken,
	}
	if token.RefreshToken != "" {
		updated.RefreshToken = token.RefreshToken
	}
	expiry := token.Expiry
	if expiry.IsZero() {
		expiry = r.now().Add(fallbackTokenLifetime)
	}
	updated.ExpiresAt = expiry.UnixMilli()

	encoded, err := updated.Encode()
	if err != nil {
		return "", fmt.Errorf("failed to encode refreshed bundle for '%s': %w", service, err)
	}
	if err := r.Store.Upsert(ctx, vault.Entry{Service: service, Value: encoded}); err != nil {
		return "", fmt.Errorf("failed to persist refreshed bundle for '%s': %w", service, err)
	}
	logging.Logf(logging.Info, "Refreshed OAuth token for service '%s' (expires %s)", service, expiry.Format(time.RFC3339))
	return token.AccessToken, nil
}

func (r *Resolver) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}
