// Package relay holds the clients for the engine's forwarding
// collaborators: the same-origin relay that proxies CORS-restricted calls
// and OAuth token exchanges, the gateway shell-exec endpoint, and the
// binary upload service.
package relay

import (
	"net/http"
	"net/url"
)

// WrapURL rewrites an absolute target URL to go through the relay
// endpoint, which forwards the request and returns the upstream status
// and body unchanged.
func WrapURL(endpoint, target string) string {
	return endpoint + "?url=" + url.QueryEscape(target)
}

// Transport routes every request through the relay endpoint. It is used
// for OAuth token exchanges, where the caller (x/oauth2) builds requests
// against the provider's token URL directly.
type Transport struct {
	Endpoint string
	Base     http.RoundTripper
}

// RoundTrip rewrites the request URL behind the relay and renames the
// Accept header to X-Accept so it survives the forwarding hop.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	wrapped, err := url.Parse(WrapURL(t.Endpoint, req.URL.String()))
	if err != nil {
		return nil, err
	}
	clone := req.Clone(req.Context())
	clone.URL = wrapped
	clone.Host = ""
	if accept := clone.Header.Get("Accept"); accept != "" {
		clone.Header.Set("X-Accept", accept)
		clone.Header.Del("Accept")
	}
	return base.RoundTrip(clone)
}
