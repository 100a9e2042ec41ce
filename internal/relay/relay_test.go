package relay

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapURL(t *testing.T) {
	wrapped := WrapURL("https://relay.example/fetch", "https://api.example/v1?q=a b")
	assert.Equal(t, "https://relay.example/fetch?url=https%3A%2F%2Fapi.example%2Fv1%3Fq%3Da+b", wrapped)
}

func TestTransportRewritesThroughRelay(t *testing.T) {
	var gotURL, gotAccept, gotXAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURL = r.URL.Query().Get("url")
		gotAccept = r.Header.Get("Accept")
		gotXAccept = r.Header.Get("X-Accept")
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	client := &http.Client{Transport: &Transport{Endpoint: srv.URL + "/fetch"}}
	req, err := http.NewRequest(http.MethodGet, "https://token.example/oauth/token", nil)
	require.NoError(t, err)
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, "ok", string(body))
	assert.Equal(t, "https://token.example/oauth/token", gotURL)
	assert.Empty(t, gotAccept)
	assert.Equal(t, "application/json", gotXAccept)
}

func TestGatewayExec(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var payload map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "df -h", payload["command"])
		assert.Equal(t, float64(15), payload["timeout"])
		w.Write([]byte(`{"result": "Filesystem ..."}`))
	}))
	defer srv.Close()

	g := &GatewayClient{Endpoint: srv.URL, HTTP: srv.Client()}
	out, err := g.Exec(context.Background(), "df -h", 15*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "Filesystem ...", out)
}

func TestGatewayExecDefaultTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, float64(30), payload["timeout"])
		w.Write([]byte(`{"result": ""}`))
	}))
	defer srv.Close()

	g := &GatewayClient{Endpoint: srv.URL, HTTP: srv.Client()}
	_, err := g.Exec(context.Background(), "true", 0)
	require.NoError(t, err)
}

func TestGatewayExecBareBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("raw output"))
	}))
	defer srv.Close()

	g := &GatewayClient{Endpoint: srv.URL, HTTP: srv.Client()}
	out, err := g.Exec(context.Background(), "true", time.Second)
	require.NoError(t, err)
	assert.Equal(t, "raw output", out)
}

func TestGatewayExecError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": "command not allowed"}`))
	}))
	defer srv.Close()

	g := &GatewayClient{Endpoint: srv.URL, HTTP: srv.Client()}
	_, err := g.Exec(context.Background(), "rm -rf /", time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "command not allowed")
}

func TestGatewayExecNoEndpoint(t *testing.T) {
	g := &GatewayClient{}
	_, err := g.Exec(context.Background(), "true", time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

func TestUpload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1 << 20))
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()

		assert.Equal(t, "img.png", header.Filename)
		assert.Equal(t, "image/png", header.Header.Get("Content-Type"))
		data, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, []byte{1, 2, 3}, data)

		w.Write([]byte(`{"url": "https://cdn.example/img.png"}`))
	}))
	defer srv.Close()

	u := &UploadClient{Endpoint: srv.URL, HTTP: srv.Client()}
	url, err := u.Upload(context.Background(), []byte{1, 2, 3}, "img.png", "image/png")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/img.png", url)
}

func TestUploadDeclined(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"url": null}`))
	}))
	defer srv.Close()

	u := &UploadClient{Endpoint: srv.URL, HTTP: srv.Client()}
	url, err := u.Upload(context.Background(), []byte{1}, "x.png", "image/png")
	require.NoError(t, err)
	assert.Empty(t, url)
}

func TestUploadNoEndpoint(t *testing.T) {
	u := &UploadClient{}
	url, err := u.Upload(context.Background(), []byte{1}, "x.png", "image/png")
	require.NoError(t, err)
	assert.Empty(t, url)
}

func TestUploadServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInsufficientStorage)
		w.Write([]byte("disk full"))
	}))
	defer srv.Close()

	u := &UploadClient{Endpoint: srv.URL, HTTP: srv.Client()}
	_, err := u.Upload(context.Background(), []byte{1}, "x.png", "image/png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "507")
}
