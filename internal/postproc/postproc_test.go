package postproc

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skill-engine/internal/skill"
)

type fakeUploader struct {
	url      string
	err      error
	calls    int
	lastData []byte
	lastMime string
}

func (f *fakeUploader) Upload(_ context.Context, data []byte, _, mimeType string) (string, error) {
	f.calls++
	f.lastData = data
	f.lastMime = mimeType
	return f.url, f.err
}

func decodePayload(t *testing.T, raw string) interface{} {
	t.Helper()
	var v interface{}
	require.NoError(t, json.Unmarshal([]byte(raw), &v))
	return v
}

func pngBase64() string {
	return base64.StdEncoding.EncodeToString([]byte{0x89, 0x50, 0x4e, 0x47})
}

func TestEstimateCostFlat(t *testing.T) {
	st := &State{RawBody: []byte(`{"data": []}`)}
	refs := []skill.PostProcessorRef{{
		Kind:   skill.PostEstimateCost,
		Config: map[string]interface{}{"flat_cost": 0.04},
	}}

	p := &Pipeline{}
	require.NoError(t, p.Run(context.Background(), refs, nil, st))
	assert.True(t, st.Cost.Equal(decimal.NewFromFloat(0.04)), "cost %s", st.Cost)
	assert.Zero(t, st.Tokens)
}

func TestEstimateCostReportedUsage(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		tokens int
	}{
		{"Total Tokens", `{"usage": {"total_tokens": 150}}`, 150},
		{"Camel Case Metadata", `{"usageMetadata": {"totalTokenCount": 99}}`, 99},
		{"Input Plus Output", `{"usage": {"input_tokens": 40, "output_tokens": 60}}`, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := &State{RawBody: []byte(tt.body)}
			refs := []skill.PostProcessorRef{{
				Kind: skill.PostEstimateCost,
				Config: map[string]interface{}{
					"cost_per_1k_tokens": "0.002",
					"flat_cost":          5.0,
				},
			}}

			p := &Pipeline{}
			require.NoError(t, p.Run(context.Background(), refs, nil, st))
			assert.Equal(t, tt.tokens, st.Tokens)

			// Reported usage uses the per-token rate, never the flat cost.
			rate := decimal.RequireFromString("0.002")
			want := rate.Mul(decimal.NewFromInt(int64(tt.tokens))).Div(decimal.NewFromInt(1000))
			assert.True(t, st.Cost.Equal(want), "cost %s want %s", st.Cost, want)
		})
	}
}

func TestEstimateCostNoConfigNoCost(t *testing.T) {
	st := &State{RawBody: []byte(`{"usage": {"total_tokens": 10}}`)}
	refs := []skill.PostProcessorRef{{Kind: skill.PostEstimateCost}}

	p := &Pipeline{}
	require.NoError(t, p.Run(context.Background(), refs, nil, st))
	assert.Equal(t, 10, st.Tokens)
	assert.True(t, st.Cost.IsZero())
}

func TestUploadImageFromField(t *testing.T) {
	encoded := pngBase64()
	st := &State{
		Payload: decodePayload(t, `{"data": [{"b64_json": "`+encoded+`"}]}`),
		Fields:  map[string]interface{}{},
	}
	refs := []skill.PostProcessorRef{{
		Kind:   skill.PostUploadImage,
		Config: map[string]interface{}{"field": "data.0.b64_json"},
	}}

	up := &fakeUploader{url: "https://cdn.example/i.png"}
	p := &Pipeline{Uploader: up}
	require.NoError(t, p.Run(context.Background(), refs, nil, st))

	assert.Equal(t, 1, up.calls)
	assert.Equal(t, []byte{0x89, 0x50, 0x4e, 0x47}, up.lastData)
	assert.Equal(t, "image/png", up.lastMime)
	assert.Equal(t, "https://cdn.example/i.png", st.ImageURL)
	assert.Equal(t, "https://cdn.example/i.png", st.Fields["image_url"])
}

func TestUploadImageFallsBackToDataURI(t *testing.T) {
	encoded := pngBase64()
	payload := decodePayload(t, `{"image": "`+encoded+`"}`)
	refs := []skill.PostProcessorRef{{
		Kind:   skill.PostUploadImage,
		Config: map[string]interface{}{"field": "image"},
	}}

	tests := []struct {
		name     string
		uploader Uploader
	}{
		{"Upload Error", &fakeUploader{err: errors.New("boom")}},
		{"Empty URL", &fakeUploader{}},
		{"No Uploader", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := &State{Payload: payload, Fields: map[string]interface{}{}}
			p := &Pipeline{Uploader: tt.uploader}
			require.NoError(t, p.Run(context.Background(), refs, nil, st))
			assert.Equal(t, "data:image/png;base64,"+encoded, st.ImageURL)
		})
	}
}

func TestUploadImageInvalidBase64(t *testing.T) {
	st := &State{
		Payload: decodePayload(t, `{"image": "not-base64!!"}`),
		Fields:  map[string]interface{}{},
	}
	refs := []skill.PostProcessorRef{{
		Kind:   skill.PostUploadImage,
		Config: map[string]interface{}{"field": "image"},
	}}

	up := &fakeUploader{url: "https://cdn.example/i.png"}
	p := &Pipeline{Uploader: up}
	require.NoError(t, p.Run(context.Background(), refs, nil, st))
	assert.Zero(t, up.calls)
	assert.Empty(t, st.ImageURL)
}

func TestUploadImageContentPartsFallback(t *testing.T) {
	encoded := pngBase64()
	st := &State{
		Payload: decodePayload(t, `{
			"candidates": [{
				"content": {"parts": [
					{"text": "caption"},
					{"inline_data": {"mime_type": "image/webp", "data": "`+encoded+`"}}
				]}
			}]
		}`),
		Fields: map[string]interface{}{},
	}
	refs := []skill.PostProcessorRef{{Kind: skill.PostUploadImage}}

	up := &fakeUploader{url: "https://cdn.example/i.webp"}
	p := &Pipeline{Uploader: up}
	require.NoError(t, p.Run(context.Background(), refs, nil, st))
	assert.Equal(t, "image/webp", up.lastMime)
	assert.Equal(t, "https://cdn.example/i.webp", st.ImageURL)
}

func TestUploadImageNoPayload(t *testing.T) {
	st := &State{Payload: decodePayload(t, `{"text": "nothing here"}`), Fields: map[string]interface{}{}}
	refs := []skill.PostProcessorRef{{Kind: skill.PostUploadImage}}

	up := &fakeUploader{url: "https://cdn.example/i.png"}
	p := &Pipeline{Uploader: up}
	require.NoError(t, p.Run(context.Background(), refs, nil, st))
	assert.Zero(t, up.calls)
	assert.Empty(t, st.ImageURL)
}

func TestDetectImage(t *testing.T) {
	encoded := pngBase64()
	spec := &skill.ResponseSpec{ImageField: "data.0.url"}

	tests := []struct {
		name     string
		body     string
		uploader *fakeUploader
		expected string
	}{
		{
			"Direct URL Passes Through",
			`{"data": [{"url": "https://img.example/x.png"}]}`,
			&fakeUploader{url: "unused"},
			"https://img.example/x.png",
		},
		{
			"Data URI Passes Through",
			`{"data": [{"url": "data:image/png;base64,` + encoded + `"}]}`,
			&fakeUploader{url: "unused"},
			"data:image/png;base64," + encoded,
		},
		{
			"Base64 Data Uploads",
			`{"data": [{"url": "` + encoded + `"}]}`,
			&fakeUploader{url: "https://cdn.example/i.png"},
			"https://cdn.example/i.png",
		},
		{
			"Missing Field",
			`{"data": []}`,
			&fakeUploader{url: "unused"},
			"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := &State{Payload: decodePayload(t, tt.body), Fields: map[string]interface{}{}}
			p := &Pipeline{Uploader: tt.uploader}
			require.NoError(t, p.Run(context.Background(), nil, spec, st))
			assert.Equal(t, tt.expected, st.ImageURL)
		})
	}
}

func TestDetectImageSkippedWhenAlreadySet(t *testing.T) {
	st := &State{
		Payload:  decodePayload(t, `{"data": [{"url": "https://img.example/other.png"}]}`),
		Fields:   map[string]interface{}{},
		ImageURL: "https://cdn.example/already.png",
	}
	p := &Pipeline{}
	require.NoError(t, p.Run(context.Background(), nil, &skill.ResponseSpec{ImageField: "data.0.url"}, st))
	assert.Equal(t, "https://cdn.example/already.png", st.ImageURL)
	assert.Equal(t, "https://cdn.example/already.png", st.Fields["image_url"])
}

func TestRunUnknownKind(t *testing.T) {
	p := &Pipeline{}
	err := p.Run(context.Background(), []skill.PostProcessorRef{{Kind: "mystery"}}, nil, &State{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown post-processor kind 'mystery'")
}

func TestStoreStripsDataURIPrefix(t *testing.T) {
	encoded := pngBase64()
	st := &State{
		Payload: decodePayload(t, `{"image": "data:image/webp;base64,`+encoded+`"}`),
		Fields:  map[string]interface{}{},
	}
	refs := []skill.PostProcessorRef{{
		Kind:   skill.PostUploadImage,
		Config: map[string]interface{}{"field": "image"},
	}}

	up := &fakeUploader{url: "https://cdn.example/i.webp"}
	p := &Pipeline{Uploader: up}
	require.NoError(t, p.Run(context.Background(), refs, nil, st))
	assert.Equal(t, "image/webp", up.lastMime)
	assert.Equal(t, []byte{0x89, 0x50, 0x4e, 0x47}, up.lastData)
}
