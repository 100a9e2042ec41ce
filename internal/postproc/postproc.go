// Package postproc runs the named side-effecting steps a command declares
// after extraction: persisting generated images and accounting API cost.
// The set of kinds is closed; unknown kinds are rejected at catalog load.
package postproc

import (
	"context"
	"encoding/base64"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"skill-engine/internal/errs"
	"skill-engine/internal/logging"
	"skill-engine/internal/pathexpr"
	"skill-engine/internal/skill"
)

// State is the mutable per-invocation context the pipeline operates on.
type State struct {
	RawBody  []byte
	Payload  interface{}
	Fields   map[string]interface{}
	Output   string
	ImageURL string
	Tokens   int
	Cost     decimal.Decimal
}

// Uploader is the binary upload collaborator. An empty URL with nil error
// means the payload was not stored.
type Uploader interface {
	Upload(ctx context.Context, data []byte, filename, mimeType string) (string, error)
}

// Pipeline dispatches declared post-processors over a closed kind set.
type Pipeline struct {
	Uploader Uploader
}

// Run executes each declared step in order, then the implicit image
// auto-detection when no step populated an image URL. Any discovered
// image URL is injected into the field map as image_url.
func (p *Pipeline) Run(ctx context.Context, refs []skill.PostProcessorRef, spec *skill.ResponseSpec, st *State) error {
	for _, ref := range refs {
		switch ref.Kind {
		case skill.PostUploadImage:
			p.uploadImage(ctx, ref.Config, st)
		case skill.PostEstimateCost:
			estimateCost(ref.Config, st)
		default:
			// Catalog validation rejects unknown kinds; failing here
			// keeps a hand-built command from silently no-opping.
			return errs.Configf("unknown post-processor kind '%s'", ref.Kind)
		}
	}

	if st.ImageURL == "" && spec != nil && spec.ImageField != "" {
		p.detectImage(ctx, spec.ImageField, st)
	}
	if st.ImageURL != "" && st.Fields != nil {
		st.Fields["image_url"] = st.ImageURL
	}
	return nil
}

// uploadImage locates a base64 image in the configured response field
// (falling back to the inline content-parts scan) and hands the bytes to
// the upload collaborator. Upload failures degrade to a data URI rather
// than failing the command.
func (p *Pipeline) uploadImage(ctx context.Context, cfg map[string]interface{}, st *State) {
	mimeType := configString(cfg, "mime", "image/png")
	encoded := ""
	if field := configString(cfg, "field", ""); field != "" {
		if v, found := pathexpr.Extract(st.Payload, field); found {
			encoded, _ = v.(string)
		}
	}
	if encoded == "" {
		encoded, mimeType = scanContentParts(st.Payload, mimeType)
	}
	if encoded == "" {
		logging.Logf(logging.Debug, "upload_image: no image payload found in response")
		return
	}
	st.ImageURL = p.store(ctx, encoded, mimeType)
}

// detectImage handles the response-level image_field hint: direct URLs
// and data URIs pass through, anything else is treated as base64 data.
func (p *Pipeline) detectImage(ctx context.Context, field string, st *State) {
	v, found := pathexpr.Extract(st.Payload, field)
	if !found {
		return
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return
	}
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "data:") {
		st.ImageURL = s
		return
	}
	st.ImageURL = p.store(ctx, s, "image/png")
}

// store uploads decoded base64 image data and returns the public URL, or
// a data URI when the collaborator declines or fails.
func (p *Pipeline) store(ctx context.Context, encoded, mimeType string) string {
	if idx := strings.Index(encoded, ";base64,"); strings.HasPrefix(encoded, "data:") && idx >= 0 {
		mimeType = encoded[len("data:"):idx]
		encoded = encoded[idx+len(";base64,"):]
	}
	dataURI := "data:" + mimeType + ";base64," + encoded

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		logging.Logf(logging.Warning, "upload_image: payload is not valid base64: %v", err)
		return ""
	}
	if p.Uploader == nil {
		return dataURI
	}
	url, err := p.Uploader.Upload(ctx, data, "skill-image"+extensionFor(mimeType), mimeType)
	if err != nil {
		logging.Logf(logging.Warning, "upload_image: upload failed, falling back to data URI: %v", err)
		return dataURI
	}
	if url == "" {
		return dataURI
	}
	return url
}

// scanContentParts is the provider-specific fallback for inline image
// data: it walks the candidates.*.content.parts.*.inline_data shape used
// by one provider family and returns the first base64 payload found.
func scanContentParts(payload interface{}, defaultMime string) (string, string) {
	parts, found := pathexpr.Extract(payload, "candidates.*.content.parts")
	if !found {
		return "", defaultMime
	}
	candidates, ok := parts.([]interface{})
	if !ok {
		return "", defaultMime
	}
	for _, candidateParts := range candidates {
		list, ok := candidateParts.([]interface{})
		if !ok {
			continue
		}
		for _, part := range list {
			inline, found := pathexpr.Extract(part, "inline_data.data")
			if !found {
				continue
			}
			encoded, ok := inline.(string)
			if !ok || encoded == "" {
				continue
			}
			mimeType := defaultMime
			if m, found := pathexpr.Extract(part, "inline_data.mime_type"); found {
				if s, ok := m.(string); ok && s != "" {
					mimeType = s
				}
			}
			return encoded, mimeType
		}
	}
	return "", defaultMime
}

// estimateCost records reported token usage and applies the configured
// flat cost when the API reports none.
func estimateCost(cfg map[string]interface{}, st *State) {
	tokens := reportedTokens(st.RawBody)
	if tokens > 0 {
		st.Tokens = tokens
		if rate, ok := configDecimal(cfg, "cost_per_1k_tokens"); ok {
			st.Cost = st.Cost.Add(rate.Mul(decimal.NewFromInt(int64(tokens))).Div(decimal.NewFromInt(1000)))
		}
		return
	}
	if flat, ok := configDecimal(cfg, "flat_cost"); ok {
		st.Cost = st.Cost.Add(flat)
	}
}

// reportedTokens probes the usual usage shapes in the raw body.
func reportedTokens(raw []byte) int {
	if len(raw) == 0 {
		return 0
	}
	for _, path := range []string{"usage.total_tokens", "usageMetadata.totalTokenCount"} {
		if v := gjson.GetBytes(raw, path); v.Exists() {
			return int(v.Int())
		}
	}
	in := gjson.GetBytes(raw, "usage.input_tokens")
	out := gjson.GetBytes(raw, "usage.output_tokens")
	if in.Exists() || out.Exists() {
		return int(in.Int() + out.Int())
	}
	return 0
}

func configString(cfg map[string]interface{}, key, fallback string) string {
	if v, ok := cfg[key]; ok {
		if s, isString := v.(string); isString && s != "" {
			return s
		}
	}
	return fallback
}

func configDecimal(cfg map[string]interface{}, key string) (decimal.Decimal, bool) {
	v, ok := cfg[key]
	if !ok {
		return decimal.Zero, false
	}
	switch t := v.(type) {
	case float64:
		return decimal.NewFromFloat(t), true
	case int:
		return decimal.NewFromInt(int64(t)), true
	case string:
		d, err := decimal.NewFromString(t)
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	default:
		return decimal.Zero, false
	}
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".png"
	}
}
