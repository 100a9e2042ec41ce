// Package response parses a raw HTTP response per its declared format,
// checks for embedded API-level errors and extracts the declared fields.
package response

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"skill-engine/internal/errs"
	"skill-engine/internal/pathexpr"
	"skill-engine/internal/skill"
	"skill-engine/internal/template"
	"skill-engine/internal/util"
)

// errorSnippetLimit bounds upstream error bodies carried into results.
const errorSnippetLimit = 500

// Interpreted is the outcome of response interpretation: the parsed
// payload, the extracted field map and the default human-readable output.
type Interpreted struct {
	Payload interface{}
	Fields  map[string]interface{}
	Output  string
}

// Interpret reads the response per format (json, text or binary), fails
// on non-2xx status or a truthy declared error path, and applies the
// extraction precedence: passthrough, text, extract_raw, extract, then
// default raw passthrough.
func Interpret(resp *http.Response, body []byte, format string, spec *skill.ResponseSpec) (*Interpreted, error) {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &errs.UpstreamError{
			Status: resp.StatusCode,
			Msg:    util.Truncate(string(body), errorSnippetLimit),
		}
	}

	var payload interface{}
	switch format {
	case skill.FormatText:
		payload = string(body)
	case skill.FormatBinary:
		payload = base64.StdEncoding.EncodeToString(body)
	default:
		if err := json.Unmarshal(body, &payload); err != nil {
			// A malformed body on a successful status degrades to a raw
			// text wrapper rather than failing the command.
			payload = map[string]interface{}{"result": string(body)}
		}
	}

	if spec != nil && spec.ErrorPath != "" {
		if v, found := pathexpr.Extract(payload, spec.ErrorPath); found && truthy(v) {
			return nil, &errs.UpstreamError{
				Status: resp.StatusCode,
				Msg:    util.Truncate(template.Stringify(v), errorSnippetLimit),
			}
		}
	}

	fields := extractFields(payload, format, spec)
	return &Interpreted{
		Payload: payload,
		Fields:  fields,
		Output:  defaultOutput(fields),
	}, nil
}

func extractFields(payload interface{}, format string, spec *skill.ResponseSpec) map[string]interface{} {
	switch {
	case spec != nil && spec.Passthrough:
		return map[string]interface{}{"raw": payload}
	case format == skill.FormatText:
		return map[string]interface{}{"raw": payload}
	case spec != nil && spec.ExtractRaw != "":
		v, _ := pathexpr.Extract(payload, spec.ExtractRaw)
		return map[string]interface{}{"raw": v}
	case spec != nil && len(spec.Extract) > 0:
		fields := make(map[string]interface{}, len(spec.Extract))
		for name, expr := range spec.Extract {
			if v, found := pathexpr.Extract(payload, expr); found {
				fields[name] = v
			}
		}
		return fields
	default:
		return map[string]interface{}{"raw": payload}
	}
}

// defaultOutput renders the human-readable text: the raw value itself
// when it is a string, otherwise pretty-printed JSON of the field map.
// A declared output template overrides this later.
func defaultOutput(fields map[string]interface{}) string {
	if raw, ok := fields["raw"]; ok && len(fields) == 1 {
		if s, isString := raw.(string); isString {
			return s
		}
		return prettyJSON(raw)
	}
	return prettyJSON(fields)
}

func prettyJSON(v interface{}) string {
	encoded, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return template.Stringify(v)
	}
	return string(encoded)
}

// truthy mirrors the loose truthiness the error path check relies on:
// nil, false, empty string and zero are false, everything else true.
func truthy(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	default:
		return true
	}
}
