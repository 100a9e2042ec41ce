// Package template implements the {name} placeholder language used by
// skill definitions for request paths, query values, headers, bodies and
// output text. Unlike text/template, missing variables never error: they
// render as the empty string, matching the skill format's contract.
package template

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

var tokenRe = regexp.MustCompile(`\{([A-Za-z0-9_]+)\}`)

// Interpolate replaces every {name} token in s with the stringified value
// of vars[name]. Strings with no tokens pass through unchanged.
func Interpolate(s string, vars map[string]interface{}) string {
	if !strings.Contains(s, "{") {
		return s
	}
	return tokenRe.ReplaceAllStringFunc(s, func(token string) string {
		name := token[1 : len(token)-1]
		v, ok := vars[name]
		if !ok {
			return ""
		}
		return Stringify(v)
	})
}

// InterpolateValue walks an arbitrary template value and interpolates
// every string leaf, preserving structure for non-string leaves. Used to
// build request bodies from declarative body templates.
func InterpolateValue(v interface{}, vars map[string]interface{}) interface{} {
	switch t := v.(type) {
	case string:
		return Interpolate(t, vars)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, el := range t {
			out[i] = InterpolateValue(el, vars)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, el := range t {
			out[k] = InterpolateValue(el, vars)
		}
		return out
	default:
		return v
	}
}

// Stringify renders a variable value for substitution: arrays join with
// ", ", objects JSON-encode, nil renders empty, numbers drop a trailing
// zero fraction.
func Stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case json.Number:
		return t.String()
	case []interface{}:
		parts := make([]string, len(t))
		for i, el := range t {
			parts[i] = Stringify(el)
		}
		return strings.Join(parts, ", ")
	default:
		encoded, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(encoded)
	}
}
