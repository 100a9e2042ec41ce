// Package pathexpr evaluates the small query language used to pull values
// out of nested response data. Expressions are dotted segments over
// objects and arrays:
//
//	a.b.c       object keys
//	a.0.b       numeric array index (a[0].b is equivalent)
//	a.*.b       map the remaining path over every array element
//	a.?.b       value at the first array element where the rest resolves
//
// A missing intermediate key yields "not found", never an error.
package pathexpr

import (
	"strconv"
	"strings"
)

// Extract evaluates expr against data. The second return value is false
// when the path does not resolve; Extract never returns an error.
func Extract(data interface{}, expr string) (interface{}, bool) {
	if expr == "" {
		return data, data != nil
	}
	return eval(data, splitSegments(expr))
}

// splitSegments normalizes bracket indices (a[0].b -> a.0.b) and splits
// the expression into segments.
func splitSegments(expr string) []string {
	normalized := strings.NewReplacer("[", ".", "]", "").Replace(expr)
	parts := strings.Split(normalized, ".")
	segs := parts[:0]
	for _, p := range parts {
		if p != "" {
			segs = append(segs, p)
		}
	}
	return segs
}

func eval(data interface{}, segs []string) (interface{}, bool) {
	if len(segs) == 0 {
		return data, true
	}
	if data == nil {
		return nil, false
	}
	seg, rest := segs[0], segs[1:]

	switch seg {
	case "*":
		arr, ok := data.([]interface{})
		if !ok {
			return nil, false
		}
		// Trailing wildcard returns the whole array.
		if len(rest) == 0 {
			return arr, true
		}
		results := make([]interface{}, 0, len(arr))
		for _, el := range arr {
			if v, found := eval(el, rest); found {
				results = append(results, v)
			}
		}
		return results, true
	case "?":
		arr, ok := data.([]interface{})
		if !ok {
			return nil, false
		}
		// Trailing first-match returns the whole first element.
		if len(rest) == 0 {
			if len(arr) == 0 {
				return nil, false
			}
			return arr[0], true
		}
		for _, el := range arr {
			if v, found := eval(el, rest); found {
				return v, true
			}
		}
		return nil, false
	}

	if m, ok := data.(map[string]interface{}); ok {
		v, present := m[seg]
		if !present {
			return nil, false
		}
		return eval(v, rest)
	}

	if arr, ok := data.([]interface{}); ok {
		idx, err := strconv.Atoi(seg)
		if err != nil || idx < 0 || idx >= len(arr) {
			return nil, false
		}
		return eval(arr[idx], rest)
	}

	return nil, false
}
