package util

import "strings"

// Truncate returns s cut to at most max runes, with an ellipsis appended
// when anything was dropped. Useful for error messages and logging.
func Truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

// Snippet returns a short prefix of a byte slice for log output.
func Snippet(b []byte) string {
	return Truncate(string(b), 200)
}

// LooksLikeJSON reports whether a string starts and ends with characters
// typical of a JSON object or array. It is a heuristic and does not
// validate the structure.
func LooksLikeJSON(s string) bool {
	trimmed := strings.TrimSpace(s)
	return (strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}")) ||
		(strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]"))
}
