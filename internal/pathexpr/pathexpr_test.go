package pathexpr

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, raw string) interface{} {
	t.Helper()
	var v interface{}
	require.NoError(t, json.Unmarshal([]byte(raw), &v))
	return v
}

func TestExtract(t *testing.T) {
	data := decode(t, `{
		"a": {"b": {"c": 42}},
		"items": [{"name": "x", "tags": ["t1"]}, {"name": "y"}, {"id": 7}],
		"nums": [10, 20, 30],
		"empty": []
	}`)

	tests := []struct {
		name     string
		expr     string
		expected interface{}
		found    bool
	}{
		{"Dotted Traversal", "a.b.c", float64(42), true},
		{"Numeric Index", "nums.1", float64(20), true},
		{"Bracket Index", "nums[2]", float64(30), true},
		{"Bracket Then Key", "items[0].name", "x", true},
		{"Wildcard Maps Remaining Path", "items.*.name", []interface{}{"x", "y"}, true},
		{"Wildcard On Non-Array", "a.*.c", nil, false},
		{"First Match", "items.?.name", "x", true},
		{"First Match Skips Missing", "items.?.id", float64(7), true},
		{"First Match No Match", "items.?.missing", nil, false},
		{"First Match On Non-Array", "a.?.b", nil, false},
		{"Missing Intermediate Key", "missing.path", nil, false},
		{"Missing Leaf", "a.b.missing", nil, false},
		{"Index Out Of Range", "nums.9", nil, false},
		{"Negative Index", "nums.-1", nil, false},
		{"Trailing Wildcard Returns Array", "nums.*", []interface{}{float64(10), float64(20), float64(30)}, true},
		{"Trailing First Match Returns Element", "nums.?", float64(10), true},
		{"Trailing First Match Empty Array", "empty.?", nil, false},
		{"Trailing Wildcard Empty Array", "empty.*", []interface{}{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, found := Extract(data, tt.expr)
			assert.Equal(t, tt.found, found)
			assert.Equal(t, tt.expected, v)
		})
	}
}

func TestExtractSpecExamples(t *testing.T) {
	data := decode(t, `{"a":[{"b":1},{"b":2}]}`)

	v, found := Extract(data, "a.*.b")
	require.True(t, found)
	assert.Equal(t, []interface{}{float64(1), float64(2)}, v)

	v, found = Extract(data, "a.?.b")
	require.True(t, found)
	assert.Equal(t, float64(1), v)
}

// Dotted traversal is associative: extracting "a" then "b" matches
// extracting "a.b" directly.
func TestExtractAssociativity(t *testing.T) {
	data := decode(t, `{"a": {"b": {"c": [1, 2]}}, "x": {"y": "z"}}`)

	for _, pair := range [][2]string{{"a", "b.c"}, {"a.b", "c"}, {"x", "y"}} {
		inner, found := Extract(data, pair[0])
		require.True(t, found)
		stepwise, foundStepwise := Extract(inner, pair[1])
		direct, foundDirect := Extract(data, pair[0]+"."+pair[1])
		assert.Equal(t, foundDirect, foundStepwise)
		assert.Equal(t, direct, stepwise)
	}
}

func TestExtractNeverPanics(t *testing.T) {
	inputs := []interface{}{
		nil,
		"scalar",
		float64(3),
		decode(t, `{"a": null}`),
		decode(t, `[[[1]]]`),
	}
	exprs := []string{"a.b.c", "*.x", "?.y", "0.0.0.0", "a[5].b", "..", ""}
	for _, data := range inputs {
		for _, expr := range exprs {
			assert.NotPanics(t, func() { Extract(data, expr) }, "expr %q", expr)
		}
	}
}

func TestExtractEmptyExpression(t *testing.T) {
	data := decode(t, `{"a": 1}`)
	v, found := Extract(data, "")
	assert.True(t, found)
	assert.Equal(t, data, v)

	_, found = Extract(nil, "")
	assert.False(t, found)
}
