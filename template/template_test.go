package template

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext() map[string]any {
	return map[string]any{
		"r": map[string]any{
			"httpResponse": map[string]any{
				"status": float64(200),
				"data":   map[string]any{"id": "abc", "count": float64(3)},
			},
		},
		"name": "Ada",
	}
}

func TestEvaluate(t *testing.T) {
	ctx := testContext()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"no placeholders", "plain text", "plain text"},
		{"scalar string", `{"id":"{{r.httpResponse.data.id}}"}`, `{"id":"abc"}`},
		{"scalar number", "status was {{r.httpResponse.status}}", "status was 200"},
		{"unknown path is empty", "x={{r.missing.path}}", "x="},
		{"whitespace tolerated", "{{  name  }}", "Ada"},
		{"multiple placeholders", "{{name}}: {{r.httpResponse.data.count}}", "Ada: 3"},
		{"no html escaping", "{{name}} <b>&</b>", "Ada <b>&</b>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Evaluate(tt.input, ctx))
		})
	}
}

func TestEvaluateJSONForm(t *testing.T) {
	ctx := testContext()

	out := Evaluate("{{json r.httpResponse.data}}", ctx)
	var parsed map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &parsed))
	assert.Equal(t, "abc", parsed["id"])
	assert.Contains(t, out, "\n", "json form is pretty-printed")

	assert.Equal(t, "", Evaluate("{{json r.missing}}", ctx))
}

func TestEvaluateMap(t *testing.T) {
	ctx := testContext()
	cfg := map[string]any{
		"url": "https://api/{{r.httpResponse.data.id}}",
		"headers": map[string]any{
			"X-Name": "{{name}}",
		},
		"retries": 3,
		"tags":    []any{"{{name}}", "static"},
	}

	out := EvaluateMap(cfg, ctx)
	assert.Equal(t, "https://api/abc", out["url"])
	assert.Equal(t, "Ada", out["headers"].(map[string]any)["X-Name"])
	assert.Equal(t, 3, out["retries"])
	assert.Equal(t, []any{"Ada", "static"}, out["tags"].([]any))

	// Input map is not mutated.
	assert.Equal(t, "https://api/{{r.httpResponse.data.id}}", cfg["url"])
}
