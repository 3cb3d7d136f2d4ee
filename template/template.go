// Package template compiles user strings that reference previous-node
// outputs into concrete strings by substituting from the run context.
//
// Two forms are recognised: {{path.to.value}} substitutes the scalar at the
// dotted path, and {{json path}} injects the subtree as pretty-printed JSON.
// Unknown paths evaluate to the empty string. Templates never execute code
// and nothing is HTML-escaped; callers feed the output into JSON bodies and
// prompts, not HTML.
package template

import (
	"regexp"
	"strings"

	"github.com/flowgrid-io/flowgrid/types"
)

var placeholderRe = regexp.MustCompile(`\{\{\s*([^{}]+?)\s*\}\}`)

// Evaluate substitutes every placeholder in input against ctx.
func Evaluate(input string, ctx map[string]any) string {
	if !strings.Contains(input, "{{") {
		return input
	}
	return placeholderRe.ReplaceAllStringFunc(input, func(match string) string {
		inner := strings.TrimSpace(placeholderRe.FindStringSubmatch(match)[1])

		if path, ok := strings.CutPrefix(inner, "json "); ok {
			v, found := types.Lookup(ctx, strings.TrimSpace(path))
			if !found {
				return ""
			}
			return types.StringifyJSON(v)
		}

		v, found := types.Lookup(ctx, inner)
		if !found {
			return ""
		}
		return types.Stringify(v)
	})
}

// EvaluateMap substitutes placeholders in every string leaf of a
// configuration map, descending into nested maps and lists. Non-string
// leaves pass through untouched.
func EvaluateMap(cfg map[string]any, ctx map[string]any) map[string]any {
	out := make(map[string]any, len(cfg))
	for k, v := range cfg {
		out[k] = evaluateValue(v, ctx)
	}
	return out
}

func evaluateValue(v any, ctx map[string]any) any {
	switch t := v.(type) {
	case string:
		return Evaluate(t, ctx)
	case map[string]any:
		return EvaluateMap(t, ctx)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = evaluateValue(item, ctx)
		}
		return out
	default:
		return v
	}
}
