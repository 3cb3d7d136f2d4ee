package types

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// variableNameRe matches valid output variable names. Executors check their
// configured name when the node runs, through
// engine.ExecutionInput.VariableName.
var variableNameRe = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// ValidVariableName reports whether name is a legal output variable name.
func ValidVariableName(name string) bool {
	return variableNameRe.MatchString(name)
}

// Lookup resolves a dotted path against a JSON-value tree rooted at a
// string-keyed map. It returns the value and whether the full path resolved.
// Numeric path segments index into lists.
func Lookup(root map[string]any, path string) (any, bool) {
	if path == "" {
		return nil, false
	}
	var cur any = root
	for _, seg := range strings.Split(path, ".") {
		switch v := cur.(type) {
		case map[string]any:
			next, ok := v[seg]
			if !ok {
				return nil, false
			}
			cur = next
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(v) {
				return nil, false
			}
			cur = v[idx]
		default:
			return nil, false
		}
	}
	return cur, true
}

// Stringify renders a value the way JSON renders scalars: strings are
// emitted bare (no quotes), numbers and booleans via their JSON form, nil as
// the empty string. Composite values fall back to compact JSON.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case json.Number:
		return t.String()
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// StringifyJSON renders a value as pretty-printed JSON for structured
// injection into prompts and request bodies.
func StringifyJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return ""
	}
	return string(b)
}

// Normalize round-trips a value through JSON so that nested structs and
// typed maps collapse into the plain tree (map[string]any, []any, float64,
// string, bool, nil) the dotted-path resolver understands.
func Normalize(v any) any {
	b, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return v
	}
	return out
}
