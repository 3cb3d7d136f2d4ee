package engine

// RunContext is the value context threaded through one run: a mapping from
// variable name to the node result stored under it. Executors never mutate
// a context in place; they derive new ones.
type RunContext map[string]any

// Clone returns a shallow copy of the context.
func (c RunContext) Clone() RunContext {
	out := make(RunContext, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// With returns a new context extended with one binding. The receiver is
// untouched.
func (c RunContext) With(key string, value any) RunContext {
	out := c.Clone()
	out[key] = value
	return out
}

// Merge unions overlay onto base into a fresh context. Keys in overlay win.
// Both inputs are untouched, so the result is always a superset of base
// plus overlay.
func Merge(base, overlay RunContext) RunContext {
	out := base.Clone()
	for k, v := range overlay {
		out[k] = v
	}
	return out
}

// AsMap exposes the context as the plain map the template evaluator and
// dotted-path resolver consume.
func (c RunContext) AsMap() map[string]any {
	return map[string]any(c)
}
