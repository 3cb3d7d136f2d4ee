// Package durable defines the durable-step capability the engine consumes.
//
// A durable step is a named computation whose success is memoised across
// retries of the enclosing run: a re-entered run skips steps that already
// succeeded and receives their stored results. The host runtime provides the
// real implementation; MemoStore is an in-memory one for embedded use and
// tests.
package durable

import "context"

// Fn is the unit of work a step wraps. Executors must perform all side
// effects inside step functions so provider retries do not duplicate them.
type Fn func(ctx context.Context) (any, error)

// Step runs named computations with at-most-once-on-success semantics
// within one run.
type Step interface {
	// Run executes fn under the given name, unless a prior attempt of this
	// run already completed it, in which case the memoised result is
	// returned without invoking fn.
	Run(ctx context.Context, name string, fn Fn) (any, error)
}

// ChildName namespaces a nested step under its parent so that two nodes
// wrapping identically named inner steps never collide.
func ChildName(parent, name string) string {
	return parent + "/" + name
}
