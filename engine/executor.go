package engine

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/flowgrid-io/flowgrid/channel"
	"github.com/flowgrid-io/flowgrid/durable"
	"github.com/flowgrid-io/flowgrid/graph"
	"github.com/flowgrid-io/flowgrid/types"
)

// ExecutionInput is everything an executor receives for one node.
type ExecutionInput struct {
	// RunID identifies the enclosing run.
	RunID string
	// OrgID is the owning organization; all persisted reads are scoped by it.
	OrgID string
	// Node is the node under execution; NodeConfig is its free-form data map.
	Node graph.Node
	// Workflow is the full stored graph. Executors that discover sub-nodes
	// read connections from it; most ignore it.
	Workflow *graph.Workflow
	// Context is the current run context. Treat as read-only.
	Context RunContext
	// Step wraps all side effects so retries of the run do not repeat them.
	Step durable.Step
	// Publish emits status events onto the run's topic.
	Publish channel.Publisher
	// Logger is scoped to the run.
	Logger *zap.Logger
}

// NodeConfig returns the node's configuration map, never nil.
func (in *ExecutionInput) NodeConfig() map[string]any {
	if in.Node.Data == nil {
		return map[string]any{}
	}
	return in.Node.Data
}

// ConfigString reads a string field from the node configuration.
func (in *ExecutionInput) ConfigString(key string) string {
	s, _ := in.NodeConfig()[key].(string)
	return s
}

// RequireConfigString reads a required string field, failing with a
// non-retriable configuration error naming the node kind and the field.
func (in *ExecutionInput) RequireConfigString(key string) (string, error) {
	s := in.ConfigString(key)
	if s == "" {
		return "", types.NewErrorf(types.ErrNodeConfig,
			"%s node missing required field: %s", in.Node.Kind, key).
			WithNodeID(in.Node.ID)
	}
	return s, nil
}

// VariableName reads the node's configured output variable name, validating
// it against the identifier grammar.
func (in *ExecutionInput) VariableName(fallback string) (string, error) {
	name := in.ConfigString("variableName")
	if name == "" {
		name = fallback
	}
	if !types.ValidVariableName(name) {
		return "", types.NewErrorf(types.ErrBadVariableName,
			"%s node variable name %q is not a valid identifier", in.Node.Kind, name).
			WithNodeID(in.Node.ID)
	}
	return name, nil
}

// Executor implements one node kind.
type Executor interface {
	Execute(ctx context.Context, in *ExecutionInput) (RunContext, error)
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, in *ExecutionInput) (RunContext, error)

// Execute implements Executor.
func (f ExecutorFunc) Execute(ctx context.Context, in *ExecutionInput) (RunContext, error) {
	return f(ctx, in)
}

// Registry maps node kinds to executors.
type Registry struct {
	mu        sync.RWMutex
	executors map[graph.NodeKind]Executor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{executors: make(map[graph.NodeKind]Executor)}
}

// Register binds a kind to its executor, replacing any previous binding.
func (r *Registry) Register(kind graph.NodeKind, ex Executor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.executors[kind] = ex
}

// Get returns the executor for a kind.
func (r *Registry) Get(kind graph.NodeKind) (Executor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ex, ok := r.executors[kind]
	return ex, ok
}

// Kinds lists the registered kinds.
func (r *Registry) Kinds() []graph.NodeKind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]graph.NodeKind, 0, len(r.executors))
	for k := range r.executors {
		kinds = append(kinds, k)
	}
	return kinds
}
