package engine

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/flowgrid-io/flowgrid/channel"
	"github.com/flowgrid-io/flowgrid/durable"
	"github.com/flowgrid-io/flowgrid/graph"
	"github.com/flowgrid-io/flowgrid/internal/metrics"
	"github.com/flowgrid-io/flowgrid/types"
)

// RunSpec describes one run to execute.
type RunSpec struct {
	// RunID identifies the run; durable step names and the status topic are
	// derived from it.
	RunID string
	// Workflow is the stored graph to execute.
	Workflow *graph.Workflow
	// Initial seeds the run context, e.g. from trigger payloads.
	Initial RunContext
	// Step is the durable step handle for this run.
	Step durable.Step
}

// Driver executes runs: plan, then one node at a time in plan order. Within
// a run no two executors are ever live concurrently; across runs executions
// are independent.
type Driver struct {
	planner  *graph.Planner
	registry *Registry
	bus      channel.Publisher
	metrics  *metrics.Collector
	logger   *zap.Logger
}

// NewDriver creates a run driver. metrics may be nil.
func NewDriver(planner *graph.Planner, registry *Registry, bus channel.Publisher, collector *metrics.Collector, logger *zap.Logger) *Driver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Driver{
		planner:  planner,
		registry: registry,
		bus:      bus,
		metrics:  collector,
		logger:   logger.With(zap.String("component", "driver")),
	}
}

var tracer trace.Tracer = otel.Tracer("github.com/flowgrid-io/flowgrid/engine")

// Run executes the workflow's plan and returns the final context. Plan
// errors surface before any status event; node failures surface after the
// offending node's terminal error event, verbatim, so the durable runtime
// sees them.
func (d *Driver) Run(ctx context.Context, spec *RunSpec) (RunContext, error) {
	ctx, span := tracer.Start(ctx, "workflow.run")
	defer span.End()
	span.SetAttributes(
		attribute.String("workflow.id", spec.Workflow.ID),
		attribute.String("run.id", spec.RunID),
	)

	started := time.Now()
	logger := d.logger.With(
		zap.String("workflow_id", spec.Workflow.ID),
		zap.String("run_id", spec.RunID),
	)

	plan, err := d.planner.Plan(spec.Workflow)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		d.metrics.ObserveRun("failed", time.Since(started))
		return nil, err
	}

	runCtx := spec.Initial.Clone()
	logger.Info("run started", zap.Int("plan_size", len(plan)))

	for _, node := range plan {
		next, err := d.runNode(ctx, spec, node, runCtx, logger)
		if err != nil {
			logger.Warn("run failed",
				zap.String("node_id", node.ID),
				zap.String("node_kind", string(node.Kind)),
				zap.Error(err),
			)
			span.SetStatus(codes.Error, err.Error())
			d.metrics.ObserveRun("failed", time.Since(started))
			return nil, err
		}
		runCtx = next
	}

	logger.Info("run completed",
		zap.Int("nodes", len(plan)),
		zap.Duration("duration", time.Since(started)),
	)
	d.metrics.ObserveRun("succeeded", time.Since(started))
	return runCtx, nil
}

func (d *Driver) runNode(ctx context.Context, spec *RunSpec, node graph.Node, runCtx RunContext, logger *zap.Logger) (RunContext, error) {
	ctx, span := tracer.Start(ctx, "workflow.node")
	defer span.End()
	span.SetAttributes(
		attribute.String("node.id", node.ID),
		attribute.String("node.kind", string(node.Kind)),
	)

	started := time.Now()
	d.publish(ctx, spec, node, channel.StatusLoading)

	executor, ok := d.registry.Get(node.Kind)
	if !ok {
		err := types.NewErrorf(types.ErrUnknownNodeKind,
			"no executor registered for node kind %s", node.Kind).
			WithNodeID(node.ID)
		d.publish(ctx, spec, node, channel.StatusError)
		d.metrics.ObserveNode(string(node.Kind), "error", time.Since(started))
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	input := &ExecutionInput{
		RunID:    spec.RunID,
		OrgID:    spec.Workflow.OrgID,
		Node:     node,
		Workflow: spec.Workflow,
		Context:  runCtx,
		Step:     spec.Step,
		Publish:  d.bus,
		Logger:   logger,
	}

	// The whole node executes inside one named durable step: a re-entered
	// run skips nodes that already completed and reuses their results.
	result, err := spec.Step.Run(ctx, durable.ChildName("node", node.ID), func(stepCtx context.Context) (any, error) {
		out, execErr := executor.Execute(stepCtx, input)
		if execErr != nil {
			return nil, execErr
		}
		return out, nil
	})
	if err != nil {
		d.publish(ctx, spec, node, channel.StatusError)
		d.metrics.ObserveNode(string(node.Kind), "error", time.Since(started))
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	// An executor returning nothing keeps the context unchanged; otherwise
	// the returned bindings are unioned in, so the next node's context is
	// always a superset of this node's input.
	next := runCtx
	switch out := result.(type) {
	case nil:
	case RunContext:
		next = Merge(runCtx, out)
	case map[string]any:
		next = Merge(runCtx, RunContext(out))
	}

	d.publish(ctx, spec, node, channel.StatusSuccess)
	d.metrics.ObserveNode(string(node.Kind), "success", time.Since(started))
	logger.Debug("node completed",
		zap.String("node_id", node.ID),
		zap.String("node_kind", string(node.Kind)),
		zap.Duration("duration", time.Since(started)),
	)
	return next, nil
}

func (d *Driver) publish(ctx context.Context, spec *RunSpec, node graph.Node, status channel.Status) {
	if d.bus == nil {
		return
	}
	ev := channel.Event{
		WorkflowRunID: spec.RunID,
		NodeID:        node.ID,
		NodeKind:      string(node.Kind),
		Status:        status,
	}
	if err := d.bus.Publish(ctx, ev); err != nil {
		d.logger.Warn("status publish failed",
			zap.String("node_id", node.ID),
			zap.Error(err),
		)
	}
	d.metrics.ObservePublish(string(status))
}
