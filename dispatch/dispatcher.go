// Package dispatch turns workflows/execute.workflow events into runs: it
// loads the stored graph, records the run, and drives it to completion.
// Runs are independent of each other and may proceed in parallel; each owns
// its context and its status topic.
package dispatch

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/flowgrid-io/flowgrid/durable"
	"github.com/flowgrid-io/flowgrid/engine"
	"github.com/flowgrid-io/flowgrid/store"
)

// EventExecuteWorkflow is the message name that invokes a run.
const EventExecuteWorkflow = "workflows/execute.workflow"

// ExecuteEvent is the payload of an execute message. InitialData seeds the
// run context.
type ExecuteEvent struct {
	WorkflowID  string         `json:"workflowId"`
	InitialData map[string]any `json:"initialData,omitempty"`
}

// Dispatcher executes workflows from events.
type Dispatcher struct {
	store  *store.Store
	driver *engine.Driver
	steps  *durable.MemoStore
	group  *errgroup.Group
	logger *zap.Logger
}

// NewDispatcher creates a dispatcher. maxParallel bounds how many runs
// proceed concurrently; zero means unbounded.
func NewDispatcher(st *store.Store, driver *engine.Driver, steps *durable.MemoStore, maxParallel int, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	group := &errgroup.Group{}
	if maxParallel > 0 {
		group.SetLimit(maxParallel)
	}
	return &Dispatcher{
		store:  st,
		driver: driver,
		steps:  steps,
		group:  group,
		logger: logger.With(zap.String("component", "dispatch")),
	}
}

// ExecuteSync runs a workflow to completion and returns the run id and
// final context.
func (d *Dispatcher) ExecuteSync(ctx context.Context, ev ExecuteEvent) (string, engine.RunContext, error) {
	if ev.WorkflowID == "" {
		return "", nil, fmt.Errorf("workflowId is required")
	}

	wf, err := d.store.LoadWorkflow(ctx, ev.WorkflowID)
	if err != nil {
		return "", nil, err
	}

	runID := uuid.NewString()
	run := &store.WorkflowRun{ID: runID, WorkflowID: wf.ID, OrgID: wf.OrgID}
	if err := d.store.CreateRun(ctx, run); err != nil {
		return "", nil, fmt.Errorf("record run: %w", err)
	}

	spec := &engine.RunSpec{
		RunID:    runID,
		Workflow: wf,
		Initial:  engine.RunContext(ev.InitialData),
		Step:     d.steps.ForRun(runID),
	}

	out, runErr := d.driver.Run(ctx, spec)
	d.steps.Forget(runID)

	if runErr != nil {
		if err := d.store.FinishRun(ctx, runID, store.RunStatusFailed, runErr.Error()); err != nil {
			d.logger.Warn("record run failure failed", zap.String("run_id", runID), zap.Error(err))
		}
		return runID, nil, runErr
	}
	if err := d.store.FinishRun(ctx, runID, store.RunStatusSucceeded, ""); err != nil {
		d.logger.Warn("record run success failed", zap.String("run_id", runID), zap.Error(err))
	}
	return runID, out, nil
}

// Dispatch starts a run in the background and returns its id immediately.
func (d *Dispatcher) Dispatch(ctx context.Context, ev ExecuteEvent) (string, error) {
	if ev.WorkflowID == "" {
		return "", fmt.Errorf("workflowId is required")
	}

	// Load and record before returning so the caller can subscribe to the
	// status topic without racing the run.
	wf, err := d.store.LoadWorkflow(ctx, ev.WorkflowID)
	if err != nil {
		return "", err
	}
	runID := uuid.NewString()
	run := &store.WorkflowRun{ID: runID, WorkflowID: wf.ID, OrgID: wf.OrgID}
	if err := d.store.CreateRun(ctx, run); err != nil {
		return "", fmt.Errorf("record run: %w", err)
	}

	d.group.Go(func() error {
		runCtx := context.WithoutCancel(ctx)
		spec := &engine.RunSpec{
			RunID:    runID,
			Workflow: wf,
			Initial:  engine.RunContext(ev.InitialData),
			Step:     d.steps.ForRun(runID),
		}

		_, runErr := d.driver.Run(runCtx, spec)
		d.steps.Forget(runID)

		status, errMsg := store.RunStatusSucceeded, ""
		if runErr != nil {
			status, errMsg = store.RunStatusFailed, runErr.Error()
		}
		if err := d.store.FinishRun(runCtx, runID, status, errMsg); err != nil {
			d.logger.Warn("record run outcome failed", zap.String("run_id", runID), zap.Error(err))
		}
		// Run failures are recorded, not propagated: one bad run must not
		// poison the worker group.
		return nil
	})
	return runID, nil
}

// Wait blocks until all background runs finish.
func (d *Dispatcher) Wait() error {
	return d.group.Wait()
}
