package durable

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// MemoStore keeps step results per run so a re-entered run replays from its
// last successful step. Results live for the lifetime of the store; callers
// drop a run's entries once it completes.
type MemoStore struct {
	mu     sync.Mutex
	runs   map[string]map[string]any
	logger *zap.Logger
}

// NewMemoStore creates an empty memo store.
func NewMemoStore(logger *zap.Logger) *MemoStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoStore{
		runs:   make(map[string]map[string]any),
		logger: logger.With(zap.String("component", "durable")),
	}
}

// ForRun returns the Step handle scoped to one run.
func (s *MemoStore) ForRun(runID string) Step {
	return &runStep{store: s, runID: runID}
}

// Forget drops all memoised results of a run.
func (s *MemoStore) Forget(runID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.runs, runID)
}

func (s *MemoStore) lookup(runID, name string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[runID]
	if !ok {
		return nil, false
	}
	v, ok := run[name]
	return v, ok
}

func (s *MemoStore) remember(runID, name string, v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[runID]
	if !ok {
		run = make(map[string]any)
		s.runs[runID] = run
	}
	run[name] = v
}

type runStep struct {
	store *MemoStore
	runID string
}

func (r *runStep) Run(ctx context.Context, name string, fn Fn) (any, error) {
	if v, ok := r.store.lookup(r.runID, name); ok {
		r.store.logger.Debug("step memoised, skipping",
			zap.String("run_id", r.runID),
			zap.String("step", name),
		)
		return v, nil
	}

	v, err := fn(ctx)
	if err != nil {
		return nil, err
	}
	r.store.remember(r.runID, name, v)
	return v, nil
}
