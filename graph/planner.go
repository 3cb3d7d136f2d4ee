package graph

import (
	"sort"

	"go.uber.org/zap"

	"github.com/flowgrid-io/flowgrid/types"
)

// Planner selects the reachable main-flow sub-graph of a workflow and orders
// it for execution.
type Planner struct {
	logger *zap.Logger
}

// NewPlanner creates a planner.
func NewPlanner(logger *zap.Logger) *Planner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Planner{logger: logger.With(zap.String("component", "planner"))}
}

// Plan returns the topologically ordered list of nodes to execute. A workflow
// without triggers plans to an empty list. A cycle among the reachable
// main-flow edges fails with a PLAN_CYCLE error before any node runs.
func (p *Planner) Plan(w *Workflow) ([]Node, error) {
	// Only main-flow edges participate in scheduling. Sub-node edges are
	// consumed by individual executors at run time.
	adj := make(map[string][]string)
	for _, c := range w.Connections {
		if c.IsMain() {
			adj[c.FromNodeID] = append(adj[c.FromNodeID], c.ToNodeID)
		}
	}

	nodeByID := make(map[string]Node, len(w.Nodes))
	for _, n := range w.Nodes {
		nodeByID[n.ID] = n
	}

	// Breadth-first reachability from every trigger node.
	reachable := make(map[string]bool)
	var queue []string
	for _, n := range w.Nodes {
		if n.Kind.IsTrigger() {
			reachable[n.ID] = true
			queue = append(queue, n.ID)
		}
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range adj[cur] {
			if _, known := nodeByID[next]; !known {
				continue
			}
			if !reachable[next] {
				reachable[next] = true
				queue = append(queue, next)
			}
		}
	}

	if len(reachable) == 0 {
		p.logger.Debug("no trigger nodes, empty plan", zap.String("workflow_id", w.ID))
		return nil, nil
	}

	// Kahn's algorithm over the induced sub-graph. Ready nodes are drained in
	// id order so the same workflow always plans to the same sequence.
	indegree := make(map[string]int, len(reachable))
	for id := range reachable {
		indegree[id] = 0
	}
	for from, tos := range adj {
		if !reachable[from] {
			continue
		}
		for _, to := range tos {
			if reachable[to] {
				indegree[to]++
			}
		}
	}

	var ready []string
	for id, deg := range indegree {
		if deg == 0 {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)

	plan := make([]Node, 0, len(reachable))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		plan = append(plan, nodeByID[id])

		var unlocked []string
		for _, to := range adj[id] {
			if !reachable[to] {
				continue
			}
			indegree[to]--
			if indegree[to] == 0 {
				unlocked = append(unlocked, to)
			}
		}
		if len(unlocked) > 0 {
			ready = append(ready, unlocked...)
			sort.Strings(ready)
		}
	}

	if len(plan) != len(reachable) {
		p.logger.Warn("cycle detected in main-flow edges",
			zap.String("workflow_id", w.ID),
			zap.Int("planned", len(plan)),
			zap.Int("reachable", len(reachable)),
		)
		return nil, types.NewErrorf(types.ErrPlanCycle,
			"workflow %s: cycle detected in main-flow edges", w.ID)
	}

	p.logger.Debug("plan computed",
		zap.String("workflow_id", w.ID),
		zap.Int("nodes", len(plan)),
	)
	return plan, nil
}
