// Package graph defines the workflow graph data model and the planner that
// turns a stored graph into a topologically ordered execution plan.
package graph
