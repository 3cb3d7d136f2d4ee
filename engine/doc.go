// Package engine drives workflow runs: it plans the graph, executes nodes
// strictly sequentially under durable steps, threads the shared value
// context between them, and emits per-node lifecycle events.
package engine
