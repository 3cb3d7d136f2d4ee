package agent

import "github.com/flowgrid-io/flowgrid/graph"

// subNodes is the star of configuration nodes attached to one agent node
// by edge label: at most one chat model, at most one memory, any number of
// tools.
type subNodes struct {
	chatModel *graph.Node
	memory    *graph.Node
	tools     []graph.Node
}

// discoverSubNodes partitions the connections targeting the agent node by
// port label. Coupling is by edge label, not by node position; when the
// editor attaches several chat models or memories, the first by connection
// order wins.
func discoverSubNodes(w *graph.Workflow, agentNodeID string) subNodes {
	var out subNodes
	for _, conn := range w.SubConnections(agentNodeID) {
		node, ok := w.NodeByID(conn.FromNodeID)
		if !ok {
			continue
		}
		switch graph.ClassifyPort(conn.ToInput) {
		case graph.PortChatModel:
			if out.chatModel == nil {
				n := node
				out.chatModel = &n
			}
		case graph.PortMemory:
			if out.memory == nil {
				n := node
				out.memory = &n
			}
		case graph.PortTool:
			out.tools = append(out.tools, node)
		}
	}
	return out
}

// ids returns the discovered sub-node ids, for status fan-out.
func (s subNodes) ids() []string {
	var out []string
	if s.chatModel != nil {
		out = append(out, s.chatModel.ID)
	}
	if s.memory != nil {
		out = append(out, s.memory.ID)
	}
	for _, t := range s.tools {
		out = append(out, t.ID)
	}
	return out
}
