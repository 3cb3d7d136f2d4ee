package graph

// NodeKind identifies the behaviour of a workflow node. The set is closed;
// the executor registry maps each kind to its implementation.
type NodeKind string

const (
	KindInitial           NodeKind = "INITIAL"
	KindManualTrigger     NodeKind = "MANUAL_TRIGGER"
	KindHTTPRequest       NodeKind = "HTTP_REQUEST"
	KindGoogleFormTrigger NodeKind = "GOOGLE_FORM_TRIGGER"
	KindStripeTrigger     NodeKind = "STRIPE_TRIGGER"
	KindGemini            NodeKind = "GEMINI"
	KindAnthropic         NodeKind = "ANTHROPIC"
	KindOpenAI            NodeKind = "OPENAI"
	KindDiscord           NodeKind = "DISCORD"
	KindSlack             NodeKind = "SLACK"
	KindAIAgent           NodeKind = "AI_AGENT"
	KindChatModel         NodeKind = "CHAT_MODEL"
	KindMemory            NodeKind = "MEMORY"
	KindSendEmail         NodeKind = "SEND_EMAIL"
	KindWebScraper        NodeKind = "WEB_SCRAPER"
	KindCalculator        NodeKind = "CALCULATOR"
	KindInventoryLookup   NodeKind = "INVENTORY_LOOKUP"
	KindOrderManager      NodeKind = "ORDER_MANAGER"
)

// triggerKinds are the node kinds a run starts from.
var triggerKinds = map[NodeKind]bool{
	KindInitial:           true,
	KindManualTrigger:     true,
	KindGoogleFormTrigger: true,
	KindStripeTrigger:     true,
}

// IsTrigger reports whether the kind starts a run.
func (k NodeKind) IsTrigger() bool {
	return triggerKinds[k]
}

// PortLabel classifies a connection's target handle.
type PortLabel string

const (
	// PortMain marks a main-flow edge that participates in scheduling.
	PortMain PortLabel = "main"
	// PortChatModel attaches a chat-model sub-node to an agent.
	PortChatModel PortLabel = "chat_model"
	// PortMemory attaches a memory sub-node to an agent.
	PortMemory PortLabel = "memory"
	// PortTool attaches a tool sub-node to an agent.
	PortTool PortLabel = "tool"
	// PortOther covers labels the engine does not recognise.
	PortOther PortLabel = "other"
)

// portAliases maps stored handle labels, including the legacy spellings the
// editor still emits, onto the closed port label set.
var portAliases = map[string]PortLabel{
	"":                  PortMain,
	"main":              PortMain,
	"target-1":          PortMain,
	"chat-model-target": PortChatModel,
	"memory-target":     PortMemory,
	"tool-target":       PortTool,
}

// ClassifyPort maps a stored toInput handle label onto the port label set.
func ClassifyPort(toInput string) PortLabel {
	if p, ok := portAliases[toInput]; ok {
		return p
	}
	return PortOther
}

// Position is a 2-D editor coordinate, opaque to the engine.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is a vertex in a workflow graph.
type Node struct {
	ID           string         `json:"id"`
	WorkflowID   string         `json:"workflowId"`
	Kind         NodeKind       `json:"kind"`
	Position     Position       `json:"position"`
	Data         map[string]any `json:"data"`
	CredentialID string         `json:"credentialId,omitempty"`
}

// Connection is a labeled edge between two nodes of the same workflow.
type Connection struct {
	ID         string `json:"id"`
	WorkflowID string `json:"workflowId"`
	FromNodeID string `json:"fromNodeId"`
	ToNodeID   string `json:"toNodeId"`
	FromOutput string `json:"fromOutput"`
	ToInput    string `json:"toInput"`
}

// IsMain reports whether the connection participates in scheduling.
func (c Connection) IsMain() bool {
	return ClassifyPort(c.ToInput) == PortMain
}

// Workflow is a named graph owned by an organization.
type Workflow struct {
	ID          string       `json:"id"`
	OrgID       string       `json:"orgId"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Nodes       []Node       `json:"nodes"`
	Connections []Connection `json:"connections"`
}

// NodeByID returns the node with the given id, if present.
func (w *Workflow) NodeByID(id string) (Node, bool) {
	for _, n := range w.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// SubConnections returns the non-main connections targeting nodeID, the star
// an agent executor discovers its sub-nodes from.
func (w *Workflow) SubConnections(nodeID string) []Connection {
	var out []Connection
	for _, c := range w.Connections {
		if c.ToNodeID == nodeID && !c.IsMain() {
			out = append(out, c)
		}
	}
	return out
}
