// Package tools builds the tool descriptors an agent node exposes to its
// LLM, one catalogue entry per connected tool sub-node.
package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/flowgrid-io/flowgrid/graph"
	"github.com/flowgrid-io/flowgrid/internal/metrics"
	"github.com/flowgrid-io/flowgrid/store"
	"github.com/flowgrid-io/flowgrid/types"
)

// ExecuteFunc runs one tool call and returns the text observation fed back
// to the model. A returned error becomes an "Error: ..." observation; it
// never aborts the agent loop.
type ExecuteFunc func(ctx context.Context, args json.RawMessage) (string, error)

// Tool pairs a function-calling schema with its implementation.
type Tool struct {
	Schema  types.ToolSchema
	Execute ExecuteFunc
}

// Deps wires tool construction. Store-backed tools are scoped to OrgID.
type Deps struct {
	Store      *store.Store
	OrgID      string
	HTTPClient *http.Client
	Metrics    *metrics.Collector
	Logger     *zap.Logger
}

func (d Deps) client() *http.Client {
	if d.HTTPClient != nil {
		return d.HTTPClient
	}
	return &http.Client{Timeout: 30 * time.Second}
}

func (d Deps) logger() *zap.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return zap.NewNop()
}

// FromNode builds the tool descriptors for one tool sub-node. Kinds without
// a dedicated adapter fall back to a pass-through echo tool.
func FromNode(node graph.Node, deps Deps) []Tool {
	switch node.Kind {
	case graph.KindHTTPRequest:
		return []Tool{newHTTPTool(node, deps)}
	case graph.KindSendEmail:
		return []Tool{newEmailTool(node, deps)}
	case graph.KindWebScraper:
		return []Tool{newScraperTool(node, deps)}
	case graph.KindCalculator:
		return []Tool{newCalculatorTool()}
	case graph.KindInventoryLookup:
		return []Tool{newSearchProductsTool(deps), newListWarehousesTool(deps)}
	case graph.KindOrderManager:
		return []Tool{newSearchOrdersTool(deps), newUpdateOrderStatusTool(deps), newOrderStatsTool(deps)}
	default:
		return []Tool{newPassthroughTool(node)}
	}
}

// newPassthroughTool echoes its input; it keeps unrecognised sub-nodes
// harmless and gives tests a predictable tool.
func newPassthroughTool(node graph.Node) Tool {
	name, _ := node.Data["toolName"].(string)
	if name == "" {
		name = strings.ToLower(string(node.Kind))
	}
	return Tool{
		Schema: types.ToolSchema{
			Name:        name,
			Description: "Echoes its input back unchanged.",
			Parameters:  json.RawMessage(`{"type":"object","additionalProperties":true}`),
		},
		Execute: func(ctx context.Context, args json.RawMessage) (string, error) {
			return string(args), nil
		},
	}
}

// truncate bounds tool observations so one verbose response cannot blow up
// the model context.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max]
}
