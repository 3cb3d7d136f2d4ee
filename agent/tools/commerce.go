package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/flowgrid-io/flowgrid/store"
	"github.com/flowgrid-io/flowgrid/types"
)

// The inventory and order tools read through the org-scoped store; every
// query carries the agent's owning organization, so one tenant can never
// observe or touch another's rows.

func newSearchProductsTool(deps Deps) Tool {
	return Tool{
		Schema: types.ToolSchema{
			Name:        "search_products",
			Description: "Searches the product catalogue by name or SKU and reports prices and stock levels.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"query": {"type": "string", "description": "Name or SKU fragment to match"},
					"limit": {"type": "integer", "description": "Maximum number of results (default 10)"},
					"lowStockOnly": {"type": "boolean", "description": "Only products at or below their reorder level"}
				}
			}`),
		},
		Execute: func(ctx context.Context, args json.RawMessage) (string, error) {
			var params struct {
				Query        string `json:"query"`
				Limit        int    `json:"limit"`
				LowStockOnly bool   `json:"lowStockOnly"`
			}
			if err := json.Unmarshal(args, &params); err != nil {
				return "", fmt.Errorf("invalid search_products arguments: %w", err)
			}

			products, err := deps.Store.SearchProducts(ctx, deps.OrgID, params.Query, params.Limit, params.LowStockOnly)
			if err != nil {
				return "", fmt.Errorf("product search failed: %w", err)
			}
			if len(products) == 0 {
				return "No products found.", nil
			}
			return marshalObservation(products)
		},
	}
}

func newListWarehousesTool(deps Deps) Tool {
	return Tool{
		Schema: types.ToolSchema{
			Name:        "list_warehouses",
			Description: "Lists the organization's warehouses.",
			Parameters:  json.RawMessage(`{"type":"object","properties":{}}`),
		},
		Execute: func(ctx context.Context, args json.RawMessage) (string, error) {
			warehouses, err := deps.Store.ListWarehouses(ctx, deps.OrgID)
			if err != nil {
				return "", fmt.Errorf("warehouse lookup failed: %w", err)
			}
			if len(warehouses) == 0 {
				return "No warehouses found.", nil
			}
			return marshalObservation(warehouses)
		},
	}
}

func newSearchOrdersTool(deps Deps) Tool {
	return Tool{
		Schema: types.ToolSchema{
			Name:        "search_orders",
			Description: "Searches the organization's orders by customer and status.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"query": {"type": "string", "description": "Customer name or email fragment"},
					"status": {"type": "string", "enum": ["pending", "processing", "shipped", "delivered", "cancelled"]},
					"limit": {"type": "integer", "description": "Maximum number of results (default 10)"}
				}
			}`),
		},
		Execute: func(ctx context.Context, args json.RawMessage) (string, error) {
			var params struct {
				Query  string `json:"query"`
				Status string `json:"status"`
				Limit  int    `json:"limit"`
			}
			if err := json.Unmarshal(args, &params); err != nil {
				return "", fmt.Errorf("invalid search_orders arguments: %w", err)
			}

			orders, err := deps.Store.SearchOrders(ctx, deps.OrgID, params.Query, params.Status, params.Limit)
			if err != nil {
				return "", fmt.Errorf("order search failed: %w", err)
			}
			if len(orders) == 0 {
				return "No orders found.", nil
			}
			return marshalObservation(orders)
		},
	}
}

func newUpdateOrderStatusTool(deps Deps) Tool {
	return Tool{
		Schema: types.ToolSchema{
			Name:        "update_order_status",
			Description: "Updates the status of one of the organization's orders.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"orderId": {"type": "string", "description": "The order id"},
					"newStatus": {"type": "string", "enum": ["pending", "processing", "shipped", "delivered", "cancelled"]}
				},
				"required": ["orderId", "newStatus"]
			}`),
		},
		Execute: func(ctx context.Context, args json.RawMessage) (string, error) {
			var params struct {
				OrderID   string `json:"orderId"`
				NewStatus string `json:"newStatus"`
			}
			if err := json.Unmarshal(args, &params); err != nil {
				return "", fmt.Errorf("invalid update_order_status arguments: %w", err)
			}

			orderID, err := strconv.ParseInt(strings.TrimPrefix(params.OrderID, "#"), 10, 64)
			if err != nil {
				return "", fmt.Errorf("invalid order id %q", params.OrderID)
			}

			order, err := deps.Store.UpdateOrderStatus(ctx, deps.OrgID, orderID, params.NewStatus)
			if err != nil {
				// A foreign tenant's order reads the same as a missing one.
				if errors.Is(err, store.ErrNotFound) {
					return "", fmt.Errorf("Order #%d not found", orderID)
				}
				return "", fmt.Errorf("order update failed: %w", err)
			}
			return fmt.Sprintf("Order #%s is now %s.", order.ID, order.Status), nil
		},
	}
}

func newOrderStatsTool(deps Deps) Tool {
	return Tool{
		Schema: types.ToolSchema{
			Name:        "get_order_stats",
			Description: "Reports order totals, revenue, and a status breakdown for the organization.",
			Parameters:  json.RawMessage(`{"type":"object","properties":{}}`),
		},
		Execute: func(ctx context.Context, args json.RawMessage) (string, error) {
			stats, err := deps.Store.GetOrderStats(ctx, deps.OrgID)
			if err != nil {
				return "", fmt.Errorf("order stats failed: %w", err)
			}
			return marshalObservation(stats)
		},
	}
}

func marshalObservation(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal observation: %w", err)
	}
	return string(raw), nil
}
