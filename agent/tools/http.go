package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/flowgrid-io/flowgrid/graph"
	"github.com/flowgrid-io/flowgrid/types"
)

// httpToolMaxBody bounds the observation returned to the model.
const httpToolMaxBody = 5000

func newHTTPTool(node graph.Node, deps Deps) Tool {
	client := deps.client()
	return Tool{
		Schema: types.ToolSchema{
			Name:        "http_request",
			Description: "Makes an HTTP request and returns the response body.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"url": {"type": "string", "description": "The URL to request"},
					"method": {"type": "string", "enum": ["GET", "POST", "PUT", "PATCH", "DELETE"]},
					"body": {"type": "string", "description": "Optional request body"}
				},
				"required": ["url"]
			}`),
		},
		Execute: func(ctx context.Context, args json.RawMessage) (string, error) {
			var params struct {
				URL    string `json:"url"`
				Method string `json:"method"`
				Body   string `json:"body"`
			}
			if err := json.Unmarshal(args, &params); err != nil {
				return "", fmt.Errorf("invalid http_request arguments: %w", err)
			}
			if params.URL == "" {
				return "", fmt.Errorf("url is required")
			}

			method := strings.ToUpper(params.Method)
			if method == "" {
				method = http.MethodGet
			}
			switch method {
			case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
			default:
				return "", fmt.Errorf("unsupported method %q", params.Method)
			}

			var body io.Reader
			if params.Body != "" {
				body = strings.NewReader(params.Body)
			}
			req, err := http.NewRequestWithContext(ctx, method, params.URL, body)
			if err != nil {
				return "", fmt.Errorf("invalid url: %w", err)
			}
			if params.Body != "" {
				req.Header.Set("Content-Type", "application/json")
			}

			resp, err := client.Do(req)
			if err != nil {
				return "", fmt.Errorf("request failed: %w", err)
			}
			defer resp.Body.Close()

			raw, err := io.ReadAll(io.LimitReader(resp.Body, httpToolMaxBody+1))
			if err != nil {
				return "", fmt.Errorf("read response: %w", err)
			}
			return fmt.Sprintf("Status: %d\n%s", resp.StatusCode, truncate(string(raw), httpToolMaxBody)), nil
		},
	}
}
