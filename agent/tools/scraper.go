package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/net/html"

	"github.com/flowgrid-io/flowgrid/graph"
	"github.com/flowgrid-io/flowgrid/types"
)

// scraperDefaultMaxLength bounds the extracted text when the sub-node does
// not configure maxLength.
const scraperDefaultMaxLength = 5000

func newScraperTool(node graph.Node, deps Deps) Tool {
	client := deps.client()

	maxLength := scraperDefaultMaxLength
	if v, ok := node.Data["maxLength"].(float64); ok && v > 0 {
		maxLength = int(v)
	}

	return Tool{
		Schema: types.ToolSchema{
			Name:        "web_scraper",
			Description: "Fetches a web page and returns its visible text content.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"url": {"type": "string", "description": "The page URL to fetch"}
				},
				"required": ["url"]
			}`),
		},
		Execute: func(ctx context.Context, args json.RawMessage) (string, error) {
			var params struct {
				URL string `json:"url"`
			}
			if err := json.Unmarshal(args, &params); err != nil {
				return "", fmt.Errorf("invalid web_scraper arguments: %w", err)
			}
			if params.URL == "" {
				return "", fmt.Errorf("url is required")
			}

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, params.URL, nil)
			if err != nil {
				return "", fmt.Errorf("invalid url: %w", err)
			}
			resp, err := client.Do(req)
			if err != nil {
				return "", fmt.Errorf("fetch failed: %w", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode >= 400 {
				return "", fmt.Errorf("fetch returned status %d", resp.StatusCode)
			}

			raw, err := io.ReadAll(resp.Body)
			if err != nil {
				return "", fmt.Errorf("read page: %w", err)
			}

			return truncate(extractText(string(raw)), maxLength), nil
		},
	}
}

// extractText strips tags from an HTML document and collapses whitespace.
// Script and style bodies are dropped entirely.
func extractText(page string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(page))
	var parts []string
	skipDepth := 0
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return strings.Join(parts, " ")
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			switch string(name) {
			case "script", "style", "noscript":
				skipDepth++
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			switch string(name) {
			case "script", "style", "noscript":
				if skipDepth > 0 {
					skipDepth--
				}
			}
		case html.TextToken:
			if skipDepth > 0 {
				continue
			}
			text := strings.TrimSpace(string(tokenizer.Text()))
			if text != "" {
				parts = append(parts, strings.Join(strings.Fields(text), " "))
			}
		}
	}
}
