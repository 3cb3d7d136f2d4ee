package executors

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/flowgrid-io/flowgrid/durable"
	"github.com/flowgrid-io/flowgrid/engine"
	"github.com/flowgrid-io/flowgrid/template"
	"github.com/flowgrid-io/flowgrid/types"
)

var allowedHTTPMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

// NewHTTPRequestExecutor handles HTTP_REQUEST nodes. Configuration:
// url (required, templated), method (default GET), body (templated),
// headers (templated map), variableName. The result lands under
// variableName as {httpResponse: {status, statusText, data}}.
func NewHTTPRequestExecutor(client *http.Client, logger *zap.Logger) engine.Executor {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	log := logger.With(zap.String("executor", "http_request"))

	return engine.ExecutorFunc(func(ctx context.Context, in *engine.ExecutionInput) (engine.RunContext, error) {
		rawURL, err := in.RequireConfigString("url")
		if err != nil {
			return nil, err
		}
		varName, err := in.VariableName("httpResponse")
		if err != nil {
			return nil, err
		}

		method := strings.ToUpper(in.ConfigString("method"))
		if method == "" {
			method = http.MethodGet
		}
		if !allowedHTTPMethods[method] {
			return nil, types.NewErrorf(types.ErrNodeConfig,
				"HTTP_REQUEST node has unsupported method: %s", method).
				WithNodeID(in.Node.ID)
		}

		ctxMap := in.Context.AsMap()
		url := template.Evaluate(rawURL, ctxMap)
		body := template.Evaluate(in.ConfigString("body"), ctxMap)

		headers := map[string]string{}
		if raw, ok := in.NodeConfig()["headers"].(map[string]any); ok {
			for k, v := range template.EvaluateMap(raw, ctxMap) {
				headers[k] = types.Stringify(v)
			}
		}

		stepName := durable.ChildName(durable.ChildName("node", in.Node.ID), "http-call")
		result, err := in.Step.Run(ctx, stepName, func(stepCtx context.Context) (any, error) {
			return doHTTPRequest(stepCtx, client, method, url, body, headers)
		})
		if err != nil {
			log.Warn("http call failed",
				zap.String("node_id", in.Node.ID),
				zap.String("url", url),
				zap.Error(err),
			)
			return nil, err
		}

		return engine.RunContext{varName: map[string]any{"httpResponse": result}}, nil
	})
}

func doHTTPRequest(ctx context.Context, client *http.Client, method, url, body string, headers map[string]string) (any, error) {
	var reqBody io.Reader
	if body != "" {
		reqBody = strings.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, types.NewErrorf(types.ErrNodeConfig, "HTTP_REQUEST node has invalid url: %s", url).
			WithCause(err)
	}
	if body != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, types.NewError(types.ErrUpstreamError, "http call failed").
			WithCause(err).WithRetryable(true)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, types.NewError(types.ErrUpstreamError, "read http response").
			WithCause(err).WithRetryable(true)
	}

	// JSON responses land as a parsed tree, everything else as text.
	var data any
	if json.Valid(raw) && looksLikeJSON(resp.Header.Get("Content-Type"), raw) {
		if err := json.Unmarshal(raw, &data); err != nil {
			data = string(raw)
		}
	} else {
		data = string(raw)
	}

	return map[string]any{
		"status":     resp.StatusCode,
		"statusText": resp.Status,
		"data":       data,
	}, nil
}

func looksLikeJSON(contentType string, raw []byte) bool {
	if strings.Contains(contentType, "json") {
		return true
	}
	trimmed := strings.TrimSpace(string(raw))
	return strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[")
}
