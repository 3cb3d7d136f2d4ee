package executors

import (
	"context"
	"encoding/json"
	"fmt"
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

// NewWebhookMessageExecutor handles DISCORD and SLACK nodes: it posts the
// templated message content to the configured webhook URL. payloadKey is
// the JSON field the service expects ("content" for Discord, "text" for
// Slack). The result lands under variableName as {messageContent}.
func NewWebhookMessageExecutor(kind string, payloadKey string, client *http.Client, logger *zap.Logger) engine.Executor {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	log := logger.With(zap.String("executor", strings.ToLower(kind)))

	return engine.ExecutorFunc(func(ctx context.Context, in *engine.ExecutionInput) (engine.RunContext, error) {
		webhookURL, err := in.RequireConfigString("webhookUrl")
		if err != nil {
			return nil, err
		}
		content, err := in.RequireConfigString("content")
		if err != nil {
			return nil, err
		}
		varName, err := in.VariableName("messageContent")
		if err != nil {
			return nil, err
		}

		ctxMap := in.Context.AsMap()
		url := template.Evaluate(webhookURL, ctxMap)
		message := template.Evaluate(content, ctxMap)

		payload, err := json.Marshal(map[string]string{payloadKey: message})
		if err != nil {
			return nil, fmt.Errorf("marshal webhook payload: %w", err)
		}

		stepName := durable.ChildName(durable.ChildName("node", in.Node.ID), "webhook-post")
		_, err = in.Step.Run(ctx, stepName, func(stepCtx context.Context) (any, error) {
			req, reqErr := http.NewRequestWithContext(stepCtx, http.MethodPost, url, strings.NewReader(string(payload)))
			if reqErr != nil {
				return nil, types.NewErrorf(types.ErrNodeConfig, "%s node has invalid webhook url", kind).
					WithCause(reqErr).WithNodeID(in.Node.ID)
			}
			req.Header.Set("Content-Type", "application/json")

			resp, postErr := client.Do(req)
			if postErr != nil {
				return nil, types.NewErrorf(types.ErrUpstreamError, "%s webhook post failed", kind).
					WithCause(postErr).WithRetryable(true)
			}
			defer resp.Body.Close()
			io.Copy(io.Discard, resp.Body)

			if resp.StatusCode >= 300 {
				return nil, types.NewErrorf(types.ErrUpstreamError,
					"%s webhook post returned status %d", kind, resp.StatusCode).
					WithRetryable(resp.StatusCode >= 500)
			}
			return nil, nil
		})
		if err != nil {
			log.Warn("webhook post failed", zap.String("node_id", in.Node.ID), zap.Error(err))
			return nil, err
		}

		return engine.RunContext{varName: map[string]any{"messageContent": message}}, nil
	})
}
