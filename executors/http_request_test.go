package executors

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowgrid-io/flowgrid/durable"
	"github.com/flowgrid-io/flowgrid/engine"
	"github.com/flowgrid-io/flowgrid/graph"
	"github.com/flowgrid-io/flowgrid/types"
)

func execInput(node graph.Node, runCtx engine.RunContext) *engine.ExecutionInput {
	if runCtx == nil {
		runCtx = engine.RunContext{}
	}
	return &engine.ExecutionInput{
		RunID:    "run-1",
		OrgID:    "org-1",
		Node:     node,
		Workflow: &graph.Workflow{ID: "wf-1", OrgID: "org-1", Nodes: []graph.Node{node}},
		Context:  runCtx,
		Step:     durable.NewMemoStore(nil).ForRun("run-1"),
	}
}

func TestHTTPRequestExecutorJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"abc","count":3}`)
	}))
	defer srv.Close()

	node := graph.Node{ID: "h", Kind: graph.KindHTTPRequest, Data: map[string]any{
		"url":          srv.URL,
		"variableName": "r",
	}}

	ex := NewHTTPRequestExecutor(srv.Client(), nil)
	out, err := ex.Execute(context.Background(), execInput(node, nil))
	require.NoError(t, err)

	result := out["r"].(map[string]any)["httpResponse"].(map[string]any)
	assert.Equal(t, 200, result["status"])
	data := result["data"].(map[string]any)
	assert.Equal(t, "abc", data["id"])
}

func TestHTTPRequestExecutorTemplatedBody(t *testing.T) {
	var gotBody string
	var gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)
		gotContentType = r.Header.Get("Content-Type")
		io.WriteString(w, `{"ok":true}`)
	}))
	defer srv.Close()

	node := graph.Node{ID: "h2", Kind: graph.KindHTTPRequest, Data: map[string]any{
		"url":          srv.URL,
		"method":       "POST",
		"body":         `{"id":"{{r.httpResponse.data.id}}"}`,
		"variableName": "second",
	}}

	runCtx := engine.RunContext{
		"r": map[string]any{
			"httpResponse": map[string]any{
				"status": 200,
				"data":   map[string]any{"id": "abc"},
			},
		},
	}

	ex := NewHTTPRequestExecutor(srv.Client(), nil)
	_, err := ex.Execute(context.Background(), execInput(node, runCtx))
	require.NoError(t, err)

	assert.JSONEq(t, `{"id":"abc"}`, gotBody)
	assert.Equal(t, "application/json", gotContentType)
}

func TestHTTPRequestExecutorTextResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		io.WriteString(w, "plain text body")
	}))
	defer srv.Close()

	node := graph.Node{ID: "h", Kind: graph.KindHTTPRequest, Data: map[string]any{
		"url": srv.URL, "variableName": "r",
	}}

	ex := NewHTTPRequestExecutor(srv.Client(), nil)
	out, err := ex.Execute(context.Background(), execInput(node, nil))
	require.NoError(t, err)

	result := out["r"].(map[string]any)["httpResponse"].(map[string]any)
	assert.Equal(t, "plain text body", result["data"])
}

func TestHTTPRequestExecutorValidation(t *testing.T) {
	ex := NewHTTPRequestExecutor(nil, nil)
	ctx := context.Background()

	// Missing url.
	node := graph.Node{ID: "h", Kind: graph.KindHTTPRequest, Data: map[string]any{}}
	_, err := ex.Execute(ctx, execInput(node, nil))
	require.Error(t, err)
	assert.Equal(t, types.ErrNodeConfig, types.GetErrorCode(err))
	assert.Contains(t, err.Error(), "url")
	assert.False(t, types.IsRetryable(err))

	// Bad method.
	node = graph.Node{ID: "h", Kind: graph.KindHTTPRequest, Data: map[string]any{
		"url": "https://example.com", "method": "TRACE",
	}}
	_, err = ex.Execute(ctx, execInput(node, nil))
	require.Error(t, err)
	assert.Equal(t, types.ErrNodeConfig, types.GetErrorCode(err))

	// Bad variable name.
	node = graph.Node{ID: "h", Kind: graph.KindHTTPRequest, Data: map[string]any{
		"url": "https://example.com", "variableName": "not valid",
	}}
	_, err = ex.Execute(ctx, execInput(node, nil))
	require.Error(t, err)
	assert.Equal(t, types.ErrBadVariableName, types.GetErrorCode(err))
}

func TestHTTPRequestExecutorMemoisesCall(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		io.WriteString(w, `{"n":1}`)
	}))
	defer srv.Close()

	node := graph.Node{ID: "h", Kind: graph.KindHTTPRequest, Data: map[string]any{
		"url": srv.URL, "variableName": "r",
	}}

	store := durable.NewMemoStore(nil)
	in := execInput(node, nil)
	in.Step = store.ForRun("run-1")

	ex := NewHTTPRequestExecutor(srv.Client(), nil)
	_, err := ex.Execute(context.Background(), in)
	require.NoError(t, err)

	// A retried executor re-enters the same run: the HTTP call is skipped.
	in2 := execInput(node, nil)
	in2.Step = store.ForRun("run-1")
	out, err := ex.Execute(context.Background(), in2)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	raw, err := json.Marshal(out)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"n":1`)
}
