package executors

import (
	"context"

	"github.com/flowgrid-io/flowgrid/engine"
	"github.com/flowgrid-io/flowgrid/types"
)

// NewTriggerExecutor handles INITIAL and MANUAL_TRIGGER nodes. The run
// context already carries whatever the invoking event seeded; the trigger
// just anchors the plan.
func NewTriggerExecutor() engine.Executor {
	return engine.ExecutorFunc(func(ctx context.Context, in *engine.ExecutionInput) (engine.RunContext, error) {
		return nil, nil
	})
}

// NewWebhookTriggerExecutor handles GOOGLE_FORM_TRIGGER and STRIPE_TRIGGER
// nodes. The webhook surface stores its raw payload in the initial context
// under "payload"; the trigger moves it into the namespace later nodes
// reference (googleForm.* or stripe.*).
func NewWebhookTriggerExecutor(namespace string) engine.Executor {
	return engine.ExecutorFunc(func(ctx context.Context, in *engine.ExecutionInput) (engine.RunContext, error) {
		payload, ok := in.Context["payload"]
		if !ok {
			return nil, nil
		}
		return engine.RunContext{namespace: types.Normalize(payload)}, nil
	})
}
