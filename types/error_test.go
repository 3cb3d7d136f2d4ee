package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorFormatting(t *testing.T) {
	e := NewError(ErrNodeConfig, "HTTP_REQUEST node missing required field: url").WithNodeID("n1")
	assert.Equal(t, "[NODE_CONFIG] HTTP_REQUEST node missing required field: url", e.Error())
	assert.Equal(t, "n1", e.NodeID)
	assert.False(t, IsRetryable(e))

	cause := errors.New("connection refused")
	e2 := NewError(ErrUpstreamError, "http call failed").WithCause(cause).WithRetryable(true)
	assert.Contains(t, e2.Error(), "connection refused")
	assert.True(t, IsRetryable(e2))
	assert.True(t, errors.Is(e2, cause))
}

func TestGetErrorCode(t *testing.T) {
	assert.Equal(t, ErrPlanCycle, GetErrorCode(NewError(ErrPlanCycle, "cycle detected")))
	assert.Equal(t, ErrorCode(""), GetErrorCode(errors.New("plain")))
}
