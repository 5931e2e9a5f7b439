package auth

import (
	"context"

	"github.com/google/uuid"
)

type keyType string

const flowIDKey keyType = "flowID"

// DefaultFlow is the flow of requests made without WithFlow.
const DefaultFlow = "default"

// WithFlow starts a new flow (one dialog or page interaction) on ctx. Unauthorized
// signals are de-duplicated per flow.
func WithFlow(ctx context.Context) context.Context {
	return ctxWithFlowID(ctx, uuid.NewString())
}

// ctxWithFlowID adds a flow ID to the context
func ctxWithFlowID(ctx context.Context, flowID string) context.Context {
	return context.WithValue(ctx, flowIDKey, flowID)
}

// FlowID returns the flow of ctx, or DefaultFlow.
func FlowID(ctx context.Context) string {
	if ctx == nil {
		return DefaultFlow
	}
	if v, ok := ctx.Value(flowIDKey).(string); ok && v != "" {
		return v
	}
	return DefaultFlow
}
