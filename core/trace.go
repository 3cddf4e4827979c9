package core

import (
	"context"

	"github.com/google/uuid"
)

// Trace response/request header names.
const (
	HeaderRequestID   = "X-Request-ID"
	HeaderTraceID     = "X-Trace-ID"
	HeaderProcessTime = "X-Process-Time"
)

// RequestTrace carries the per-request correlation identifiers. It lives in
// the request context only, never in process-wide state, so concurrent
// requests cannot observe each other's identifiers.
type RequestTrace struct {
	RequestID string
	TraceID   string
}

// NewRequestTrace inherits identifiers from the inbound headers when present
// and generates fresh ones otherwise.
func NewRequestTrace(requestID, traceID string) RequestTrace {
	if requestID == "" {
		requestID = uuid.New().String()
	}
	if traceID == "" {
		traceID = uuid.New().String()
	}
	return RequestTrace{RequestID: requestID, TraceID: traceID}
}

// traceKey is an unexported type to prevent collisions with other packages.
type traceKey struct{}

// WithTrace stores the trace in the context.
func WithTrace(ctx context.Context, tr RequestTrace) context.Context {
	return context.WithValue(ctx, traceKey{}, tr)
}

// TraceFrom retrieves the trace from the context, if any.
func TraceFrom(ctx context.Context) (RequestTrace, bool) {
	tr, ok := ctx.Value(traceKey{}).(RequestTrace)
	return tr, ok
}
