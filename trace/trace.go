// Package trace carries request correlation identifiers through a context so that
// outbound calls to the identity service can be stitched to the inbound request.
package trace

import (
	"context"
	crand "crypto/rand"
	"encoding/hex"
	"net/http"

	"github.com/google/uuid"
)

type contextKey string

const (
	traceIDKey     contextKey = "trace_id"
	traceParentKey contextKey = "traceparent"
	traceStateKey  contextKey = "tracestate"
)

const (
	// HeaderXRequestID is the header used for request correlation
	HeaderXRequestID = "X-Request-ID"
	// HeaderTraceParent is the W3C trace context header name
	HeaderTraceParent = "traceparent"
	// HeaderTraceState is the W3C trace context "tracestate" header name
	HeaderTraceState = "tracestate"
)

// WithTraceID adds a trace ID to the context
func WithTraceID(ctx context.Context, traceID string) context.Context {
	if traceID == "" {
		return ctx
	}
	return context.WithValue(ctx, traceIDKey, traceID)
}

// IDFromContext returns the trace ID stored in ctx, if any
func IDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	if traceID, ok := ctx.Value(traceIDKey).(string); ok && traceID != "" {
		return traceID, true
	}
	return "", false
}

// EnsureTraceID returns an existing trace ID from context or generates a new one
func EnsureTraceID(ctx context.Context) string {
	if traceID, ok := IDFromContext(ctx); ok {
		return traceID
	}
	return uuid.New().String()
}

// WithTraceParent adds a W3C traceparent value to the context
func WithTraceParent(ctx context.Context, traceParent string) context.Context {
	if traceParent == "" {
		return ctx
	}
	return context.WithValue(ctx, traceParentKey, traceParent)
}

// ParentFromContext returns a traceparent from context if present
func ParentFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	if tp, ok := ctx.Value(traceParentKey).(string); ok && tp != "" {
		return tp, true
	}
	return "", false
}

// WithTraceState adds a W3C tracestate value to the context
func WithTraceState(ctx context.Context, traceState string) context.Context {
	if traceState == "" {
		return ctx
	}
	return context.WithValue(ctx, traceStateKey, traceState)
}

// StateFromContext returns a tracestate from context if present
func StateFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	if ts, ok := ctx.Value(traceStateKey).(string); ok && ts != "" {
		return ts, true
	}
	return "", false
}

// FromHeaders copies correlation headers of an inbound request into ctx.
// A missing request ID is generated so every request has one.
func FromHeaders(ctx context.Context, h http.Header) context.Context {
	id := h.Get(HeaderXRequestID)
	if id == "" {
		id = uuid.New().String()
	}
	ctx = WithTraceID(ctx, id)
	ctx = WithTraceParent(ctx, h.Get(HeaderTraceParent))
	return WithTraceState(ctx, h.Get(HeaderTraceState))
}

// InjectHeaders writes the correlation values held by ctx into h without
// overwriting headers the caller already set. idHeader defaults to X-Request-ID.
func InjectHeaders(ctx context.Context, h http.Header, idHeader string) {
	if idHeader == "" {
		idHeader = HeaderXRequestID
	}
	if h.Get(idHeader) == "" {
		h.Set(idHeader, EnsureTraceID(ctx))
	}
	if h.Get(HeaderTraceParent) != "" {
		return
	}
	if tp, ok := ParentFromContext(ctx); ok {
		h.Set(HeaderTraceParent, tp)
		if ts, ok := StateFromContext(ctx); ok {
			h.Set(HeaderTraceState, ts)
		}
	}
}

// GenerateTraceParent creates a minimal W3C traceparent header value.
// Format: version(2)-trace-id(32)-span-id(16)-flags(2), e.g., "00-<32>-<16>-01"
func GenerateTraceParent() string {
	traceID := randomID(16)
	spanID := randomID(8)
	return "00-" + hex.EncodeToString(traceID) + "-" + hex.EncodeToString(spanID) + "-01"
}

// randomID returns n random bytes; an all-zero ID is invalid in W3C trace
// context so the last byte is forced non-zero in that case.
func randomID(n int) []byte {
	b := make([]byte, n)
	if _, err := crand.Read(b); err != nil {
		b = make([]byte, n)
	}
	for _, v := range b {
		if v != 0 {
			return b
		}
	}
	b[n-1] = 0x01
	return b
}
