package logger

import (
	"context"
	"sync/atomic"
	"time"
)

// contextKey is the type for context keys to avoid collisions
type contextKey string

const (
	// upstreamCounterKey is the context key for tracking upstream attempts per request
	upstreamCounterKey contextKey = "upstream_attempt_counter"
	// upstreamElapsedKey is the context key for tracking total upstream time per request
	upstreamElapsedKey contextKey = "upstream_elapsed_nanos"
)

// WithUpstreamCounter creates a new context with an upstream attempt counter and elapsed time tracker
func WithUpstreamCounter(ctx context.Context) context.Context {
	counter := int64(0)
	elapsed := int64(0)
	ctx = context.WithValue(ctx, upstreamCounterKey, &counter)
	return context.WithValue(ctx, upstreamElapsedKey, &elapsed)
}

// RecordUpstreamAttempt counts one outbound attempt and adds its duration.
// It is a no-op when ctx carries no counter.
func RecordUpstreamAttempt(ctx context.Context, d time.Duration) {
	if ctx == nil {
		return
	}
	if counter, ok := ctx.Value(upstreamCounterKey).(*int64); ok && counter != nil {
		atomic.AddInt64(counter, 1)
	}
	if elapsed, ok := ctx.Value(upstreamElapsedKey).(*int64); ok && elapsed != nil {
		atomic.AddInt64(elapsed, int64(d))
	}
}

// UpstreamAttempts returns the number of upstream attempts recorded in ctx
func UpstreamAttempts(ctx context.Context) int64 {
	if ctx == nil {
		return 0
	}
	if counter, ok := ctx.Value(upstreamCounterKey).(*int64); ok && counter != nil {
		return atomic.LoadInt64(counter)
	}
	return 0
}

// UpstreamElapsed returns the accumulated upstream time recorded in ctx
func UpstreamElapsed(ctx context.Context) time.Duration {
	if ctx == nil {
		return 0
	}
	if elapsed, ok := ctx.Value(upstreamElapsedKey).(*int64); ok && elapsed != nil {
		return time.Duration(atomic.LoadInt64(elapsed))
	}
	return 0
}
