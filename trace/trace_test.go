package trace

import (
	"context"
	nethttp "net/http"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTraceParent = "00-0123456789abcdef0123456789abcdef-0123456789abcdef-01"

func TestEnsureTraceID_UsesExisting(t *testing.T) {
	ctx := WithTraceID(context.Background(), "existing-trace-id")
	assert.Equal(t, "existing-trace-id", EnsureTraceID(ctx))
}

func TestEnsureTraceID_GeneratesWhenMissing(t *testing.T) {
	got := EnsureTraceID(context.Background())
	re := regexp.MustCompile(`^[a-f0-9\-]{36}$`)
	assert.True(t, re.MatchString(strings.ToLower(got)))
}

func TestWithTraceID_IgnoresEmpty(t *testing.T) {
	ctx := WithTraceID(context.Background(), "")
	_, ok := IDFromContext(ctx)
	assert.False(t, ok)
}

func TestTraceParentAndState_ContextRoundTrip(t *testing.T) {
	ctx := WithTraceParent(context.Background(), testTraceParent)
	ctx = WithTraceState(ctx, "vendor=a:b,c=d")

	tp, ok := ParentFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, testTraceParent, tp)

	ts, ok := StateFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "vendor=a:b,c=d", ts)
}

func TestGenerateTraceParent_Format(t *testing.T) {
	parts := strings.Split(GenerateTraceParent(), "-")
	require.Len(t, parts, 4)
	assert.Equal(t, "00", parts[0])
	assert.Len(t, parts[1], 32)
	assert.Len(t, parts[2], 16)
	assert.Equal(t, "01", parts[3])

	hexRe := regexp.MustCompile(`^[0-9a-f]+$`)
	assert.True(t, hexRe.MatchString(parts[1]))
	assert.True(t, hexRe.MatchString(parts[2]))
}

func TestFromHeaders(t *testing.T) {
	t.Run("copies inbound values", func(t *testing.T) {
		h := nethttp.Header{}
		h.Set(HeaderXRequestID, "req-1")
		h.Set(HeaderTraceParent, testTraceParent)
		h.Set(HeaderTraceState, "vendor=x")

		ctx := FromHeaders(context.Background(), h)

		id, _ := IDFromContext(ctx)
		tp, _ := ParentFromContext(ctx)
		ts, _ := StateFromContext(ctx)
		assert.Equal(t, "req-1", id)
		assert.Equal(t, testTraceParent, tp)
		assert.Equal(t, "vendor=x", ts)
	})

	t.Run("generates a request id when absent", func(t *testing.T) {
		ctx := FromHeaders(context.Background(), nethttp.Header{})
		id, ok := IDFromContext(ctx)
		require.True(t, ok)
		assert.NotEmpty(t, id)
		_, ok = ParentFromContext(ctx)
		assert.False(t, ok)
	})
}

func TestInjectHeaders(t *testing.T) {
	t.Run("fills missing headers from context", func(t *testing.T) {
		ctx := WithTraceID(context.Background(), "ctx-id")
		ctx = WithTraceParent(ctx, testTraceParent)
		ctx = WithTraceState(ctx, "vendor=a")

		h := nethttp.Header{}
		InjectHeaders(ctx, h, "")

		assert.Equal(t, "ctx-id", h.Get(HeaderXRequestID))
		assert.Equal(t, testTraceParent, h.Get(HeaderTraceParent))
		assert.Equal(t, "vendor=a", h.Get(HeaderTraceState))
	})

	t.Run("preserves caller supplied headers", func(t *testing.T) {
		ctx := WithTraceID(context.Background(), "ctx-id")
		ctx = WithTraceParent(ctx, testTraceParent)

		h := nethttp.Header{}
		h.Set(HeaderXRequestID, "pre-set")
		h.Set(HeaderTraceParent, "00-ffffffffffffffffffffffffffffffff-ffffffffffffffff-01")
		InjectHeaders(ctx, h, "")

		assert.Equal(t, "pre-set", h.Get(HeaderXRequestID))
		assert.Equal(t, "00-ffffffffffffffffffffffffffffffff-ffffffffffffffff-01", h.Get(HeaderTraceParent))
	})

	t.Run("custom id header", func(t *testing.T) {
		ctx := WithTraceID(context.Background(), "ctx-id")
		h := nethttp.Header{}
		InjectHeaders(ctx, h, "X-Correlation-ID")

		assert.Equal(t, "ctx-id", h.Get("X-Correlation-ID"))
		assert.Empty(t, h.Get(HeaderXRequestID))
	})
}
