package httpclient

import (
	"context"
	nethttp "net/http"

	"github.com/kratos-console/gateway/logger"
	"github.com/kratos-console/gateway/trace"
)

// ChainRetryHooks runs hooks in order, skipping nil entries
func ChainRetryHooks(hooks ...RetryHook) RetryHook {
	return func(err error, attempt int) {
		for _, hook := range hooks {
			if hook != nil {
				hook(err, attempt)
			}
		}
	}
}

// LogRetries returns a retry hook that writes one warning per retried failure
func LogRetries(log logger.Logger) RetryHook {
	return func(err error, attempt int) {
		event := log.Warn().
			Err(err).
			Int("attempt", attempt).
			Str("kind", string(KindOf(err)))
		if status := statusOf(err); status != 0 {
			event = event.Int("status", status)
		}
		event.Msg("Retrying upstream request")
	}
}

// RecordUpstream is an attempt observer that feeds the request-scoped
// upstream counters reported by the access log.
func RecordUpstream(ctx context.Context, info AttemptInfo) {
	logger.RecordUpstreamAttempt(ctx, info.Duration)
}

// NewTraceIDInterceptor propagates the request ID and W3C trace context held
// by ctx. An empty header name uses X-Request-ID.
func NewTraceIDInterceptor(header string) RequestInterceptor {
	return func(ctx context.Context, req *nethttp.Request) error {
		trace.InjectHeaders(ctx, req.Header, header)
		return nil
	}
}
