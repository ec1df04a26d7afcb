package httpclient

import (
	nethttp "net/http"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// Builder provides a fluent interface for configuring the client.
// It starts from DefaultPolicy.
type Builder struct {
	policy Policy
	opts   []Option
}

// NewBuilder creates a new client builder
func NewBuilder() *Builder {
	return &Builder{policy: DefaultPolicy()}
}

// WithPolicy replaces the whole policy, e.g. with IdentityPolicy()
func (b *Builder) WithPolicy(p Policy) *Builder {
	b.policy = p
	return b
}

// WithRetries sets the number of retries after the first attempt
func (b *Builder) WithRetries(maxRetries int) *Builder {
	b.policy.MaxRetries = maxRetries
	return b
}

// WithDelays sets the backoff base and cap
func (b *Builder) WithDelays(base, maxDelay time.Duration) *Builder {
	b.policy.BaseDelay = base
	b.policy.MaxDelay = maxDelay
	return b
}

// WithTimeout sets the per-attempt timeout
func (b *Builder) WithTimeout(timeout time.Duration) *Builder {
	b.policy.Timeout = timeout
	return b
}

// WithDefaultHeader adds a default header that will be sent with all requests
func (b *Builder) WithDefaultHeader(key, value string) *Builder {
	if b.policy.DefaultHeaders == nil {
		b.policy.DefaultHeaders = map[string]string{}
	}
	b.policy.DefaultHeaders[key] = value
	return b
}

// WithRetryCondition overrides the retry decision
func (b *Builder) WithRetryCondition(cond RetryCondition) *Builder {
	b.policy.RetryCondition = cond
	return b
}

// WithOnRetry adds a retry hook; hooks added earlier run first
func (b *Builder) WithOnRetry(hook RetryHook) *Builder {
	b.policy.OnRetry = ChainRetryHooks(b.policy.OnRetry, hook)
	return b
}

// WithBasicAuth sets default basic authentication credentials
func (b *Builder) WithBasicAuth(username, password string) *Builder {
	b.opts = append(b.opts, WithDefaultBasicAuth(username, password))
	return b
}

// WithRequestInterceptor adds a request interceptor
func (b *Builder) WithRequestInterceptor(interceptor RequestInterceptor) *Builder {
	b.opts = append(b.opts, WithRequestInterceptor(interceptor))
	return b
}

// WithAttemptObserver adds an attempt observer
func (b *Builder) WithAttemptObserver(observer AttemptObserver) *Builder {
	b.opts = append(b.opts, WithAttemptObserver(observer))
	return b
}

// WithTransport sets the round tripper
func (b *Builder) WithTransport(rt nethttp.RoundTripper) *Builder {
	b.opts = append(b.opts, WithTransport(rt))
	return b
}

// WithTracerProvider enables client spans
func (b *Builder) WithTracerProvider(tp trace.TracerProvider) *Builder {
	b.opts = append(b.opts, WithTracerProvider(tp))
	return b
}

// WithoutRedirects disables redirect following
func (b *Builder) WithoutRedirects() *Builder {
	b.opts = append(b.opts, WithoutRedirects())
	return b
}

// WithOptions appends arbitrary client options
func (b *Builder) WithOptions(opts ...Option) *Builder {
	b.opts = append(b.opts, opts...)
	return b
}

// Build creates the client with the configured options
func (b *Builder) Build() Client {
	return New(b.policy, b.opts...)
}
