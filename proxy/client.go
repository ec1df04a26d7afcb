package proxy

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/kratos-console/gateway/config"
	"github.com/kratos-console/gateway/httpclient"
	"github.com/kratos-console/gateway/logger"
)

// ClientOption customizes the upstream client.
type ClientOption func(*clientOptions)

type clientOptions struct {
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	extra          []httpclient.Option
}

// WithClientTracing adds client spans for every attempt.
func WithClientTracing(tp trace.TracerProvider) ClientOption {
	return func(o *clientOptions) { o.tracerProvider = tp }
}

// WithClientMetrics records retry and attempt metrics.
func WithClientMetrics(mp metric.MeterProvider) ClientOption {
	return func(o *clientOptions) { o.meterProvider = mp }
}

// WithHTTPClientOptions passes raw options to the underlying client.
func WithHTTPClientOptions(opts ...httpclient.Option) ClientOption {
	return func(o *clientOptions) { o.extra = append(o.extra, opts...) }
}

// ProfilePolicy returns the baseline policy for a client profile.
func ProfilePolicy(profile string) httpclient.Policy {
	if profile == config.ProfileDefault {
		return httpclient.DefaultPolicy()
	}
	return httpclient.IdentityPolicy()
}

// NewUpstreamClient builds the client used to reach the identity service.
// The profile picks the retry condition; retries, timeout and delays come
// from cfg. Redirects are relayed to the caller rather than followed.
func NewUpstreamClient(cfg config.ClientConfig, log logger.Logger, opts ...ClientOption) (httpclient.Client, error) {
	var o clientOptions
	for _, opt := range opts {
		opt(&o)
	}

	b := httpclient.NewBuilder().
		WithPolicy(ProfilePolicy(cfg.Profile)).
		WithRetries(cfg.MaxRetries).
		WithTimeout(cfg.Timeout).
		WithDelays(cfg.Delay.Base, cfg.Delay.Max).
		WithOnRetry(httpclient.LogRetries(log)).
		WithRequestInterceptor(httpclient.NewTraceIDInterceptor("")).
		WithAttemptObserver(httpclient.RecordUpstream).
		WithoutRedirects()

	if o.tracerProvider != nil {
		b = b.WithTracerProvider(o.tracerProvider)
	}
	if o.meterProvider != nil {
		m, err := httpclient.NewMetrics(o.meterProvider)
		if err != nil {
			return nil, fmt.Errorf("failed to create upstream client metrics: %w", err)
		}
		b = b.WithOnRetry(m.OnRetry).WithAttemptObserver(m.ObserveAttempt)
	}
	if len(o.extra) > 0 {
		b = b.WithOptions(o.extra...)
	}
	return b.Build(), nil
}
