package httpclient

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/kratos-console/gateway/observability"
)

const (
	meterName = "github.com/kratos-console/gateway/httpclient"

	metricRetries         = "http.client.retries"
	metricAttemptDuration = "http.client.attempt.duration"
)

// Metrics records retry and attempt instruments. Wire OnRetry into the policy
// and ObserveAttempt as an attempt observer.
type Metrics struct {
	retries  metric.Int64Counter
	duration metric.Float64Histogram
}

// NewMetrics creates the client instruments on mp
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter(meterName)

	retries, err := observability.CreateCounter(meter, metricRetries, "Upstream request attempts that were retried")
	if err != nil {
		return nil, fmt.Errorf("failed to create %s counter: %w", metricRetries, err)
	}
	duration, err := observability.CreateHistogram(meter, metricAttemptDuration,
		"Duration of single upstream attempts in milliseconds", metric.WithUnit("ms"))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s histogram: %w", metricAttemptDuration, err)
	}
	return &Metrics{retries: retries, duration: duration}, nil
}

// OnRetry counts a retried failure by error kind
func (m *Metrics) OnRetry(err error, attempt int) {
	m.retries.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("error.kind", string(KindOf(err))),
		attribute.Int("attempt", attempt),
	))
}

// ObserveAttempt records the duration of one attempt
func (m *Metrics) ObserveAttempt(ctx context.Context, info AttemptInfo) {
	outcome := "ok"
	if info.Err != nil {
		outcome = string(KindOf(info.Err))
	}
	m.duration.Record(ctx, float64(info.Duration.Microseconds())/1000, metric.WithAttributes(
		attribute.String("http.request.method", info.Method),
		attribute.String("outcome", outcome),
	))
}
