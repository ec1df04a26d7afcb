package testing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

func TestSpanCollectorFilters(t *testing.T) {
	tp := NewTestTraceProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()

	tracer := tp.Tracer("test")
	_, a := tracer.Start(context.Background(), "proxy")
	a.SetAttributes(attribute.String("upstream", "admin"), attribute.Int("attempts", 2))
	a.End()
	_, b := tracer.Start(context.Background(), "proxy")
	b.SetAttributes(attribute.String("upstream", "public"))
	b.End()
	_, c := tracer.Start(context.Background(), "probe")
	c.End()

	all := NewSpanCollector(t, tp.Exporter)
	assert.Equal(t, 3, all.Len())

	all.WithName("proxy").AssertCount(2)
	admin := all.WithName("proxy").WithAttribute("upstream", "admin").AssertCount(1)
	assert.Equal(t, "proxy", admin.First().Name)
	all.WithAttribute("attempts", 2).AssertCount(1)
	all.WithAttribute("attempts", "2").AssertCount(0)
	all.WithName("missing").AssertCount(0)
}

func TestSumInt64AcrossAttributeSets(t *testing.T) {
	mp := NewTestMeterProvider()
	defer func() { _ = mp.Shutdown(context.Background()) }()

	counter, err := mp.Meter("test").Int64Counter("retries", metric.WithDescription("retried attempts"))
	require.NoError(t, err)

	ctx := context.Background()
	counter.Add(ctx, 2, metric.WithAttributes(attribute.String("error.kind", "network")))
	counter.Add(ctx, 3, metric.WithAttributes(attribute.String("error.kind", "http")))

	rm := mp.Collect(t)
	AssertMetricExists(t, rm, "retries")
	AssertMetricDescription(t, rm, "retries", "retried attempts")

	m := FindMetric(rm, "retries")
	require.NotNil(t, m)
	assert.Equal(t, int64(5), SumInt64(t, *m))
	assert.Nil(t, FindMetric(rm, "absent"))
}

func TestHistogramCountAcrossAttributeSets(t *testing.T) {
	mp := NewTestMeterProvider()
	defer func() { _ = mp.Shutdown(context.Background()) }()

	hist, err := mp.Meter("test").Float64Histogram("duration")
	require.NoError(t, err)

	ctx := context.Background()
	hist.Record(ctx, 12, metric.WithAttributes(attribute.String("outcome", "success")))
	hist.Record(ctx, 40, metric.WithAttributes(attribute.String("outcome", "error")))
	hist.Record(ctx, 8, metric.WithAttributes(attribute.String("outcome", "success")))

	m := FindMetric(mp.Collect(t), "duration")
	require.NotNil(t, m)
	assert.Equal(t, uint64(3), HistogramCount(t, *m))
}
