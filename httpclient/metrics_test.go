package httpclient

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	obtest "github.com/kratos-console/gateway/observability/testing"
)

func TestMetrics(t *testing.T) {
	mp := obtest.NewTestMeterProvider()
	defer func() { _ = mp.Shutdown(context.Background()) }()

	m, err := NewMetrics(mp)
	require.NoError(t, err)

	var calls atomic.Int32
	c := New(Policy{MaxRetries: 3, OnRetry: m.OnRetry},
		WithTransport(sequenceTransport(&calls, 502, 503, 200)),
		WithSleep((&delayRecorder{}).sleep),
		WithAttemptObserver(m.ObserveAttempt),
	)

	_, err = c.Get(context.Background(), testURL)
	require.NoError(t, err)

	rm := mp.Collect(t)
	obtest.AssertMetricExists(t, rm, metricRetries)
	obtest.AssertMetricDescription(t, rm, metricRetries, "Upstream request attempts that were retried")

	retries := obtest.FindMetric(rm, metricRetries)
	require.NotNil(t, retries)
	assert.Equal(t, int64(2), obtest.SumInt64(t, *retries))

	hist := obtest.FindMetric(rm, metricAttemptDuration)
	require.NotNil(t, hist)
	assert.Equal(t, uint64(3), obtest.HistogramCount(t, *hist))
}

func TestTracerProviderRecordsSpanPerAttempt(t *testing.T) {
	tp := obtest.NewTestTraceProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()

	var calls atomic.Int32
	c := NewBuilder().
		WithRetries(2).
		WithTransport(sequenceTransport(&calls, 500, 200)).
		WithTracerProvider(tp).
		WithOptions(WithSleep((&delayRecorder{}).sleep)).
		Build()

	_, err := c.Get(context.Background(), testURL)
	require.NoError(t, err)

	spans := tp.Exporter.GetSpans()
	assert.Len(t, spans, 2)
}
