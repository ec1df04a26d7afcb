package server

import (
	"context"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/kratos-console/gateway/observability"
)

const (
	httpMeterName = "kratos-gateway/http-server"

	// Metric names following OpenTelemetry semantic conventions
	metricHTTPRequestDuration = "http.server.request.duration" // Histogram in seconds
	metricHTTPActiveRequests  = "http.server.active_requests"  // UpDownCounter

	attrHTTPRequestMethod  = "http.request.method"
	attrHTTPResponseStatus = "http.response.status_code"
	attrHTTPRoute          = "http.route"
	attrURLScheme          = "url.scheme"
	attrErrorType          = "error.type"
)

// Recommended boundaries for HTTP request latency in seconds.
var httpDurationBuckets = []float64{
	0.005, 0.01, 0.025, 0.05, 0.075, 0.1, 0.25, 0.5, 0.75, 1, 2.5, 5, 7.5, 10,
}

type httpMetrics struct {
	duration metric.Float64Histogram
	active   metric.Int64UpDownCounter
	skipper  middleware.Skipper
}

// HTTPMetrics returns middleware that records request duration and the number
// of in-flight requests. Requests matched by skipper are not measured.
func HTTPMetrics(mp metric.MeterProvider, skipper middleware.Skipper) (echo.MiddlewareFunc, error) {
	meter := mp.Meter(httpMeterName)

	duration, err := observability.CreateHistogram(meter, metricHTTPRequestDuration,
		"Duration of HTTP server requests",
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(httpDurationBuckets...),
	)
	if err != nil {
		return nil, err
	}
	active, err := meter.Int64UpDownCounter(metricHTTPActiveRequests,
		metric.WithDescription("Number of active HTTP server requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}
	if skipper == nil {
		skipper = middleware.DefaultSkipper
	}

	h := &httpMetrics{duration: duration, active: active, skipper: skipper}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			return h.handle(c, next)
		}
	}, nil
}

func (h *httpMetrics) handle(c echo.Context, next echo.HandlerFunc) error {
	if h.skipper(c) {
		return next(c)
	}

	req := c.Request()
	ctx := req.Context()
	base := []attribute.KeyValue{
		attribute.String(attrHTTPRequestMethod, req.Method),
		attribute.String(attrURLScheme, extractScheme(c)),
	}

	h.active.Add(ctx, 1, metric.WithAttributes(base...))
	start := time.Now()
	err := next(c)
	elapsed := time.Since(start)
	h.active.Add(ctx, -1, metric.WithAttributes(base...))

	status := c.Response().Status
	if err != nil && !c.Response().Committed {
		status = statusCodeOf(err)
	}
	h.record(ctx, elapsed, base, status, c.Path())
	return err
}

func (h *httpMetrics) record(ctx context.Context, elapsed time.Duration, base []attribute.KeyValue, status int, route string) {
	if route == "" {
		route = "unknown"
	}
	attrs := append(base[:len(base):len(base)],
		attribute.Int(attrHTTPResponseStatus, status),
		attribute.String(attrHTTPRoute, route),
	)
	if status >= 400 {
		attrs = append(attrs, attribute.String(attrErrorType, strconv.Itoa(status)))
	}
	h.duration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attrs...))
}

// extractScheme determines the URL scheme from the request.
// It checks X-Forwarded-Proto first, then falls back to TLS status.
func extractScheme(c echo.Context) string {
	if proto := c.Request().Header.Get(HeaderXForwardedProto); proto != "" {
		return proto
	}
	if c.Request().TLS != nil {
		return "https"
	}
	return "http"
}
