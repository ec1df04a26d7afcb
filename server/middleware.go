package server

import (
	"fmt"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel/metric"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/kratos-console/gateway/config"
	"github.com/kratos-console/gateway/logger"
)

// SetupMiddlewares configures and registers all HTTP middlewares for the Echo server.
// Spans and metrics are recorded only when the corresponding provider is non-nil.
func SetupMiddlewares(e *echo.Echo, log logger.Logger, cfg *config.Config, tp oteltrace.TracerProvider, mp metric.MeterProvider) error {
	probes := probeSkipper(cfg.Server.Path.Health, cfg.Server.Path.Ready)

	// Request ID
	e.Use(middleware.RequestID())

	// Server spans; must run before TraceContext so the span context is visible to it
	if tp != nil {
		e.Use(otelecho.Middleware(cfg.App.Name,
			otelecho.WithTracerProvider(tp),
			otelecho.WithSkipper(probes),
		))
	}

	// Inject trace context into request context for outbound propagation
	e.Use(TraceContext())

	// Per-request upstream attempt counters reported by the access log
	e.Use(UpstreamStats())

	if mp != nil {
		metrics, err := HTTPMetrics(mp, probes)
		if err != nil {
			return fmt.Errorf("failed to create http metrics: %w", err)
		}
		e.Use(metrics)
	}

	// Logger middleware with zerolog
	e.Use(LoggerWithConfig(log, LoggerConfig{
		HealthPath:           cfg.Server.Path.Health,
		ReadyPath:            cfg.Server.Path.Ready,
		SlowRequestThreshold: DefaultSlowRequestThreshold,
	}))

	// Recovery
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			log.Error().
				Err(err).
				Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
				Bytes("stack", stack).
				Msg("Panic recovered")
			return err
		},
	}))

	// Security headers
	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "SAMEORIGIN",
		HSTSMaxAge:            3600,
		ContentSecurityPolicy: "default-src 'self'",
	}))

	// Body limit
	if cfg.Server.BodyLimit != "" {
		e.Use(middleware.BodyLimit(cfg.Server.BodyLimit))
	}

	// Gzip
	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level:   5,
		Skipper: probes,
	}))

	// Rate limit
	e.Use(RateLimit(cfg.App.Rate.Limit, cfg.App.Rate.Burst))

	// Timing
	e.Use(Timing())

	return nil
}

// probeSkipper skips the health and readiness endpoints.
func probeSkipper(paths ...string) middleware.Skipper {
	return func(c echo.Context) bool {
		path := c.Request().URL.Path
		for _, p := range paths {
			if p != "" && path == p {
				return true
			}
		}
		return false
	}
}
