package server

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/kratos-console/gateway/logger"
	"github.com/kratos-console/gateway/trace"
)

// DefaultSlowRequestThreshold marks requests slower than this with result_code WARN.
const DefaultSlowRequestThreshold = time.Second

// LoggerConfig configures the request logging middleware.
type LoggerConfig struct {
	// HealthPath specifies the health probe endpoint to exclude from logging
	HealthPath string

	// ReadyPath specifies the readiness probe endpoint to exclude from logging
	ReadyPath string

	// SlowRequestThreshold defines the latency threshold for marking requests as slow.
	// Requests exceeding this duration are logged with result_code="WARN" even if HTTP status is 2xx.
	// Zero disables slow request detection.
	SlowRequestThreshold time.Duration
}

// LoggerWithConfig returns a request logging middleware that emits one access
// log per request, including the upstream attempts made while serving it.
func LoggerWithConfig(log logger.Logger, cfg LoggerConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			if path == cfg.HealthPath || path == cfg.ReadyPath {
				return next(c)
			}

			start := time.Now()
			err := next(c)
			latency := time.Since(start)

			status := c.Response().Status
			// Returned errors are rendered after the middleware chain unwinds.
			if err != nil && !c.Response().Committed {
				status = statusCodeOf(err)
			}

			logAccess(c, log, cfg, latency, status, err)
			return err
		}
	}
}

// logAccess emits the request summary with OpenTelemetry semantic conventions.
func logAccess(c echo.Context, log logger.Logger, cfg LoggerConfig, latency time.Duration, status int, err error) {
	ctx := c.Request().Context()

	logLevel, resultCode := determineSeverity(status, latency, cfg.SlowRequestThreshold, err)
	event := createLogEvent(log.WithContext(ctx), logLevel)

	if err != nil {
		event = event.Err(err)
	}

	traceID, _ := trace.IDFromContext(ctx)
	method := c.Request().Method
	uri := c.Request().URL.Path

	event.
		Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
		Str("correlation_id", traceID).
		Str("http.request.method", method).
		Int("http.response.status_code", status).
		Int64("http.server.request.duration", latency.Nanoseconds()). // OTel uses nanoseconds
		Str("url.path", uri).
		Str("http.route", c.Path()).
		Str("client.address", c.RealIP()).
		Str("user_agent.original", c.Request().UserAgent()).
		Str("result_code", resultCode).
		Int64("upstream_attempts", logger.UpstreamAttempts(ctx)).
		Dur("upstream_elapsed", logger.UpstreamElapsed(ctx)).
		Str("traceparent", c.Response().Header().Get(trace.HeaderTraceParent)).
		Msg(createActionMessage(method, uri, latency, status))
}

// determineSeverity calculates log severity and result_code based on HTTP status, latency, and errors.
func determineSeverity(
	status int,
	latency, threshold time.Duration,
	err error,
) (logLevel, resultCode string) {
	const (
		levelError = "error"
		levelWarn  = "warn"
		levelInfo  = "info"
		codeError  = "ERROR"
		codeWarn   = "WARN"
		codeInfo   = "INFO"
	)

	// ERROR: 5xx status or unhandled error
	if status >= 500 || (err != nil && status == 0) {
		return levelError, codeError
	}

	// WARN: 4xx status
	if status >= 400 {
		return levelWarn, codeWarn
	}

	// Slow requests keep INFO level but are tagged WARN for filtering
	if threshold > 0 && latency > threshold {
		return levelInfo, codeWarn
	}

	return levelInfo, codeInfo
}

// createLogEvent creates a log event with the specified severity level.
func createLogEvent(log logger.Logger, level string) logger.LogEvent {
	switch level {
	case "error":
		return log.Error()
	case "warn":
		return log.Warn()
	default:
		return log.Info()
	}
}

// createActionMessage generates a human-readable message for access logs.
// Example: "GET /api/kratos/admin/identities completed in 123ms with status 200"
func createActionMessage(method, path string, latency time.Duration, status int) string {
	return method + " " + path + " completed in " + latency.String() + " with status " + strconv.Itoa(status)
}
