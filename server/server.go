// Package server provides the gateway's HTTP server using the Echo framework.
// It includes middleware setup, the standard error envelope, and probe endpoints.
package server

import (
	"context"
	goerrors "errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/kratos-console/gateway/config"
	"github.com/kratos-console/gateway/logger"
)

// ReadinessCheck reports whether the gateway can serve traffic.
type ReadinessCheck func(ctx context.Context) error

// Server represents an HTTP server instance with Echo framework.
// It manages server lifecycle, configuration, and request handling.
type Server struct {
	echo      *echo.Echo
	cfg       *config.Config
	logger    logger.Logger
	readiness ReadinessCheck
}

// Option customizes a Server.
type Option func(*options)

type options struct {
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	readiness      ReadinessCheck
}

// WithTracerProvider enables server spans through otelecho.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tracerProvider = tp }
}

// WithMeterProvider enables HTTP server metrics.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.meterProvider = mp }
}

// WithReadinessCheck makes the ready endpoint return 503 while check fails.
func WithReadinessCheck(check ReadinessCheck) Option {
	return func(o *options) { o.readiness = check }
}

// New creates a new HTTP server instance with the given configuration and logger.
// It initializes Echo with middlewares, error handling, and probe endpoints.
func New(cfg *config.Config, log logger.Logger, opts ...Option) (*Server, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	// Use an error handler that emits standardized APIResponse envelopes
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		customErrorHandler(err, c, cfg, log)
	}

	if err := SetupMiddlewares(e, log, cfg, o.tracerProvider, o.meterProvider); err != nil {
		return nil, err
	}

	s := &Server{
		echo:      e,
		cfg:       cfg,
		logger:    log,
		readiness: o.readiness,
	}

	e.GET(cfg.Server.Path.Health, s.healthCheck)
	e.GET(cfg.Server.Path.Ready, s.readyCheck)

	log.Debug().
		Str("health_path", cfg.Server.Path.Health).
		Str("ready_path", cfg.Server.Path.Ready).
		Msg("Server paths configured")

	return s, nil
}

// Echo returns the underlying Echo instance for route registration.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Start starts the HTTP server and begins accepting requests.
// It blocks until the server is shut down or encounters an error.
// http.ErrServerClosed is reported as nil.
func (s *Server) Start() error {
	addr := s.cfg.Server.Address()

	s.logger.Info().
		Str("service", s.cfg.App.Name).
		Str("version", s.cfg.App.Version).
		Str("env", s.cfg.App.Env).
		Str("address", addr).
		Msg("Starting server...")

	server := &http.Server{
		Addr:         addr,
		ReadTimeout:  s.cfg.Server.Timeout.Read,
		WriteTimeout: s.cfg.Server.Timeout.Write,
		IdleTimeout:  s.cfg.Server.Timeout.Idle,
	}

	if err := s.echo.StartServer(server); err != nil && !goerrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server with the given context.
// It waits for existing connections to finish within the context timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

func (s *Server) readyCheck(c echo.Context) error {
	if s.readiness != nil {
		if err := s.readiness(c.Request().Context()); err != nil {
			return NewServiceUnavailableError("Upstream identity service is not ready").
				WithDetails("error", err.Error())
		}
	}
	return c.JSON(http.StatusOK, map[string]any{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

func customErrorHandler(err error, c echo.Context, cfg *config.Config, log logger.Logger) {
	if c.Response().Committed {
		return
	}

	// If this is a structured API error, reuse its fields
	var apiErr IAPIError
	if goerrors.As(err, &apiErr) {
		_ = formatErrorResponse(c, apiErr, cfg)
		return
	}

	// Map echo.HTTPError and untyped errors to standardized envelope
	status := http.StatusInternalServerError
	msg := "Internal server error"
	var he *echo.HTTPError
	if goerrors.As(err, &he) {
		status = he.Code
		switch m := he.Message.(type) {
		case string:
			msg = m
		case error:
			msg = m.Error()
		default:
			// keep default
		}
	}

	// In non-debug (production) hide internal details for 500s
	if !cfg.App.Debug && status == http.StatusInternalServerError {
		msg = "An error occurred while processing your request"
	}

	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("request_id", getTraceID(c)).Msg("Unhandled error")
	}

	base := NewBaseAPIError(StatusToErrorCode(status), msg, status)
	// Include raw error details in development
	if isDevelopmentEnv(cfg.App.Env) {
		_ = base.WithDetails("error", err.Error())
	}

	_ = formatErrorResponse(c, base, cfg)
}

// StatusToErrorCode maps an HTTP status to the envelope error code.
func StatusToErrorCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "BAD_REQUEST"
	case http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case http.StatusForbidden:
		return "FORBIDDEN"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case http.StatusConflict:
		return "CONFLICT"
	case http.StatusRequestEntityTooLarge:
		return "PAYLOAD_TOO_LARGE"
	case http.StatusTooManyRequests:
		return "TOO_MANY_REQUESTS"
	case http.StatusBadGateway:
		return "BAD_GATEWAY"
	case http.StatusServiceUnavailable:
		return "SERVICE_UNAVAILABLE"
	case http.StatusGatewayTimeout:
		return "GATEWAY_TIMEOUT"
	default:
		if status >= http.StatusBadRequest && status < http.StatusInternalServerError {
			return "CLIENT_ERROR"
		}
		return "INTERNAL_ERROR"
	}
}

func isDevelopmentEnv(env string) bool {
	return env == config.EnvDevelopment || env == "dev"
}
