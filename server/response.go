package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/kratos-console/gateway/config"
	"github.com/kratos-console/gateway/trace"
)

// IAPIError defines the interface for API errors with structured information.
type IAPIError interface {
	ErrorCode() string
	Message() string
	HTTPStatus() int
	Details() map[string]any
}

// APIResponse represents the standardized API response format.
type APIResponse struct {
	Data  any               `json:"data,omitempty"`
	Error *APIErrorResponse `json:"error,omitempty"`
	Meta  map[string]any    `json:"meta"`
}

// APIErrorResponse represents the error portion of an API response.
type APIErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// formatErrorResponse formats an error response with standardized structure.
func formatErrorResponse(c echo.Context, apiErr IAPIError, cfg *config.Config) error {
	errorResp := &APIErrorResponse{
		Code:    apiErr.ErrorCode(),
		Message: apiErr.Message(),
	}

	// Include details only in development environment
	if isDevelopmentEnv(cfg.App.Env) {
		if details := apiErr.Details(); len(details) > 0 {
			errorResp.Details = details
		}
	}

	response := APIResponse{
		Error: errorResp,
		Meta: map[string]any{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"traceId":   getTraceID(c),
		},
	}

	ensureTraceParentHeader(c)
	return c.JSON(apiErr.HTTPStatus(), response)
}

// getTraceID extracts or generates a trace ID for the request.
func getTraceID(c echo.Context) string {
	// Prefer incoming request header set by upstream/proxy/middleware
	if requestID := c.Request().Header.Get(echo.HeaderXRequestID); requestID != "" {
		return requestID
	}
	// Then try the response header (may be set by request ID middleware)
	if requestID := c.Response().Header().Get(echo.HeaderXRequestID); requestID != "" {
		return requestID
	}
	newID := uuid.New().String()
	c.Response().Header().Set(echo.HeaderXRequestID, newID)
	return newID
}

// ensureTraceParentHeader ensures the response contains a W3C traceparent header.
// It propagates the inbound header when present, otherwise generates a new one.
func ensureTraceParentHeader(c echo.Context) {
	if c.Response().Header().Get(trace.HeaderTraceParent) != "" {
		return
	}
	if tp := c.Request().Header.Get(trace.HeaderTraceParent); tp != "" {
		c.Response().Header().Set(trace.HeaderTraceParent, tp)
		return
	}
	c.Response().Header().Set(trace.HeaderTraceParent, trace.GenerateTraceParent())
}

// statusCodeOf returns the status an error will be rendered with.
func statusCodeOf(err error) int {
	var apiErr IAPIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatus()
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return http.StatusInternalServerError
}
