package server

import (
	"github.com/labstack/echo/v4"

	"github.com/kratos-console/gateway/trace"
)

// TraceContext injects the resolved trace ID and W3C trace context headers
// from the Echo request/response into the request context, so that the
// upstream client can propagate them without depending on Echo.
func TraceContext() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			ctx := trace.WithTraceID(req.Context(), getTraceID(c))
			ctx = trace.WithTraceParent(ctx, req.Header.Get(trace.HeaderTraceParent))
			ctx = trace.WithTraceState(ctx, req.Header.Get(trace.HeaderTraceState))

			c.SetRequest(req.WithContext(ctx))
			return next(c)
		}
	}
}
