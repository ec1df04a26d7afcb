package server

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/kratos-console/gateway/logger"
)

// HeaderXUpstreamAttempts reports how many upstream attempts served the response.
const HeaderXUpstreamAttempts = "X-Upstream-Attempts"

// UpstreamStats returns middleware that attaches an upstream attempt counter to
// each request. The upstream client increments it per attempt and the request
// logger reports the totals.
func UpstreamStats() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := logger.WithUpstreamCounter(c.Request().Context())
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

// Timing returns a middleware that reports the processing time in
// X-Response-Time and, when upstream calls were made, their count in
// X-Upstream-Attempts. Headers are written just before the response is committed.
func Timing() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			resp := c.Response()
			resp.Before(func() {
				resp.Header().Set(HeaderXResponseTime, time.Since(start).String())
				if n := logger.UpstreamAttempts(c.Request().Context()); n > 0 {
					resp.Header().Set(HeaderXUpstreamAttempts, strconv.FormatInt(n, 10))
				}
			})
			return next(c)
		}
	}
}
