package server

// HTTP Header Constants
//
// Headers already provided by Echo (echo.HeaderContentType, echo.HeaderXRequestID,
// echo.HeaderXRealIP, etc.) should be used directly from the echo package.

const (
	// HeaderXResponseTime is used to report request processing duration.
	// Set by the timing middleware on all responses.
	HeaderXResponseTime = "X-Response-Time"

	// HeaderXForwardedProto carries the scheme the client used when behind a proxy.
	HeaderXForwardedProto = "X-Forwarded-Proto"
)
