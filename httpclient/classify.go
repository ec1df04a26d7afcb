package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	neturl "net/url"
	"strings"
	"syscall"
	"time"
)

// networkMarkers are matched case-insensitively against error text when the
// transport returned no structured cause.
var networkMarkers = []string{"fetch", "network", "econnreset", "enotfound", "socket hang up"}

// Classify maps a transport error of one attempt to the error taxonomy.
// attemptCtx is the context the attempt ran under; its cancellation cause
// tells an expired attempt timer apart from caller cancellation.
//
// The result is one of:
//   - *TimeoutError when the attempt timer fired
//   - *NetworkError with code ETIMEDOUT for transport timeouts (dial, TLS handshake)
//   - a wrapped caller context error when the caller canceled
//   - *NetworkError for connectivity failures
//   - err unchanged otherwise
func Classify(err error, attemptCtx context.Context, url string, timeout time.Duration) error {
	if err == nil {
		return nil
	}
	var ce ClientError
	if errors.As(err, &ce) {
		return err
	}

	if attemptCtx != nil {
		switch cause := context.Cause(attemptCtx); {
		case cause == nil, errors.Is(cause, errAttemptDone):
		case errors.Is(cause, errAttemptTimeout):
			return &TimeoutError{Timeout: timeout, URL: url}
		default:
			return fmt.Errorf("httpclient: request to %s canceled: %w", url, cause)
		}
	}

	// transport deadlines are not the attempt timeout
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &NetworkError{Message: rootMessage(err), Code: "ETIMEDOUT", URL: url, Err: err}
	}

	if code, ok := networkCode(err); ok {
		return &NetworkError{Message: rootMessage(err), Code: code, URL: url, Err: err}
	}

	return err
}

// networkCode recognizes connectivity failures from structured causes first
// and falls back to message markers.
func networkCode(err error) (string, bool) {
	var dnsErr *net.DNSError
	var opErr *net.OpError
	switch {
	case errors.As(err, &dnsErr):
		return "ENOTFOUND", true
	case errors.Is(err, syscall.ECONNRESET):
		return "ECONNRESET", true
	case errors.Is(err, syscall.ECONNREFUSED):
		return "ECONNREFUSED", true
	case errors.Is(err, syscall.EPIPE):
		return "EPIPE", true
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		// server closed the connection without answering
		return "ECONNRESET", true
	case errors.As(err, &opErr):
		return "", true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range networkMarkers {
		if strings.Contains(msg, marker) {
			return "", true
		}
	}
	return "", false
}

// rootMessage drops the method and URL prefix that net/http adds so the
// message does not repeat NetworkError.URL.
func rootMessage(err error) string {
	var urlErr *neturl.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		return urlErr.Err.Error()
	}
	return err.Error()
}
