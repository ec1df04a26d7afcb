package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	neturl "net/url"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testURL = "http://kratos.test/admin/identities"

func httpErr(status int) *HTTPError {
	return &HTTPError{Status: status, URL: testURL}
}

func wrap(err error) error {
	return fmt.Errorf("outer: %w", err)
}

func urlErr(err error) error {
	return &neturl.Error{Op: "Get", URL: testURL, Err: err}
}

type timeoutNetError struct{}

func (timeoutNetError) Error() string   { return "i/o timeout" }
func (timeoutNetError) Timeout() bool   { return true }
func (timeoutNetError) Temporary() bool { return true }

func releasedContext() context.Context {
	ctx, cancel := context.WithCancelCause(context.Background())
	cancel(errAttemptDone)
	return ctx
}

func TestClassifyAttemptTimeout(t *testing.T) {
	ctx, cancel := context.WithCancelCause(context.Background())
	cancel(errAttemptTimeout)

	err := Classify(urlErr(context.Canceled), ctx, testURL, 2*time.Second)

	var te *TimeoutError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 2*time.Second, te.Timeout)
	assert.Equal(t, testURL, te.URL)
	assert.Contains(t, err.Error(), "2s")
	assert.Contains(t, err.Error(), testURL)
	assert.Equal(t, KindTimeout, KindOf(err))
}

func TestClassifyCallerCancellation(t *testing.T) {
	parent, cancelParent := context.WithCancel(context.Background())
	attemptCtx, cancel := context.WithCancelCause(parent)
	cancelParent()
	cancel(errAttemptDone)

	err := Classify(urlErr(context.Canceled), attemptCtx, testURL, time.Second)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, KindUnknown, KindOf(err))
}

func TestClassifyTransportErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind Kind
		code string
	}{
		{name: "dns failure", err: urlErr(&net.DNSError{Err: "no such host", Name: "kratos.test", IsNotFound: true}), kind: KindNetwork, code: "ENOTFOUND"},
		{name: "connection reset", err: urlErr(&net.OpError{Op: "read", Net: "tcp", Err: syscall.ECONNRESET}), kind: KindNetwork, code: "ECONNRESET"},
		{name: "connection refused", err: urlErr(&net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}), kind: KindNetwork, code: "ECONNREFUSED"},
		{name: "broken pipe", err: urlErr(&net.OpError{Op: "write", Net: "tcp", Err: syscall.EPIPE}), kind: KindNetwork, code: "EPIPE"},
		{name: "server hung up", err: urlErr(io.EOF), kind: KindNetwork, code: "ECONNRESET"},
		{name: "truncated body", err: io.ErrUnexpectedEOF, kind: KindNetwork, code: "ECONNRESET"},
		{name: "other op error", err: urlErr(&net.OpError{Op: "dial", Net: "tcp", Err: errors.New("no route")}), kind: KindNetwork},
		{name: "transport timeout", err: urlErr(timeoutNetError{}), kind: KindNetwork, code: "ETIMEDOUT"},
		{name: "message fetch failed", err: errors.New("fetch failed"), kind: KindNetwork},
		{name: "message network", err: errors.New("Network is unreachable"), kind: KindNetwork},
		{name: "message ECONNRESET", err: errors.New("read ECONNRESET"), kind: KindNetwork},
		{name: "message ENOTFOUND", err: errors.New("getaddrinfo ENOTFOUND kratos"), kind: KindNetwork},
		{name: "message socket hang up", err: errors.New("socket hang up"), kind: KindNetwork},
		{name: "unrelated", err: errors.New("malformed header"), kind: KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Classify(tt.err, releasedContext(), testURL, time.Second)
			assert.Equal(t, tt.kind, KindOf(err))

			if tt.kind == KindNetwork {
				var ne *NetworkError
				require.ErrorAs(t, err, &ne)
				assert.Equal(t, tt.code, ne.Code)
				assert.Equal(t, testURL, ne.URL)
				assert.NotContains(t, ne.Message, testURL)
				assert.ErrorIs(t, err, tt.err)
			}
			if tt.kind == KindUnknown {
				assert.Same(t, tt.err, err)
			}
		})
	}
}

func TestClassifyPassThrough(t *testing.T) {
	assert.NoError(t, Classify(nil, nil, testURL, time.Second))

	he := httpErr(503)
	assert.Same(t, he, Classify(he, releasedContext(), testURL, time.Second))

	err := Classify(errors.New("network down"), nil, testURL, time.Second)
	assert.Equal(t, KindNetwork, KindOf(err))
}

func TestErrorMessages(t *testing.T) {
	ne := &NetworkError{Message: "connection refused", Code: "ECONNREFUSED", URL: testURL}
	assert.Equal(t, "network error: connection refused (code: ECONNREFUSED, url: "+testURL+")", ne.Error())

	ne.Code = ""
	assert.Equal(t, "network error: connection refused (url: "+testURL+")", ne.Error())

	he := &HTTPError{Status: 503, StatusText: "Service Unavailable", URL: testURL}
	assert.Equal(t, "HTTP error: 503 Service Unavailable (url: "+testURL+")", he.Error())

	ve := &ValidationError{Message: "URL cannot be empty", Field: "url"}
	assert.Equal(t, "validation error: URL cannot be empty (field: url)", ve.Error())

	ie := &InterceptorError{Err: errors.New("denied")}
	assert.Equal(t, "interceptor error: denied", ie.Error())
}

func TestKindOfAndStatusHelpers(t *testing.T) {
	assert.Equal(t, KindHTTP, KindOf(wrap(httpErr(404))))
	assert.Equal(t, KindUnknown, KindOf(nil))
	assert.Equal(t, KindUnknown, KindOf(&ValidationError{Message: "x"}))

	assert.True(t, IsHTTPStatus(wrap(httpErr(429)), 429))
	assert.False(t, IsHTTPStatus(errors.New("x"), 0))
	assert.Equal(t, 404, StatusOf(httpErr(404)))
	assert.Equal(t, 0, StatusOf(errors.New("x")))

	assert.True(t, IsSuccessStatus(200))
	assert.True(t, IsSuccessStatus(303))
	assert.False(t, IsSuccessStatus(400))
	assert.False(t, IsSuccessStatus(199))
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		err      error
		expected string
	}{
		{err: nil, expected: ""},
		{err: httpErr(404), expected: "Resource not found"},
		{err: httpErr(401), expected: "Authentication required"},
		{err: httpErr(403), expected: "Access denied"},
		{err: httpErr(429), expected: "Too many requests"},
		{err: httpErr(500), expected: "Server error, please try again"},
		{err: httpErr(504), expected: "Server error, please try again"},
		{err: httpErr(409), expected: "Conflict"},
		{err: httpErr(499), expected: "An unexpected error occurred"},
		{err: &NetworkError{Message: "x"}, expected: msgNetwork},
		{err: &TimeoutError{Timeout: time.Second}, expected: "Request timed out"},
		{err: errors.New("x"), expected: "An unexpected error occurred"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, UserMessage(tt.err))
	}
}
