package httpclient

import (
	"errors"
	"fmt"
	nethttp "net/http"
	"strconv"
	"strings"
	"time"
)

// ClientError is implemented by the classified attempt failures
type ClientError interface {
	error
	Kind() Kind
}

// Kind is the closed set of attempt failure classes
type Kind string

const (
	KindUnknown Kind = "unknown"
	KindNetwork Kind = "network"
	KindTimeout Kind = "timeout"
	KindHTTP    Kind = "http"
)

var (
	// errAttemptTimeout is the cancellation cause of an expired attempt timer
	errAttemptTimeout = errors.New("httpclient: attempt timeout")
	// errAttemptDone is the cancellation cause used when an attempt is released
	errAttemptDone = errors.New("httpclient: attempt finished")
)

// NetworkError is a transport failure before any response was received.
// Code carries a well-known code such as ECONNRESET or ENOTFOUND when one is known.
type NetworkError struct {
	Message string
	Code    string
	URL     string
	Err     error
}

func (e *NetworkError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("network error: %s (code: %s, url: %s)", e.Message, e.Code, e.URL)
	}
	return fmt.Sprintf("network error: %s (url: %s)", e.Message, e.URL)
}

func (e *NetworkError) Kind() Kind { return KindNetwork }

func (e *NetworkError) Unwrap() error { return e.Err }

// TimeoutError reports that the per-attempt timeout elapsed
type TimeoutError struct {
	Timeout time.Duration
	URL     string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout error: request to %s timed out after %v", e.URL, e.Timeout)
}

func (e *TimeoutError) Kind() Kind { return KindTimeout }

// HTTPError reports a response whose status is not 2xx or 3xx
type HTTPError struct {
	Status     int
	StatusText string
	URL        string
	Body       []byte
	Headers    nethttp.Header
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP error: %d %s (url: %s)", e.Status, e.StatusText, e.URL)
}

func (e *HTTPError) Kind() Kind { return KindHTTP }

// ValidationError reports a request rejected before any attempt
type ValidationError struct {
	Message string
	Field   string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error: %s (field: %s)", e.Message, e.Field)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// InterceptorError reports a request interceptor failure. It ends the call.
type InterceptorError struct {
	Err error
}

func (e *InterceptorError) Error() string {
	return fmt.Sprintf("interceptor error: %v", e.Err)
}

func (e *InterceptorError) Unwrap() error { return e.Err }

// KindOf returns the class of err, looking through wrapping
func KindOf(err error) Kind {
	var ce ClientError
	if errors.As(err, &ce) {
		return ce.Kind()
	}
	return KindUnknown
}

// IsHTTPStatus reports whether err is an HTTPError with the given status
func IsHTTPStatus(err error, status int) bool {
	return statusOf(err) == status && status != 0
}

// StatusOf returns the status of an HTTPError, or 0
func StatusOf(err error) int {
	return statusOf(err)
}

func statusOf(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Status
	}
	return 0
}

// isTerminal reports errors that end a call regardless of the retry condition.
func isTerminal(err error) bool {
	var validationErr *ValidationError
	var interceptorErr *InterceptorError
	return errors.As(err, &validationErr) || errors.As(err, &interceptorErr)
}

// IsSuccessStatus reports whether status is treated as a successful outcome
func IsSuccessStatus(status int) bool {
	return status >= 200 && status < 400
}

// statusText returns the reason phrase sent by the server, falling back to
// the standard text when the transport left Status empty.
func statusText(resp *nethttp.Response) string {
	prefix := strconv.Itoa(resp.StatusCode) + " "
	if text, ok := strings.CutPrefix(resp.Status, prefix); ok && text != "" {
		return text
	}
	return nethttp.StatusText(resp.StatusCode)
}
