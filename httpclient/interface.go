package httpclient

import (
	"context"
	nethttp "net/http"
	"time"
)

// Client defines the resilient request client surface
type Client interface {
	Fetch(ctx context.Context, req *Request) (*Response, error)
	Get(ctx context.Context, url string, opts ...RequestOption) (*Response, error)
	Delete(ctx context.Context, url string, opts ...RequestOption) (*Response, error)
	Post(ctx context.Context, url string, body any, opts ...RequestOption) (*Response, error)
	Put(ctx context.Context, url string, body any, opts ...RequestOption) (*Response, error)
	Patch(ctx context.Context, url string, body any, opts ...RequestOption) (*Response, error)
	Policy() Policy
}

// Request describes one logical call. Method defaults to GET.
type Request struct {
	Method  string
	URL     string
	Headers nethttp.Header
	Body    []byte
	Auth    *BasicAuth
}

// Response is a successful (2xx or 3xx) outcome
type Response struct {
	StatusCode int
	Status     string
	Headers    nethttp.Header
	Body       []byte
	Stats      Stats
}

// Stats contains request execution statistics
type Stats struct {
	ElapsedTime time.Duration
	Attempts    int
}

// BasicAuth contains basic authentication credentials
type BasicAuth struct {
	Username string
	Password string
}

// RequestInterceptor is called before each attempt is sent
type RequestInterceptor func(ctx context.Context, req *nethttp.Request) error

// AttemptInfo describes one finished attempt
type AttemptInfo struct {
	Method     string
	URL        string
	Attempt    int
	StatusCode int
	Duration   time.Duration
	Err        error
}

// AttemptObserver is notified after every attempt. Observers must not block.
type AttemptObserver func(ctx context.Context, info AttemptInfo)
