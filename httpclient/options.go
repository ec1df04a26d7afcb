package httpclient

import (
	nethttp "net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"
)

// Option configures a client at construction
type Option func(*client)

// WithHTTPClient uses hc for all attempts. It takes precedence over
// WithTransport, WithTracerProvider and WithoutRedirects.
func WithHTTPClient(hc *nethttp.Client) Option {
	return func(c *client) {
		c.httpClient = hc
	}
}

// WithTransport sets the round tripper used for attempts
func WithTransport(rt nethttp.RoundTripper) Option {
	return func(c *client) {
		c.transport = rt
	}
}

// WithTracerProvider records a client span per attempt using otelhttp
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *client) {
		if tp == nil {
			return
		}
		c.wrapper = func(rt nethttp.RoundTripper) nethttp.RoundTripper {
			return otelhttp.NewTransport(rt, otelhttp.WithTracerProvider(tp))
		}
	}
}

// WithoutRedirects returns 3xx responses to the caller instead of following them
func WithoutRedirects() Option {
	return func(c *client) {
		c.noRedirects = true
	}
}

// WithDefaultBasicAuth sends basic auth credentials unless a request carries its own
func WithDefaultBasicAuth(username, password string) Option {
	return func(c *client) {
		c.basicAuth = &BasicAuth{Username: username, Password: password}
	}
}

// WithRequestInterceptor adds an interceptor run before every attempt
func WithRequestInterceptor(interceptor RequestInterceptor) Option {
	return func(c *client) {
		if interceptor != nil {
			c.interceptors = append(c.interceptors, interceptor)
		}
	}
}

// WithAttemptObserver adds an observer notified after every attempt
func WithAttemptObserver(observer AttemptObserver) Option {
	return func(c *client) {
		if observer != nil {
			c.observers = append(c.observers, observer)
		}
	}
}

// WithRandom replaces the jitter source
func WithRandom(rnd RandomFunc) Option {
	return func(c *client) {
		c.rnd = rnd
	}
}

// WithSleep replaces the backoff wait
func WithSleep(sleep SleepFunc) Option {
	return func(c *client) {
		if sleep != nil {
			c.sleep = sleep
		}
	}
}

// RequestOption adjusts a request built by the verb helpers
type RequestOption func(*Request)

// WithHeader sets a header, replacing defaults of the same name
func WithHeader(key, value string) RequestOption {
	return func(r *Request) {
		r.Headers.Set(key, value)
	}
}

// WithHeaders sets several headers
func WithHeaders(headers map[string]string) RequestOption {
	return func(r *Request) {
		for k, v := range headers {
			r.Headers.Set(k, v)
		}
	}
}

// WithBasicAuth sets basic auth credentials for a single request
func WithBasicAuth(username, password string) RequestOption {
	return func(r *Request) {
		r.Auth = &BasicAuth{Username: username, Password: password}
	}
}

func newRequest(method, url string, body []byte, headers nethttp.Header, opts []RequestOption) *Request {
	if headers == nil {
		headers = nethttp.Header{}
	}
	req := &Request{Method: method, URL: url, Headers: headers, Body: body}
	for _, opt := range opts {
		opt(req)
	}
	return req
}
