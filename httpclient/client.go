package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	nethttp "net/http"
	"time"
)

const (
	headerContentType = "Content-Type"
	contentTypeJSON   = "application/json"
)

// client implements the Client interface
type client struct {
	policy       Policy
	httpClient   *nethttp.Client
	transport    nethttp.RoundTripper
	basicAuth    *BasicAuth
	interceptors []RequestInterceptor
	observers    []AttemptObserver
	rnd          RandomFunc
	sleep        SleepFunc
	noRedirects  bool
	wrapper      func(nethttp.RoundTripper) nethttp.RoundTripper
}

var _ Client = (*client)(nil)

// New creates a client governed by policy. Zero durations and nil functions
// in policy take their defaults; MaxRetries is used as given. New performs no I/O.
func New(policy Policy, opts ...Option) Client {
	c := &client{
		policy: policy.normalized(),
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = c.newHTTPClient()
	}
	return c
}

func (c *client) newHTTPClient() *nethttp.Client {
	transport := c.transport
	if transport == nil {
		transport = nethttp.DefaultTransport
	}
	if c.wrapper != nil {
		transport = c.wrapper(transport)
	}
	hc := &nethttp.Client{Transport: transport}
	if c.noRedirects {
		hc.CheckRedirect = func(*nethttp.Request, []*nethttp.Request) error {
			return nethttp.ErrUseLastResponse
		}
	}
	return hc
}

// Policy returns a copy of the client's policy
func (c *client) Policy() Policy {
	p := c.policy
	p.DefaultHeaders = maps.Clone(c.policy.DefaultHeaders)
	return p
}

// Get performs a GET request
func (c *client) Get(ctx context.Context, url string, opts ...RequestOption) (*Response, error) {
	return c.Fetch(ctx, newRequest(nethttp.MethodGet, url, nil, nil, opts))
}

// Delete performs a DELETE request
func (c *client) Delete(ctx context.Context, url string, opts ...RequestOption) (*Response, error) {
	return c.Fetch(ctx, newRequest(nethttp.MethodDelete, url, nil, nil, opts))
}

// Post performs a POST request with a JSON body
func (c *client) Post(ctx context.Context, url string, body any, opts ...RequestOption) (*Response, error) {
	return c.send(ctx, nethttp.MethodPost, url, body, opts)
}

// Put performs a PUT request with a JSON body
func (c *client) Put(ctx context.Context, url string, body any, opts ...RequestOption) (*Response, error) {
	return c.send(ctx, nethttp.MethodPut, url, body, opts)
}

// Patch performs a PATCH request with a JSON body
func (c *client) Patch(ctx context.Context, url string, body any, opts ...RequestOption) (*Response, error) {
	return c.send(ctx, nethttp.MethodPatch, url, body, opts)
}

func (c *client) send(ctx context.Context, method, url string, body any, opts []RequestOption) (*Response, error) {
	payload, err := encodeBody(body)
	if err != nil {
		return nil, &ValidationError{Message: "body cannot be serialized as JSON", Field: "body", Err: err}
	}
	defaults := nethttp.Header{headerContentType: []string{contentTypeJSON}}
	return c.Fetch(ctx, newRequest(method, url, payload, defaults, opts))
}

// encodeBody passes raw bodies through and serializes everything else as JSON.
func encodeBody(body any) ([]byte, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return b, nil
	case json.RawMessage:
		return b, nil
	case string:
		return []byte(b), nil
	default:
		return json.Marshal(b)
	}
}

// Fetch runs the attempt loop for req. It returns a response for a 2xx or 3xx
// status, or the error of the last attempt once retries are exhausted or the
// retry condition declines.
func (c *client) Fetch(ctx context.Context, req *Request) (*Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	method := req.Method
	if method == "" {
		method = nethttp.MethodGet
	}

	start := time.Now()
	var lastErr error
	for attempt := 1; attempt-1 <= c.policy.MaxRetries; attempt++ {
		resp, err := c.attempt(ctx, method, req, attempt)
		if err == nil {
			resp.Stats = Stats{ElapsedTime: time.Since(start), Attempts: attempt}
			return resp, nil
		}
		lastErr = err

		if isTerminal(err) || ctx.Err() != nil {
			return nil, err
		}
		if attempt > c.policy.MaxRetries || !c.policy.RetryCondition(err, attempt) {
			return nil, err
		}

		c.policy.OnRetry(err, attempt)
		if waitErr := c.sleep(ctx, Backoff(c.policy, attempt, c.rnd)); waitErr != nil {
			return nil, fmt.Errorf("httpclient: retry of %s %s abandoned: %w (last error: %w)", method, req.URL, waitErr, lastErr)
		}
	}
	return nil, lastErr
}

// attempt performs one transport call under its own timer. The timer is
// stopped and the attempt context released before the outcome is classified.
func (c *client) attempt(ctx context.Context, method string, req *Request, attempt int) (*Response, error) {
	attemptCtx, cancel := context.WithCancelCause(ctx)
	timer := time.AfterFunc(c.policy.Timeout, func() { cancel(errAttemptTimeout) })
	started := time.Now()

	resp, err := c.roundTrip(attemptCtx, method, req)

	timer.Stop()
	cancel(errAttemptDone)

	if err != nil && !isTerminal(err) {
		err = Classify(err, attemptCtx, req.URL, c.policy.Timeout)
	}

	if len(c.observers) > 0 {
		info := AttemptInfo{
			Method:   method,
			URL:      req.URL,
			Attempt:  attempt,
			Duration: time.Since(started),
			Err:      err,
		}
		if resp != nil {
			info.StatusCode = resp.StatusCode
		} else {
			info.StatusCode = statusOf(err)
		}
		for _, observe := range c.observers {
			observe(ctx, info)
		}
	}
	return resp, err
}

func (c *client) roundTrip(ctx context.Context, method string, req *Request) (*Response, error) {
	httpReq, err := c.buildRequest(ctx, method, req)
	if err != nil {
		return nil, err
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}

	if !IsSuccessStatus(httpResp.StatusCode) {
		return nil, &HTTPError{
			Status:     httpResp.StatusCode,
			StatusText: statusText(httpResp),
			URL:        req.URL,
			Body:       body,
			Headers:    httpResp.Header,
		}
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Status:     httpResp.Status,
		Headers:    httpResp.Header,
		Body:       body,
	}, nil
}

// buildRequest constructs an *http.Request, applies headers and auth, and runs request interceptors.
func (c *client) buildRequest(ctx context.Context, method string, req *Request) (*nethttp.Request, error) {
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := nethttp.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return nil, &ValidationError{Message: "invalid request", Field: "url", Err: err}
	}

	c.applyHeaders(httpReq, req)
	c.applyAuth(httpReq, req)

	for _, intercept := range c.interceptors {
		if err := intercept(ctx, httpReq); err != nil {
			return nil, &InterceptorError{Err: err}
		}
	}
	return httpReq, nil
}

// applyHeaders merges policy defaults under per-call headers. Per-call values
// replace defaults with the same (case-insensitive) name.
func (c *client) applyHeaders(httpReq *nethttp.Request, req *Request) {
	for key, value := range c.policy.DefaultHeaders {
		httpReq.Header.Set(key, value)
	}
	for key, values := range req.Headers {
		httpReq.Header.Del(key)
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	if host := httpReq.Header.Get("Host"); host != "" {
		httpReq.Host = host
		httpReq.Header.Del("Host")
	}
}

// applyAuth applies authentication to the HTTP request
func (c *client) applyAuth(httpReq *nethttp.Request, req *Request) {
	auth := req.Auth
	if auth == nil {
		auth = c.basicAuth
	}
	if auth != nil {
		httpReq.SetBasicAuth(auth.Username, auth.Password)
	}
}

func validateRequest(req *Request) error {
	if req == nil {
		return &ValidationError{Message: "request cannot be nil", Field: "request"}
	}
	if req.URL == "" {
		return &ValidationError{Message: "URL cannot be empty", Field: "url"}
	}
	return nil
}
