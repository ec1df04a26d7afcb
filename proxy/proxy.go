// Package proxy forwards gateway requests to the identity service through the
// resilient request client.
package proxy

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/kratos-console/gateway/config"
	"github.com/kratos-console/gateway/httpclient"
	"github.com/kratos-console/gateway/logger"
	"github.com/kratos-console/gateway/server"
)

const (
	msgNoUpstream    = "No upstream identity service is configured"
	headerRetryAfter = "Retry-After"
)

// Handler forwards every request under Prefix to the resolved upstream.
type Handler struct {
	name           string
	prefix         string
	overrideHeader string
	resolver       TargetResolver
	client         httpclient.Client
	logger         logger.Logger
}

// New creates a handler for one upstream mount. Targets are resolved from the
// configured cookie, then the configured header, then the configured URL.
// Override targets must pass allow.
func New(name string, target config.TargetConfig, allow *HostAllowList, client httpclient.Client, log logger.Logger) *Handler {
	var overrides []TargetResolver
	if target.Cookie != "" {
		overrides = append(overrides, &CookieResolver{CookieName: target.Cookie})
	}
	if target.Header != "" {
		overrides = append(overrides, &HeaderResolver{HeaderName: target.Header})
	}

	return &Handler{
		name:           name,
		prefix:         strings.TrimRight(target.Prefix, "/"),
		overrideHeader: target.Header,
		resolver: &CompositeResolver{
			Overrides: overrides,
			Fallback:  &StaticResolver{URL: target.URL},
			AllowList: allow,
		},
		client: client,
		logger: log,
	}
}

// Name returns the mount name used in logs.
func (h *Handler) Name() string {
	return h.name
}

// Prefix returns the path prefix the handler is mounted on.
func (h *Handler) Prefix() string {
	return h.prefix
}

// Register mounts the handler on e for every method.
func (h *Handler) Register(e *echo.Echo) {
	e.Any(h.prefix, h.Serve)
	e.Any(h.prefix+"/*", h.Serve)
}

// Serve forwards one request and relays the upstream response.
func (h *Handler) Serve(c echo.Context) error {
	req := c.Request()
	ctx := req.Context()

	target, err := h.resolver.ResolveTarget(ctx, req)
	if err != nil {
		h.logger.Error().Err(err).Str("upstream", h.name).Msg("Upstream target resolution failed")
		return server.NewBadGatewayError(msgNoUpstream)
	}

	var body []byte
	if req.Method != http.MethodGet && req.Method != http.MethodHead && req.Body != nil {
		if body, err = io.ReadAll(req.Body); err != nil {
			return fmt.Errorf("failed to read request body: %w", err)
		}
	}

	resp, err := h.client.Fetch(ctx, &httpclient.Request{
		Method:  req.Method,
		URL:     UpstreamURL(target, strings.TrimPrefix(req.URL.EscapedPath(), h.prefix), req.URL.RawQuery),
		Headers: FilterRequestHeaders(req.Header, h.overrideHeader),
		Body:    body,
	})
	if err != nil {
		return h.translateError(c, err)
	}

	CopyResponseHeaders(c.Response().Header(), resp.Headers)
	c.Response().WriteHeader(resp.StatusCode)
	if req.Method == http.MethodHead || len(resp.Body) == 0 {
		return nil
	}
	_, err = c.Response().Write(resp.Body)
	return err
}

// UpstreamURL joins target, the path below the mount prefix and the raw query.
func UpstreamURL(target, path, rawQuery string) string {
	u := strings.TrimRight(target, "/")
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u += path
	if rawQuery != "" {
		u += "?" + rawQuery
	}
	return u
}

// translateError maps a client failure onto the gateway error envelope.
// HTTP errors keep their status and Retry-After hint; every other failure becomes 502.
func (h *Handler) translateError(c echo.Context, err error) error {
	var httpErr *httpclient.HTTPError
	if errors.As(err, &httpErr) {
		if retryAfter := httpErr.Headers.Get(headerRetryAfter); retryAfter != "" {
			c.Response().Header().Set(headerRetryAfter, retryAfter)
		}
		status := httpErr.Status
		if status == 0 {
			status = http.StatusBadGateway
		}
		apiErr := server.NewBaseAPIError(server.StatusToErrorCode(status), httpclient.UserMessage(err), status).
			WithDetails("upstream", h.name).
			WithDetails("url", httpErr.URL)
		if detail := upstreamBody(httpErr.Body); detail != nil {
			apiErr = apiErr.WithDetails("body", detail)
		}
		return apiErr
	}

	h.logger.Error().
		Err(err).
		Str("upstream", h.name).
		Str("kind", string(httpclient.KindOf(err))).
		Msg("Upstream request failed")

	return server.NewBadGatewayError(httpclient.UserMessage(err)).
		WithDetails("upstream", h.name).
		WithDetails("kind", string(httpclient.KindOf(err))).
		WithDetails("error", err.Error())
}

// upstreamBody decodes a JSON error body, falling back to its text.
func upstreamBody(body []byte) any {
	if len(body) == 0 {
		return nil
	}
	var decoded any
	if err := json.Unmarshal(body, &decoded); err == nil {
		return decoded
	}
	return string(body)
}
