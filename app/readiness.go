package app

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/kratos-console/gateway/config"
	"github.com/kratos-console/gateway/httpclient"
	"github.com/kratos-console/gateway/logger"
	"github.com/kratos-console/gateway/proxy"
)

const (
	// ReadinessPath is probed on the admin upstream.
	ReadinessPath = "/health/ready"

	// DefaultReadinessTimeout bounds the single readiness attempt.
	DefaultReadinessTimeout = 2 * time.Second
)

// ReadinessProbe checks that the admin upstream reports ready. Concurrent
// checks share one upstream call.
type ReadinessProbe struct {
	url    string
	client httpclient.Client
	logger logger.Logger
	group  singleflight.Group
}

// NewReadinessProbe creates a probe against the configured admin URL. The
// probe never retries; a failed check is reported immediately.
func NewReadinessProbe(cfg *config.Config, log logger.Logger, opts ...httpclient.Option) *ReadinessProbe {
	timeout := DefaultReadinessTimeout
	if cfg.Client.Timeout > 0 && cfg.Client.Timeout < timeout {
		timeout = cfg.Client.Timeout
	}

	client := httpclient.NewBuilder().
		WithPolicy(proxy.ProfilePolicy(cfg.Client.Profile)).
		WithRetries(0).
		WithTimeout(timeout).
		WithRequestInterceptor(httpclient.NewTraceIDInterceptor("")).
		WithOptions(opts...).
		Build()

	return &ReadinessProbe{
		url:    proxy.UpstreamURL(cfg.Upstream.Admin.URL, ReadinessPath, ""),
		client: client,
		logger: log,
	}
}

// Check returns nil when the admin upstream answers the readiness endpoint
// with a success status.
func (p *ReadinessProbe) Check(ctx context.Context) error {
	ch := p.group.DoChan(p.url, func() (any, error) {
		_, err := p.client.Get(context.WithoutCancel(ctx), p.url)
		return nil, err
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			p.logger.Warn().
				Err(res.Err).
				Str("url", p.url).
				Bool("shared", res.Shared).
				Msg("Upstream readiness check failed")
			return fmt.Errorf("admin upstream not ready: %w", res.Err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
