// Package app wires configuration, observability, the HTTP server and the
// upstream proxies into a runnable gateway.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kratos-console/gateway/config"
	"github.com/kratos-console/gateway/httpclient"
	"github.com/kratos-console/gateway/logger"
	"github.com/kratos-console/gateway/observability"
	"github.com/kratos-console/gateway/proxy"
	"github.com/kratos-console/gateway/server"
)

// ServerRunner abstracts the HTTP server so tests can run without a listener.
type ServerRunner interface {
	Start() error
	Shutdown(ctx context.Context) error
}

// App represents the gateway instance.
type App struct {
	cfg           *config.Config
	logger        logger.Logger
	server        *server.Server
	runner        ServerRunner
	observability observability.Provider
	proxies       []*proxy.Handler
	readiness     *ReadinessProbe
}

// Options contains optional dependencies for creating an App instance.
type Options struct {
	// Observability replaces the provider built from configuration.
	Observability observability.Provider
	// Runner replaces the HTTP server lifecycle, e.g. in tests.
	Runner ServerRunner
	// ClientOptions are passed to every upstream client.
	ClientOptions []httpclient.Option
}

// New creates the gateway from cfg. It performs no network I/O apart from
// exporter setup inside the observability provider.
func New(cfg *config.Config, log logger.Logger, opts *Options) (*App, error) {
	if opts == nil {
		opts = &Options{}
	}

	provider := opts.Observability
	if provider == nil {
		var err error
		if provider, err = observability.NewProvider(&cfg.Observability); err != nil {
			return nil, fmt.Errorf("failed to initialize observability: %w", err)
		}
	}

	readiness := NewReadinessProbe(cfg, log, opts.ClientOptions...)

	srv, err := server.New(cfg, log,
		server.WithTracerProvider(provider.TracerProvider()),
		server.WithMeterProvider(provider.MeterProvider()),
		server.WithReadinessCheck(readiness.Check),
	)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("failed to create server: %w", err), provider.Shutdown(context.Background()))
	}

	client, err := proxy.NewUpstreamClient(cfg.Client, log,
		proxy.WithClientTracing(provider.TracerProvider()),
		proxy.WithClientMetrics(provider.MeterProvider()),
		proxy.WithHTTPClientOptions(opts.ClientOptions...),
	)
	if err != nil {
		return nil, errors.Join(err, provider.Shutdown(context.Background()))
	}

	allow := proxy.NewHostAllowList(cfg.Upstream.AllowedHosts)
	proxies := []*proxy.Handler{
		proxy.New("admin", cfg.Upstream.Admin, allow, client, log),
		proxy.New("public", cfg.Upstream.Public, allow, client, log),
	}
	for _, p := range proxies {
		p.Register(srv.Echo())
		log.Info().
			Str("upstream", p.Name()).
			Str("prefix", p.Prefix()).
			Msg("Upstream proxy registered")
	}

	runner := opts.Runner
	if runner == nil {
		runner = srv
	}

	return &App{
		cfg:           cfg,
		logger:        log,
		server:        srv,
		runner:        runner,
		observability: provider,
		proxies:       proxies,
		readiness:     readiness,
	}, nil
}

// Server returns the HTTP server.
func (a *App) Server() *server.Server {
	return a.server
}

// Run starts the server and blocks until ctx is canceled or the server fails.
// The application is shut down before Run returns.
func (a *App) Run(ctx context.Context) error {
	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	g, gctx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		defer stop()
		if err := a.runner.Start(); err != nil {
			return fmt.Errorf("server stopped unexpectedly: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info().Msg("Shutting down application")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.shutdownTimeout())
		defer cancel()
		return a.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	if err != nil {
		a.logger.Error().Err(err).Msg("Application stopped with error")
		return err
	}
	a.logger.Info().Msg("Application shutdown complete")
	return nil
}

// Shutdown stops the server and flushes telemetry.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	if err := a.runner.Shutdown(ctx); err != nil {
		a.logger.Error().Err(err).Msg("Failed to shutdown server")
		errs = append(errs, fmt.Errorf("server shutdown failed: %w", err))
	}

	timeout := a.shutdownTimeout()
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	if err := observability.Shutdown(a.observability, timeout); err != nil {
		a.logger.Error().Err(err).Msg("Failed to shutdown observability")
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (a *App) shutdownTimeout() time.Duration {
	if a.cfg.Server.Timeout.Shutdown > 0 {
		return a.cfg.Server.Timeout.Shutdown
	}
	return observability.DefaultShutdownTimeout
}
