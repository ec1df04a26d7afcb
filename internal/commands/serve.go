package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kratos-console/gateway/app"
	"github.com/kratos-console/gateway/config"
	"github.com/kratos-console/gateway/logger"
)

// ServeOptions holds options for the serve command
type ServeOptions struct {
	ConfigPath string
}

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	opts := &ServeOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the gateway",
		Long: `Loads configuration and serves the admin and public proxies until
SIGINT or SIGTERM is received.

Configuration is read from defaults, the YAML file, config.<env>.yaml next
to it and finally environment variables such as UPSTREAM_ADMIN_URL.`,
		Example: `  # Use ./config.yaml when present
  kratos-gateway serve

  # Explicit configuration file
  kratos-gateway serve --config /etc/kratos-gateway/config.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "Path to the YAML configuration file")

	return cmd
}

func runServe(ctx context.Context, opts *ServeOptions) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)
	log.Info().
		Str("app", cfg.App.Name).
		Str("env", cfg.App.Env).
		Str("version", cfg.App.Version).
		Msg("Starting application")

	a, err := app.New(cfg, log, nil)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}
	return a.Run(ctx)
}
