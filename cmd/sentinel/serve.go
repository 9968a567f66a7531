package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"zoi/sentinel/pkg/cli"
	"zoi/sentinel/pkg/config"
	"zoi/sentinel/pkg/providerfactory"
	"zoi/sentinel/pkg/server"
	"zoi/sentinel/pkg/telemetry/tracing"
)

var serveFlags struct {
	listenAddress string
	backend       string
	dryRun        bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	Long: `Start the HTTP API with the specified configuration.

The server answers product lookups, forced refreshes, research status and
health checks, and runs the cache sweeper, task pruner and file watchers in
the background until SIGINT or SIGTERM.

Examples:
  # Start with the default config file
  sentinel serve

  # Override the listen address and research backend
  sentinel serve --listen 0.0.0.0:8000 --backend anthropic

  # Validate config without starting the server
  sentinel serve --dry-run`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveFlags.listenAddress, "listen", "l", "", "override listen address")
	serveCmd.Flags().StringVar(&serveFlags.backend, "backend", "", "override research backend (manus, anthropic)")
	_ = serveCmd.RegisterFlagCompletionFunc("backend", completeValues(providerfactory.Names...))
	serveCmd.Flags().BoolVar(&serveFlags.dryRun, "dry-run", false, "validate config without starting the server")
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := config.Initialize(cfgFile); err != nil {
		return cli.NewConfigError("", err)
	}
	cfg := config.MustGet()

	if serveFlags.listenAddress != "" {
		cfg.Server.ListenAddress = serveFlags.listenAddress
	}
	if serveFlags.backend != "" {
		cfg.Research.Backend = serveFlags.backend
	}
	if logLevel != "" {
		cfg.Telemetry.Logging.Level = logLevel
	}
	if err := config.Validate(cfg); err != nil {
		return cli.NewConfigError("", err)
	}

	if _, err := setupLogging(cfg); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if serveFlags.dryRun {
		fmt.Fprintln(out, "✓ Configuration valid")
		return nil
	}

	ctx, stop := cli.SignalContext(cmd.Context())
	defer stop()

	tracer, err := tracing.New(ctx, cfg.Telemetry.Tracing, Version)
	if err != nil {
		return cli.NewCommandError("serve", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := tracer.Shutdown(shutdownCtx); err != nil {
			slog.Warn("failed to flush traces", "error", err)
		}
	}()

	a, err := newApp(cfg)
	if err != nil {
		return cli.NewCommandError("serve", err)
	}
	defer func() {
		if err := a.closeTimeout(cfg.Server.ShutdownTimeout); err != nil {
			slog.Warn("shutdown incomplete", "error", err)
		}
	}()

	if err := a.startBackground(ctx); err != nil {
		return cli.NewCommandError("serve", err)
	}

	opts := server.Options{
		Version:  Version,
		Health:   a.health,
		Recorder: a.metrics,
	}
	if cfg.Telemetry.Metrics.Enabled {
		opts.Metrics = a.metrics.Handler()
		opts.MetricsPath = cfg.Telemetry.Metrics.Path
	}
	srv := server.New(cfg.Server, a.coord, opts)

	printBanner(cmd, cfg, a, tracer.Enabled())

	if err := srv.Start(ctx); err != nil {
		return cli.NewCommandError("serve", err)
	}
	fmt.Fprintln(out, "✓ Server stopped")
	return nil
}

func printBanner(cmd *cobra.Command, cfg *config.Config, a *app, tracingEnabled bool) {
	out := cmd.OutOrStdout()
	active := a.backends.Active()

	fmt.Fprintf(out, "Sentinel v%s\n", Version)
	fmt.Fprintf(out, "✓ Configuration loaded from %s\n", cfgFile)
	if active.Configured() {
		fmt.Fprintf(out, "✓ Research backend: %s\n", active.Name())
	} else {
		fmt.Fprintf(out, "✗ Research backend %s is not configured: serving reference data only\n", active.Name())
	}
	fmt.Fprintf(out, "✓ Reference products: %d\n", a.catalog.Base().Len())
	fmt.Fprintf(out, "✓ Cache: %s (ttl %s)\n", cfg.Cache.Backend, cfg.Cache.TTL)
	if tracingEnabled {
		fmt.Fprintf(out, "✓ Tracing to %s\n", cfg.Telemetry.Tracing.Endpoint)
	}
	fmt.Fprintf(out, "✓ Listening on %s\n", cfg.Server.ListenAddress)
	fmt.Fprintln(out, "\nPress Ctrl+C to stop")
}
