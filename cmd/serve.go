package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teemow/availsync/internal/config"
	"github.com/teemow/availsync/internal/logging"
	"github.com/teemow/availsync/internal/server"
)

// MetricsConfig holds configuration for the metrics server
type MetricsConfig struct {
	// Enabled determines whether to start the metrics server (default: true)
	Enabled bool

	// Addr is the address for the metrics server (e.g., ":9090")
	Addr string
}

func newServeCmd() *cobra.Command {
	var (
		healthAddr     string
		metricsEnabled bool
		metricsAddr    string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Sync periodically and expose health and metrics endpoints",
		Long: `Run a sync immediately and then once per configured interval.

Endpoints:
  --health-addr   /healthz, /readyz and /healthz/detailed
  --metrics-addr  Prometheus /metrics (when METRICS_EXPORTER is prometheus)

The server is ready after the first successful sync. Changes to the config file
are picked up without a restart and trigger a sync. SIGHUP triggers a sync as
well. SIGINT and SIGTERM shut the server down gracefully.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			metricsConfig := MetricsConfig{
				Enabled: metricsEnabled,
				Addr:    metricsAddr,
			}
			// Load metrics config from environment if not set via flags
			if !cmd.Flags().Changed("metrics-enabled") && os.Getenv("METRICS_ENABLED") == "false" {
				metricsConfig.Enabled = false
			}
			if !cmd.Flags().Changed("metrics-addr") {
				if addr := os.Getenv("METRICS_ADDR"); addr != "" {
					metricsConfig.Addr = addr
				}
			}
			return runServe(healthAddr, metricsConfig)
		},
	}

	cmd.Flags().StringVar(&healthAddr, "health-addr", server.DefaultHealthAddr, "Health server address")
	cmd.Flags().BoolVar(&metricsEnabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", server.DefaultMetricsAddr, "Metrics server address. Can also use METRICS_ADDR env var.")

	return cmd
}

func runServe(healthAddr string, metricsConfig MetricsConfig) error {
	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, configPath, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.ValidateForSync(); err != nil {
		return err
	}
	interval, err := cfg.IntervalDuration()
	if err != nil {
		return err
	}

	provider, err := newInstrumentation(shutdownCtx, false)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			slog.Error("error during instrumentation shutdown", logging.Err(err))
		}
	}()
	metrics := provider.Metrics()

	tokenProvider, err := newTokenProvider(cfg, metrics)
	if err != nil {
		return err
	}

	opts := []server.ServerContextOption{
		server.WithMetrics(metrics),
		server.WithLogger(logging.DefaultLogger()),
	}
	if history := openHistory(cfg); history != nil {
		defer history.Close()
		opts = append(opts, server.WithHistory(history))
	}

	serverContext, err := server.NewServerContext(shutdownCtx, cfg, server.CalendarClientFactory(tokenProvider, metrics), opts...)
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		_ = serverContext.Shutdown()
	}()

	health := server.NewHealthChecker()
	healthServer := server.NewHealthServer(healthAddr, health, metrics)
	if err := healthServer.Listen(); err != nil {
		return fmt.Errorf("health server failed to start: %w", err)
	}
	go func() {
		if err := healthServer.Start(); err != nil {
			slog.Error("health server stopped", logging.Err(err))
		}
	}()

	var metricsServer *server.MetricsServer
	if metricsConfig.Enabled && provider.Enabled() && provider.HasPrometheus() {
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    metricsConfig.Addr,
			InstrumentationProvider: provider,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}
		if err := metricsServer.Listen(); err != nil {
			return fmt.Errorf("metrics server failed to start: %w", err)
		}
		go func() {
			if err := metricsServer.Start(); err != nil {
				slog.Error("metrics server stopped", logging.Err(err))
			}
		}()
	}

	runner := server.NewRunner(serverContext.Sync, interval,
		server.WithHealthChecker(health),
		server.WithRunnerLogger(slog.Default()),
	)

	watchConfig(shutdownCtx, configPath, serverContext, runner)

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for {
			select {
			case <-shutdownCtx.Done():
				return
			case <-hup:
				slog.Info("SIGHUP received, triggering sync")
				runner.Trigger()
			}
		}
	}()

	slog.Info("starting availsync",
		slog.String("version", version),
		slog.String("interval", interval.String()),
		logging.Calendar(cfg.TargetCalendar),
	)
	runErr := runner.Run(shutdownCtx)

	health.SetShuttingDown()
	ctx, cancelShutdown := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
	defer cancelShutdown()

	var errs []error
	errs = append(errs, runErr)
	if err := healthServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("health server shutdown: %w", err))
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}
	slog.Info("availsync stopped")
	return errors.Join(errs...)
}

// watchConfig applies config file changes to the server context and the
// runner until ctx is done. A config directory that cannot be watched only
// disables reloading.
func watchConfig(ctx context.Context, path string, sc *server.ServerContext, runner *server.Runner) {
	watcher, err := config.NewWatcher(path, overrides, slog.Default())
	if err != nil {
		slog.Warn("config reload disabled", slog.String("path", path), logging.Err(err))
		return
	}

	go func() {
		if err := watcher.Run(ctx); err != nil {
			slog.Warn("config watcher stopped", logging.Err(err))
		}
	}()

	go func() {
		for cfg := range watcher.Updates() {
			applyConfigUpdate(cfg, sc, runner)
		}
	}()
}

// applyConfigUpdate installs a reloaded config and triggers a sync with it.
func applyConfigUpdate(cfg *config.Config, sc *server.ServerContext, runner *server.Runner) {
	if err := cfg.ValidateForSync(); err != nil {
		slog.Warn("ignoring config without target calendar", logging.Err(err))
		return
	}
	sc.SetConfig(cfg)

	if interval, err := cfg.IntervalDuration(); err == nil && interval != runner.Interval() {
		slog.Info("sync interval changed", slog.Duration(logging.KeyDuration, interval))
		runner.SetInterval(interval)
	}
	if err := logging.Setup(os.Stderr, cfg.Log.Level, cfg.Log.Format); err != nil {
		slog.Warn("failed to apply log settings", logging.Err(err))
	}
	runner.Trigger()
}
