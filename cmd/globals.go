package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/teemow/availsync/internal/calendar"
	"github.com/teemow/availsync/internal/config"
	"github.com/teemow/availsync/internal/google"
	"github.com/teemow/availsync/internal/instrumentation"
	"github.com/teemow/availsync/internal/logging"
	"github.com/teemow/availsync/internal/store"
)

// globalOptions holds the persistent flags shared by all commands.
type globalOptions struct {
	configPath  string
	account     string
	credentials string
	logLevel    string
	logFormat   string
}

var globals globalOptions

func addGlobalFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&globals.configPath, "config", "", "Config file (default: $XDG_CONFIG_HOME/availsync/config.toml). Can also use "+config.EnvConfig+" env var.")
	flags.StringVar(&globals.account, "account", "", "Google account name used for the token cache (default: 'default')")
	flags.StringVar(&globals.credentials, "credentials", "", "OAuth client credentials file downloaded from the Google Cloud console")
	flags.StringVar(&globals.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	flags.StringVar(&globals.logFormat, "log-format", "", "Log format: text or json")
}

// resolveConfigPath returns the --config flag or the default location.
func resolveConfigPath() (string, error) {
	if globals.configPath != "" {
		return globals.configPath, nil
	}
	return config.DefaultPath()
}

// applyGlobalFlags overrides cfg with the global flags that were set.
func applyGlobalFlags(cfg *config.Config) {
	if globals.account != "" {
		cfg.Account = globals.account
	}
	if globals.credentials != "" {
		cfg.CredentialsFile = globals.credentials
	}
	if globals.logLevel != "" {
		cfg.Log.Level = globals.logLevel
	}
	if globals.logFormat != "" {
		cfg.Log.Format = globals.logFormat
	}
}

// overrides applies the environment and the global flags on top of a config
// read from disk. It is also the reload hook of the config watcher.
func overrides(cfg *config.Config) error {
	if err := cfg.ApplyEnv(); err != nil {
		return err
	}
	applyGlobalFlags(cfg)
	return nil
}

// loadConfig builds the effective config (defaults, file, environment, global
// flags), validates it and installs the default logger. Command specific
// flags are applied by the caller.
func loadConfig() (*config.Config, string, error) {
	path, err := resolveConfigPath()
	if err != nil {
		return nil, "", err
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	if err := overrides(cfg); err != nil {
		return nil, "", err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", fmt.Errorf("invalid configuration: %w", err)
	}

	if err := logging.Setup(os.Stderr, cfg.Log.Level, cfg.Log.Format); err != nil {
		return nil, "", err
	}
	slog.Debug("configuration loaded", slog.String("path", path), logging.Account(cfg.Account))
	return cfg, path, nil
}

// credentialsPath resolves a relative credentials file against the config
// directory when it does not exist in the working directory.
func credentialsPath(cfg *config.Config) string {
	p := cfg.CredentialsFile
	if filepath.IsAbs(p) {
		return p
	}
	if _, err := os.Stat(p); err == nil {
		return p
	}
	if dir, err := config.Dir(); err == nil {
		return filepath.Join(dir, p)
	}
	return p
}

func newTokenProvider(cfg *config.Config, metrics *instrumentation.Metrics) (*google.FileTokenProvider, error) {
	conf, err := google.LoadOAuthConfig(credentialsPath(cfg))
	if err != nil {
		return nil, err
	}
	return google.NewFileTokenProvider(conf, metrics), nil
}

func newCalendarClient(ctx context.Context, cfg *config.Config, metrics *instrumentation.Metrics) (*calendar.Client, error) {
	provider, err := newTokenProvider(cfg, metrics)
	if err != nil {
		return nil, err
	}
	return calendar.NewClientForAccountWithProvider(ctx, cfg.Account, provider, calendar.WithMetrics(metrics))
}

// openHistory opens the run history. A failure is logged and yields nil, so
// syncs still run without it.
func openHistory(cfg *config.Config) *store.Store {
	if cfg.HistoryDB == "" {
		return nil
	}
	st, err := store.Open(cfg.HistoryDB)
	if err != nil {
		slog.Warn("run history disabled", slog.String("path", cfg.HistoryDB), logging.Err(err))
		return nil
	}
	return st
}

// newInstrumentation creates the instrumentation provider. When stdout
// carries a protocol the stdout exporters write to stderr instead.
func newInstrumentation(ctx context.Context, stdoutReserved bool) (*instrumentation.Provider, error) {
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version
	if stdoutReserved {
		instrConfig.ConsoleWriter = os.Stderr
	}

	provider, err := instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	return provider, nil
}
