package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Defaults.
const (
	DefaultAccount         = "default"
	DefaultCredentialsFile = "credentials.json"
	DefaultSourceCalendar  = "primary"
	DefaultDays            = 7
	DefaultSummary         = "Busy"
	DefaultMode            = "replace"
	DefaultInterval        = "15m"

	MaxDays     = 365
	MinInterval = time.Minute

	appDir = "availsync"
)

var accountPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ErrSameCalendar is returned when the target calendar equals the source calendar.
var ErrSameCalendar = errors.New("target calendar must differ from source calendar")

// ErrNoTarget is returned by ValidateForSync when no target calendar is configured.
var ErrNoTarget = errors.New("target calendar is not configured")

// Config is the effective availsync configuration.
type Config struct {
	Account          string    `toml:"account"`
	CredentialsFile  string    `toml:"credentials_file"`
	SourceCalendar   string    `toml:"source_calendar"`
	TargetCalendar   string    `toml:"target_calendar"`
	Days             int       `toml:"days"`
	Summary          string    `toml:"summary"`
	Mode             string    `toml:"mode"`
	MergeOverlapping bool      `toml:"merge_overlapping"`
	SkipDeclined     bool      `toml:"skip_declined"`
	ManagedOnly      bool      `toml:"managed_only"`
	Interval         string    `toml:"interval"`
	HistoryDB        string    `toml:"history_db"`
	Log              LogConfig `toml:"log"`
}

// LogConfig holds the [log] table.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Dir returns the availsync configuration directory.
func Dir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve config directory: %w", err)
	}
	return filepath.Join(base, appDir), nil
}

// DefaultPath returns the default config file location, honouring AVAILSYNC_CONFIG.
func DefaultPath() (string, error) {
	if p := os.Getenv(EnvConfig); p != "" {
		return p, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Default returns a Config populated with default values.
func Default() *Config {
	cfg := &Config{
		Account:         DefaultAccount,
		CredentialsFile: DefaultCredentialsFile,
		SourceCalendar:  DefaultSourceCalendar,
		Days:            DefaultDays,
		Summary:         DefaultSummary,
		Mode:            DefaultMode,
		Interval:        DefaultInterval,
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
	if dir, err := Dir(); err == nil {
		cfg.HistoryDB = filepath.Join(dir, "history.db")
	}
	return cfg
}

// Load reads the TOML file at path over the defaults. A missing file yields
// the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path as TOML, creating the parent directory.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := c.Marshal()
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Marshal encodes the config as TOML.
func (c *Config) Marshal() ([]byte, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return data, nil
}

// IntervalDuration parses Interval.
func (c *Config) IntervalDuration() (time.Duration, error) {
	d, err := time.ParseDuration(c.Interval)
	if err != nil {
		return 0, fmt.Errorf("invalid interval %q: %w", c.Interval, err)
	}
	return d, nil
}

// Validate checks every field that does not depend on the command being run.
func (c *Config) Validate() error {
	if !ValidAccount(c.Account) {
		return fmt.Errorf("invalid account name %q: only letters, digits, '-' and '_' are allowed", c.Account)
	}
	if c.SourceCalendar == "" {
		return fmt.Errorf("source calendar must not be empty")
	}
	if c.TargetCalendar != "" && c.TargetCalendar == c.SourceCalendar {
		return ErrSameCalendar
	}
	if c.Days < 1 || c.Days > MaxDays {
		return fmt.Errorf("days must be between 1 and %d, got %d", MaxDays, c.Days)
	}
	if c.Mode != "replace" && c.Mode != "reconcile" {
		return fmt.Errorf("invalid mode %q, must be one of: replace, reconcile", c.Mode)
	}

	interval, err := c.IntervalDuration()
	if err != nil {
		return err
	}
	if interval < MinInterval {
		return fmt.Errorf("interval must be at least %s, got %s", MinInterval, interval)
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q, must be one of: debug, info, warn, error", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q, must be one of: text, json", c.Log.Format)
	}

	return nil
}

// ValidateForSync runs Validate and additionally requires a target calendar.
func (c *Config) ValidateForSync() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.TargetCalendar == "" {
		return fmt.Errorf("%w: set target_calendar in the config file, %s or --target", ErrNoTarget, EnvTargetCalendar)
	}
	return nil
}

// ValidAccount reports whether name is usable as a token cache name.
func ValidAccount(name string) bool {
	return accountPattern.MatchString(name)
}
