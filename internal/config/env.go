package config

import (
	"fmt"
	"os"
	"strconv"
)

// Environment variables read by ApplyEnv.
const (
	EnvConfig           = "AVAILSYNC_CONFIG"
	EnvAccount          = "AVAILSYNC_ACCOUNT"
	EnvCredentialsFile  = "AVAILSYNC_CREDENTIALS_FILE"
	EnvSourceCalendar   = "AVAILSYNC_SOURCE_CALENDAR"
	EnvTargetCalendar   = "AVAILSYNC_TARGET_CALENDAR"
	EnvDays             = "AVAILSYNC_DAYS"
	EnvSummary          = "AVAILSYNC_SUMMARY"
	EnvMode             = "AVAILSYNC_MODE"
	EnvMergeOverlapping = "AVAILSYNC_MERGE_OVERLAPPING"
	EnvSkipDeclined     = "AVAILSYNC_SKIP_DECLINED"
	EnvManagedOnly      = "AVAILSYNC_MANAGED_ONLY"
	EnvInterval         = "AVAILSYNC_INTERVAL"
	EnvHistoryDB        = "AVAILSYNC_HISTORY_DB"
	EnvLogLevel         = "AVAILSYNC_LOG_LEVEL"
	EnvLogFormat        = "AVAILSYNC_LOG_FORMAT"
)

// ApplyEnv overrides fields with any AVAILSYNC_* variables that are set.
func (c *Config) ApplyEnv() error {
	setString(&c.Account, EnvAccount)
	setString(&c.CredentialsFile, EnvCredentialsFile)
	setString(&c.SourceCalendar, EnvSourceCalendar)
	setString(&c.TargetCalendar, EnvTargetCalendar)
	setString(&c.Summary, EnvSummary)
	setString(&c.Mode, EnvMode)
	setString(&c.Interval, EnvInterval)
	setString(&c.HistoryDB, EnvHistoryDB)
	setString(&c.Log.Level, EnvLogLevel)
	setString(&c.Log.Format, EnvLogFormat)

	if v := os.Getenv(EnvDays); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvDays, v, err)
		}
		c.Days = days
	}

	for key, dst := range map[string]*bool{
		EnvMergeOverlapping: &c.MergeOverlapping,
		EnvSkipDeclined:     &c.SkipDeclined,
		EnvManagedOnly:      &c.ManagedOnly,
	} {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", key, v, err)
		}
		*dst = b
	}

	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
