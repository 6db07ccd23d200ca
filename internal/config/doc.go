// Package config loads availsync settings from defaults, a TOML file and
// AVAILSYNC_* environment variables, and watches the file for changes.
package config
