package common

import (
	"fmt"
	"time"

	"github.com/teemow/availsync/internal/config"
)

// TimeLayouts are the accepted formats of time arguments.
var TimeLayouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02"}

// GetString returns a string argument, or "" when it is absent or not a string.
func GetString(args map[string]interface{}, name string) string {
	s, _ := args[name].(string)
	return s
}

// GetBool returns a boolean argument, or def when it is absent.
func GetBool(args map[string]interface{}, name string, def bool) bool {
	if b, ok := args[name].(bool); ok {
		return b
	}
	return def
}

// GetInt returns an integer argument, or def when it is absent. JSON numbers
// arrive as float64.
func GetInt(args map[string]interface{}, name string, def int) (int, error) {
	switch v := args[name].(type) {
	case nil:
		return def, nil
	case float64:
		if v != float64(int(v)) {
			return 0, fmt.Errorf("%s must be an integer", name)
		}
		return int(v), nil
	case int:
		return v, nil
	default:
		return 0, fmt.Errorf("%s must be a number", name)
	}
}

// GetAccount returns the "account" argument, or fallback when it is absent.
func GetAccount(args map[string]interface{}, fallback string) (string, error) {
	account := GetString(args, "account")
	if account == "" {
		return fallback, nil
	}
	if !config.ValidAccount(account) {
		return "", fmt.Errorf("invalid account name %q: only letters, digits, '-' and '_' are allowed", account)
	}
	return account, nil
}

// GetTime parses an optional time argument. Times without a zone are UTC.
// The zero time is returned when the argument is absent.
func GetTime(args map[string]interface{}, name string) (time.Time, error) {
	s := GetString(args, name)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range TimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid %s %q: use RFC 3339 or YYYY-MM-DD", name, s)
}
