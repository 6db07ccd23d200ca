package logging

import (
	"errors"
	"log/slog"
	"testing"
)

func TestWithOperation(t *testing.T) {
	logger := slog.Default()
	result := WithOperation(logger, "test_operation")
	if result == nil {
		t.Error("WithOperation returned nil")
	}
}

func TestWithTool(t *testing.T) {
	if WithTool(slog.Default(), "availability_sync") == nil {
		t.Error("WithTool returned nil")
	}
}

func TestWithAccount(t *testing.T) {
	if WithAccount(slog.Default(), "work") == nil {
		t.Error("WithAccount returned nil")
	}
}

func TestStringAttrs(t *testing.T) {
	tests := []struct {
		name    string
		attr    slog.Attr
		wantKey string
		wantVal string
	}{
		{"operation", Operation("sync"), KeyOperation, "sync"},
		{"account", Account("work"), KeyAccount, "work"},
		{"event id", EventID("abc123"), KeyEventID, "abc123"},
		{"mode", Mode("reconcile"), KeyMode, "reconcile"},
		{"run id", RunID("r-1"), KeyRunID, "r-1"},
		{"tool", Tool("availability_sync"), KeyTool, "availability_sync"},
		{"status", Status(StatusSuccess), KeyStatus, StatusSuccess},
		{"group calendar", Calendar("abc@group.calendar.google.com"), KeyCalendar, "abc@group.calendar.google.com"},
		{"primary calendar", Calendar("primary"), KeyCalendar, "primary"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.attr.Key != tt.wantKey {
				t.Errorf("key = %q, want %q", tt.attr.Key, tt.wantKey)
			}
			if tt.attr.Value.String() != tt.wantVal {
				t.Errorf("value = %q, want %q", tt.attr.Value.String(), tt.wantVal)
			}
		})
	}
}

func TestErr(t *testing.T) {
	err := errors.New("test error")
	attr := Err(err)
	if attr.Key != KeyError {
		t.Errorf("Err key = %q, want %q", attr.Key, KeyError)
	}
	if attr.Value.String() != "test error" {
		t.Errorf("Err value = %q, want %q", attr.Value.String(), "test error")
	}

	// nil yields an empty group that slog omits
	attr = Err(nil)
	if attr.Key != "" {
		t.Errorf("Err(nil) key = %q, want empty string (empty group)", attr.Key)
	}
}

func TestAnonymizeEmail(t *testing.T) {
	tests := []struct {
		email    string
		wantLen  int
		hasValue bool
	}{
		{"jane@example.com", 21, true}, // "user:" + 16 hex chars
		{"user@gmail.com", 21, true},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			result := AnonymizeEmail(tt.email)
			if tt.hasValue {
				if len(result) != tt.wantLen {
					t.Errorf("AnonymizeEmail(%q) length = %d, want %d", tt.email, len(result), tt.wantLen)
				}
				if result[:5] != "user:" {
					t.Errorf("AnonymizeEmail(%q) should start with 'user:', got %q", tt.email, result)
				}
			} else if result != "" {
				t.Errorf("AnonymizeEmail(%q) = %q, want empty string", tt.email, result)
			}
		})
	}

	if AnonymizeEmail("test@example.com") != AnonymizeEmail("test@example.com") {
		t.Error("AnonymizeEmail should return deterministic results")
	}
	if AnonymizeEmail("test@example.com") == AnonymizeEmail("other@example.com") {
		t.Error("Different emails should produce different hashes")
	}
}

func TestAnonymizeCalendarID(t *testing.T) {
	tests := []struct {
		id     string
		hashed bool
	}{
		{"", false},
		{"primary", false},
		{"c_1234abcd@group.calendar.google.com", false},
		{"en.usa#holiday@group.v.calendar.google.com", false},
		{"jane@example.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			got := AnonymizeCalendarID(tt.id)
			if tt.hashed {
				if got == tt.id {
					t.Errorf("AnonymizeCalendarID(%q) should hash the address", tt.id)
				}
				if got != AnonymizeEmail(tt.id) {
					t.Errorf("AnonymizeCalendarID(%q) = %q, want %q", tt.id, got, AnonymizeEmail(tt.id))
				}
			} else if got != tt.id {
				t.Errorf("AnonymizeCalendarID(%q) = %q, want unchanged", tt.id, got)
			}
		})
	}
}

func TestSanitizeToken(t *testing.T) {
	tests := []struct {
		token    string
		expected string
	}{
		{"", "<empty>"},
		{"abc123", "[token:6 chars]"},
		{"a_very_long_token_string", "[token:24 chars]"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := SanitizeToken(tt.token); got != tt.expected {
				t.Errorf("SanitizeToken(%q) = %q, want %q", tt.token, got, tt.expected)
			}
		})
	}
}
