package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNewSlogAdapter_NilFollowsDefault(t *testing.T) {
	saved := slog.Default()
	t.Cleanup(func() { slog.SetDefault(saved) })

	adapter := NewSlogAdapter(nil)

	var buf bytes.Buffer
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	adapter.Info("after setup")

	if !strings.Contains(buf.String(), "after setup") {
		t.Errorf("adapter should write to the default logger installed later, got %q", buf.String())
	}
}

func TestNewSlogAdapter_WithLogger(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	adapter := NewSlogAdapter(logger)
	if adapter.Logger() != logger {
		t.Error("Logger() should return the wrapped logger")
	}
}

func TestSlogAdapter_Levels(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewSlogAdapter(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	adapter.Debug("debug message", "key", "value")
	adapter.Info("info message", "key", "value")
	adapter.Warn("warn message", "key", "value")
	adapter.Error("error message", "key", "value")

	out := buf.String()
	for _, want := range []string{"level=DEBUG", "level=INFO", "level=WARN", "level=ERROR", "key=value"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestSlogAdapter_With(t *testing.T) {
	var buf bytes.Buffer
	base := NewSlogAdapter(slog.New(slog.NewTextHandler(&buf, nil)))

	tagged := base.With(RunID("r1"))
	tagged.Info("tagged")
	base.Info("untagged")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "run_id=r1") {
		t.Errorf("tagged line missing run_id: %q", lines[0])
	}
	if strings.Contains(lines[1], "run_id") {
		t.Errorf("With must not modify the base adapter: %q", lines[1])
	}
}

type recordingLogger struct{ msgs []string }

func (r *recordingLogger) Debug(msg string, _ ...interface{}) { r.msgs = append(r.msgs, msg) }
func (r *recordingLogger) Info(msg string, _ ...interface{})  { r.msgs = append(r.msgs, msg) }
func (r *recordingLogger) Warn(msg string, _ ...interface{})  { r.msgs = append(r.msgs, msg) }
func (r *recordingLogger) Error(msg string, _ ...interface{}) { r.msgs = append(r.msgs, msg) }

func TestForAccount(t *testing.T) {
	var buf bytes.Buffer
	l := ForAccount(NewSlogAdapter(slog.New(slog.NewTextHandler(&buf, nil))), "work")
	l.Info("sync")
	if !strings.Contains(buf.String(), "account=work") {
		t.Errorf("missing account attribute: %q", buf.String())
	}

	other := &recordingLogger{}
	if ForAccount(other, "work") != Logger(other) {
		t.Error("non-slog loggers should be returned unchanged")
	}
}

func TestDiscard(t *testing.T) {
	// Should not panic
	Discard().Info("dropped", "key", "value")
}

func TestLoggerInterface(t *testing.T) {
	var _ Logger = (*SlogAdapter)(nil)
}
