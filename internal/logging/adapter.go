package logging

import (
	"log/slog"
)

// Logger is the structured logging interface the sync engine and the server
// context log through.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// SlogAdapter adapts an slog.Logger to the Logger interface.
//
// An adapter without a logger follows slog.Default() at every call, so it
// picks up handlers installed later by Setup (for example after a config
// reload in serve).
type SlogAdapter struct {
	logger *slog.Logger
	attrs  []any
}

// NewSlogAdapter wraps logger. A nil logger follows slog.Default().
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

func (a *SlogAdapter) Debug(msg string, args ...interface{}) {
	a.Logger().Debug(msg, args...)
}

func (a *SlogAdapter) Info(msg string, args ...interface{}) {
	a.Logger().Info(msg, args...)
}

func (a *SlogAdapter) Warn(msg string, args ...interface{}) {
	a.Logger().Warn(msg, args...)
}

func (a *SlogAdapter) Error(msg string, args ...interface{}) {
	a.Logger().Error(msg, args...)
}

// Logger returns the slog.Logger the adapter currently writes to.
func (a *SlogAdapter) Logger() *slog.Logger {
	l := a.logger
	if l == nil {
		l = slog.Default()
	}
	if len(a.attrs) > 0 {
		l = l.With(a.attrs...)
	}
	return l
}

// With returns an adapter that adds args to every record.
func (a *SlogAdapter) With(args ...any) *SlogAdapter {
	attrs := make([]any, 0, len(a.attrs)+len(args))
	attrs = append(attrs, a.attrs...)
	attrs = append(attrs, args...)
	return &SlogAdapter{logger: a.logger, attrs: attrs}
}

// ForAccount tags l with the account name. Loggers other than
// *SlogAdapter are returned unchanged.
func ForAccount(l Logger, account string) Logger {
	if a, ok := l.(*SlogAdapter); ok {
		return a.With(Account(account))
	}
	return l
}

// DefaultLogger returns a Logger that follows slog.Default().
func DefaultLogger() *SlogAdapter {
	return NewSlogAdapter(nil)
}

// Discard returns a Logger that drops everything.
func Discard() *SlogAdapter {
	return NewSlogAdapter(slog.New(slog.DiscardHandler))
}
