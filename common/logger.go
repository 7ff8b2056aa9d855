package common

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler drops every record. Enabled reports false so callers skip formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(slog.New(nopHandler{}))
}

// SetLogger configures the logger shared by the engine and all of its sub-packages.
// By default the engine is silent. Passing nil restores the silent logger.
// SetLogger is safe for concurrent use.
//
// Log levels used by the engine:
//   - slog.LevelDebug: per-frame diagnostics (buffer writes, light counts)
//   - slog.LevelInfo: lifecycle events (adapter selected, pipeline registered)
//   - slog.LevelWarn: configuration problems that were recovered from
//   - slog.LevelError: configuration errors that abort a draw or a registration
//
// Parameters:
//   - l: the logger to install, or nil to disable logging
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(nopHandler{})
	}
	loggerPtr.Store(l)
}

// Logger returns the engine logger. Safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
