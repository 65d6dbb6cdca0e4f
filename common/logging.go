package common

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler is a slog.Handler that silently discards all log records.
// The Enabled method returns false so the caller skips message formatting
// entirely, making disabled logging effectively zero-cost.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// newNopLogger creates a logger that silently discards all output.
func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	l := newNopLogger()
	loggerPtr.Store(l)
}

// SetLogger configures the logger used by all engine packages.
// By default the engine produces no log output. Pass nil to restore the
// default silent behavior.
//
// Log levels used by the engine:
//   - slog.LevelDebug: internal diagnostics (buffer sizes, dispatch shapes)
//   - slog.LevelInfo: lifecycle events (adapter selected, basis uploaded)
//   - slog.LevelWarn: soft data-quality issues (non-ascending eigenvalues,
//     clamped mass entries, cache evictions under pressure)
//
// Parameters:
//   - l: the logger to install, or nil to disable logging
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
}

// Logger returns the active logger. Never nil.
//
// Returns:
//   - *slog.Logger: the currently installed logger
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
