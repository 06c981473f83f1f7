// Package log provides structured logging for the account layer. It
// wraps Go's log/slog with conveniences for the objects this module
// actually passes around: per-subsystem child loggers, transaction-hash
// and tree-root tagged loggers, and a level that can be raised or
// lowered after construction for a long-lived CLI process.
package log

import (
	"log/slog"
	"os"

	"github.com/nervosnetwork/ckb-simple-account-layer/common"
)

// Logger wraps slog.Logger with account-layer context.
type Logger struct {
	inner *slog.Logger
	level *slog.LevelVar
}

// defaultLogger is the process-wide logger used by the package-level
// convenience functions.
var defaultLogger *Logger

func init() {
	defaultLogger = New(slog.LevelInfo)
}

// New creates a Logger that writes JSON to stderr at the given level.
// Its level can later be changed with SetLevel.
func New(level slog.Level) *Logger {
	lv := new(slog.LevelVar)
	lv.Set(level)
	h := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lv})
	return &Logger{inner: slog.New(h), level: lv}
}

// NewWithHandler creates a Logger backed by the supplied slog.Handler.
// Useful for tests or for writing to a custom destination. Its level is
// whatever the handler enforces; SetLevel has no effect on it.
func NewWithHandler(h slog.Handler) *Logger {
	return &Logger{inner: slog.New(h)}
}

// SetLevel changes the minimum level a Logger built with New emits at.
// A Logger built with NewWithHandler ignores this.
func (l *Logger) SetLevel(level slog.Level) {
	if l.level != nil {
		l.level.Set(level)
	}
}

// SetDefault replaces the package-level default logger.
func SetDefault(l *Logger) {
	if l != nil {
		defaultLogger = l
	}
}

// Default returns the current package-level default logger.
func Default() *Logger {
	return defaultLogger
}

// Module returns a child logger with an additional "module" attribute:
// the primary way subsystems (smt, vm, account, chain...) obtain their
// own contextual logger.
func (l *Logger) Module(name string) *Logger {
	return &Logger{inner: l.inner.With("module", name), level: l.level}
}

// With returns a child logger with additional key-value context.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{inner: l.inner.With(args...), level: l.level}
}

// WithTxHash returns a child logger tagged with a transaction hash, the
// identifier Advance and RestoreFromTransactions compute for each
// transaction they replay.
func (l *Logger) WithTxHash(h common.H256) *Logger {
	return l.With("tx", h.Hex())
}

// WithRoot returns a child logger tagged with a tree root hash, the
// value that actually changes on a successful Advance.
func (l *Logger) WithRoot(h common.H256) *Logger {
	return l.With("root", h.Hex())
}

// Debug logs at LevelDebug.
func (l *Logger) Debug(msg string, args ...any) { l.inner.Debug(msg, args...) }

// Info logs at LevelInfo.
func (l *Logger) Info(msg string, args ...any) { l.inner.Info(msg, args...) }

// Warn logs at LevelWarn.
func (l *Logger) Warn(msg string, args ...any) { l.inner.Warn(msg, args...) }

// Error logs at LevelError.
func (l *Logger) Error(msg string, args ...any) { l.inner.Error(msg, args...) }

// Package-level convenience functions, delegating to defaultLogger.

// Debug logs at LevelDebug using the default logger.
func Debug(msg string, args ...any) { defaultLogger.Debug(msg, args...) }

// Info logs at LevelInfo using the default logger.
func Info(msg string, args ...any) { defaultLogger.Info(msg, args...) }

// Warn logs at LevelWarn using the default logger.
func Warn(msg string, args ...any) { defaultLogger.Warn(msg, args...) }

// Error logs at LevelError using the default logger.
func Error(msg string, args ...any) { defaultLogger.Error(msg, args...) }
