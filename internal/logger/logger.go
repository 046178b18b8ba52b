// Package logger provides structured logging for memoir.
//
// Loggers are log/slog loggers backed by the clog console handler. A
// request-scoped logger travels in the context (With/From); code without a
// context logs through the package default. The --verbose flag lowers the
// default level to debug so the retrieval and composition steps become visible.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/m-mizutani/clog"
)

type contextKey struct{}

var (
	loggerKey = contextKey{}

	mu            sync.RWMutex
	level         = "info"
	verbose       bool
	output        io.Writer = os.Stderr
	defaultLogger           = New("info", os.Stderr)
)

// ParseLevel converts a level name to slog.Level.
// Accepts "debug", "info", "warn", "warning", "error" (case-insensitive).
// The second return is false for unrecognised names, which map to info.
func ParseLevel(name string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, true
	case "info", "":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

// New creates a console logger writing to w at the given level.
func New(levelName string, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	lvl, _ := ParseLevel(levelName)

	handler := clog.New(
		clog.WithWriter(w),
		clog.WithLevel(lvl),
		clog.WithTimeFmt("15:04:05"),
		clog.WithSource(false),
		clog.WithAttrHook(clog.GoerrHook),
	)
	return slog.New(handler)
}

// Default returns the package default logger.
func Default() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return defaultLogger
}

// SetDefault replaces the package default logger.
func SetDefault(l *slog.Logger) {
	mu.Lock()
	defer mu.Unlock()
	defaultLogger = l
}

// Configure rebuilds the default logger with a new level and output.
// An empty level keeps the current one; a nil writer keeps the current output.
func Configure(levelName string, w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if levelName != "" {
		if _, ok := ParseLevel(levelName); ok {
			level = levelName
		}
	}
	if w != nil {
		output = w
	}
	rebuild()
}

// SetVerbose enables or disables debug logging on the default logger.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
	rebuild()
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the output writer of the default logger.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	Configure("", w)
}

// rebuild recreates the default logger (caller must hold lock).
func rebuild() {
	lvl := level
	if verbose {
		lvl = "debug"
	}
	defaultLogger = New(lvl, output)
}

// With returns a new context carrying l.
func With(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// From returns the logger carried by ctx, or the default logger.
func From(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
			return l
		}
	}
	return Default()
}

// Debug logs at debug level on the default logger.
func Debug(msg string, args ...any) {
	Default().Debug(msg, args...)
}

// Info logs at info level on the default logger.
func Info(msg string, args ...any) {
	Default().Info(msg, args...)
}

// Warn logs at warn level on the default logger.
func Warn(msg string, args ...any) {
	Default().Warn(msg, args...)
}

// Section marks the start of a pipeline stage in debug output.
func Section(ctx context.Context, name string) {
	From(ctx).Debug("=== " + name + " ===")
}
