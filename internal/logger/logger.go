// Package logger provides leveled logging for astraqa.
// Messages go through a log/slog handler. Debug and info messages are only
// emitted in verbose mode (--verbose); warnings and errors are always
// emitted.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Format selects the slog handler.
type Format string

// Output formats.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
	format            = FormatText
	level             = new(slog.LevelVar)
	base              = newLogger()
)

func init() {
	level.Set(slog.LevelWarn)
}

// newLogger builds the slog logger for the current output and format
// (caller must hold lock or be in package init).
func newLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == FormatJSON {
		return slog.New(slog.NewJSONHandler(output, opts))
	}
	return slog.New(slog.NewTextHandler(output, opts))
}

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
	if v {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelWarn)
	}
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	base = newLogger()
}

// SetFormat switches between text and JSON output.
func SetFormat(f string) {
	mu.Lock()
	defer mu.Unlock()
	if Format(strings.ToLower(f)) == FormatJSON {
		format = FormatJSON
	} else {
		format = FormatText
	}
	base = newLogger()
}

// Logger returns the underlying structured logger.
func Logger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

func log(lvl slog.Level, msg string, args ...any) {
	mu.RLock()
	l := base
	mu.RUnlock()
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	l.Log(context.Background(), lvl, msg)
}

// Debug logs a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	log(slog.LevelDebug, format, args...)
}

// Section logs a section header if verbose mode is enabled.
func Section(name string) {
	log(slog.LevelDebug, "=== "+name+" ===")
}

// Info logs an informational message if verbose mode is enabled.
func Info(format string, args ...any) {
	log(slog.LevelInfo, format, args...)
}

// Warn logs a warning message.
func Warn(format string, args ...any) {
	log(slog.LevelWarn, format, args...)
}

// Error logs an error message.
func Error(format string, args ...any) {
	log(slog.LevelError, format, args...)
}
