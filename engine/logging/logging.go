// Package logging builds the structured loggers used across the engine and carries them through context.Context.
package logging

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
)

// New creates a logger with timestamp formatting.
// Timestamps are formatted as "HH:MM:SS.ms" (e.g., "14:32:01.45").
//
// Parameters:
//   - w: the destination writer
//   - level: the minimum level that is written
//
// Returns:
//   - *log.Logger: the configured logger
func New(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// ParseLevel converts a configuration level name into a log.Level.
// An empty name maps to info.
//
// Parameters:
//   - name: one of debug, info, warn, error, fatal
//
// Returns:
//   - log.Level: the parsed level
//   - error: error if the name is not a known level
func ParseLevel(name string) (log.Level, error) {
	if strings.TrimSpace(name) == "" {
		return log.InfoLevel, nil
	}
	lvl, err := log.ParseLevel(strings.ToLower(name))
	if err != nil {
		return log.InfoLevel, fmt.Errorf("invalid log level %q: %w", name, err)
	}
	return lvl, nil
}

type ctxKey int

const loggerKey ctxKey = 0

// WithLogger returns a new context with the given logger attached.
//
// Parameters:
//   - ctx: the parent context
//   - l: the logger to attach
//
// Returns:
//   - context.Context: the derived context
func WithLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext retrieves the logger from ctx, falling back to log.Default() if none is attached.
//
// Parameters:
//   - ctx: the context to search
//
// Returns:
//   - *log.Logger: the attached logger or the default logger
func FromContext(ctx context.Context) *log.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey).(*log.Logger); ok && l != nil {
			return l
		}
	}
	return log.Default()
}

// Discard returns a logger that drops everything. Useful in tests.
func Discard() *log.Logger {
	return New(io.Discard, log.FatalLevel)
}
