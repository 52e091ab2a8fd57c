// Package logging provides structured logging for threadline using zerolog.
package logging

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the process-wide base logger. Init replaces it.
var Logger zerolog.Logger

type ctxKey struct{}

// Config holds logging configuration.
type Config struct {
	// Level is the minimum log level (trace, debug, info, warn, error).
	// Unknown or empty levels mean info.
	Level string

	// Format is "json" or "console" (the default).
	Format string

	// Output is where logs are written (defaults to stderr).
	Output io.Writer

	// EnableCaller adds caller information to logs.
	EnableCaller bool
}

// Init rebuilds the base logger. Loggers derived earlier keep their old
// output, so components should be created after Init.
func Init(cfg Config) {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))
	zerolog.TimeFieldFormat = time.RFC3339

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Format != "json" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}

	lc := zerolog.New(out).With().Timestamp()
	if cfg.EnableCaller {
		lc = lc.Caller()
	}
	Logger = lc.Logger()
}

// OpenFile opens a log file for appending, creating it when missing.
func OpenFile(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}

func parseLevel(level string) zerolog.Level {
	switch level = strings.ToLower(strings.TrimSpace(level)); level {
	case "warning":
		return zerolog.WarnLevel
	case "off":
		return zerolog.Disabled
	}
	parsed, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		return zerolog.InfoLevel
	}
	return parsed
}

// WithContext attaches logger to ctx. Components built from the context
// through ComponentFrom inherit its fields.
func WithContext(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the logger attached to ctx, or the base logger.
func FromContext(ctx context.Context) zerolog.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(ctxKey{}).(zerolog.Logger); ok {
			return logger
		}
	}
	return Logger
}

// Debug starts a debug event on the base logger.
func Debug() *zerolog.Event {
	return Logger.Debug()
}

// Component creates a logger with a component field.
func Component(name string) zerolog.Logger {
	return Logger.With().Str("component", name).Logger()
}

// ComponentFrom is Component for work scoped to ctx: the result carries the
// fields of the logger attached to ctx as well.
func ComponentFrom(ctx context.Context, name string) zerolog.Logger {
	return FromContext(ctx).With().Str("component", name).Logger()
}

// WithAccount scopes logger to an account context.
func WithAccount(logger zerolog.Logger, accountID int64) zerolog.Logger {
	return logger.With().Int64("account_id", accountID).Logger()
}

// WithItem scopes logger to a single item.
func WithItem(logger zerolog.Logger, itemID int64) zerolog.Logger {
	return logger.With().Int64("item_id", itemID).Logger()
}

func init() {
	Init(Config{})
}
