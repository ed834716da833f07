// Package logger provides structured JSON logging for the automation jobs.
// Log entries carry a per-invocation run ID so a single CI run's output can
// be correlated across the validation and reporting stages, and attributes
// holding credentials are redacted before they reach the output.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
)

// ContextKey is a custom type for context keys to avoid collisions.
type ContextKey string

// RunIDKey is the context key for the per-invocation run ID.
const RunIDKey ContextKey = "run_id"

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string
	// Format is the log format (json, text).
	Format string
	// Output is the log output destination (stdout, stderr, or file path).
	Output string
	// AddSource adds source file and line number to log entries.
	AddSource bool
}

// New creates a new structured logger based on configuration.
func New(cfg Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var output io.Writer
	switch strings.ToLower(cfg.Output) {
	case "stderr":
		output = os.Stderr
	case "stdout", "":
		output = os.Stdout
	default:
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			output = os.Stdout
		} else {
			output = file
		}
	}

	opts := &slog.HandlerOptions{
		Level:       level,
		AddSource:   cfg.AddSource,
		ReplaceAttr: sanitizeAttributes,
	}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "text" {
		handler = slog.NewTextHandler(output, opts)
	} else {
		handler = slog.NewJSONHandler(output, opts)
	}

	return slog.New(handler)
}

// sensitiveKeys lists attribute keys whose values must never be logged.
var sensitiveKeys = map[string]bool{
	"token":         true,
	"api_key":       true,
	"apikey":        true,
	"private_key":   true,
	"secret":        true,
	"auth":          true,
	"authorization": true,
}

func sanitizeAttributes(groups []string, a slog.Attr) slog.Attr {
	key := strings.ToLower(a.Key)
	if sensitiveKeys[key] {
		return slog.String(a.Key, "[REDACTED]")
	}
	for sensitive := range sensitiveKeys {
		if strings.Contains(key, sensitive) {
			return slog.String(a.Key, "[REDACTED]")
		}
	}
	return a
}

// NewRunID generates a fresh run ID for one job invocation.
func NewRunID() string {
	return uuid.NewString()
}

// WithRunID returns a logger carrying the run ID from the context, falling
// back to the logger unchanged when none is set.
func WithRunID(ctx context.Context, log *slog.Logger) *slog.Logger {
	if id, ok := ctx.Value(RunIDKey).(string); ok && id != "" {
		return log.With(slog.String("run_id", id))
	}
	return log
}

// SetRunID stores a run ID in the context.
func SetRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RunIDKey, id)
}
