package fvapprox

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/hupe1980/fvapprox/normalize"
)

// Logger wraps slog.Logger with fvapprox-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithClass adds a class field to the logger.
func (l *Logger) WithClass(cls int) *Logger {
	return &Logger{
		Logger: l.Logger.With("class", cls),
	}
}

// WithMode adds a prediction mode field to the logger.
func (l *Logger) WithMode(mode normalize.PredictionMode) *Logger {
	return &Logger{
		Logger: l.Logger.With("mode", mode.String()),
	}
}

// LogClassScored logs the completion of one class within a chunk.
func (l *Logger) LogClassScored(ctx context.Context, cls int, elapsed time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "class scoring failed",
			"class", cls,
			"elapsed", elapsed,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "class scored",
			"class", cls,
			"elapsed", elapsed,
		)
	}
}

// LogBatch logs the completion of one chunk of videos.
func (l *Logger) LogBatch(ctx context.Context, chunk, videos, rows, classes int, cached bool, elapsed time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "chunk failed",
			"chunk", chunk,
			"videos", videos,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "chunk scored",
			"chunk", chunk,
			"videos", videos,
			"rows", rows,
			"classes", classes,
			"cached", cached,
			"elapsed", elapsed,
		)
	}
}
