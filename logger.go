package lotgo

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with lotgo-specific context.
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
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithSpot adds a spot field to the logger.
func (l *Logger) WithSpot(spotID string) *Logger {
	return &Logger{
		Logger: l.Logger.With("spot", spotID),
	}
}

// WithUser adds a user field to the logger.
func (l *Logger) WithUser(userID string) *Logger {
	return &Logger{
		Logger: l.Logger.With("user", userID),
	}
}

// LogBooking logs the outcome of a processed booking request.
func (l *Logger) LogBooking(ctx context.Context, spotID, userID string, success bool, took time.Duration) {
	if success {
		l.InfoContext(ctx, "booking committed",
			"spot", spotID,
			"user", userID,
			"took", took,
		)
	} else {
		l.DebugContext(ctx, "booking failed",
			"spot", spotID,
			"user", userID,
		)
	}
}

// LogCancellation logs a cancellation attempt.
func (l *Logger) LogCancellation(ctx context.Context, spotID string, released bool) {
	if released {
		l.InfoContext(ctx, "booking cancelled",
			"spot", spotID,
		)
	} else {
		l.DebugContext(ctx, "cancellation had no effect",
			"spot", spotID,
		)
	}
}

// LogSoftLock logs a soft-lock attempt.
func (l *Logger) LogSoftLock(ctx context.Context, spotID, userID string, acquired bool) {
	l.DebugContext(ctx, "soft lock attempt",
		"spot", spotID,
		"user", userID,
		"acquired", acquired,
	)
}

// LogExpiry logs a booking expiry.
func (l *Logger) LogExpiry(ctx context.Context, spotID, owner string) {
	l.InfoContext(ctx, "booking expired",
		"spot", spotID,
		"user", owner,
	)
}
