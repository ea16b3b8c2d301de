package pauliframe

import (
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with pauliframe-specific context.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a Logger with the given handler. A nil handler uses a
// text handler to stderr at Info level.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
func NewJSONLogger(level slog.Level) *Logger {
	return &Logger{Logger: slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))}
}

// NoopLogger creates a Logger that discards all output.
func NoopLogger() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // unreachable level
	}))}
}

// WithTrajectories tags the logger with a trajectory count.
func (l *Logger) WithTrajectories(n int) *Logger {
	return &Logger{Logger: l.Logger.With("trajectories", n)}
}

// WithBatches tags the logger with a batch count.
func (l *Logger) WithBatches(n int) *Logger {
	return &Logger{Logger: l.Logger.With("batches", n)}
}
