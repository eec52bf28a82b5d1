package batchlearn

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with run-specific helpers.
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
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithDataset adds a dataset field to the logger.
func (l *Logger) WithDataset(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("dataset", name),
	}
}

// LogDatasetLoaded logs the outcome of opening a dataset.
func (l *Logger) LogDatasetLoaded(ctx context.Context, role, name string, examples int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "loading dataset failed",
			"role", role,
			"dataset", name,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "dataset loaded",
			"role", role,
			"dataset", name,
			"examples", examples,
		)
	}
}

// LogEpoch logs the end of a training epoch.
func (l *Logger) LogEpoch(ctx context.Context, e EpochReport) {
	args := []any{
		"epoch", e.Epoch,
		"train_loss", e.TrainLoss,
		"train_seconds", e.TrainSeconds,
	}
	if e.HasValidation {
		args = append(args,
			"val_loss", e.ValLoss,
			"val_seconds", e.ValSeconds,
		)
	}
	l.InfoContext(ctx, "epoch completed", args...)
}

// LogPass logs a failed or started pass.
func (l *Logger) LogPass(ctx context.Context, kind string, epoch int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "pass failed",
			"kind", kind,
			"epoch", epoch,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "pass started",
			"kind", kind,
			"epoch", epoch,
		)
	}
}

// LogPredictions logs the prediction output.
func (l *Logger) LogPredictions(ctx context.Context, output string, count int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "writing predictions failed",
			"output", output,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "predictions written",
			"output", output,
			"count", count,
		)
	}
}
