// Package logger is the process-wide structured logger. Both binaries call
// Initialize once at startup; everything else logs through the package functions.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"time"
)

var current atomic.Pointer[slog.Logger]

// Initialize sets up the global logger with the specified level and format
func Initialize(level, format string) {
	InitializeWithWriter(os.Stdout, level, format)
}

// InitializeWithWriter is Initialize with an explicit destination
func InitializeWithWriter(w io.Writer, level, format string) {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	l := slog.New(handler)
	current.Store(l)
	slog.SetDefault(l)
}

// parseLevel maps a config level name to slog. Unknown names mean info.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func get() *slog.Logger {
	if l := current.Load(); l != nil {
		return l
	}
	return slog.Default()
}

func Debug(msg string, args ...any) { get().Debug(msg, args...) }
func Info(msg string, args ...any)  { get().Info(msg, args...) }
func Warn(msg string, args ...any)  { get().Warn(msg, args...) }
func Error(msg string, args ...any) { get().Error(msg, args...) }

func InfoContext(ctx context.Context, msg string, args ...any) {
	get().InfoContext(ctx, msg, args...)
}

// With returns a logger with the given attributes attached
func With(args ...any) *slog.Logger {
	return get().With(args...)
}

// TaskStarted marks the beginning of a scheduler task run.
func TaskStarted(task string, args ...any) {
	get().Info("→ Task started", prepend(args, "task", task)...)
}

// TaskFinished closes a task run. A non-nil err logs at error level.
func TaskFinished(task string, elapsed time.Duration, err error, args ...any) {
	finish("Task", err, prepend(args, "task", task, "duration_ms", elapsed.Milliseconds()), slog.LevelInfo)
}

// DatabaseCall and DatabaseResult bracket one repository statement at debug level.
func DatabaseCall(operation, query string, args ...any) {
	get().Debug("→ Database call", prepend(args, "operation", operation, "query", query)...)
}

func DatabaseResult(operation string, rowsAffected int64, err error, args ...any) {
	finish("Database call", err, prepend(args, "operation", operation, "rows_affected", rowsAffected), slog.LevelDebug)
}

// ExternalServiceCall and ExternalServiceResult bracket a call to a mail, push or payment provider.
func ExternalServiceCall(service, operation string, args ...any) {
	get().Debug("→ External service call", prepend(args, "service", service, "operation", operation)...)
}

func ExternalServiceResult(service, operation string, err error, args ...any) {
	finish("External service call", err, prepend(args, "service", service, "operation", operation), slog.LevelDebug)
}

func finish(what string, err error, args []any, okLevel slog.Level) {
	if err != nil {
		get().Error("← "+what+" failed", append(args, "error", err)...)
		return
	}
	get().Log(context.Background(), okLevel, "← "+what+" finished", args...)
}

func prepend(args []any, head ...any) []any {
	return append(head, args...)
}
