// Package logger wraps log/slog with the process-wide logger used by the CLI
// and the dashboard.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// ContextKey is a type for context keys used by the logger.
type ContextKey string

// RequestIDKey carries the dashboard request id set by the RequestID middleware.
const RequestIDKey ContextKey = "request_id"

var defaultLogger *slog.Logger

var levels = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

// Init installs the global logger. format is "json" or "text"; a nil w means
// stderr, which keeps report tables on stdout clean.
func Init(levelStr, format string, w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{
		Level:       parseLevel(levelStr),
		ReplaceAttr: replaceAttr,
	}

	var handler slog.Handler
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	defaultLogger = slog.New(handler)
	slog.SetDefault(defaultLogger)
}

// parseLevel maps a level name to slog.Level, defaulting to info.
func parseLevel(levelStr string) slog.Level {
	if l, ok := levels[strings.ToLower(strings.TrimSpace(levelStr))]; ok {
		return l
	}
	return slog.LevelInfo
}

// replaceAttr prints durations (cache ttl, fetch latency, ages) as "1h0m0s"
// instead of integer nanoseconds in JSON.
func replaceAttr(_ []string, a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindDuration {
		return slog.String(a.Key, a.Value.Duration().Round(time.Millisecond).String())
	}
	return a
}

// Get returns the global logger, initializing a text logger on first use.
func Get() *slog.Logger {
	if defaultLogger == nil {
		Init("info", "text", nil)
	}
	return defaultLogger
}

// WithRequestID returns a logger carrying the request id from ctx, if any.
func WithRequestID(ctx context.Context) *slog.Logger {
	l := Get()
	if reqID, ok := ctx.Value(RequestIDKey).(string); ok && reqID != "" {
		l = l.With("request_id", reqID)
	}
	return l
}

// WithComponent returns a logger with a component label.
func WithComponent(component string) *slog.Logger {
	return Get().With("component", component)
}

func Debug(msg string, args ...any) { Get().Debug(msg, args...) }
func Info(msg string, args ...any) { Get().Info(msg, args...) }
func Warn(msg string, args ...any) { Get().Warn(msg, args...) }
func Error(msg string, args ...any) { Get().Error(msg, args...) }

// InfoContext, WarnContext and ErrorContext add the request id from ctx.
func InfoContext(ctx context.Context, msg string, args ...any) {
	WithRequestID(ctx).InfoContext(ctx, msg, args...)
}

func WarnContext(ctx context.Context, msg string, args ...any) {
	WithRequestID(ctx).WarnContext(ctx, msg, args...)
}

func ErrorContext(ctx context.Context, msg string, args ...any) {
	WithRequestID(ctx).ErrorContext(ctx, msg, args...)
}
