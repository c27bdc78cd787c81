package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

var base = slog.New(slog.NewJSONHandler(os.Stdout, nil))

// Init installs the JSON logger at the given level ("debug", "info", "warn", "error").
func Init(level string) {
	base = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(level),
	}))
	slog.SetDefault(base)
	base.Info("logger initialized", "level", strings.ToLower(level))
}

// Slog exposes the underlying logger for components that take a *slog.Logger.
func Slog() *slog.Logger {
	return base
}

func Debug(msg string, fields map[string]any) {
	log(slog.LevelDebug, msg, fields)
}

func Info(msg string, fields map[string]any) {
	log(slog.LevelInfo, msg, fields)
}

func Warn(msg string, fields map[string]any) {
	log(slog.LevelWarn, msg, fields)
}

func Error(msg string, fields map[string]any) {
	log(slog.LevelError, msg, fields)
}

func Fatal(msg string, fields map[string]any) {
	log(slog.LevelError, msg, fields)
	os.Exit(1)
}

func log(level slog.Level, msg string, fields map[string]any) {
	ctx := context.Background()
	if !base.Enabled(ctx, level) {
		return
	}
	attrs := make([]slog.Attr, 0, len(fields))
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	base.LogAttrs(ctx, level, msg, attrs...)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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
