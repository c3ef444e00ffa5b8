package logger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

var current atomic.Pointer[slog.Logger]

func init() {
	current.Store(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
}

// ParseLevel normalizes a level string. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error", "err":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, errors.New("invalid log level")
	}
}

// Init installs a JSON logger writing to stdout at the given level.
func Init(level string) error {
	return InitWriter(os.Stdout, level)
}

// InitWriter is Init with an explicit destination. Tests pass io.Discard.
func InitWriter(w io.Writer, level string) error {
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}
	l := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     lvl,
		AddSource: lvl == slog.LevelDebug,
	}))
	current.Store(l)
	slog.SetDefault(l)
	return nil
}

// Slog exposes the underlying logger for libraries that take one.
func Slog() *slog.Logger {
	return current.Load()
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

// Log writes at an explicit level; used by the request logger.
func Log(level slog.Level, msg string, fields map[string]any) {
	log(level, msg, fields)
}

func log(level slog.Level, msg string, fields map[string]any) {
	l := current.Load()
	if !l.Enabled(context.Background(), level) {
		return
	}
	attrs := make([]slog.Attr, 0, len(fields))
	for k, v := range fields {
		if err, ok := v.(error); ok {
			v = err.Error()
		}
		attrs = append(attrs, slog.Any(k, v))
	}
	l.LogAttrs(context.Background(), level, msg, attrs...)
}
