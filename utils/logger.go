package utils

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/lmittmann/tint"
)

// Logger provides leveled logging throughout the application. Messages keep
// the printf style used across the codebase; records are emitted through slog.
type Logger struct {
	slog *slog.Logger
}

// NewLogger creates a Logger writing info-and-above to stdout.
func NewLogger() *Logger {
	return NewLoggerTo(os.Stdout, "info")
}

// NewLoggerTo creates a Logger writing to w at the given level
// (debug, info, warn, error). Unknown levels fall back to info.
func NewLoggerTo(w io.Writer, level string) *Logger {
	handler := tint.NewHandler(w, &tint.Options{
		Level:      ParseLevel(level),
		TimeFormat: "2006-01-02 15:04:05",
	})
	return &Logger{slog: slog.New(handler)}
}

// ParseLevel maps a LOG_LEVEL string to a slog level.
func ParseLevel(level string) slog.Level {
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

func (l *Logger) Info(format string, args ...any) {
	l.slog.Info(fmt.Sprintf(format, args...))
}

func (l *Logger) Warn(format string, args ...any) {
	l.slog.Warn(fmt.Sprintf(format, args...))
}

func (l *Logger) Error(format string, args ...any) {
	l.slog.Error(fmt.Sprintf(format, args...))
}

func (l *Logger) Debug(format string, args ...any) {
	l.slog.Debug(fmt.Sprintf(format, args...))
}

// Truncate shortens s to at most max bytes, marking the cut with "...".
// The cut never splits a multi-byte character.
func Truncate(s string, max int) string {
	if max <= 3 || len(s) <= max {
		return s
	}
	cut := max - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
