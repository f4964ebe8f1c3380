package main

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// parseLevel maps a level name to a slog level.
// Valid levels: debug, info, warn, error (case-insensitive). Anything else is info.
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

// newLogger returns a text logger writing to w at the given level.
func newLogger(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: parseLevel(level),
	}))
}

// setupLogger configures the default slog logger based on the log level string.
func setupLogger(level string) {
	slog.SetDefault(newLogger(os.Stderr, level))
}
