// Package logging wires up structured logging for the whole process.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Setup builds the process logger at the given level and installs it as the
// slog default so library code logs through the same handler. Level names are
// case-insensitive; anything unrecognized falls back to info rather than
// failing startup.
func Setup(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: lvl,
	})
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
