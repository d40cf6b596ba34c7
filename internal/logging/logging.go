// Package logging configures the process-wide slog logger.
package logging

import (
	"io"
	"log/slog"
	"strings"
)

// New returns a text logger writing to w at the given level. Diagnostics go
// to stderr so they never mix with report output on stdout.
func New(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Init creates a logger with New and installs it as the slog default.
func Init(w io.Writer, level slog.Level) *slog.Logger {
	logger := New(w, level)
	slog.SetDefault(logger)
	return logger
}

// ParseLevel converts a string ("debug", "info", "warn", "error") to slog.Level.
// Unknown strings default to LevelWarn.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// Level picks the effective level: verbose raises a quieter level to info.
func Level(name string, verbose bool) slog.Level {
	level := ParseLevel(name)
	if verbose && level > slog.LevelInfo {
		return slog.LevelInfo
	}
	return level
}
