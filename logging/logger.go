// Package logging builds the process-wide slog logger.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// NewLogger returns a structured slog.Logger with the given level writing
// JSON to stdout.
func NewLogger(level slog.Leveler) *slog.Logger {
	return New(os.Stdout, level)
}

// New returns a JSON logger writing to w.
func New(w io.Writer, level slog.Leveler) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// Level maps the debug switch onto a slog level.
func Level(debug bool) slog.Level {
	if debug {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}
