// Package logging configures the slog logger shared by the usdlog tools
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"usdlog/internal/config"
)

// New creates a logger from cfg. Diagnostics go to stderr unless a file is
// configured, keeping stdout free for the tool's summary lines. The returned
// close function releases the log file, if any.
func New(cfg config.LoggingConfig, verbose bool) (*slog.Logger, func() error, error) {
	level := ParseLevel(cfg.Level)
	if verbose && level > slog.LevelDebug {
		level = slog.LevelDebug
	}

	var output io.Writer = os.Stderr
	closeFn := func() error { return nil }

	if cfg.File != "" {
		file, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		output = file
		closeFn = file.Close
	}

	return NewWithWriter(output, cfg.Format, level), closeFn, nil
}

// NewWithWriter creates a logger writing to w in the given format
func NewWithWriter(w io.Writer, format string, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// ParseLevel converts a level name to a slog.Level, defaulting to info
func ParseLevel(level string) slog.Level {
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
