package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Setup installs the process-wide logger. Services pass stdout (or nil);
// commands whose stdout carries the analysis document pass stderr.
func Setup(level, format string, w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	slog.SetDefault(New(level, format, w))
}

// New builds a logger without installing it, for callers that scope logs
// to one run. An unknown level falls back to info and any format other than
// "text" writes JSON.
func New(level, format string, w io.Writer) *slog.Logger {
	lvl, err := ParseLevel(level)
	if err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}

	if strings.EqualFold(format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// ParseLevel accepts debug, info, warn or error in any case. The empty
// string means info.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", level)
}

// ValidFormat reports whether format names a supported handler.
func ValidFormat(format string) bool {
	switch strings.ToLower(format) {
	case "", "json", "text":
		return true
	}
	return false
}
