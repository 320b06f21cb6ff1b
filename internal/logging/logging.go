// Package logging builds the slog loggers shared by the CLI, the HTTP server
// and the simulation engine. Logs go to stderr so stdout stays free for
// reports, schedules and generated instances.
package logging

import (
	"io"
	"log/slog"
	"strings"
)

// clockLayout is the text-format timestamp; runs are short enough that the date is noise.
const clockLayout = "15:04:05.000"

// NewWithWriter creates a logger writing to w.
//
// format: "json" for one JSON object per record, anything else for slog's
// key=value text. At debug level records also carry their source position.
func NewWithWriter(level slog.Level, format string, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level <= slog.LevelDebug,
	}

	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	opts.ReplaceAttr = func(groups []string, a slog.Attr) slog.Attr {
		if len(groups) == 0 && a.Key == slog.TimeKey && a.Value.Kind() == slog.KindTime {
			return slog.String(slog.TimeKey, a.Value.Time().Format(clockLayout))
		}
		return a
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Discard returns a logger that drops every record. The engine falls back to
// it when the caller supplies none, which keeps evaluation loops silent.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// ParseLevel converts a level name to slog.Level.
// Unrecognized names give slog.LevelInfo.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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
