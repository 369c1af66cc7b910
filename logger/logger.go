// Package logger builds the slog loggers used across the module.
package logger

import (
	"io"
	"log/slog"

	phuslog "github.com/phuslu/log"

	"github.com/chamira/SQLiteManager/config"
)

// DefaultOptions returns handler options at level with the time attribute
// removed from output.
func DefaultOptions(level slog.Leveler) *slog.HandlerOptions {
	return &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			return a
		},
	}
}

// New returns a logger writing to w in the configured format: phuslu/log's
// JSON handler for "json", the standard text handler for "text".
func New(cfg config.Log, w io.Writer) *slog.Logger {
	opts := DefaultOptions(cfg.Level.Level)
	if cfg.Format == config.LogFormatText {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(phuslog.SlogNewJSONHandler(w, opts))
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}
