package app

import (
	"io"
	"log/slog"
	"os"
)

// NewLogger builds the service logger. LOG_FORMAT selects json for log
// shipping, text for plain structured lines with source positions, or the
// default pretty output for local development.
func NewLogger(cfg *Config) *slog.Logger {
	format := "pretty"
	if cfg != nil && cfg.LogFormat != "" {
		format = cfg.LogFormat
	}
	return slog.New(newLogHandler(os.Stdout, format))
}

func newLogHandler(w io.Writer, format string) slog.Handler {
	switch format {
	case "json":
		return slog.NewJSONHandler(w, &slog.HandlerOptions{AddSource: true})
	case "text":
		return slog.NewTextHandler(w, &slog.HandlerOptions{AddSource: true})
	default:
		// pretty keeps local output readable: no source positions, debug level.
		return slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
}
