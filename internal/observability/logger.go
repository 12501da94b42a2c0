// Package observability builds the logger and Prometheus metrics.
package observability

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger returns a logger writing to stderr. format is "json" or
// "console"; an unparseable level falls back to info.
func NewLogger(level, format, service, version string) zerolog.Logger {
	return newLogger(os.Stderr, level, format).
		With().
		Str("service", service).
		Str("version", version).
		Logger()
}

func newLogger(w io.Writer, level, format string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	if format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}
