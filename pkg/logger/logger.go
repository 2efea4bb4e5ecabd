package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ServiceName is attached to every log line.
const ServiceName = "edu-ledger"

// New builds the process logger. pretty switches to console output for
// local development; production logs are JSON on stdout.
func New(level string, pretty bool) zerolog.Logger {
	var w io.Writer = os.Stdout
	if pretty {
		w = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
	}
	return NewWithWriter(level, w).With().Caller().Logger()
}

// NewWithWriter is New without caller info, writing JSON to w.
func NewWithWriter(level string, w io.Writer) zerolog.Logger {
	return zerolog.New(w).
		Level(ParseLevel(level)).
		With().
		Timestamp().
		Str("service", ServiceName).
		Logger()
}

// Component tags a child logger with its owner, e.g. "ledger" or "sweeper".
func Component(log zerolog.Logger, name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}

// ParseLevel accepts zerolog level names plus "warning". Anything
// unrecognised, or below debug, falls back to info.
func ParseLevel(level string) zerolog.Level {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "warning" {
		level = "warn"
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" || lvl < zerolog.DebugLevel {
		return zerolog.InfoLevel
	}
	return lvl
}
