// Package logger builds the zerolog instances used across the wallet
// ledger. Services receive a logger by value and attach their own
// context fields; nothing logs through a package-level global.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const serviceName = "wallet-ledger"

// New builds the process logger writing to stdout, tagged with the
// service name. pretty switches to the console writer for local runs.
func New(level string, pretty bool) zerolog.Logger {
	var w io.Writer = os.Stdout

	if pretty {
		w = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
	}

	return zerolog.New(w).
		Level(parseLevel(level)).
		With().
		Timestamp().
		Caller().
		Str("service", serviceName).
		Logger()
}

// NewWithWriter builds a logger on a caller-supplied writer, used by
// tests that capture and inspect output.
func NewWithWriter(level string, w io.Writer) zerolog.Logger {
	return zerolog.New(w).
		Level(parseLevel(level)).
		With().
		Timestamp().
		Logger()
}

// parseLevel maps a configured level name onto zerolog's levels.
// Unknown names fall back to info rather than failing startup.
func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
