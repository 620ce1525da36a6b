package shared

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// ParseLevel resolves the log level: debug wins, then the configured level,
// then info.
func ParseLevel(debug bool, configured string) zerolog.Level {
	if debug {
		return zerolog.DebugLevel
	}
	if level, err := zerolog.ParseLevel(configured); err == nil && level != zerolog.NoLevel {
		return level
	}
	return zerolog.InfoLevel
}

// SetupLogger configures zerolog writing to stderr, either as pretty console
// output or as JSON.
func SetupLogger(format string, level zerolog.Level) zerolog.Logger {
	return newLogger(os.Stderr, format, level)
}

func newLogger(w io.Writer, format string, level zerolog.Level) zerolog.Logger {
	if format == "json" {
		zerolog.TimeFieldFormat = time.RFC3339Nano
	} else {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Logger()
}
