// Package logging builds the zerolog loggers every component of the
// agent receives from its caller. A long-running profiling daemon logs
// JSON for collectors; an operator running it by hand in a terminal
// gets the pretty console writer instead.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Config selects the log level and output shape.
type Config struct {
	// Level is one of trace, debug, info, warn, error. Anything else
	// falls back to info.
	Level string

	// Pretty switches from JSON lines to the human-readable console
	// writer. Use AutoPretty to decide based on where output goes.
	Pretty bool

	// Output defaults to os.Stderr, keeping stdout free for anything a
	// wrapping script wants to capture.
	Output io.Writer
}

// DefaultConfig returns the daemon defaults: info level, pretty only
// when stderr is a terminal.
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Pretty: AutoPretty(),
	}
}

// AutoPretty reports whether stderr is a character device (an
// interactive terminal rather than a pipe or journal), which is when
// the console writer is worth its cost.
func AutoPretty() bool {
	info, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// New creates a zerolog logger from cfg. Components derive their own
// scoped loggers from it with With().Str("component", ...).
func New(cfg Config) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	level := zerolog.InfoLevel
	switch cfg.Level {
	case "trace":
		level = zerolog.TraceLevel
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}

	if cfg.Pretty {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: "15:04:05",
		}
	}

	return zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// NewWithComponent creates a logger pre-scoped to one component name.
func NewWithComponent(cfg Config, component string) zerolog.Logger {
	return New(cfg).With().Str("component", component).Logger()
}
