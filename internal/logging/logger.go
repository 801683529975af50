// Package logging builds the zerolog loggers used across items-api.
//
// Console output is meant for local development; JSON output is what a
// container runtime should collect.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Nop discards everything. Tests use it as the default component logger.
var Nop = zerolog.Nop()

// Supported output formats
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// New creates a logger writing to stderr at the given level and format.
// Unknown levels fall back to info.
func New(level, format string) zerolog.Logger {
	return NewWithWriter(os.Stderr, level, format)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(out io.Writer, level, format string) zerolog.Logger {
	lvl := ParseLevel(level)

	var writer io.Writer = out
	if strings.EqualFold(format, FormatConsole) {
		writer = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.Kitchen,
			NoColor:    os.Getenv("NO_COLOR") != "",
		}
	}

	logger := zerolog.New(writer).
		Level(lvl).
		With().
		Timestamp().
		Logger()

	if lvl <= zerolog.DebugLevel {
		logger = logger.With().Caller().Logger()
	}

	return logger
}

// ParseLevel converts a level name to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

// ValidLevel reports whether level names a zerolog level.
func ValidLevel(level string) bool {
	_, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	return err == nil && level != ""
}
