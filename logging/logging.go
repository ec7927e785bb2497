// Package logging builds the zerolog loggers used across vow.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config selects the level, format and destination of a logger.
type Config struct {
	// Level is a zerolog level name. Empty means info.
	Level string
	// JSON writes one JSON object per event instead of console output.
	JSON   bool
	Writer io.Writer
}

// New returns a logger for cfg. An unknown level falls back to info and is
// reported through the returned logger.
func New(cfg Config) zerolog.Logger {
	w := cfg.Writer
	if w == nil {
		w = os.Stderr
	}
	if !cfg.JSON {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}

	logger := zerolog.New(w).With().Timestamp().Logger()

	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil || level == zerolog.NoLevel {
		if err != nil {
			logger.Warn().Str("level", cfg.Level).Msg("unknown log level, using info")
		}
		level = zerolog.InfoLevel
	}

	return logger.Level(level)
}
