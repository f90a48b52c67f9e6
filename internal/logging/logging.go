// Package logging builds the zerolog loggers shared by the catalog components.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// Nop discards everything. Components default to it when no logger is given.
var Nop = zerolog.Nop()

// New creates a logger writing to w at the given level. format is "json",
// "console" or "auto" (console when w is a terminal).
func New(level, format string, w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}

	if useConsole(format, w) {
		w = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.Kitchen,
			NoColor:    os.Getenv("NO_COLOR") != "",
		}
	}

	lvl := ParseLevel(level)
	logger := zerolog.New(w).Level(lvl).With().Timestamp().Logger()
	if lvl <= zerolog.DebugLevel {
		logger = logger.With().Caller().Logger()
	}
	return logger
}

// FromEnv reads CUBEPKG_LOG_LEVEL and CUBEPKG_LOG_FORMAT, falling back to
// the given level.
func FromEnv(fallback string) zerolog.Logger {
	level := os.Getenv("CUBEPKG_LOG_LEVEL")
	if level == "" {
		level = fallback
	}
	return New(level, os.Getenv("CUBEPKG_LOG_FORMAT"), os.Stderr)
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	if level == "" {
		return zerolog.InfoLevel
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}

func useConsole(format string, w io.Writer) bool {
	switch format {
	case "json":
		return false
	case "console", "pretty":
		return true
	}

	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}
