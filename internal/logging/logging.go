package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures the global zerolog logger.
// level is one of debug, info, warn, error (default info).
// format "console" switches to human-readable output, anything else emits JSON.
func Setup(level, format string) {
	log.Logger = New(os.Stderr, level, format)
	zerolog.SetGlobalLevel(ParseLevel(level))
}

// New builds a logger writing to w
func New(w io.Writer, level, format string) zerolog.Logger {
	if strings.EqualFold(format, "console") {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(ParseLevel(level)).With().Timestamp().Logger()
}

// ParseLevel maps a level name to a zerolog level, defaulting to info
func ParseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// Component returns a sub-logger of the global logger tagged with component
func Component(name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}
