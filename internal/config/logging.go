package config

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ParseLevel maps a level name to a zerolog level. Empty means info.
func ParseLevel(name string) (zerolog.Level, error) {
	if name == "" {
		return zerolog.InfoLevel, nil
	}
	lvl, err := zerolog.ParseLevel(name)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log_level %q: %w", name, err)
	}
	return lvl, nil
}

// SetupLogging points the global zerolog logger at a console writer on w
// (stderr when nil). verbose forces debug level.
func SetupLogging(w io.Writer, level string, verbose bool) error {
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}
	if verbose {
		lvl = zerolog.DebugLevel
	}
	if w == nil {
		w = os.Stderr
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}).
		With().Timestamp().Logger()
	return nil
}
