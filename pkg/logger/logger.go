// Package logger bootstraps the process-wide zerolog logger every other
// package's sub-logger (`log.With().Str("component", ...)`) derives
// from.
package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init configures the global zerolog logger: level parses zerolog's
// usual names (debug, info, warn, error), falling back to info on an
// unrecognized value; json selects structured JSON output over the
// human-readable console writer.
func Init(level string, json bool) {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		parsed = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(parsed)

	writer := os.Stderr
	if json {
		log.Logger = zerolog.New(writer).With().Timestamp().Logger()
		return
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        writer,
		TimeFormat: time.RFC3339,
	}).With().Timestamp().Logger()
}
