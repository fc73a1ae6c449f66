package logger

import (
	"os"
	"time"

	"github.com/aahamlin/jira-reporting-scripts/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// New builds the process logger. Dev gets a console writer, anything
// else structured JSON. debug raises the level from Info to Debug.
func New(cfg config.Config, debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug { level = zerolog.DebugLevel }

	var logger zerolog.Logger
	if cfg.AppEnv == "dev" {
		output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
		logger = zerolog.New(output).With().Timestamp().Logger().Level(level)
	} else {
		zerolog.TimeFieldFormat = time.RFC3339
		logger = zerolog.New(os.Stderr).With().Timestamp().Logger().Level(level)
	}
	log.Logger = logger
	return logger
}
