package config

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// NewLogger builds the process logger from cfg.Logging and installs it as
// the zerolog global. Every event carries the service name, build version,
// environment and store backend.
func NewLogger(cfg Config, version string) zerolog.Logger {
	logger := newLogger(cfg, version, os.Stdout)
	log.Logger = logger
	return logger
}

func newLogger(cfg Config, version string, out io.Writer) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Logging.Level)))
	if err != nil || cfg.Logging.Level == "" {
		level = zerolog.InfoLevel
	}

	if strings.EqualFold(cfg.Logging.Format, "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	service := cfg.Tracing.ServiceName
	if service == "" {
		service = "charity-events"
	}
	if version == "" {
		version = "dev"
	}

	return zerolog.New(out).Level(level).With().
		Timestamp().
		Str("service", service).
		Str("version", version).
		Str("environment", cfg.Environment).
		Str("store_backend", cfg.Store.Backend).
		Logger()
}
