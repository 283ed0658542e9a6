package main

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// newLogger builds the process logger from config. Unknown levels fall back
// to info.
func newLogger(cfg Config) zerolog.Logger {
	var w io.Writer = os.Stdout
	if cfg.LogFormat != "json" {
		w = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}
	return newLoggerWithWriter(w, cfg.LogLevel)
}

func newLoggerWithWriter(w io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}
