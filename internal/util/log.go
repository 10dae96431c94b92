// Package util holds small process-wide helpers.
package util

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// NewLogger builds a timestamped JSON logger on stdout, falling back to info on an unknown level.
func NewLogger(level string) zerolog.Logger {
	return New(os.Stdout, level)
}

// New is NewLogger with an explicit destination.
func New(w io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(w).With().Timestamp().Logger().Level(lvl)
}

// WithApp tags every event with the application name and environment.
func WithApp(log zerolog.Logger, name, env string) zerolog.Logger {
	ctx := log.With().Str("app", name)
	if env != "" {
		ctx = ctx.Str("env", env)
	}
	return ctx.Logger()
}
