// Package logging wraps github.com/rs/zerolog behind a small leveled
// surface (IsDebugEnabled, Debugf, Warnf, Errorf) for hot-path call sites,
// plus per-connection child loggers carrying a conn_id field so one
// session's lines can be grepped together.
package logging

import (
	"io"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	mu  sync.RWMutex
	log = zerolog.New(defaultWriter()).With().Timestamp().Logger()
)

func defaultWriter() io.Writer {
	if isatty() {
		return zerolog.ConsoleWriter{Out: os.Stderr}
	}
	return os.Stderr
}

func isatty() bool {
	fi, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

// SetLevel adjusts the global minimum log level (e.g. "debug", "info").
func SetLevel(level string) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return err
	}
	mu.Lock()
	defer mu.Unlock()
	log = log.Level(lvl)
	return nil
}

// IsDebugEnabled reports whether debug-level messages are currently logged.
func IsDebugEnabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return log.GetLevel() <= zerolog.DebugLevel
}

// Debugf logs a debug-level message with printf verbs, no fields.
func Debugf(format string, args ...interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	log.Debug().Msgf(format, args...)
}

// Warnf logs a warn-level message.
func Warnf(format string, args ...interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	log.Warn().Msgf(format, args...)
}

// Errorf logs an error-level message.
func Errorf(format string, args ...interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	log.Error().Msgf(format, args...)
}

// NewConnID mints a short, grep-friendly connection identifier, attached as
// the conn_id field of one connection's ConnLogger lines.
func NewConnID() string {
	return uuid.NewString()[:8]
}

// ConnLogger returns a child logger with conn_id attached for one
// connection's lifetime.
func ConnLogger(connID string) *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	l := log.With().Str("conn_id", connID).Logger()
	return &l
}
