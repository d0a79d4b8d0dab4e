// Package logging provides structured logging infrastructure for mousetrap.
package logging

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Global logger instance. Components log nowhere until Init or Setup runs.
var (
	globalMu     sync.RWMutex
	globalLogger = zerolog.Nop()
)

// Global returns the global logger instance.
func Global() zerolog.Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}

// SetGlobal sets the global logger instance.
func SetGlobal(logger zerolog.Logger) {
	globalMu.Lock()
	globalLogger = logger
	globalMu.Unlock()
}

// Init points the global logger at a human-readable console writer.
func Init(verbose bool, w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	SetGlobal(NewConsole(w, levelFor(verbose)))
}

// NewConsole creates a console logger at the given level.
func NewConsole(w io.Writer, level zerolog.Level) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: "15:04:05",
	}
	return zerolog.New(output).Level(level).With().Timestamp().Logger()
}

// WithComponent creates a logger with a component field.
func WithComponent(component string) zerolog.Logger {
	return Global().With().Str("component", component).Logger()
}

func levelFor(verbose bool) zerolog.Level {
	if verbose {
		return zerolog.DebugLevel
	}
	return zerolog.InfoLevel
}

func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
