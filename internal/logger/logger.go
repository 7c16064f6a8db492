// Package logger provides structured logging setup for Planwright.
package logger

import (
	"log/slog"
	"os"
	"strings"

	"github.com/planwright/planwright/internal/config"
)

// Fallback sizes when async logging is enabled without explicit limits.
const (
	defaultAsyncBuffer  = 4096
	defaultAsyncWorkers = 2
)

// New creates a *slog.Logger from the given Logging config.
// Output is JSON to stdout with a "service" attribute on every record.
// When cfg.Async is set, records pass through a buffered AsyncHandler
// sized by cfg.AsyncBuffer and cfg.AsyncWorkers; the returned Closer
// flushes it on shutdown.
func New(cfg config.Logging) (*slog.Logger, Closer) {
	level := parseLevel(cfg.Level)

	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})

	closer := Closer(nopCloser{})
	if cfg.Async {
		buffer, workers := cfg.AsyncBuffer, cfg.AsyncWorkers
		if buffer < 1 {
			buffer = defaultAsyncBuffer
		}
		if workers < 1 {
			workers = defaultAsyncWorkers
		}
		ah := NewAsyncHandler(handler, buffer, workers)
		handler = ah
		closer = ah
	}

	return slog.New(handler).With("service", cfg.Service), closer
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
