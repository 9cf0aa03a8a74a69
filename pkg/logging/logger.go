// Package logging configures the zerolog logger shared by the collector.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelTrace logs every page and cache lookup.
	LevelTrace LogLevel = "trace"

	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger and returns it.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.TimeOnly}
	}

	logger := zerolog.New(output).With().Timestamp().Logger()
	log.Logger = logger

	return logger
}

// parseLevel converts LogLevel to zerolog.Level.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(string(level))) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Page fetched / empty page reached
//   - Vacancy skipped (no skills)
//   - Rate limit slot contention (Redis gate)
//   - Artifact written
//
// Info: Normal operation events
//   - Category started / finished with counts and top skills
//   - Record collected (running count)
//   - Run finished
//   - Metrics listener startup/shutdown
//
// Warn: Warning conditions that don't prevent operation
//   - Vacancy unavailable (detail request failed)
//   - Search page failed (ends the current category)
//   - Cache errors (fallback to direct request)
//
// Error: Error conditions requiring attention
//   - Category failed or only partially written
//   - Configuration errors
//   - Redis unreachable at startup
//
// Context Fields:
//   - component: emitting package (hh-client, page-walker, detail-fetcher, collector, batch, file-store)
//   - run_id: batch run identifier
//   - category: artifact label
//   - term: search term
//   - page: zero-based search page
//   - vacancy_id: hh.ru vacancy id
//   - records: records collected so far
//   - status_code: HTTP status code
//   - error_class: error classification (client, server, rate_limit, network, decode)
