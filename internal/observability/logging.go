package observability

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Logging is shell instrumentation only. The risk path — apply, margin
// math, trade simulation, replay — never logs; loggers exist for the
// sequencer shell, ingestion, persistence, and the read side.

var logSetup sync.Once

// NewLogger creates a structured logger for one shell component.
// RISK_LOG_LEVEL selects the level (default info); RISK_LOG_FORMAT=console
// switches from JSON to human-readable output for local runs.
func NewLogger(component string) zerolog.Logger {
	logSetup.Do(func() {
		zerolog.TimeFieldFormat = time.RFC3339Nano
	})

	level := zerolog.InfoLevel
	if s := os.Getenv("RISK_LOG_LEVEL"); s != "" {
		if parsed, err := zerolog.ParseLevel(s); err == nil && parsed != zerolog.NoLevel {
			level = parsed
		}
	}

	var out io.Writer = os.Stdout
	if os.Getenv("RISK_LOG_FORMAT") == "console" {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("component", component).
		Logger()
}
