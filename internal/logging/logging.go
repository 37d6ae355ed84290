package logging

import (
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// runID identifies the current invocation; set by Init
var runID string

// Init initializes the global logger and assigns a fresh run id. Events go
// to a console writer on stderr and, as JSON, to every extra writer.
func Init(verbose bool, extra ...io.Writer) {
	zerolog.TimeFieldFormat = time.RFC3339

	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}

	zerolog.SetGlobalLevel(level)

	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "15:04:05",
		NoColor:    false,
	}

	runID = uuid.NewString()
	writers := append([]io.Writer{output}, extra...)
	log.Logger = NewLogger(writers...).With().Str("run", runID).Logger()
}

// RunID returns the id assigned by Init, or a new one if Init was never called
func RunID() string {
	if runID == "" {
		runID = uuid.NewString()
	}
	return runID
}

// NewLogger creates a new logger with optional writers
func NewLogger(writers ...io.Writer) zerolog.Logger {
	if len(writers) == 0 {
		return log.Logger
	}

	if len(writers) == 1 {
		return zerolog.New(writers[0]).With().Timestamp().Logger()
	}

	multi := zerolog.MultiLevelWriter(writers...)
	return zerolog.New(multi).With().Timestamp().Logger()
}

// WithComponent creates a logger with a component field
func WithComponent(component string) zerolog.Logger {
	return log.Logger.With().Str("component", component).Logger()
}
