// Package logging builds the zerolog logger shared by all commands.
// Human-readable lines go to the console; every event is also appended as
// one JSON object per line to the event log file when one is configured.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// Event names written in the "event" field.
const (
	EventCycleStarted     = "cycle_started"
	EventDescriptionReady = "description_ready"
	EventCodeGenerated    = "code_generated"
	EventAttemptStarted   = "attempt_started"
	EventAttemptFailed    = "attempt_failed"
	EventRepairRequested  = "repair_requested"
	EventCycleFinished    = "cycle_finished"
	EventCodeEdited       = "code_edited"
	EventDemoSaved        = "demo_saved"
	EventDemoLoaded       = "demo_loaded"
	EventDemoDeleted      = "demo_deleted"
)

// Options configures New.
type Options struct {
	Level        string    // trace, debug, info, warn, error; empty means info
	Console      io.Writer // nil disables console output
	ConsoleLevel string    // minimum console level, empty means Level
	File         string    // JSONL event log path, empty disables it
}

// New returns a logger and a close function for the event log file.
func New(opts Options) (zerolog.Logger, func() error, error) {
	level := zerolog.InfoLevel
	if opts.Level != "" {
		parsed, err := zerolog.ParseLevel(opts.Level)
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = parsed
	}

	var writers []io.Writer
	if opts.Console != nil {
		consoleLevel := zerolog.NoLevel
		if opts.ConsoleLevel != "" {
			parsed, err := zerolog.ParseLevel(opts.ConsoleLevel)
			if err != nil {
				return zerolog.Nop(), nil, fmt.Errorf("invalid console log level %q: %w", opts.ConsoleLevel, err)
			}
			consoleLevel = parsed
		}
		writers = append(writers, minLevelWriter{
			w:   zerolog.ConsoleWriter{Out: opts.Console, TimeFormat: time.Kitchen},
			min: consoleLevel,
		})
	}

	closeFn := func() error { return nil }
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0755); err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(opts.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("open log file: %w", err)
		}
		writers = append(writers, f)
		closeFn = f.Close
	}

	if len(writers) == 0 {
		return zerolog.Nop(), closeFn, nil
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().
		Timestamp().
		Logger()

	return logger, closeFn, nil
}

// minLevelWriter drops entries below min. NoLevel passes everything.
type minLevelWriter struct {
	w   io.Writer
	min zerolog.Level
}

func (m minLevelWriter) Write(p []byte) (int, error) {
	return m.w.Write(p)
}

func (m minLevelWriter) WriteLevel(l zerolog.Level, p []byte) (int, error) {
	if m.min != zerolog.NoLevel && l < m.min {
		return len(p), nil
	}
	return m.w.Write(p)
}

// Event starts an info-level log entry tagged with the given event name.
func Event(logger zerolog.Logger, name string) *zerolog.Event {
	return logger.Info().Str("event", name)
}
