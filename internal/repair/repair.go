// Package repair runs generated code and, when it fails, asks the code model
// for a corrected version and runs that, up to a fixed number of attempts.
package repair

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jywlabs/demogen/internal/logging"
	"github.com/jywlabs/demogen/internal/runner"
	"github.com/jywlabs/demogen/internal/script"
)

// DefaultMaxAttempts is the attempt limit when Config.MaxAttempts is unset.
const DefaultMaxAttempts = 3

// ErrNoCode is returned when Run is called without a materialized artifact.
var ErrNoCode = errors.New("no code to run")

// State is a repair loop state.
type State string

const (
	StateNoCode    State = "no_code"
	StateGenerated State = "generated"
	StateRunning   State = "running"
	StateSuccess   State = "success"
	StateFailed    State = "failed"
	StateExhausted State = "exhausted"
)

// Terminal reports whether no further transition can happen from s.
func (s State) Terminal() bool {
	return s == StateSuccess || s == StateFailed || s == StateExhausted
}

// Coder produces a full replacement for code that failed with errorText.
type Coder interface {
	Repair(ctx context.Context, description, code, errorText string) (string, error)
}

// Executor runs a materialized script.
type Executor interface {
	Execute(ctx context.Context, path string) runner.Result
}

// Materializer writes code to a new file.
type Materializer interface {
	Materialize(code string) (script.Artifact, error)
}

// Recorder receives one call per finished run. *metrics.Metrics implements it.
type Recorder interface {
	RecordCycle(outcome string, attempts int)
}

// Attempt is one execution of one artifact.
type Attempt struct {
	Number   int
	Artifact script.Artifact
	Result   runner.Result
}

// Transition is passed to Config.OnTransition each time the state changes.
type Transition struct {
	State    State
	Attempt  int
	Max      int
	Artifact script.Artifact
	Result   *runner.Result // set after an execution
}

// Outcome is the terminal result of Run.
type Outcome struct {
	State     State
	Attempts  int             // executions performed, never more than the limit
	Artifact  script.Artifact // artifact of the last attempt
	LastGood  script.Artifact // zero unless State is StateSuccess
	Output    string          // stdout of the successful attempt
	ErrorText string          // error text of the last failed attempt
	Err       error           // set when the loop stopped in StateFailed
	History   []Attempt
}

// Succeeded reports whether the code ran cleanly.
func (o Outcome) Succeeded() bool {
	return o.State == StateSuccess
}

// Config holds configuration for the loop.
type Config struct {
	MaxAttempts  int
	Logger       zerolog.Logger
	Recorder     Recorder
	OnTransition func(Transition) // optional, called synchronously
}

// Loop drives the generate, execute and repair state machine.
type Loop struct {
	config       Config
	materializer Materializer
	executor     Executor
	coder        Coder
}

// New creates a Loop.
func New(m Materializer, e Executor, c Coder, cfg Config) *Loop {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	return &Loop{config: cfg, materializer: m, executor: e, coder: c}
}

// MaxAttempts returns the configured attempt limit.
func (l *Loop) MaxAttempts() int {
	return l.config.MaxAttempts
}

// Run executes the artifact and repairs it until it succeeds, the attempt
// limit is reached, or a repair cannot be produced.
func (l *Loop) Run(ctx context.Context, description string, art script.Artifact) Outcome {
	if art.Path == "" {
		return l.finish(Outcome{State: StateNoCode, Err: ErrNoCode})
	}

	limit := l.config.MaxAttempts
	out := Outcome{Artifact: art}
	l.emit(Transition{State: StateGenerated, Attempt: 1, Max: limit, Artifact: art})

	for attempt := 1; ; attempt++ {
		l.emit(Transition{State: StateRunning, Attempt: attempt, Max: limit, Artifact: art})
		logging.Event(l.config.Logger, logging.EventAttemptStarted).
			Int("attempt", attempt).
			Int("max", limit).
			Str("path", art.Path).
			Send()

		res := l.executor.Execute(ctx, art.Path)
		out.Attempts = attempt
		out.Artifact = art
		out.History = append(out.History, Attempt{Number: attempt, Artifact: art, Result: res})
		l.emit(Transition{State: StateRunning, Attempt: attempt, Max: limit, Artifact: art, Result: &res})

		if res.Succeeded {
			out.State = StateSuccess
			out.LastGood = art
			out.Output = res.Output
			out.ErrorText = ""
			return l.finish(out)
		}

		out.ErrorText = res.ErrorText
		l.config.Logger.Warn().
			Str("event", logging.EventAttemptFailed).
			Int("attempt", attempt).
			Int("exit_code", res.ExitCode).
			Str("error", lastLine(res.ErrorText)).
			Msg("attempt failed")

		if err := ctx.Err(); err != nil {
			out.State = StateFailed
			out.Err = err
			return l.finish(out)
		}

		if attempt >= limit {
			out.State = StateExhausted
			return l.finish(out)
		}

		logging.Event(l.config.Logger, logging.EventRepairRequested).
			Int("attempt", attempt).
			Send()

		code, err := l.coder.Repair(ctx, description, art.Code, res.ErrorText)
		if err != nil {
			out.State = StateFailed
			out.Err = fmt.Errorf("repair after attempt %d: %w", attempt, err)
			return l.finish(out)
		}

		next, err := l.materializer.Materialize(code)
		if err != nil {
			out.State = StateFailed
			out.Err = fmt.Errorf("repair after attempt %d: %w", attempt, err)
			return l.finish(out)
		}

		art = next
		out.Artifact = art
		logging.Event(l.config.Logger, logging.EventCodeGenerated).
			Str("source", "repair").
			Str("path", art.Path).
			Send()
		l.emit(Transition{State: StateGenerated, Attempt: attempt + 1, Max: limit, Artifact: art})
	}
}

func (l *Loop) finish(out Outcome) Outcome {
	l.emit(Transition{State: out.State, Attempt: out.Attempts, Max: l.config.MaxAttempts, Artifact: out.Artifact})

	ev := logging.Event(l.config.Logger, logging.EventCycleFinished).
		Str("state", string(out.State)).
		Int("attempts", out.Attempts)
	if out.Err != nil {
		ev = ev.Err(out.Err)
	}
	ev.Send()

	if l.config.Recorder != nil {
		l.config.Recorder.RecordCycle(string(out.State), out.Attempts)
	}
	return out
}

func (l *Loop) emit(t Transition) {
	if l.config.OnTransition != nil {
		l.config.OnTransition(t)
	}
}

// lastLine returns the last non-empty line, which for a traceback is the
// exception itself.
func lastLine(s string) string {
	s = strings.TrimRight(s, "\n")
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
