package cycle

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jywlabs/demogen/internal/demo"
	"github.com/jywlabs/demogen/internal/llm"
	"github.com/jywlabs/demogen/internal/logging"
	"github.com/jywlabs/demogen/internal/prompt"
	"github.com/jywlabs/demogen/internal/repair"
)

// ErrStage is returned when an action needs state the session does not have yet.
var ErrStage = errors.New("not available at this stage")

// EditReply is the assistant chat line recorded after every edit.
const EditReply = "Code updated based on your request."

// Pipeline performs the cycle actions on a Session.
type Pipeline struct {
	Prompts         *prompt.Builder
	LLM             llm.Client
	DescribeProfile llm.Profile
	CodeProfile     llm.Profile
	Materializer    repair.Materializer
	Executor        repair.Executor
	Store           demo.Store
	MaxAttempts     int
	Logger          zerolog.Logger
	Recorder        repair.Recorder
	OnTransition    func(repair.Transition)
}

// Start begins a new cycle for useCase, discarding any previous state.
func (p *Pipeline) Start(s *Session, useCase string) error {
	if strings.TrimSpace(useCase) == "" {
		return fmt.Errorf("%w: use case", prompt.ErrEmptyInput)
	}
	s.reset(useCase)
	s.Progress = ProgressStarted
	s.Stage = StageStarted

	logging.Event(p.Logger, logging.EventCycleStarted).
		Str("use_case", useCase).
		Send()
	return nil
}

// Describe asks the product owner role for the detailed description.
func (p *Pipeline) Describe(ctx context.Context, s *Session) error {
	if s.UseCase == "" {
		return fmt.Errorf("%w: no use case", ErrStage)
	}

	msgs, err := p.Prompts.Describe(s.UseCase)
	if err != nil {
		return err
	}
	text, err := p.LLM.Complete(ctx, p.DescribeProfile.NewRequest(msgs))
	if err != nil {
		return fmt.Errorf("describe: %w", err)
	}

	s.Description = text
	s.Progress = ProgressDescribed
	s.Stage = StageDescribed

	logging.Event(p.Logger, logging.EventDescriptionReady).
		Int("chars", len(text)).
		Send()
	return nil
}

// Generate asks the software engineer role for code and writes it to disk.
func (p *Pipeline) Generate(ctx context.Context, s *Session) error {
	if s.Description == "" {
		return fmt.Errorf("%w: no detailed description", ErrStage)
	}

	msgs, err := p.Prompts.Generate(s.Description)
	if err != nil {
		return err
	}
	code, err := p.LLM.Complete(ctx, p.CodeProfile.NewRequest(msgs))
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}

	art, err := p.Materializer.Materialize(code)
	if err != nil {
		return err
	}

	s.Artifact = art
	s.LastOutcome = nil
	s.Progress = ProgressGenerated
	s.Stage = StageGenerated

	logging.Event(p.Logger, logging.EventCodeGenerated).
		Str("source", "generate").
		Str("path", art.Path).
		Send()
	return nil
}

// Run executes the current code, repairing it on failure. The returned error
// is non-nil only when the loop had to stop early; an exhausted loop is
// reported through the outcome.
func (p *Pipeline) Run(ctx context.Context, s *Session) (repair.Outcome, error) {
	if !s.HasCode() {
		return repair.Outcome{State: repair.StateNoCode}, fmt.Errorf("%w: no code to run", ErrStage)
	}

	loop := repair.New(p.Materializer, p.Executor, p, repair.Config{
		MaxAttempts: p.MaxAttempts,
		Logger:      p.Logger,
		Recorder:    p.Recorder,
		OnTransition: func(t repair.Transition) {
			if t.State == repair.StateGenerated && t.Attempt > 1 {
				s.Artifact = t.Artifact
				s.Progress = ProgressDescribed
				s.Stage = StageRepairing
			}
			if p.OnTransition != nil {
				p.OnTransition(t)
			}
		},
	})

	out := loop.Run(ctx, s.Description, s.Artifact)

	s.Artifact = out.Artifact
	s.LastOutcome = &out
	switch out.State {
	case repair.StateSuccess:
		s.LastGood = out.LastGood
		s.Progress = ProgressDone
		s.Stage = StageSucceeded
	case repair.StateExhausted:
		s.Stage = StageExhausted
	default:
		s.Stage = StageFailed
	}
	return out, out.Err
}

// Cycle runs Start, Describe, Generate and Run in order.
func (p *Pipeline) Cycle(ctx context.Context, s *Session, useCase string) (repair.Outcome, error) {
	if err := p.Start(s, useCase); err != nil {
		return repair.Outcome{}, err
	}
	if err := p.Describe(ctx, s); err != nil {
		return repair.Outcome{}, err
	}
	if err := p.Generate(ctx, s); err != nil {
		return repair.Outcome{}, err
	}
	return p.Run(ctx, s)
}

// Edit applies a free-form change request to the current code.
func (p *Pipeline) Edit(ctx context.Context, s *Session, request string) error {
	if !s.HasCode() {
		return fmt.Errorf("%w: no code to edit", ErrStage)
	}

	msgs, err := p.Prompts.Edit(s.Artifact.Code, request)
	if err != nil {
		return err
	}
	code, err := p.LLM.Complete(ctx, p.CodeProfile.NewRequest(msgs))
	if err != nil {
		return fmt.Errorf("edit: %w", err)
	}

	art, err := p.Materializer.Materialize(code)
	if err != nil {
		return err
	}

	s.Artifact = art
	s.LastOutcome = nil
	s.Chat = append(s.Chat,
		ChatEntry{Role: ChatUser, Content: request},
		ChatEntry{Role: ChatAssistant, Content: EditReply},
	)
	s.Progress = ProgressNone
	s.Stage = StageEdited

	logging.Event(p.Logger, logging.EventCodeEdited).
		Str("path", art.Path).
		Send()
	return nil
}

// Repair asks the software engineer role to fix code that failed with errorText.
func (p *Pipeline) Repair(ctx context.Context, description, code, errorText string) (string, error) {
	msgs, err := p.Prompts.Repair(description, code, errorText)
	if err != nil {
		return "", err
	}
	return p.LLM.Complete(ctx, p.CodeProfile.NewRequest(msgs))
}

// Save stores the session's use case, description and current code.
func (p *Pipeline) Save(ctx context.Context, s *Session) (demo.Demo, error) {
	if s.UseCase == "" || s.Description == "" || !s.HasCode() {
		return demo.Demo{}, fmt.Errorf("%w: use case, description and code are all required to save", ErrStage)
	}

	d, err := p.Store.Save(ctx, s.UseCase, s.Description, s.Artifact.Code)
	if err != nil {
		return demo.Demo{}, err
	}

	logging.Event(p.Logger, logging.EventDemoSaved).
		Str("id", d.ID).
		Send()
	return d, nil
}

// LoadDemo replaces the session's cycle with a saved demo and writes its code
// to a new file so it can be run.
func (p *Pipeline) LoadDemo(ctx context.Context, s *Session, id string) (demo.Demo, error) {
	d, err := p.Store.Load(ctx, id)
	if err != nil {
		return demo.Demo{}, err
	}

	if err := p.Restore(s, d.UseCase, d.DetailedDescription, d.Code); err != nil {
		return demo.Demo{}, err
	}

	logging.Event(p.Logger, logging.EventDemoLoaded).
		Str("id", d.ID).
		Str("path", s.Artifact.Path).
		Send()
	return d, nil
}

// Restore replaces the session's cycle with the given values, writing code
// to a new file.
func (p *Pipeline) Restore(s *Session, useCase, description, code string) error {
	art, err := p.Materializer.Materialize(code)
	if err != nil {
		return err
	}

	s.reset(useCase)
	s.Description = description
	s.Artifact = art
	s.Progress = ProgressGenerated
	s.Stage = StageGenerated
	return nil
}

// DeleteDemo removes a saved demo and reports whether it existed.
func (p *Pipeline) DeleteDemo(ctx context.Context, id string) (bool, error) {
	removed, err := p.Store.Delete(ctx, id)
	if err != nil {
		return false, err
	}
	if removed {
		logging.Event(p.Logger, logging.EventDemoDeleted).
			Str("id", id).
			Send()
	}
	return removed, nil
}
