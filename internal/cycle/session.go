// Package cycle holds the state of one demo generation cycle and the
// pipeline that moves it from a use case to running code.
package cycle

import (
	"github.com/jywlabs/demogen/internal/repair"
	"github.com/jywlabs/demogen/internal/script"
)

// Stage is the position of a Session in the cycle.
type Stage string

const (
	StageIdle      Stage = "idle"
	StageStarted   Stage = "started"
	StageDescribed Stage = "described"
	StageGenerated Stage = "generated"
	StageRepairing Stage = "repairing"
	StageSucceeded Stage = "succeeded"
	StageFailed    Stage = "failed"
	StageExhausted Stage = "exhausted"
	StageEdited    Stage = "edited"
)

// Progress values shown to the user.
const (
	ProgressNone      = 0
	ProgressStarted   = 25
	ProgressDescribed = 50
	ProgressGenerated = 75
	ProgressDone      = 100
)

// Chat roles for ChatEntry.Role.
const (
	ChatUser      = "user"
	ChatAssistant = "assistant"
)

// ChatEntry is one line of the edit conversation.
type ChatEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Session is the working state of one user's cycle. It is owned by the
// caller and never persisted; only saved demos outlive it.
type Session struct {
	UseCase     string
	Description string
	Artifact    script.Artifact // current code, replaced by every repair or edit
	LastGood    script.Artifact // last artifact that ran cleanly
	Progress    int
	Stage       Stage
	Chat        []ChatEntry
	LastOutcome *repair.Outcome
}

// NewSession returns an idle session.
func NewSession() *Session {
	return &Session{Stage: StageIdle}
}

// HasCode reports whether there is current code to run or edit.
func (s *Session) HasCode() bool {
	return s.Artifact.Path != ""
}

// reset clears everything derived from a previous use case.
func (s *Session) reset(useCase string) {
	s.UseCase = useCase
	s.Description = ""
	s.Artifact = script.Artifact{}
	s.LastGood = script.Artifact{}
	s.LastOutcome = nil
	s.Progress = ProgressNone
	s.Stage = StageIdle
}
