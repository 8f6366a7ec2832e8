package server

import (
	"github.com/jywlabs/demogen/internal/cycle"
	"github.com/jywlabs/demogen/internal/demo"
)

// CycleRequest is the body of POST /api/cycles.
type CycleRequest struct {
	UseCase string `json:"use_case"`
	Save    bool   `json:"save"`
}

// EditRequest is the body of POST /api/edits.
type EditRequest struct {
	UseCase             string `json:"use_case"`
	DetailedDescription string `json:"detailed_description"`
	Code                string `json:"code"`
	Request             string `json:"request"`
}

// AttemptView is one execution in a CycleResponse.
type AttemptView struct {
	Attempt    int    `json:"attempt"`
	Succeeded  bool   `json:"succeeded"`
	Output     string `json:"output,omitempty"`
	ErrorText  string `json:"error_text,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

// CycleResponse reports a finished cycle or edit.
type CycleResponse struct {
	UseCase             string            `json:"use_case"`
	DetailedDescription string            `json:"detailed_description"`
	Code                string            `json:"code"`
	State               string            `json:"state"`
	Attempts            int               `json:"attempts"`
	Output              string            `json:"output,omitempty"`
	ErrorText           string            `json:"error_text,omitempty"`
	Error               string            `json:"error,omitempty"`
	Progress            int               `json:"progress"`
	History             []AttemptView     `json:"history"`
	Chat                []cycle.ChatEntry `json:"chat,omitempty"`
	DemoID              string            `json:"demo_id,omitempty"`
}

// DemoListResponse is the body of GET /api/demos.
type DemoListResponse struct {
	Demos []demo.Demo `json:"demos"`
	Total int         `json:"total"`
}

// ProblemDetail is an RFC 7807 error body.
type ProblemDetail struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}
