// Package llm sends role-tagged message lists to a chat completion service.
package llm

import (
	"context"
	"errors"
	"fmt"
)

// Role constants for Message.Role.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrGeneration marks every failed or empty completion.
var ErrGeneration = errors.New("generation failed")

// ErrEmptyCompletion is returned when the model answers with no content.
var ErrEmptyCompletion = fmt.Errorf("%w: model returned no content", ErrGeneration)

// Message is a single role-tagged entry in a prompt.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Profile holds the sampling parameters of one logical role.
type Profile struct {
	Name        string
	Temperature float64
	MaxTokens   int
}

// Default profiles. Descriptions favour consistency, code favours exploration.
var (
	DescribeProfile = Profile{Name: "describe", Temperature: 0.7, MaxTokens: 1000}
	CodeProfile     = Profile{Name: "code", Temperature: 1.0, MaxTokens: 4096}
)

// Request is the input to Client.Complete.
type Request struct {
	Profile     string // label used for logs and metrics
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// NewRequest builds a request for the given messages using the profile's parameters.
func (p Profile) NewRequest(messages []Message) Request {
	return Request{
		Profile:     p.Name,
		Messages:    messages,
		Temperature: p.Temperature,
		MaxTokens:   p.MaxTokens,
	}
}

// Client is the language model abstraction. Implementations are stateless.
type Client interface {
	// Complete returns the completion text. An empty completion is an error
	// wrapping ErrGeneration.
	Complete(ctx context.Context, req Request) (string, error)
}

// Recorder receives per-request measurements. *metrics.Metrics implements it.
type Recorder interface {
	RecordLLMRequest(profile, status string, seconds float64)
}
