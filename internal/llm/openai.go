package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

// Supported providers.
const (
	ProviderAzure  = "azure"
	ProviderOpenAI = "openai"
)

const defaultAPIVersion = "2023-05-15"

// OpenAIClient implements Client against an OpenAI-compatible chat
// completions API, either Azure OpenAI deployments or the OpenAI API itself.
type OpenAIClient struct {
	provider   string
	endpoint   string
	apiKey     string
	deployment string
	apiVersion string
	client     *http.Client
	logger     zerolog.Logger
	recorder   Recorder
}

// Option configures the client.
type Option func(*OpenAIClient)

func WithProvider(provider string) Option {
	return func(c *OpenAIClient) { c.provider = provider }
}

func WithAPIVersion(version string) Option {
	return func(c *OpenAIClient) {
		if version != "" {
			c.apiVersion = version
		}
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *OpenAIClient) { c.client = hc }
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *OpenAIClient) { c.logger = l }
}

func WithRecorder(r Recorder) Option {
	return func(c *OpenAIClient) { c.recorder = r }
}

// NewOpenAIClient constructs a client. deployment is the Azure deployment
// name or, for the openai provider, the model name.
func NewOpenAIClient(endpoint, apiKey, deployment string, opts ...Option) *OpenAIClient {
	c := &OpenAIClient{
		provider:   ProviderAzure,
		endpoint:   strings.TrimRight(endpoint, "/"),
		apiKey:     apiKey,
		deployment: deployment,
		apiVersion: defaultAPIVersion,
		client:     &http.Client{Timeout: 120 * time.Second},
		logger:     zerolog.Nop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// ---- chat completions wire types ----

type chatRequest struct {
	Model       string    `json:"model,omitempty"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message      Message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage,omitempty"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error,omitempty"`
}

// URL returns the chat completions URL for the configured provider.
func (c *OpenAIClient) URL() string {
	if c.provider == ProviderOpenAI {
		return c.endpoint + "/chat/completions"
	}
	return fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		c.endpoint, url.PathEscape(c.deployment), url.QueryEscape(c.apiVersion))
}

func (c *OpenAIClient) buildRequest(req Request) chatRequest {
	cr := chatRequest{
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if c.provider == ProviderOpenAI {
		cr.Model = c.deployment
	}
	return cr
}

// Complete sends a blocking completion request.
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	start := time.Now()
	text, err := c.complete(ctx, req)

	status := "ok"
	if err != nil {
		status = "error"
	}
	if c.recorder != nil {
		c.recorder.RecordLLMRequest(req.Profile, status, time.Since(start).Seconds())
	}
	if err != nil {
		c.logger.Warn().Err(err).Str("profile", req.Profile).Msg("completion failed")
		return "", err
	}
	return text, nil
}

func (c *OpenAIClient) complete(ctx context.Context, req Request) (string, error) {
	body, err := json.Marshal(c.buildRequest(req))
	if err != nil {
		return "", fmt.Errorf("%w: marshal request: %v", ErrGeneration, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL(), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: create request: %v", ErrGeneration, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.provider == ProviderOpenAI {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	} else {
		httpReq.Header.Set("api-key", c.apiKey)
	}

	start := time.Now()
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: http request: %w", ErrGeneration, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", ErrGeneration, err)
	}

	var cr chatResponse
	if err := json.Unmarshal(raw, &cr); err != nil {
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("%w: API error (HTTP %d): %s", ErrGeneration, resp.StatusCode, truncate(string(raw), 300))
		}
		return "", fmt.Errorf("%w: unmarshal response: %v", ErrGeneration, err)
	}
	if cr.Error != nil {
		return "", fmt.Errorf("%w: API error (HTTP %d): %s", ErrGeneration, resp.StatusCode, cr.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: API error (HTTP %d)", ErrGeneration, resp.StatusCode)
	}
	if len(cr.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	text := cr.Choices[0].Message.Content
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyCompletion
	}

	ev := c.logger.Debug().
		Str("profile", req.Profile).
		Float64("temperature", req.Temperature).
		Int("max_tokens", req.MaxTokens).
		Str("finish_reason", cr.Choices[0].FinishReason).
		Dur("duration", time.Since(start))
	if cr.Usage != nil {
		ev = ev.Int("in_tokens", cr.Usage.PromptTokens).Int("out_tokens", cr.Usage.CompletionTokens)
	}
	ev.Msg("completion received")

	return text, nil
}

// truncate keeps at most max bytes of s without splitting a rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
