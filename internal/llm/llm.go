// Package llm wraps the hosted text-completion service behind a narrow
// contract: one prompt in, one completion out.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

const (
	// DefaultEndpoint is the OpenAI-compatible chat completions endpoint.
	DefaultEndpoint = "https://api.openai.com/v1/chat/completions"
	// DefaultModel is used when no model is configured.
	DefaultModel = "gpt-4.1-mini"

	defaultMaxTokens = 600
)

// ErrUnavailable signals that the service cannot be reached at all, usually
// because no API key is configured. Callers degrade to canned replies.
var ErrUnavailable = errors.New("completion service unavailable")

// UpstreamError reports a reachable-but-failing remote API call.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return errors.Errorf("upstream completion request failed with status %d: %s", e.StatusCode, e.Body).Error()
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type Completion struct {
	Text  string
	Model string
	Usage Usage
}

// Completer is the contract the chat orchestrator depends on.
type Completer interface {
	Complete(ctx context.Context, prompt string, maxTokens int) (Completion, error)
}

// Client calls an OpenAI-compatible chat completions API.
type Client struct {
	apiKey     string
	model      string
	endpoint   string
	httpClient *http.Client
}

var _ Completer = (*Client)(nil)

func NewClient(apiKey, model, endpoint string) *Client {
	if model == "" {
		model = DefaultModel
	}
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{
		apiKey:   apiKey,
		model:    model,
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

type chatRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens,omitempty"`
	Messages  []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Usage   Usage  `json:"usage"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Complete sends the prompt as a single user message and returns the first
// choice's text. A missing API key yields ErrUnavailable; a non-200 upstream
// status yields *UpstreamError.
func (c *Client) Complete(ctx context.Context, prompt string, maxTokens int) (Completion, error) {
	var completion Completion

	if c.apiKey == "" {
		return completion, ErrUnavailable
	}
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	reqBody, err := json.Marshal(chatRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
		Messages:  []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return completion, errors.Wrap(err, "failed to marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return completion, errors.Wrap(err, "failed to create HTTP request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return completion, errors.Wrap(err, "HTTP request failed")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return completion, errors.Wrap(err, "failed to read response body")
	}

	if resp.StatusCode != http.StatusOK {
		return completion, &UpstreamError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return completion, errors.Wrapf(err, "failed to parse completion response: %s", string(respBody))
	}
	if len(parsed.Choices) == 0 {
		return completion, errors.New("no choices in completion response")
	}

	completion.Text = parsed.Choices[0].Message.Content
	completion.Model = parsed.Model
	completion.Usage = parsed.Usage
	return completion, nil
}
