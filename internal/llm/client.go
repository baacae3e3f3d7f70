package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// ErrInvalidKey is returned by ValidateKey when the upstream service rejects
// the supplied credential.
var ErrInvalidKey = errors.New("invalid api key")

// GenerationParams are the caller-controllable generation settings.
// Validation happens in the rag layer before any network call.
type GenerationParams struct {
	Temperature float32
	MaxTokens   int
}

// Client wraps an OpenAI-compatible chat completions API (Groq serves this
// surface). One outbound network call per invocation; no local state.
type Client struct {
	api     *openai.Client
	baseURL string
	model   string
	timeout time.Duration
}

// NewClient creates a new LLM client.
func NewClient(baseURL, apiKey, model string, timeout time.Duration) *Client {
	return &Client{
		api:     newAPIClient(baseURL, apiKey),
		baseURL: baseURL,
		model:   model,
		timeout: timeout,
	}
}

// WithAPIKey returns a copy of the client authenticated with the given key.
// Used for per-request caller-supplied credentials.
func (c *Client) WithAPIKey(apiKey string) *Client {
	return &Client{
		api:     newAPIClient(c.baseURL, apiKey),
		baseURL: c.baseURL,
		model:   c.model,
		timeout: c.timeout,
	}
}

// Model returns the configured model identifier.
func (c *Client) Model() string { return c.model }

// Generate sends a single chat completion request and returns the complete
// answer text. The call is bounded by the client's timeout; on timeout or
// transport failure the caller gets an error, never an empty success.
func (c *Client) Generate(ctx context.Context, systemPrompt, userMessage string, params GenerationParams) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.api.CreateChatCompletion(ctx, c.buildRequest(systemPrompt, userMessage, params, false))
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// GenerateStream sends a streaming chat completion request and calls callback
// for each content fragment in arrival order. Fragments already delivered are
// never retracted; a mid-stream failure is reported through the returned
// error after whatever was emitted. Cancelling ctx terminates the upstream
// stream promptly.
func (c *Client) GenerateStream(ctx context.Context, systemPrompt, userMessage string, params GenerationParams, callback func(fragment string) error) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	stream, err := c.api.CreateChatCompletionStream(ctx, c.buildRequest(systemPrompt, userMessage, params, true))
	if err != nil {
		return fmt.Errorf("chat completion stream failed: %w", err)
	}
	defer stream.Close()

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("stream receive failed: %w", err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		fragment := resp.Choices[0].Delta.Content
		if fragment == "" {
			continue
		}
		if err := callback(fragment); err != nil {
			return fmt.Errorf("callback error: %w", err)
		}
	}
}

// ValidateKey checks a caller-supplied API key against the upstream service
// with a minimal one-token completion. Returns ErrInvalidKey if the service
// rejects the credential, or a transport error if the check itself failed.
func (c *Client) ValidateKey(ctx context.Context, apiKey string) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	probe := newAPIClient(c.baseURL, apiKey)
	_, err := probe.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     c.model,
		Messages:  []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleUser, Content: "test"}},
		MaxTokens: 1,
	})
	if err == nil {
		return nil
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == http.StatusUnauthorized || apiErr.HTTPStatusCode == http.StatusForbidden {
			return ErrInvalidKey
		}
	}
	return fmt.Errorf("key validation failed: %w", err)
}

func (c *Client) buildRequest(systemPrompt, userMessage string, params GenerationParams, stream bool) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userMessage},
		},
		Temperature: params.Temperature,
		MaxTokens:   params.MaxTokens,
		Stream:      stream,
	}
}

func newAPIClient(baseURL, apiKey string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return openai.NewClientWithConfig(cfg)
}
