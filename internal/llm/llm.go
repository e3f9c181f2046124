// Package llm is a thin client for the local Ollama HTTP API. It
// covers only what the application uses: streaming chat completion,
// blocking chat completion, and text embedding.
//
// One shared token bucket paces all model calls so a burst of chat
// requests cannot starve the embedder (they share the same GPU on a
// single-node deployment).
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/agileresearchservices/chat-in-a-box-sub001/internal/log"
)

// Role values for chat messages, matching the Ollama wire format.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a chat completion request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options are the sampling parameters forwarded to the model.
type Options struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
}

// Config carries everything needed to build a Client.
type Config struct {
	// Host is the Ollama base URL, e.g. "http://localhost:11434".
	Host string
	// ChatModel is the model name for chat completions.
	ChatModel string
	// EmbedModel is the model name for embeddings.
	EmbedModel string
	// Options are the default sampling parameters for chat calls.
	Options Options
	// RatePerSecond caps model calls per second; 0 disables pacing.
	RatePerSecond float64
	// Burst is the token bucket size when pacing is enabled.
	Burst int
	// HTTPClient overrides the default client when non-nil.
	HTTPClient *http.Client
	// Logger may be nil, in which case logs are discarded.
	Logger log.Logger
}

// Client talks to one Ollama instance.
type Client struct {
	host       string
	chatModel  string
	embedModel string
	opts       Options
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     log.Logger
}

// New creates a Client. Host and ChatModel must be non-empty.
func New(cfg Config) (*Client, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("llm: host is required")
	}
	if cfg.ChatModel == "" {
		return nil, fmt.Errorf("llm: chat model is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		// No overall timeout: streaming responses stay open for the
		// duration of the generation. Callers bound calls via ctx.
		httpClient = &http.Client{}
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RatePerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	return &Client{
		host:       cfg.Host,
		chatModel:  cfg.ChatModel,
		embedModel: cfg.EmbedModel,
		opts:       cfg.Options,
		httpClient: httpClient,
		limiter:    limiter,
		logger:     logger,
	}, nil
}

// UpstreamError reports a non-2xx response from the model server.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("llm: upstream returned status %d: %s", e.StatusCode, e.Body)
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
	Options  Options   `json:"options"`
}

// ChatStream starts a streaming chat completion and returns the raw
// response body: newline-delimited JSON objects, one per generated
// chunk, ending with a line whose done field is true. The caller owns
// the returned body and must close it.
func (c *Client) ChatStream(ctx context.Context, messages []Message) (io.ReadCloser, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("llm: rate limit wait: %w", err)
	}

	req := chatRequest{
		Model:    c.chatModel,
		Messages: messages,
		Stream:   true,
		Options:  c.opts,
	}

	start := time.Now()
	resp, err := c.post(ctx, "/api/chat", req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(body))}
	}

	c.logger.Debug("chat stream opened",
		"model", c.chatModel,
		"messages", len(messages),
		"latency", time.Since(start))
	return resp.Body, nil
}

type chatResponse struct {
	Message Message `json:"message"`
}

// Chat runs a blocking chat completion and returns the full reply.
func (c *Client) Chat(ctx context.Context, messages []Message) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("llm: rate limit wait: %w", err)
	}

	req := chatRequest{
		Model:    c.chatModel,
		Messages: messages,
		Stream:   false,
		Options:  c.opts,
	}

	var out chatResponse
	if err := c.postJSON(ctx, "/api/chat", req, &out); err != nil {
		return "", err
	}
	return out.Message.Content, nil
}

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed returns the embedding vector for text using the configured
// embedding model.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if c.embedModel == "" {
		return nil, fmt.Errorf("llm: embed model is not configured")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("llm: rate limit wait: %w", err)
	}

	var out embedResponse
	if err := c.postJSON(ctx, "/api/embeddings", embedRequest{Model: c.embedModel, Prompt: text}, &out); err != nil {
		return nil, err
	}
	if len(out.Embedding) == 0 {
		return nil, fmt.Errorf("llm: upstream returned no embedding")
	}
	return out.Embedding, nil
}

// post sends a JSON request and returns the raw response.
func (c *Client) post(ctx context.Context, path string, body any) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("llm: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("llm: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("llm: request %s: %w", path, err)
	}
	return resp, nil
}

// postJSON sends a JSON request and decodes a JSON response into out.
func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	resp, err := c.post(ctx, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("llm: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &UpstreamError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(respBody))}
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("llm: unmarshal response: %w", err)
	}
	return nil
}
