package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	foreman "github.com/nevindra/foreman"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Client implements foreman.Invoker for any chat-completions-compatible API.
// Works with OpenAI, xAI (Grok), Groq, and other providers exposing the same
// endpoint shape.
type Client struct {
	apiKey  string
	model   string
	baseURL string
	name    string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the adapter at an alternate compatible endpoint, e.g.
// "https://api.x.ai/v1" or "https://api.groq.com/openai/v1".
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimSuffix(u, "/") }
}

// WithName overrides the provider id reported in errors (default "openai").
func WithName(name string) Option {
	return func(c *Client) { c.name = name }
}

// WithHTTPClient substitutes the underlying HTTP client (tests).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// New creates a chat-completions adapter bound to one model and API key.
func New(apiKey, model string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultBaseURL,
		name:    "openai",
		http:    &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the provider id.
func (c *Client) Name() string { return c.name }

// Invoke sends one chat completions request and extracts the response text.
func (c *Client) Invoke(ctx context.Context, req foreman.InvokeRequest) (string, error) {
	body := BuildBody(c.model, req.System, req.User)
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("%s: marshal request: %w", c.name, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%s: create request: %w", c.name, err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%s: %w", c.name, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%s: read response: %w", c.name, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &foreman.ErrHTTP{Status: resp.StatusCode, Body: foreman.Truncate(string(raw), 500)}
	}

	return ExtractText(c.name, raw)
}

var _ foreman.Invoker = (*Client)(nil)
