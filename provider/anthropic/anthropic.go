// Package anthropic implements foreman.Invoker for the Anthropic Messages
// API wire shape. MiniMax exposes an Anthropic-compatible endpoint, so the
// same adapter serves both providers, parameterized by base URL.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	foreman "github.com/nevindra/foreman"
)

const (
	defaultBaseURL = "https://api.anthropic.com/v1"
	apiVersion     = "2023-06-01"
	maxTokens      = 8192
)

// Client is a Messages-API adapter bound to one model and API key.
type Client struct {
	apiKey  string
	model   string
	baseURL string
	name    string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the adapter at an Anthropic-compatible endpoint
// (e.g. "https://api.minimax.io/anthropic/v1").
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimSuffix(u, "/") }
}

// WithName overrides the provider id reported in errors (default
// "anthropic").
func WithName(name string) Option {
	return func(c *Client) { c.name = name }
}

// WithHTTPClient substitutes the underlying HTTP client (tests).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// New creates a Messages-API adapter.
func New(apiKey, model string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultBaseURL,
		name:    "anthropic",
		http:    &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the provider id.
func (c *Client) Name() string { return c.name }

type request struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []message `json:"messages"`
	System    string    `json:"system,omitempty"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type apiError struct {
	Message string `json:"message"`
}

// Invoke sends one messages request and returns the joined text blocks.
func (c *Client) Invoke(ctx context.Context, req foreman.InvokeRequest) (string, error) {
	body := request{
		Model:     c.model,
		MaxTokens: maxTokens,
		Messages:  []message{{Role: "user", Content: req.User}},
		System:    req.System,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("%s: marshal request: %w", c.name, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%s: create request: %w", c.name, err)
	}
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", apiVersion)
	httpReq.Header.Set("content-type", "application/json")

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

	return extractText(c.name, raw)
}

// extractText joins the text content blocks of a messages response. An
// in-band error object or an empty result fails; routing never treats empty
// text as success.
func extractText(name string, raw []byte) (string, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return "", fmt.Errorf("%s: decode response: %w", name, err)
	}

	if errRaw, ok := top["error"]; ok {
		var apiErr apiError
		_ = json.Unmarshal(errRaw, &apiErr)
		if apiErr.Message == "" {
			apiErr.Message = "unknown"
		}
		return "", fmt.Errorf("%s API error: %s", name, apiErr.Message)
	}

	var blocks []contentBlock
	if contentRaw, ok := top["content"]; ok {
		_ = json.Unmarshal(contentRaw, &blocks)
	}

	var texts []string
	for _, b := range blocks {
		if b.Type == "text" && b.Text != "" {
			texts = append(texts, b.Text)
		}
	}
	text := strings.TrimSpace(strings.Join(texts, "\n"))
	if text == "" {
		return "", &foreman.ErrExtraction{Provider: name, Keys: topLevelKeys(top)}
	}
	return text, nil
}

func topLevelKeys(m map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var _ foreman.Invoker = (*Client)(nil)
