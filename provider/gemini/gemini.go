// Package gemini implements foreman.Invoker for the Google Generative
// Language API (Gemini generateContent).
package gemini

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

var baseURL = "https://generativelanguage.googleapis.com/v1beta"

const (
	maxOutputTokens = 8192
	temperature     = 0.7
)

// Client is a generateContent adapter bound to one model and API key.
type Client struct {
	apiKey string
	model  string
	http   *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient substitutes the underlying HTTP client (tests).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// New creates a Gemini adapter.
func New(apiKey, model string, opts ...Option) *Client {
	c := &Client{apiKey: apiKey, model: model, http: &http.Client{}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns "google".
func (c *Client) Name() string { return "google" }

type request struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type candidate struct {
	Content struct {
		Parts []part `json:"parts"`
	} `json:"content"`
}

// Invoke sends one generateContent request. The generateContent surface has
// no system role, so system instructions are folded into the user turn.
func (c *Client) Invoke(ctx context.Context, req foreman.InvokeRequest) (string, error) {
	text := req.User
	if req.System != "" {
		text = fmt.Sprintf("[System Instructions]\n%s\n\n[Task]\n%s", req.System, req.User)
	}
	body := request{
		Contents: []content{{Role: "user", Parts: []part{{Text: text}}}},
		GenerationConfig: generationConfig{
			Temperature:     temperature,
			MaxOutputTokens: maxOutputTokens,
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("google: marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", baseURL, c.model, c.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("google: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("google: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("google: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &foreman.ErrHTTP{Status: resp.StatusCode, Body: foreman.Truncate(string(raw), 500)}
	}

	return extractText(raw)
}

// extractText returns the first part text of the first candidate; anything
// else is an extraction failure naming the observed keys.
func extractText(raw []byte) (string, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return "", fmt.Errorf("google: decode response: %w", err)
	}

	var candidates []candidate
	if candRaw, ok := top["candidates"]; ok {
		_ = json.Unmarshal(candRaw, &candidates)
	}
	if len(candidates) > 0 && len(candidates[0].Content.Parts) > 0 {
		if t := strings.TrimSpace(candidates[0].Content.Parts[0].Text); t != "" {
			return t, nil
		}
	}

	keys := make([]string, 0, len(top))
	for k := range top {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return "", &foreman.ErrExtraction{Provider: "google", Keys: keys}
}

var _ foreman.Invoker = (*Client)(nil)
