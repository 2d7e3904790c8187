// Package coord is the typed HTTP client for the coordination service — the
// external system of record for workflow steps, agent configuration, and
// workflow progression.
//
// Every operation is a bounded-timeout request authenticated with a bearer
// admin key. Advisory channels (thinking lines, heartbeats) swallow their
// own errors: they must never affect step control flow.
package coord

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	foreman "github.com/nevindra/foreman"
)

// ErrNotFound is returned by AgentByRole when no agent is registered for the
// requested role.
var ErrNotFound = errors.New("coord: not found")

const (
	defaultTimeout   = 15 * time.Second
	submitTimeout    = 30 * time.Second
	advisoryTimeout  = 10 * time.Second
	maxFailureChars  = 2000
	maxThinkingChars = 200
)

// Client calls the coordination service. It holds no mutable state beyond
// configuration, so one Client is safe for concurrent use by every worker.
type Client struct {
	baseURL  string
	adminKey string
	http     *http.Client
	logger   *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets a structured logger. If not set, no logs are emitted.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithHTTPClient substitutes the underlying HTTP client (tests).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// New creates a Client for the coordination service at baseURL.
func New(baseURL, adminKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:  baseURL,
		adminKey: adminKey,
		http:     &http.Client{},
		logger:   slog.New(discardHandler{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PendingSteps polls for steps in the "pending" state. This is the sole
// discovery mechanism for new work, and it degrades to an empty slice on any
// failure — a bad poll means "no work this cycle", never a daemon error.
func (c *Client) PendingSteps(ctx context.Context) []foreman.Step {
	var resp pendingResponse
	if err := c.get(ctx, "/api/workflow/pending-steps", nil, defaultTimeout, &resp); err != nil {
		c.logger.Error("failed to fetch pending steps", "error", err)
		return nil
	}
	return resp.Items
}

// AgentByRole fetches the agent configuration registered for a role.
// Returns ErrNotFound when none exists.
func (c *Client) AgentByRole(ctx context.Context, role string) (foreman.AgentConfig, error) {
	var resp agentResponse
	params := url.Values{"role": {role}}
	if err := c.get(ctx, "/api/agents/by-role", params, defaultTimeout, &resp); err != nil {
		return foreman.AgentConfig{}, err
	}
	if !resp.OK || resp.Profile == nil {
		return foreman.AgentConfig{}, fmt.Errorf("%w: no agent for role %q", ErrNotFound, role)
	}
	return *resp.Profile, nil
}

// StepContext fetches workflow-level metadata for a step. Best-effort: the
// caller substitutes a default context on error.
func (c *Client) StepContext(ctx context.Context, stepID string) (foreman.StepContext, error) {
	var resp contextResponse
	params := url.Values{"id": {stepID}}
	if err := c.get(ctx, "/api/workflow/step-input", params, defaultTimeout, &resp); err != nil {
		return foreman.StepContext{}, err
	}
	if !resp.OK {
		return foreman.StepContext{}, fmt.Errorf("step context for %s not ok", stepID)
	}
	return foreman.StepContext{
		ContentType:   resp.ContentType,
		SelectedAngle: resp.SelectedAngle,
		Briefing:      resp.Briefing,
	}, nil
}

// UpdateStatus requests a status transition (e.g. pending -> agent_working).
// Callers treat a failure here as non-fatal: the service's own pending-fetch
// de-duplication is the claim safety net, not this call succeeding.
func (c *Client) UpdateStatus(ctx context.Context, stepID, status string) error {
	return c.post(ctx, "/api/workflow/step-status", statusRequest{ID: stepID, Status: status}, defaultTimeout)
}

// SubmitOutput reports terminal success. On the remote side this also
// advances the owning workflow; the engine has no further responsibility for
// the step once this returns nil.
func (c *Client) SubmitOutput(ctx context.Context, stepID, output string) error {
	return c.post(ctx, "/api/workflow/step-output", outputRequest{ID: stepID, Output: output}, submitTimeout)
}

// FailStep reports terminal failure with the message capped at 2000 chars.
// Failures of the report itself are logged, not retried.
func (c *Client) FailStep(ctx context.Context, stepID, message string) {
	req := failRequest{ID: stepID, ErrorMessage: foreman.Truncate(message, maxFailureChars)}
	if err := c.post(ctx, "/api/workflow/step-fail", req, defaultTimeout); err != nil {
		c.logger.Error("failed to report step failure", "step", foreman.ShortID(stepID), "error", err)
	}
}

// SendThinking posts two UI-facing progress lines, capped at 200 chars each.
// Advisory only: errors are swallowed.
func (c *Client) SendThinking(ctx context.Context, stepID, line1, line2 string) {
	req := thinkingRequest{
		ID:    stepID,
		Line1: foreman.Truncate(line1, maxThinkingChars),
		Line2: foreman.Truncate(line2, maxThinkingChars),
	}
	_ = c.post(ctx, "/api/workflow/step-thinking", req, advisoryTimeout)
}

// Heartbeat posts daemon liveness. Advisory only: errors are swallowed.
func (c *Client) Heartbeat(ctx context.Context, status, details string) {
	req := heartbeatRequest{Status: status, Details: "[workflow] " + details}
	_ = c.post(ctx, "/api/sync/daemon-status", req, advisoryTimeout)
}

func (c *Client) get(ctx context.Context, path string, params url.Values, timeout time.Duration, out any) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body any, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, nil)
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", "Bearer "+c.adminKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &foreman.ErrHTTP{Status: resp.StatusCode, Body: string(b)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }
