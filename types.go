package foreman

import (
	"time"

	"github.com/google/uuid"
)

// Step is a single pending workflow step as returned by the coordination
// service. Steps are created externally; this engine only transitions their
// status and submits output.
type Step struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	AgentRole  string `json:"role"`
	StepNumber int    `json:"stepNumber"`
	WorkflowID string `json:"workflowId"`
	// Input is the opaque payload from the previous step (usually JSON text).
	Input string `json:"input"`
}

// AgentConfig is the per-role worker configuration resolved at execution
// time. It is fetched fresh for every step so that reconfiguration in the
// coordination service takes effect without a daemon restart.
type AgentConfig struct {
	Provider     string `json:"provider"`
	ModelID      string `json:"modelId"`
	SystemPrompt string `json:"systemPrompt"`
	Name         string `json:"name"`
}

// StepContext is workflow-level metadata for a step. It is advisory: when
// the fetch fails the executor substitutes DefaultStepContext.
type StepContext struct {
	ContentType   string `json:"contentType"`
	SelectedAngle string `json:"selectedAngle"`
	Briefing      string `json:"briefing"`
}

// DefaultStepContext is used when the context fetch fails.
func DefaultStepContext() StepContext {
	return StepContext{ContentType: "blog_post"}
}

// NewID generates a globally unique, time-sortable UUIDv7 (RFC 9562).
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// NowUnix returns current time as Unix seconds.
func NowUnix() int64 {
	return time.Now().Unix()
}

// ShortID returns the last 8 characters of an id for log lines.
func ShortID(id string) string {
	if len(id) > 8 {
		return id[len(id)-8:]
	}
	return id
}

// Truncate returns s capped at max runes-agnostic bytes. Callers cap
// outbound payloads (error messages, thinking lines, step output) before
// transmission.
func Truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max]
}
