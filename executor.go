package foreman

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Coordinator is the coordination-service surface the engine depends on.
// coord.Client implements it; tests substitute fakes.
type Coordinator interface {
	// PendingSteps returns steps awaiting execution; empty on any failure.
	PendingSteps(ctx context.Context) []Step
	// AgentByRole resolves the agent configuration for a role.
	AgentByRole(ctx context.Context, role string) (AgentConfig, error)
	// StepContext fetches workflow metadata; best-effort.
	StepContext(ctx context.Context, stepID string) (StepContext, error)
	// UpdateStatus requests a status transition; failure is non-fatal.
	UpdateStatus(ctx context.Context, stepID, status string) error
	// SubmitOutput reports terminal success.
	SubmitOutput(ctx context.Context, stepID, output string) error
	// FailStep reports terminal failure; its own errors are swallowed.
	FailStep(ctx context.Context, stepID, message string)
	// SendThinking posts advisory UI progress lines; errors are swallowed.
	SendThinking(ctx context.Context, stepID, line1, line2 string)
	// Heartbeat posts daemon liveness; errors are swallowed.
	Heartbeat(ctx context.Context, status, details string)
}

const (
	// DefaultLLMTimeout bounds one provider call.
	DefaultLLMTimeout = 120 * time.Second
	// DefaultMaxOutputChars caps output size before submission.
	DefaultMaxOutputChars = 50000

	statusWorking = "agent_working"
)

// Executor drives one step through its lifecycle: claim, resolve config,
// resolve key, fetch context, build prompt, invoke provider, normalize,
// submit. Every failure at any stage is classified and reported via
// FailStep; nothing escapes into the dispatch loop, including panics.
type Executor struct {
	coord    Coordinator
	keys     *KeySnapshot
	invoke   InvokeFunc
	searcher Searcher
	journal  Journal
	logger   *slog.Logger

	llmTimeout     time.Duration
	maxOutputChars int
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithLogger sets a structured logger. If not set, no logs are emitted.
func WithLogger(l *slog.Logger) ExecutorOption {
	return func(e *Executor) { e.logger = l }
}

// WithSearcher supplies web search for research-oriented roles.
func WithSearcher(s Searcher) ExecutorOption {
	return func(e *Executor) { e.searcher = s }
}

// WithJournal records execution attempts for diagnostics.
func WithJournal(j Journal) ExecutorOption {
	return func(e *Executor) { e.journal = j }
}

// WithLLMTimeout bounds each provider call (default 120s).
func WithLLMTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) { e.llmTimeout = d }
}

// WithMaxOutputChars caps output size before submission (default 50000).
// Oversized output is truncated, never failed.
func WithMaxOutputChars(n int) ExecutorOption {
	return func(e *Executor) { e.maxOutputChars = n }
}

// NewExecutor creates an Executor. invoke is usually resolve.Invoke.
func NewExecutor(coord Coordinator, keys *KeySnapshot, invoke InvokeFunc, opts ...ExecutorOption) *Executor {
	e := &Executor{
		coord:          coord,
		keys:           keys,
		invoke:         invoke,
		logger:         nopLogger,
		llmTimeout:     DefaultLLMTimeout,
		maxOutputChars: DefaultMaxOutputChars,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs one step end-to-end and returns nil when a success report was
// submitted, or the classified error after a failure report was sent. By the
// time Execute returns, exactly one terminal report has gone out.
func (e *Executor) Execute(ctx context.Context, step Step) (err error) {
	logger := e.logger.With("step", ShortID(step.ID))
	logger.Info("starting step",
		"name", step.Name, "role", step.AgentRole, "number", step.StepNumber)

	// The executor boundary: anything thrown below, including a panic in a
	// provider adapter, becomes a terminal failure report.
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
			e.reportFailure(ctx, logger, step, AgentConfig{}, err)
		}
	}()

	agent, runErr := e.run(ctx, logger, step)
	if runErr != nil {
		e.reportFailure(ctx, logger, step, agent, runErr)
		return runErr
	}
	return nil
}

// run performs the happy-path stages, returning the first error for the
// boundary in Execute to classify and report, together with whatever agent
// config had been resolved by then (for the journal).
func (e *Executor) run(ctx context.Context, logger *slog.Logger, step Step) (AgentConfig, error) {
	// Claim. A failed transition is logged, not fatal: the service's
	// pending-fetch de-duplication is the safety net.
	e.coord.SendThinking(ctx, step.ID, "Starting "+step.Name+"...", "Claiming step...")
	if err := e.coord.UpdateStatus(ctx, step.ID, statusWorking); err != nil {
		logger.Warn("status transition failed", "status", statusWorking, "error", err)
	} else {
		logger.Info("status transition", "status", statusWorking)
	}

	// Resolve agent config by role.
	e.coord.SendThinking(ctx, step.ID, "Loading agent config for '"+step.AgentRole+"'...", "")
	agent, err := e.coord.AgentByRole(ctx, step.AgentRole)
	if err != nil {
		return agent, &ErrConfig{Message: fmt.Sprintf(
			"No agent configured for role %q. Create an agent in the coordination service with role=%q. Error: %v",
			step.AgentRole, step.AgentRole, err)}
	}
	logger.Info("agent resolved",
		"agent", agent.Name, "provider", agent.Provider, "model", agent.ModelID)
	e.coord.SendThinking(ctx, step.ID,
		"Agent: "+agent.Name,
		fmt.Sprintf("Model: %s (%s)", agent.ModelID, agent.Provider))

	// Resolve API key.
	apiKey := e.keys.Get(agent.Provider)
	if apiKey == "" {
		return agent, &ErrConfig{Message: fmt.Sprintf(
			"No API key configured for provider %q. Set it in the coordination service settings.",
			agent.Provider)}
	}

	// Fetch workflow context; degrade to the default, never abort.
	sctx, err := e.coord.StepContext(ctx, step.ID)
	if err != nil {
		logger.Warn("context fetch failed, using default", "error", err)
		sctx = DefaultStepContext()
	}

	// Assemble prompt.
	e.coord.SendThinking(ctx, step.ID,
		"Building prompt for "+agent.Name+"...",
		"Assembling input data + web research...")
	prompt := BuildPrompt(ctx, step, sctx, e.searcher)
	logger.Info("prompt built", "chars", len(prompt))

	// Invoke provider under its own deadline.
	e.coord.SendThinking(ctx, step.ID,
		"Calling "+agent.ModelID+"...",
		fmt.Sprintf("Provider: %s | Waiting for response...", agent.Provider))
	invokeCtx, cancel := context.WithTimeout(ctx, e.llmTimeout)
	start := time.Now()
	raw, err := e.invoke(invokeCtx, agent.Provider, apiKey, agent.ModelID, agent.SystemPrompt, prompt)
	cancel()
	elapsed := time.Since(start)
	if err != nil {
		return agent, err
	}
	logger.Info("LLM returned", "chars", len(raw), "elapsed", elapsed.Round(100*time.Millisecond))
	e.coord.SendThinking(ctx, step.ID,
		fmt.Sprintf("Response received (%d chars)", len(raw)),
		"Processing output...")

	// Cap output size. Truncation is a warning, not a failure.
	raw = norm.NFC.String(raw)
	if len(raw) > e.maxOutputChars {
		logger.Warn("output truncated", "from", len(raw), "to", e.maxOutputChars)
		raw = Truncate(raw, e.maxOutputChars)
	}

	output := Normalize(raw, agent.Provider, agent.ModelID)

	// Submit. On the remote side this also advances the workflow.
	e.coord.SendThinking(ctx, step.ID, "Saving output...", "Submitting to workflow engine...")
	if err := e.coord.SubmitOutput(ctx, step.ID, output); err != nil {
		return agent, fmt.Errorf("submit output: %w", err)
	}

	logger.Info("step complete", "output_chars", len(output))
	e.coord.SendThinking(ctx, step.ID,
		step.Name+" complete!",
		fmt.Sprintf("%d chars | %.1fs", len(output), elapsed.Seconds()))
	e.record(ctx, logger, step, agent, "success", "", len(output), elapsed)
	return agent, nil
}

// reportFailure sends the terminal failure report for a failed stage.
func (e *Executor) reportFailure(ctx context.Context, logger *slog.Logger, step Step, agent AgentConfig, err error) {
	msg := ClassifyError(err)
	logger.Error("step failed", "error", msg)
	e.coord.SendThinking(ctx, step.ID, "Failed", Truncate(msg, 100))
	e.coord.FailStep(ctx, step.ID, msg)
	e.record(ctx, logger, step, agent, "failed", msg, 0, 0)
}

// record writes a journal entry; journal errors are swallowed.
func (e *Executor) record(ctx context.Context, logger *slog.Logger, step Step, agent AgentConfig, status, errMsg string, chars int, elapsed time.Duration) {
	if e.journal == nil {
		return
	}
	entry := JournalEntry{
		AttemptID:   NewID(),
		StepID:      step.ID,
		WorkflowID:  step.WorkflowID,
		Role:        step.AgentRole,
		Provider:    agent.Provider,
		Model:       agent.ModelID,
		Status:      status,
		Error:       errMsg,
		OutputChars: chars,
		ElapsedMS:   elapsed.Milliseconds(),
		At:          NowUnix(),
	}
	if err := e.journal.Record(ctx, entry); err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("journal record failed", "error", err)
	}
}
