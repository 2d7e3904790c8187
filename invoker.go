package foreman

import "context"

// InvokeRequest is the uniform input every provider adapter accepts: a
// system instruction (may be empty) and the user prompt. Model and API key
// are adapter construction parameters, not per-request inputs, because an
// adapter is built fresh for each step from its resolved AgentConfig.
type InvokeRequest struct {
	System string
	User   string
}

// Invoker abstracts one normalized LLM call. Implementations live in
// provider/anthropic, provider/openaicompat, and provider/gemini;
// provider/resolve maps a provider id to the right one.
//
// Invoke returns the trimmed response text. An empty-after-trim result is an
// error, never a successful empty string.
type Invoker interface {
	Invoke(ctx context.Context, req InvokeRequest) (string, error)
	// Name returns the provider id (e.g. "anthropic", "openai", "google").
	Name() string
}

// InvokeFunc routes a single call through the provider identified by
// providerID. provider/resolve.Invoke satisfies this; the Executor depends
// on the function type so tests can substitute a fake without HTTP.
type InvokeFunc func(ctx context.Context, providerID, apiKey, model, system, user string) (string, error)
