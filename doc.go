// Package foreman is a long-running dispatch engine for LLM-backed workflow
// steps. It polls a coordination service for pending steps, claims each one,
// routes it to the LLM provider configured for the step's agent role,
// normalizes the response into a structured payload, and reports success or
// failure back.
//
// # Architecture
//
// The root package defines the contracts and the engine:
//
//   - [Invoker] — one normalized LLM call (system + user prompt in, text out)
//   - [KeySnapshot] — periodically refreshed provider API key mapping
//   - [Executor] — drives one step through its lifecycle; every fault becomes
//     a terminal failure report, never a crash
//   - [Daemon] — the polling loop with a bounded worker pool
//   - [Normalize] — best-effort JSON extraction from free-form LLM text
//
// Subpackages hold the adapters: coord (coordination-service HTTP client),
// provider/anthropic, provider/openaicompat, and provider/gemini (wire-format
// adapters), provider/resolve (provider-id routing), tools/search (Brave web
// search for research roles), journal (optional execution journal with
// SQLite and PostgreSQL backends), and observer (optional OTEL
// instrumentation).
//
// A minimal daemon:
//
//	cfg := config.Load(os.Getenv("FOREMAN_CONFIG"))
//	client := coord.New(cfg.Coordinator.BaseURL, cfg.Coordinator.AdminKey)
//	keys := foreman.NewKeySnapshot(cfg.Keys.Path)
//	exec := foreman.NewExecutor(client, keys, resolve.Invoke)
//	daemon := foreman.NewDaemon(client, keys, exec)
//	daemon.Run(ctx)
package foreman
