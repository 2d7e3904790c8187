package foreman

import "context"

// JournalEntry is one recorded execution attempt. The journal is purely
// diagnostic: it is written after every terminal report and never read back
// to resume work, so the coordination service stays the only system of
// record for step state.
type JournalEntry struct {
	AttemptID   string
	StepID      string
	WorkflowID  string
	Role        string
	Provider    string
	Model       string
	Status      string // "success" or "failed"
	Error       string
	OutputChars int
	ElapsedMS   int64
	At          int64 // Unix seconds
}

// Journal persists execution attempts. Implementations live in
// journal/sqlite and journal/postgres. Record failures are logged and
// swallowed by the executor; the journal must never affect control flow.
type Journal interface {
	Init(ctx context.Context) error
	Record(ctx context.Context, e JournalEntry) error
	Close() error
}
