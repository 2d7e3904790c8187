// Package sqlite implements foreman.Journal using pure-Go SQLite. Zero CGO
// required. The journal is append-only diagnostics; nothing reads it back to
// resume work.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	foreman "github.com/nevindra/foreman"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// Option configures a Journal.
type Option func(*Journal)

// WithLogger sets a structured logger. If not set, no logs are emitted.
func WithLogger(l *slog.Logger) Option {
	return func(j *Journal) { j.logger = l }
}

// Journal implements foreman.Journal backed by a local SQLite file.
type Journal struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ foreman.Journal = (*Journal)(nil)

// nopLogger is a logger that discards all output.
var nopLogger = slog.New(discardHandler{})

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

// New creates a Journal using a local SQLite file at dbPath. It opens a
// single shared connection (SetMaxOpenConns(1)) so that concurrent workers
// serialize through one connection, eliminating SQLITE_BUSY errors.
func New(dbPath string, opts ...Option) *Journal {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		// sql.Open only fails when the driver is not registered; with the
		// blank import above that never happens.
		panic(fmt.Sprintf("sqlite: open driver: %v", err))
	}
	db.SetMaxOpenConns(1)
	j := &Journal{db: db, logger: nopLogger}
	for _, o := range opts {
		o(j)
	}
	j.logger.Debug("sqlite: journal opened", "path", dbPath)
	return j
}

// Init creates the attempts table.
func (j *Journal) Init(ctx context.Context) error {
	start := time.Now()
	_, err := j.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS attempts (
		id TEXT PRIMARY KEY,
		step_id TEXT NOT NULL,
		workflow_id TEXT NOT NULL,
		role TEXT NOT NULL,
		provider TEXT,
		model TEXT,
		status TEXT NOT NULL,
		error TEXT,
		output_chars INTEGER NOT NULL,
		elapsed_ms INTEGER NOT NULL,
		at INTEGER NOT NULL
	)`)
	if err != nil {
		j.logger.Error("sqlite: journal init failed", "error", err, "duration", time.Since(start))
		return fmt.Errorf("sqlite: journal init: %w", err)
	}
	j.logger.Info("sqlite: journal init completed", "duration", time.Since(start))
	return nil
}

// Record appends one execution attempt.
func (j *Journal) Record(ctx context.Context, e foreman.JournalEntry) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO attempts (id, step_id, workflow_id, role, provider, model, status, error, output_chars, elapsed_ms, at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.AttemptID, e.StepID, e.WorkflowID, e.Role, e.Provider, e.Model,
		e.Status, e.Error, e.OutputChars, e.ElapsedMS, e.At)
	if err != nil {
		return fmt.Errorf("sqlite: record attempt: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}
