// Package postgres implements foreman.Journal using PostgreSQL, for
// deployments where several daemon instances share one journal.
//
// The Journal accepts an externally-owned *pgxpool.Pool via constructor
// injection. The caller creates and closes the pool.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	foreman "github.com/nevindra/foreman"
)

// Journal implements foreman.Journal backed by PostgreSQL.
type Journal struct {
	pool *pgxpool.Pool
}

var _ foreman.Journal = (*Journal)(nil)

// New creates a Journal using an existing pgxpool.Pool. The caller owns the
// pool and is responsible for closing it; Close here is a no-op.
func New(pool *pgxpool.Pool) *Journal {
	return &Journal{pool: pool}
}

// Init creates the attempts table. Safe to call multiple times.
func (j *Journal) Init(ctx context.Context) error {
	_, err := j.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS attempts (
		id TEXT PRIMARY KEY,
		step_id TEXT NOT NULL,
		workflow_id TEXT NOT NULL,
		role TEXT NOT NULL,
		provider TEXT,
		model TEXT,
		status TEXT NOT NULL,
		error TEXT,
		output_chars BIGINT NOT NULL,
		elapsed_ms BIGINT NOT NULL,
		at BIGINT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("postgres: journal init: %w", err)
	}
	return nil
}

// Record appends one execution attempt.
func (j *Journal) Record(ctx context.Context, e foreman.JournalEntry) error {
	_, err := j.pool.Exec(ctx,
		`INSERT INTO attempts (id, step_id, workflow_id, role, provider, model, status, error, output_chars, elapsed_ms, at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		e.AttemptID, e.StepID, e.WorkflowID, e.Role, e.Provider, e.Model,
		e.Status, e.Error, e.OutputChars, e.ElapsedMS, e.At)
	if err != nil {
		return fmt.Errorf("postgres: record attempt: %w", err)
	}
	return nil
}

// Close is a no-op; the pool is owned by the caller.
func (j *Journal) Close() error { return nil }
