// Package status is the append-only run-status log. The orchestrator
// appends one row per phase transition; the current status of the system is
// the most recently appended row, and history across runs stays queryable.
package status

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Run is one status record.
type Run struct {
	ID        string
	RunID     string
	Status    string
	Progress  int
	StartedAt time.Time
}

// Store persists run-status records in Postgres.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates the status store and ensures its schema exists.
func NewStore(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	s := &Store{pool: pool}
	if err := s.ensureTable(ctx); err != nil {
		return nil, fmt.Errorf("status schema: %w", err)
	}
	return s, nil
}

func (s *Store) ensureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS etl_runs (
  id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
  run_id uuid NOT NULL,
  status text NOT NULL,
  progress int NOT NULL DEFAULT 0,
  started_at timestamptz NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS etl_runs_started_at_idx ON etl_runs (started_at DESC);
`
	_, err := s.pool.Exec(ctx, ddl)
	return err
}

// Append records a new status row. Rows are never mutated; each phase
// transition of a run appends another row sharing the same run_id.
func (s *Store) Append(ctx context.Context, runID string, st string, progress int) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO etl_runs (run_id, status, progress) VALUES ($1, $2, $3)`,
		runID, st, progress,
	)
	if err != nil {
		return fmt.Errorf("append run status: %w", err)
	}
	return nil
}

// Latest returns the most recently appended status row, or nil when no run
// has ever been recorded.
func (s *Store) Latest(ctx context.Context) (*Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, run_id, status, progress, started_at
		 FROM etl_runs
		 ORDER BY started_at DESC, id DESC
		 LIMIT 1`,
	)

	var r Run
	err := row.Scan(&r.ID, &r.RunID, &r.Status, &r.Progress, &r.StartedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query latest run status: %w", err)
	}
	return &r, nil
}

// History returns the most recent status rows, newest first.
func (s *Store) History(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, run_id, status, progress, started_at
		 FROM etl_runs
		 ORDER BY started_at DESC, id DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query run history: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.RunID, &r.Status, &r.Progress, &r.StartedAt); err != nil {
			return nil, fmt.Errorf("scan run status: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return out, nil
}
