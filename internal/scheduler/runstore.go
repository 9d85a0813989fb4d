package scheduler

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// SweepKind names the two independent sweeps.
type SweepKind string

const (
	KindTransition SweepKind = "transition"
	KindAlerts     SweepKind = "alerts"
)

// SweepRun is one recorded execution of a sweep.
type SweepRun struct {
	ID         uuid.UUID  `json:"id"`
	Kind       SweepKind  `json:"kind"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Processed  int        `json:"processed"`
	Advanced   int        `json:"advanced"`
	Skipped    int        `json:"skipped"`
	Errored    int        `json:"errored"`
}

// RunStore persists sweep executions to the sweep_runs table so operators
// can see drift (growing skip/error counts) from the dashboard.
type RunStore struct {
	db *sql.DB
}

func NewRunStore(db *sql.DB) *RunStore {
	return &RunStore{db: db}
}

// Begin records the start of a sweep and returns the run id.
func (s *RunStore) Begin(ctx context.Context, kind SweepKind, startedAt time.Time) (uuid.UUID, error) {
	id := uuid.New()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sweep_runs (id, kind, started_at) VALUES ($1, $2, $3)`,
		id, kind, startedAt)
	return id, err
}

// Finish closes a sweep run with its summary counts.
func (s *RunStore) Finish(ctx context.Context, id uuid.UUID, processed, advanced, skipped, errored int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sweep_runs SET finished_at = NOW(), processed = $1, advanced = $2, skipped = $3, errored = $4
		WHERE id = $5`,
		processed, advanced, skipped, errored, id)
	return err
}

// Recent returns the latest runs of a kind, newest first.
func (s *RunStore) Recent(ctx context.Context, kind SweepKind, limit int) ([]SweepRun, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, started_at, finished_at, processed, advanced, skipped, errored
		FROM sweep_runs WHERE kind = $1 ORDER BY started_at DESC LIMIT $2`, kind, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []SweepRun
	for rows.Next() {
		var r SweepRun
		if err := rows.Scan(&r.ID, &r.Kind, &r.StartedAt, &r.FinishedAt, &r.Processed, &r.Advanced, &r.Skipped, &r.Errored); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
