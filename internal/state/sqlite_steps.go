package state

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// StartStep records the start of step within a run.
func (s *SQLiteStore) StartStep(ctx context.Context, runID, step string) (*StepRun, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	sr := &StepRun{
		ID:        generateID(),
		RunID:     runID,
		Step:      step,
		Status:    StatusRunning,
		StartedAt: time.Now().UTC(),
	}

	s.logger.Debug("starting step", slog.String("run", runID), slog.String("step", step))

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO run_steps (id, run_id, step, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		sr.ID, sr.RunID, sr.Step, string(sr.Status), sr.StartedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start step %s: %w", step, err)
	}
	return sr, nil
}

// CompleteStep marks a step as finished.
func (s *SQLiteStore) CompleteStep(ctx context.Context, id string, status Status, rows int64, errMsg string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE run_steps SET status = ?, rows_affected = ?, completed_at = ?, error = ? WHERE id = ?`,
		string(status), rows, time.Now().UTC(), nullString(errMsg), id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete step: %w", err)
	}
	return requireOne(res, "step", id)
}

// ListSteps returns the steps of a run in execution order.
func (s *SQLiteStore) ListSteps(ctx context.Context, runID string) ([]*StepRun, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, step, status, rows_affected, started_at, completed_at, error
		 FROM run_steps WHERE run_id = ? ORDER BY started_at, rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list steps: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var steps []*StepRun
	for rows.Next() {
		sr := &StepRun{}
		var status string
		var completedAt sql.NullTime
		var errMsg sql.NullString
		if err := rows.Scan(&sr.ID, &sr.RunID, &sr.Step, &status, &sr.RowsAffected,
			&sr.StartedAt, &completedAt, &errMsg); err != nil {
			return nil, fmt.Errorf("failed to scan step: %w", err)
		}
		sr.Status = Status(status)
		if completedAt.Valid {
			t := completedAt.Time
			sr.CompletedAt = &t
		}
		sr.Error = errMsg.String
		steps = append(steps, sr)
	}
	return steps, rows.Err()
}
