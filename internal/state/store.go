// Package state records pipeline run history in a local SQLite database.
// It tracks each run and the steps executed within it.
package state

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("not found")

// Status is the lifecycle state of a run or a step.
type Status string

// Run and step statuses.
const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Step names recorded by the pipeline.
const (
	StepGenerate = "generate"
	StepCreate   = "create"
	StepLoad     = "load"
	StepReport   = "report"
)

// Run is one recorded pipeline invocation.
type Run struct {
	ID          string     `json:"id" yaml:"id"`
	Target      string     `json:"target" yaml:"target"`
	Status      Status     `json:"status" yaml:"status"`
	StartedAt   time.Time  `json:"started_at" yaml:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty" yaml:"error,omitempty"`
}

// Duration returns the elapsed time of a completed run, or zero.
func (r *Run) Duration() time.Duration {
	if r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}

// StepRun is one step executed within a run.
type StepRun struct {
	ID           string     `json:"id"`
	RunID        string     `json:"run_id"`
	Step         string     `json:"step"`
	Status       Status     `json:"status"`
	RowsAffected int64      `json:"rows_affected"`
	StartedAt    time.Time  `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	Error        string     `json:"error,omitempty"`
}

// Store persists run history.
type Store interface {
	CreateRun(ctx context.Context, target string) (*Run, error)
	CompleteRun(ctx context.Context, id string, status Status, errMsg string) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]*Run, error)

	StartStep(ctx context.Context, runID, step string) (*StepRun, error)
	CompleteStep(ctx context.Context, id string, status Status, rows int64, errMsg string) error
	ListSteps(ctx context.Context, runID string) ([]*StepRun, error)

	Close() error
}
