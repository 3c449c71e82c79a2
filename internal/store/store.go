// Package store persists the run ledger: every pipeline invocation, its
// phases and the fetch units that exhausted their retries.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/adreport-cli/internal/model"
)

// ErrNotFound is returned when a run or phase does not exist.
var ErrNotFound = eris.New("store: not found")

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status  model.RunStatus `json:"status,omitempty"`
	Command string          `json:"command,omitempty"`
	Limit   int             `json:"limit,omitempty"`
	Offset  int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for the run ledger.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, command string) (*model.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error
	UpdateRunResult(ctx context.Context, runID string, status model.RunStatus, result *model.RunResult) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Phases
	CreatePhase(ctx context.Context, runID string, name string) (*model.RunPhase, error)
	CompletePhase(ctx context.Context, phaseID string, result *model.PhaseResult) error
	ListPhases(ctx context.Context, runID string) ([]model.RunPhase, error)

	// Failed fetch units
	RecordFailedUnit(ctx context.Context, unit *model.FailedUnit) error
	ListFailedUnits(ctx context.Context, runID string) ([]model.FailedUnit, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
