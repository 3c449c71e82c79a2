package model

import "time"

// RunStatus is the state of a ledger run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusPartial  RunStatus = "partial"
	RunStatusNoop     RunStatus = "noop"
	RunStatusFailed   RunStatus = "failed"
)

// Run is one invocation of a pipeline command.
type Run struct {
	ID        string     `json:"id"`
	Command   string     `json:"command"`
	Status    RunStatus  `json:"status"`
	Result    *RunResult `json:"result,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// RunResult is the final outcome of a run.
type RunResult struct {
	RunID        string        `json:"run_id,omitempty"`
	Since        Date          `json:"since,omitzero"`
	Until        Date          `json:"until,omitzero"`
	CampaignRows int           `json:"campaign_rows"`
	VideoRows    int           `json:"video_rows"`
	DatasetRows  int           `json:"dataset_rows"`
	ExportedRows int           `json:"exported_rows,omitempty"`
	FailedUnits  int           `json:"failed_units"`
	Period       string        `json:"period,omitempty"`
	Artifacts    []string      `json:"artifacts,omitempty"`
	Phases       []PhaseResult `json:"phases"`
	Error        string        `json:"error,omitempty"`
}

// RunPhase is a stage within a run.
type RunPhase struct {
	ID        string       `json:"id"`
	RunID     string       `json:"run_id"`
	Name      string       `json:"name"`
	Status    PhaseStatus  `json:"status"`
	Result    *PhaseResult `json:"result,omitempty"`
	StartedAt time.Time    `json:"started_at"`
}

// PhaseStatus is the state of a run phase.
type PhaseStatus string

const (
	PhaseStatusRunning  PhaseStatus = "running"
	PhaseStatusComplete PhaseStatus = "complete"
	PhaseStatusFailed   PhaseStatus = "failed"
	PhaseStatusSkipped  PhaseStatus = "skipped"
)

// PhaseResult is the outcome of a run phase.
type PhaseResult struct {
	Name     string         `json:"name"`
	Status   PhaseStatus    `json:"status"`
	Duration int64          `json:"duration_ms"`
	Error    string         `json:"error,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// FailedUnit is one account-day fetch that exhausted its retries.
type FailedUnit struct {
	ID        string    `json:"id"`
	RunID     string    `json:"run_id"`
	Level     string    `json:"level"`
	Account   string    `json:"account"`
	Day       Date      `json:"day"`
	Attempts  int       `json:"attempts"`
	Error     string    `json:"error"`
	CreatedAt time.Time `json:"created_at"`
}
