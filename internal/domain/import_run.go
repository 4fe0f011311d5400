package domain

import "time"

// RunStatus enumerates the lifecycle of an import run's audit record.
// A run left in RunRunning after a process crash stays that way; there is
// no reconciler sweeping stale records.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// ImportRowError records one row that could not be synced. Row numbers are
// 1-indexed over data rows (the header line is excluded). Email is best
// effort and may be "unknown" when parsing failed before extraction.
type ImportRowError struct {
	Row   int    `json:"row"`
	Email string `json:"email"`
	Error string `json:"error"`
}

// ImportRun is the durable audit record of one batch import execution.
// It is written exactly twice: once at run start (status running) and once
// at run end (final counts plus the terminal status). Readers never observe
// counts without the matching status flip.
type ImportRun struct {
	ID          string           `json:"id" db:"id"`
	FileName    string           `json:"file_name" db:"file_name"`
	TotalRows   int              `json:"total_rows" db:"total_rows"`
	CreatedRows int              `json:"created_rows" db:"created_rows"`
	UpdatedRows int              `json:"updated_rows" db:"updated_rows"`
	ErrorRows   int              `json:"error_rows" db:"error_rows"`
	Errors      []ImportRowError `json:"errors" db:"errors"`
	Status      RunStatus        `json:"status" db:"status"`
	StartedAt   time.Time        `json:"started_at" db:"started_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty" db:"completed_at"`
}
