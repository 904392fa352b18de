package model

import "time"

// RunStatus represents the current state of a pipeline run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is one recorded pipeline execution.
type Run struct {
	ID         string      `json:"id"`
	Status     RunStatus   `json:"status"`
	Summary    *RunSummary `json:"summary,omitempty"`
	Error      string      `json:"error,omitempty"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt *time.Time  `json:"finished_at,omitempty"`
}

// RunSummary holds the headline counts of a completed run.
type RunSummary struct {
	FilesAccepted    int `json:"files_accepted"`
	FilesQuarantined int `json:"files_quarantined"`
	Records          int `json:"records"`
	CodesNormalized  int `json:"codes_normalized"`
	CodesSplit       int `json:"codes_split"`
	OpeningRecords   int `json:"opening_records"`
	Products         int `json:"products"`
	Discrepancies    int `json:"discrepancies"`
}
