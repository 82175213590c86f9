package models

import "time"

// ProgressStatus is the status field published by the worker in its
// progress file. The orchestrator treats these values as advisory.
type ProgressStatus string

const (
	ProgressPending    ProgressStatus = "pending"
	ProgressRunning    ProgressStatus = "running"
	ProgressProcessing ProgressStatus = "processing"
	ProgressCompleted  ProgressStatus = "completed"
	ProgressError      ProgressStatus = "error"
)

// ProgressSnapshot is the most recently published state of the running or
// finished job. The worker process owns the file; this layer only reads it.
// Progress is advisory: a writer crash can leave stale or regressed values.
type ProgressSnapshot struct {
	Status     ProgressStatus `json:"status"`
	Progress   float64        `json:"progress"`
	Message    string         `json:"message,omitempty"`
	TilesFound int            `json:"tiles_found,omitempty"`
	TilesSaved int            `json:"tiles_saved,omitempty"`
	UpdatedAt  time.Time      `json:"updated_at,omitempty"`
}

// IsActive reports whether the snapshot describes a job still doing work.
func (s *ProgressSnapshot) IsActive() bool {
	return s.Status == ProgressRunning || s.Status == ProgressProcessing
}
