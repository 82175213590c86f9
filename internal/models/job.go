package models

import (
	"time"

	"github.com/google/uuid"
)

// SupervisorState is the coarse state of the job supervisor.
type SupervisorState string

const (
	SupervisorIdle     SupervisorState = "idle"
	SupervisorStarting SupervisorState = "starting"
	SupervisorRunning  SupervisorState = "running"
)

// RunStatus is the terminal status recorded for a finished worker run.
type RunStatus string

const (
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
	RunCancelled RunStatus = "cancelled"
)

// JobHandle describes the single in-flight worker process. At most one
// live handle exists process-wide; the supervisor owns the slot.
type JobHandle struct {
	JobID     string    `json:"job_id"`
	PID       int       `json:"pid"`
	Command   string    `json:"command"`
	StartedAt time.Time `json:"started_at"`
}

// NewJobID generates a unique job ID with the "job_" prefix.
// Format: job_<uuid>
func NewJobID() string {
	return "job_" + uuid.New().String()
}

// JobRun is the persisted record of one worker run, written when the
// process exits or is cancelled. Kept for observability; the live slot
// itself is never persisted.
type JobRun struct {
	JobID      string    `json:"job_id" badgerhold:"key"`
	PID        int       `json:"pid"`
	Command    string    `json:"command"`
	Args       string    `json:"args,omitempty"`
	Status     RunStatus `json:"status"`
	ExitCode   int       `json:"exit_code"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Duration returns the wall-clock duration of the run.
func (r *JobRun) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// SupervisorStatus is the snapshot returned by the job-status command.
type SupervisorStatus struct {
	State  SupervisorState `json:"state"`
	Handle *JobHandle      `json:"handle,omitempty"`
}
