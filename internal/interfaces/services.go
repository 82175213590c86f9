package interfaces

import (
	"context"
	"encoding/json"

	"github.com/flutter-gis/earthbridge/internal/models"
)

// ProgressReader exposes the worker-written progress snapshot. Readers are
// passive: the worker owns the file and this layer never rewrites it.
type ProgressReader interface {
	// Read returns the latest snapshot. A missing file yields a snapshot
	// with status "pending" and a nil error; a malformed file yields a
	// typed parse error.
	Read(ctx context.Context) (*models.ProgressSnapshot, error)
}

// LogTailer resolves and tails the worker's log files.
type LogTailer interface {
	// LatestLogPath returns the newest-by-modification-time log file
	// matching the configured prefix, or "" when none exist.
	LatestLogPath() (string, error)

	// Tail returns at most maxLines trailing lines of the given file in
	// original order.
	Tail(path string, maxLines int) ([]string, error)

	// TailLatest combines LatestLogPath and Tail.
	TailLatest(maxLines int) ([]string, error)
}

// DataExchanger hands bulk data to external one-shot commands through a
// temp file that is removed on every exit path.
type DataExchanger interface {
	Exchange(ctx context.Context, payload interface{}, command string, args []string) models.CommandResult

	// InvokeWorker runs the worker executable with a subcommand and
	// optional JSON argument string, returning the worker's stdout JSON.
	InvokeWorker(ctx context.Context, command string, jsonArgs string) (json.RawMessage, error)
}

// JobSupervisor enforces single-job-at-a-time semantics over the
// long-running worker process.
type JobSupervisor interface {
	Start(ctx context.Context, jsonArgs string) models.CommandResult
	Cancel(ctx context.Context) models.CommandResult
	Status() models.SupervisorStatus
}

// SchedulerService triggers unattended job starts on a cron schedule.
type SchedulerService interface {
	Start() error
	Stop()
	IsRunning() bool
}
