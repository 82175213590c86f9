// Package supervisor owns the single allowed worker process. It starts,
// monitors, and cancels the long-running imagery crawl, guaranteeing at
// most one live job at a time. Finished runs are recorded for the jobs
// history view.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/flutter-gis/earthbridge/internal/common"
	"github.com/flutter-gis/earthbridge/internal/interfaces"
	"github.com/flutter-gis/earthbridge/internal/models"
)

var (
	// ErrAlreadyRunning is returned when start is requested while a
	// worker process is live.
	ErrAlreadyRunning = errors.New("a job is already running")

	// ErrNotRunning is returned when cancel is requested with no live
	// worker process.
	ErrNotRunning = errors.New("nothing running")
)

// runningJob pairs the public handle with the process it tracks. The
// cancelled flag tells the monitor goroutine that the run was already
// recorded by Cancel.
type runningJob struct {
	handle    models.JobHandle
	cmd       *exec.Cmd
	args      string
	cancelled bool
}

// Service implements JobSupervisor. The single job slot is the only
// resource this layer mutates; the mutex replaces the module-level
// process global of older designs.
type Service struct {
	workerExe  string
	jobCommand string
	runStorage interfaces.RunStorage
	logger     arbor.ILogger

	mu      sync.Mutex
	state   models.SupervisorState
	current *runningJob
}

// NewService creates a job supervisor for the configured worker.
func NewService(worker *common.WorkerConfig, runStorage interfaces.RunStorage, logger arbor.ILogger) *Service {
	return &Service{
		workerExe:  worker.Executable,
		jobCommand: worker.JobCommand,
		runStorage: runStorage,
		logger:     logger,
		state:      models.SupervisorIdle,
	}
}

// Start spawns the worker process with the configured job subcommand.
// Returns a conflict error, without side effects, when a job is live.
// Spawn happens under the lock so two concurrent starts can never both
// claim the slot.
func (s *Service) Start(ctx context.Context, jsonArgs string) models.CommandResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil {
		return models.ErrorResult(ErrAlreadyRunning.Error())
	}

	s.state = models.SupervisorStarting

	args := []string{s.jobCommand}
	if jsonArgs != "" {
		args = append(args, jsonArgs)
	}

	cmd := exec.Command(s.workerExe, args...)
	if err := cmd.Start(); err != nil {
		// Spawn failure reverts to idle; the environment needs fixing,
		// not the orchestrator.
		s.state = models.SupervisorIdle
		s.logger.Warn().
			Str("worker", s.workerExe).
			Err(err).
			Msg("Failed to spawn worker process")
		return models.ErrorResult(fmt.Sprintf("failed to start worker: %v", err))
	}

	job := &runningJob{
		handle: models.JobHandle{
			JobID:     models.NewJobID(),
			PID:       cmd.Process.Pid,
			Command:   s.jobCommand,
			StartedAt: time.Now().UTC(),
		},
		cmd:  cmd,
		args: jsonArgs,
	}
	s.current = job
	s.state = models.SupervisorRunning

	s.logger.Info().
		Str("job_id", job.handle.JobID).
		Int("pid", job.handle.PID).
		Str("command", s.jobCommand).
		Msg("Worker process started")

	common.SafeGo(s.logger, "supervisor.monitor", func() {
		s.monitor(job)
	})

	return models.StartedResult(fmt.Sprintf("job %s started (pid %d)", job.handle.JobID, job.handle.PID))
}

// Cancel sends a termination signal to the live worker and clears the
// slot immediately. Clearing is optimistic: waiting for confirmed exit
// could lock the UI out indefinitely if the worker ignores the signal, so
// a transient double-run after a slow-dying cancelled worker is an
// accepted tradeoff.
func (s *Service) Cancel(ctx context.Context) models.CommandResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return models.ErrorResult(ErrNotRunning.Error())
	}

	job := s.current
	job.cancelled = true

	if err := job.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		// SIGTERM is unsupported on some platforms; fall back to a kill.
		if killErr := job.cmd.Process.Kill(); killErr != nil {
			s.logger.Warn().
				Str("job_id", job.handle.JobID).
				Err(killErr).
				Msg("Failed to signal worker process")
		}
	}

	s.recordRun(job, models.RunCancelled, -1, "cancelled by user")
	s.current = nil
	s.state = models.SupervisorIdle

	s.logger.Info().
		Str("job_id", job.handle.JobID).
		Int("pid", job.handle.PID).
		Msg("Worker process cancelled")

	return models.CancelledResult(fmt.Sprintf("job %s cancelled", job.handle.JobID))
}

// Shutdown terminates a live worker during application shutdown. Same
// signal path as Cancel, recorded with a shutdown reason instead of a
// user cancellation.
func (s *Service) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return
	}

	job := s.current
	job.cancelled = true

	if err := job.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		if killErr := job.cmd.Process.Kill(); killErr != nil {
			s.logger.Warn().
				Str("job_id", job.handle.JobID).
				Err(killErr).
				Msg("Failed to signal worker process")
		}
	}

	s.recordRun(job, models.RunCancelled, -1, "cancelled by shutdown")
	s.current = nil
	s.state = models.SupervisorIdle

	s.logger.Info().
		Str("job_id", job.handle.JobID).
		Int("pid", job.handle.PID).
		Msg("Worker process terminated for shutdown")
}

// Status is a pure read of the current state; it never blocks on the
// worker process.
func (s *Service) Status() models.SupervisorStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := models.SupervisorStatus{State: s.state}
	if s.current != nil {
		handle := s.current.handle
		status.Handle = &handle
	}
	return status
}

// monitor waits for the worker process to exit, records the run, and
// frees the slot so a new job may start.
func (s *Service) monitor(job *runningJob) {
	err := job.cmd.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()

	exitCode := job.cmd.ProcessState.ExitCode()

	if job.cancelled {
		// Run already recorded by Cancel; the slot may even be occupied
		// by a newer job. Just note the late exit.
		s.logger.Debug().
			Str("job_id", job.handle.JobID).
			Int("exit_code", exitCode).
			Msg("Cancelled worker process exited")
		return
	}

	status := models.RunCompleted
	errMsg := ""
	if err != nil || exitCode != 0 {
		status = models.RunFailed
		if err != nil {
			errMsg = err.Error()
		}
		s.logger.Warn().
			Str("job_id", job.handle.JobID).
			Int("exit_code", exitCode).
			Msg("Worker process failed")
	} else {
		s.logger.Info().
			Str("job_id", job.handle.JobID).
			Msg("Worker process completed")
	}

	s.recordRun(job, status, exitCode, errMsg)

	if s.current == job {
		s.current = nil
		s.state = models.SupervisorIdle
	}
}

// recordRun persists a finished run. History is observability only, so a
// storage failure is logged and swallowed. Callers hold the lock.
func (s *Service) recordRun(job *runningJob, status models.RunStatus, exitCode int, errMsg string) {
	if s.runStorage == nil {
		return
	}

	run := &models.JobRun{
		JobID:      job.handle.JobID,
		PID:        job.handle.PID,
		Command:    job.handle.Command,
		Args:       job.args,
		Status:     status,
		ExitCode:   exitCode,
		Error:      errMsg,
		StartedAt:  job.handle.StartedAt,
		FinishedAt: time.Now().UTC(),
	}

	if err := s.runStorage.SaveRun(context.Background(), run); err != nil {
		s.logger.Warn().
			Str("job_id", run.JobID).
			Err(err).
			Msg("Failed to record job run")
	}
}
