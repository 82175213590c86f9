// Package scheduler triggers unattended worker runs on a cron schedule.
// A tick that collides with a live job is logged and skipped, never
// queued: re-running an expensive imagery crawl automatically is a user
// decision, not a retry policy.
package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/flutter-gis/earthbridge/internal/common"
	"github.com/flutter-gis/earthbridge/internal/interfaces"
	"github.com/flutter-gis/earthbridge/internal/models"
)

// Service implements SchedulerService.
type Service struct {
	cfg        *common.SchedulerConfig
	supervisor interfaces.JobSupervisor
	cron       *cron.Cron
	logger     arbor.ILogger

	mu      sync.Mutex
	running bool
	entryID cron.EntryID
}

// NewService creates a scheduler bound to the job supervisor.
func NewService(cfg *common.SchedulerConfig, supervisor interfaces.JobSupervisor, logger arbor.ILogger) interfaces.SchedulerService {
	return &Service{
		cfg:        cfg,
		supervisor: supervisor,
		cron:       cron.New(),
		logger:     logger,
	}
}

// Start registers the configured schedule and starts the cron runner.
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	if err := common.ValidateSchedule(s.cfg.Schedule); err != nil {
		return err
	}

	entryID, err := s.cron.AddFunc(s.cfg.Schedule, s.runScheduledJob)
	if err != nil {
		return fmt.Errorf("failed to register schedule: %w", err)
	}
	s.entryID = entryID

	s.cron.Start()
	s.running = true

	s.logger.Info().
		Str("schedule", s.cfg.Schedule).
		Msg("Scheduler started")

	return nil
}

// Stop halts the cron runner. Does not touch a job already in flight.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()
	s.running = false

	s.logger.Info().Msg("Scheduler stopped")
}

// IsRunning reports whether the cron runner is active.
func (s *Service) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Service) runScheduledJob() {
	result := s.supervisor.Start(context.Background(), s.cfg.JobArgs)
	switch result.Status {
	case models.ResultStarted:
		s.logger.Info().Str("message", result.Message).Msg("Scheduled job started")
	case models.ResultError:
		// Most commonly "already running" - skip this tick.
		s.logger.Warn().Str("reason", result.Message).Msg("Scheduled job skipped")
	}
}
