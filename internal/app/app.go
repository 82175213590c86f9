package app

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/flutter-gis/earthbridge/internal/bridge"
	"github.com/flutter-gis/earthbridge/internal/common"
	"github.com/flutter-gis/earthbridge/internal/handlers"
	"github.com/flutter-gis/earthbridge/internal/interfaces"
	"github.com/flutter-gis/earthbridge/internal/models"
	"github.com/flutter-gis/earthbridge/internal/services/exchange"
	"github.com/flutter-gis/earthbridge/internal/services/logtail"
	"github.com/flutter-gis/earthbridge/internal/services/progress"
	"github.com/flutter-gis/earthbridge/internal/services/scheduler"
	"github.com/flutter-gis/earthbridge/internal/services/supervisor"
	"github.com/flutter-gis/earthbridge/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	StorageManager interfaces.StorageManager

	// Worker-facing services
	ProgressService  interfaces.ProgressReader
	LogTailer        interfaces.LogTailer
	ExchangeService  interfaces.DataExchanger
	Supervisor       *supervisor.Service
	SchedulerService interfaces.SchedulerService

	// Command bridge (routes named commands to the services above)
	Bridge *bridge.Bridge

	// HTTP handlers
	APIHandler      *handlers.APIHandler
	CommandHandler  *handlers.CommandHandler
	JobHandler      *handlers.JobHandler
	ProgressHandler *handlers.ProgressHandler
	LogsHandler     *handlers.LogsHandler
	ExchangeHandler *handlers.ExchangeHandler
	ConfigHandler   *handlers.ConfigHandler
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	// Initialize database
	if err := app.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Initialize services
	if err := app.initServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	// Initialize handlers
	if err := app.initHandlers(); err != nil {
		return nil, fmt.Errorf("failed to initialize handlers: %w", err)
	}

	// Start scheduler AFTER everything else is wired; a scheduled tick
	// goes through the same supervisor path as a UI start request
	if cfg.Scheduler.Enabled {
		if err := app.SchedulerService.Start(); err != nil {
			return nil, fmt.Errorf("failed to start scheduler: %w", err)
		}
		logger.Info().
			Str("schedule", cfg.Scheduler.Schedule).
			Msg("Scheduler started")
	}

	logger.Info().
		Str("worker", cfg.Worker.Executable).
		Str("progress_path", cfg.Progress.Path).
		Msg("Application initialization complete")

	return app, nil
}

// initDatabase initializes the storage layer (Badger)
func (a *App) initDatabase() error {
	storageManager, err := badger.NewManager(a.Logger, &a.Config.Storage.Badger)
	if err != nil {
		return fmt.Errorf("failed to create storage manager: %w", err)
	}

	a.StorageManager = storageManager
	a.Logger.Debug().
		Str("storage", "badger").
		Str("path", a.Config.Storage.Badger.Path).
		Msg("Storage layer initialized")

	return nil
}

// initServices creates the worker-facing services and the command bridge
func (a *App) initServices() error {
	a.ProgressService = progress.NewService(&a.Config.Progress, a.Logger)
	a.LogTailer = logtail.NewService(&a.Config.Logs, a.Logger)
	a.ExchangeService = exchange.NewService(&a.Config.Exchange, &a.Config.Worker, a.Logger)
	a.Supervisor = supervisor.NewService(&a.Config.Worker, a.StorageManager.RunStorage(), a.Logger)
	a.SchedulerService = scheduler.NewService(&a.Config.Scheduler, a.Supervisor, a.Logger)

	a.Bridge = bridge.New(
		a.Supervisor,
		a.ProgressService,
		a.LogTailer,
		a.ExchangeService,
		a.StorageManager.RunStorage(),
		a.Logger,
	)

	a.Logger.Debug().
		Int("commands", len(a.Bridge.Commands())).
		Msg("Services initialized")

	return nil
}

// initHandlers creates all HTTP handlers
func (a *App) initHandlers() error {
	a.APIHandler = handlers.NewAPIHandler()
	a.CommandHandler = handlers.NewCommandHandler(a.Bridge, a.Logger)
	a.JobHandler = handlers.NewJobHandler(a.Bridge, a.Logger)
	a.ProgressHandler = handlers.NewProgressHandler(a.Bridge, a.Logger)
	a.LogsHandler = handlers.NewLogsHandler(a.Bridge, a.Logger)
	a.ExchangeHandler = handlers.NewExchangeHandler(a.Bridge, a.Logger)
	a.ConfigHandler = handlers.NewConfigHandler(a.Config, a.Logger)

	a.Logger.Debug().Msg("HTTP handlers initialized")
	return nil
}

// Close shuts down the application components in reverse order
func (a *App) Close() error {
	// Stop scheduler first so no new jobs are launched during shutdown
	if a.SchedulerService != nil && a.SchedulerService.IsRunning() {
		a.SchedulerService.Stop()
		a.Logger.Info().Msg("Scheduler stopped")
	}

	// Cancel any running job; the worker gets SIGTERM and the run is
	// recorded as cancelled
	if a.Supervisor != nil {
		if a.Supervisor.Status().State != models.SupervisorIdle {
			a.Logger.Info().Msg("Terminating running job for shutdown")
		}
		a.Supervisor.Shutdown()
	}

	// Close database
	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close storage manager")
		} else {
			a.Logger.Info().Msg("Storage closed")
		}
	}

	return nil
}
