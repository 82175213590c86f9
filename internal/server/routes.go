package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// Generic command bridge (the UI-facing surface)
	mux.HandleFunc("/api/command", s.app.CommandHandler.ExecuteHandler)   // POST - execute a named command
	mux.HandleFunc("/api/commands", s.app.CommandHandler.ListCommandsHandler) // GET - list recognized commands

	// API routes - Job lifecycle
	mux.HandleFunc("/api/jobs/start", s.app.JobHandler.StartJobHandler)   // POST - start the worker job
	mux.HandleFunc("/api/jobs/cancel", s.app.JobHandler.CancelJobHandler) // POST - cancel the running job
	mux.HandleFunc("/api/jobs/status", s.app.JobHandler.StatusHandler)    // GET - supervisor state
	mux.HandleFunc("/api/jobs/runs", s.app.JobHandler.ListRunsHandler)    // GET - run history

	// API routes - Polling (independent of the job lifecycle)
	mux.HandleFunc("/api/progress", s.app.ProgressHandler.GetProgressHandler)
	mux.HandleFunc("/api/logs/tail", s.app.LogsHandler.TailLogHandler)

	// API routes - Data exchange and one-shot backend calls
	mux.HandleFunc("/api/exchange", s.app.ExchangeHandler.ExchangeDataHandler)
	mux.HandleFunc("/api/backend/init", s.app.ExchangeHandler.InitBackendHandler)
	mux.HandleFunc("/api/backend/auth", s.app.ExchangeHandler.CheckAuthHandler)

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)
	mux.HandleFunc("/api/config", s.app.ConfigHandler.GetConfigHandler)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.app.APIHandler.NotFoundHandler)

	return mux
}
