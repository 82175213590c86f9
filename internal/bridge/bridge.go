// Package bridge is the single validated entry point the UI layer calls.
// It maps a fixed set of named commands onto the orchestration services
// and normalizes every outcome - including panics - into a CommandResult
// envelope. Nothing above this package ever sees a raw error or a panic.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"

	"github.com/flutter-gis/earthbridge/internal/interfaces"
	"github.com/flutter-gis/earthbridge/internal/models"
)

// Command names recognized by the bridge.
const (
	CmdStartJob     = "start-job"
	CmdCancelJob    = "cancel-job"
	CmdJobStatus    = "job-status"
	CmdGetProgress  = "get-progress"
	CmdTailLog      = "tail-log"
	CmdExchangeData = "exchange-data"
	CmdInitBackend  = "init-backend"
	CmdCheckAuth    = "check-auth"
	CmdListRuns     = "list-runs"
)

// Bridge dispatches named commands to the orchestration services.
type Bridge struct {
	supervisor interfaces.JobSupervisor
	progress   interfaces.ProgressReader
	logtail    interfaces.LogTailer
	exchanger  interfaces.DataExchanger
	runStorage interfaces.RunStorage
	validate   *validator.Validate
	logger     arbor.ILogger
	handlers   map[string]func(ctx context.Context, args json.RawMessage) models.CommandResult
}

// New creates a command bridge over the given services.
func New(
	supervisor interfaces.JobSupervisor,
	progress interfaces.ProgressReader,
	logtail interfaces.LogTailer,
	exchanger interfaces.DataExchanger,
	runStorage interfaces.RunStorage,
	logger arbor.ILogger,
) *Bridge {
	b := &Bridge{
		supervisor: supervisor,
		progress:   progress,
		logtail:    logtail,
		exchanger:  exchanger,
		runStorage: runStorage,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		logger:     logger,
	}

	b.handlers = map[string]func(ctx context.Context, args json.RawMessage) models.CommandResult{
		CmdStartJob:     b.startJob,
		CmdCancelJob:    b.cancelJob,
		CmdJobStatus:    b.jobStatus,
		CmdGetProgress:  b.getProgress,
		CmdTailLog:      b.tailLog,
		CmdExchangeData: b.exchangeData,
		CmdInitBackend:  b.initBackend,
		CmdCheckAuth:    b.checkAuth,
		CmdListRuns:     b.listRuns,
	}

	return b
}

// Commands returns the recognized command names, sorted.
func (b *Bridge) Commands() []string {
	names := make([]string, 0, len(b.handlers))
	for name := range b.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Execute validates and dispatches a command, returning a uniform result
// envelope. Any panic in an underlying component is converted into an
// error result here - the last line of defense before the UI.
func (b *Bridge) Execute(ctx context.Context, cmd models.Command) (result models.CommandResult) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error().
				Str("command", cmd.Name).
				Str("panic", fmt.Sprintf("%v", r)).
				Msg("Panic recovered in command dispatch")
			result = models.ErrorResult(fmt.Sprintf("internal error executing %s", cmd.Name))
		}
	}()

	handler, ok := b.handlers[cmd.Name]
	if !ok {
		return models.ErrorResult(fmt.Sprintf("unknown command: %s", cmd.Name))
	}

	b.logger.Debug().Str("command", cmd.Name).Msg("Dispatching command")
	return handler(ctx, cmd.Args)
}

// decodeArgs unmarshals command args into a typed struct and validates
// it. Validation failures happen before any dispatch side effect.
func (b *Bridge) decodeArgs(args json.RawMessage, target interface{}) error {
	if len(args) > 0 {
		if err := json.Unmarshal(args, target); err != nil {
			return fmt.Errorf("malformed arguments: %w", err)
		}
	}
	if err := b.validate.Struct(target); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

// StartJobArgs carries optional worker parameters for start-job.
type StartJobArgs struct {
	// Params is passed to the worker verbatim as its JSON argument.
	Params json.RawMessage `json:"params,omitempty"`
}

func (b *Bridge) startJob(ctx context.Context, args json.RawMessage) models.CommandResult {
	var req StartJobArgs
	if err := b.decodeArgs(args, &req); err != nil {
		return models.ErrorResult(err.Error())
	}

	jsonArgs := ""
	if len(req.Params) > 0 {
		jsonArgs = string(req.Params)
	}
	return b.supervisor.Start(ctx, jsonArgs)
}

func (b *Bridge) cancelJob(ctx context.Context, _ json.RawMessage) models.CommandResult {
	return b.supervisor.Cancel(ctx)
}

func (b *Bridge) jobStatus(_ context.Context, _ json.RawMessage) models.CommandResult {
	status := b.supervisor.Status()
	return models.SuccessResult(string(status.State), status)
}

func (b *Bridge) getProgress(ctx context.Context, _ json.RawMessage) models.CommandResult {
	snapshot, err := b.progress.Read(ctx)
	if err != nil {
		return models.ErrorResult(err.Error())
	}
	if snapshot.Status == models.ProgressPending {
		return models.PendingResult(snapshot.Message)
	}
	return models.SuccessResult(snapshot.Message, snapshot)
}

// TailLogArgs selects how many trailing lines to return.
type TailLogArgs struct {
	Lines int `json:"lines,omitempty" validate:"omitempty,min=1"`
}

func (b *Bridge) tailLog(_ context.Context, args json.RawMessage) models.CommandResult {
	var req TailLogArgs
	if err := b.decodeArgs(args, &req); err != nil {
		return models.ErrorResult(err.Error())
	}

	lines, err := b.logtail.TailLatest(req.Lines)
	if err != nil {
		return models.ErrorResult(err.Error())
	}

	return models.SuccessResult(fmt.Sprintf("%d lines", len(lines)), map[string]interface{}{
		"lines": lines,
		"count": len(lines),
	})
}

// ExchangeDataArgs names the external command and the payload handed to it.
type ExchangeDataArgs struct {
	Payload json.RawMessage `json:"payload" validate:"required"`
	Command string          `json:"command" validate:"required"`
	Args    []string        `json:"args,omitempty"`
}

func (b *Bridge) exchangeData(ctx context.Context, args json.RawMessage) models.CommandResult {
	var req ExchangeDataArgs
	if err := b.decodeArgs(args, &req); err != nil {
		return models.ErrorResult(err.Error())
	}

	return b.exchanger.Exchange(ctx, req.Payload, req.Command, req.Args)
}

func (b *Bridge) initBackend(ctx context.Context, _ json.RawMessage) models.CommandResult {
	payload, err := b.exchanger.InvokeWorker(ctx, "init", "")
	if err != nil {
		return models.ErrorResult(err.Error())
	}
	return models.SuccessResult("backend initialized", payload)
}

func (b *Bridge) checkAuth(ctx context.Context, _ json.RawMessage) models.CommandResult {
	payload, err := b.exchanger.InvokeWorker(ctx, "check-auth", "")
	if err != nil {
		return models.ErrorResult(err.Error())
	}
	return models.SuccessResult("auth checked", payload)
}

// ListRunsArgs filters the run-history query.
type ListRunsArgs struct {
	Status string `json:"status,omitempty" validate:"omitempty,oneof=completed failed cancelled"`
	Limit  int    `json:"limit,omitempty" validate:"omitempty,min=1,max=500"`
	Offset int    `json:"offset,omitempty" validate:"omitempty,min=0"`
}

func (b *Bridge) listRuns(ctx context.Context, args json.RawMessage) models.CommandResult {
	var req ListRunsArgs
	if err := b.decodeArgs(args, &req); err != nil {
		return models.ErrorResult(err.Error())
	}

	if b.runStorage == nil {
		return models.ErrorResult("run history storage not available")
	}

	limit := req.Limit
	if limit == 0 {
		limit = 50
	}

	runs, err := b.runStorage.ListRuns(ctx, &interfaces.RunListOptions{
		Status: models.RunStatus(req.Status),
		Limit:  limit,
		Offset: req.Offset,
	})
	if err != nil {
		return models.ErrorResult(err.Error())
	}

	return models.SuccessResult(fmt.Sprintf("%d runs", len(runs)), map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}
