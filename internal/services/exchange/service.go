// Package exchange hands bulk data to external one-shot commands through
// a uniquely named temp file. The temp file's lifetime is scoped to one
// exchange call: it is removed on every exit path, including spawn
// failure. The package also hosts the one-shot worker invocation used by
// backend init and auth checks.
package exchange

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/flutter-gis/earthbridge/internal/common"
	"github.com/flutter-gis/earthbridge/internal/interfaces"
	"github.com/flutter-gis/earthbridge/internal/models"
)

const defaultTimeout = 5 * time.Minute

// Service implements DataExchanger.
type Service struct {
	tempDir       string
	timeout       time.Duration
	workerExe     string
	invokeTimeout time.Duration
	logger        arbor.ILogger
}

// NewService creates a data exchanger.
func NewService(cfg *common.ExchangeConfig, worker *common.WorkerConfig, logger arbor.ILogger) interfaces.DataExchanger {
	return &Service{
		tempDir:       cfg.TempDir,
		timeout:       common.Duration(cfg.Timeout, defaultTimeout),
		workerExe:     worker.Executable,
		invokeTimeout: common.Duration(worker.InvokeTimeout, 2*time.Minute),
		logger:        logger,
	}
}

// Exchange serializes payload to a temp file, runs the external command
// with the temp path appended to its arguments, and returns a result
// envelope built from the exit code and captured streams.
func (s *Service) Exchange(ctx context.Context, payload interface{}, command string, args []string) models.CommandResult {
	data, err := json.Marshal(payload)
	if err != nil {
		return models.ErrorResult(fmt.Sprintf("failed to serialize payload: %v", err))
	}

	tmpFile, err := os.CreateTemp(s.tempDir, "exchange-*.json")
	if err != nil {
		return models.ErrorResult(fmt.Sprintf("failed to create temp file: %v", err))
	}
	tmpPath := tmpFile.Name()
	// Scoped release: the temp file never outlives this call.
	defer os.Remove(tmpPath)

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return models.ErrorResult(fmt.Sprintf("failed to write temp file: %v", err))
	}
	if err := tmpFile.Close(); err != nil {
		return models.ErrorResult(fmt.Sprintf("failed to close temp file: %v", err))
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	stdout, stderr, err := runCommand(ctx, command, append(args, tmpPath))
	if err != nil {
		message := strings.TrimSpace(stderr)
		if message == "" {
			message = strings.TrimSpace(stdout)
		}
		if message == "" {
			message = err.Error()
		}
		s.logger.Warn().
			Str("command", command).
			Err(err).
			Msg("Exchange command failed")
		return models.ErrorResult(message)
	}

	s.logger.Debug().
		Str("command", command).
		Int("payload_bytes", len(data)).
		Msg("Exchange command completed")
	return models.SuccessResult(strings.TrimSpace(stdout), nil)
}

// InvokeWorker runs the worker executable synchronously with a subcommand
// and optional JSON argument string. On exit 0 the worker's stdout is
// expected to be a single JSON document; stderr carries diagnostics on
// failure.
func (s *Service) InvokeWorker(ctx context.Context, command string, jsonArgs string) (json.RawMessage, error) {
	if s.workerExe == "" {
		return nil, fmt.Errorf("worker executable not configured")
	}

	args := []string{command}
	if jsonArgs != "" {
		args = append(args, jsonArgs)
	}

	ctx, cancel := context.WithTimeout(ctx, s.invokeTimeout)
	defer cancel()

	stdout, stderr, err := runCommand(ctx, s.workerExe, args)
	if err != nil {
		diag := strings.TrimSpace(stderr)
		if diag == "" {
			diag = strings.TrimSpace(stdout)
		}
		if diag != "" {
			return nil, fmt.Errorf("worker %s failed: %s", command, diag)
		}
		return nil, fmt.Errorf("worker %s failed: %w", command, err)
	}

	out := strings.TrimSpace(stdout)
	if out == "" {
		return nil, fmt.Errorf("worker %s produced no output", command)
	}
	if !json.Valid([]byte(out)) {
		return nil, fmt.Errorf("worker %s produced malformed JSON output", command)
	}

	return json.RawMessage(out), nil
}

// runCommand runs a command to completion, capturing both streams.
func runCommand(ctx context.Context, command string, args []string) (stdout, stderr string, err error) {
	cmd := exec.CommandContext(ctx, command, args...)

	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	err = cmd.Run()
	return outBuf.String(), errBuf.String(), err
}
