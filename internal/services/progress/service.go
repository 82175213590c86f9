// Package progress reads the JSON progress snapshot published by the
// imagery worker. The worker is the only writer; this service never locks,
// repairs, or rewrites the file. A partially-written file from a worker
// mid-write is an expected transient condition, not a fault.
package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/flutter-gis/earthbridge/internal/common"
	"github.com/flutter-gis/earthbridge/internal/interfaces"
	"github.com/flutter-gis/earthbridge/internal/models"
)

// ErrMalformedProgress is returned when the progress file exists but does
// not parse, even after the single retry.
var ErrMalformedProgress = errors.New("progress file is malformed")

const defaultRetryDelay = 150 * time.Millisecond

// Service implements ProgressReader over a file path.
type Service struct {
	path       string
	retryDelay time.Duration
	logger     arbor.ILogger
}

// NewService creates a progress reader for the configured snapshot path.
func NewService(cfg *common.ProgressConfig, logger arbor.ILogger) interfaces.ProgressReader {
	return &Service{
		path:       cfg.Path,
		retryDelay: common.Duration(cfg.RetryDelay, defaultRetryDelay),
		logger:     logger,
	}
}

// Read returns the latest snapshot. A missing file means no job has ever
// published progress: the caller gets a "pending" snapshot, not an error.
// A parse failure is retried once after a short delay to absorb a read
// racing a non-atomic write, then surfaced as ErrMalformedProgress.
func (s *Service) Read(ctx context.Context) (*models.ProgressSnapshot, error) {
	snapshot, err := s.readOnce()
	if err == nil || errors.Is(err, os.ErrNotExist) {
		if errors.Is(err, os.ErrNotExist) {
			return &models.ProgressSnapshot{
				Status:  models.ProgressPending,
				Message: "no progress reported yet",
			}, nil
		}
		return snapshot, nil
	}

	if !errors.Is(err, ErrMalformedProgress) {
		return nil, err
	}

	s.logger.Debug().
		Str("path", s.path).
		Dur("retry_delay", s.retryDelay).
		Msg("Progress file unparsable, retrying once")

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(s.retryDelay):
	}

	snapshot, err = s.readOnce()
	if errors.Is(err, os.ErrNotExist) {
		// The worker may have swapped files between reads.
		return &models.ProgressSnapshot{
			Status:  models.ProgressPending,
			Message: "no progress reported yet",
		}, nil
	}
	return snapshot, err
}

func (s *Service) readOnce() (*models.ProgressSnapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, os.ErrNotExist
		}
		return nil, fmt.Errorf("failed to read progress file %s: %w", s.path, err)
	}

	var snapshot models.ProgressSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedProgress, err)
	}

	return &snapshot, nil
}
