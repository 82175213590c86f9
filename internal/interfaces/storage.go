package interfaces

import (
	"context"

	"github.com/flutter-gis/earthbridge/internal/models"
)

// RunListOptions filters and pages run-history queries.
type RunListOptions struct {
	Status models.RunStatus
	Limit  int
	Offset int
}

// RunStorage persists finished worker runs for observability.
type RunStorage interface {
	SaveRun(ctx context.Context, run *models.JobRun) error
	GetRun(ctx context.Context, jobID string) (*models.JobRun, error)
	ListRuns(ctx context.Context, opts *RunListOptions) ([]*models.JobRun, error)
	CountRuns(ctx context.Context) (int, error)
	DeleteRun(ctx context.Context, jobID string) error
}

// StorageManager provides access to all storage interfaces
type StorageManager interface {
	RunStorage() RunStorage
	DB() interface{}
	Close() error
}
