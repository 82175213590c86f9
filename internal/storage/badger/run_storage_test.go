package badger

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/flutter-gis/earthbridge/internal/common"
	"github.com/flutter-gis/earthbridge/internal/interfaces"
	"github.com/flutter-gis/earthbridge/internal/models"
)

func newTestStorage(t *testing.T) interfaces.RunStorage {
	t.Helper()

	manager, err := NewManager(arbor.NewLogger(), &common.BadgerConfig{
		Path: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("Failed to create storage manager: %v", err)
	}
	t.Cleanup(func() { manager.Close() })

	return manager.RunStorage()
}

func testRun(id string, status models.RunStatus, startedAt time.Time) *models.JobRun {
	return &models.JobRun{
		JobID:      id,
		PID:        1000,
		Command:    "crawl",
		Status:     status,
		StartedAt:  startedAt,
		FinishedAt: startedAt.Add(time.Minute),
	}
}

func TestRunStorage_SaveAndGet(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	run := testRun("job_abc", models.RunCompleted, time.Now().UTC())
	run.Args = `{"region":"AU"}`
	run.ExitCode = 0

	if err := storage.SaveRun(ctx, run); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	got, err := storage.GetRun(ctx, "job_abc")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.Status != models.RunCompleted {
		t.Errorf("Expected completed, got %s", got.Status)
	}
	if got.Args != `{"region":"AU"}` {
		t.Errorf("Args not persisted: %q", got.Args)
	}

	// Upsert semantics: saving again with the same ID replaces
	run.Status = models.RunFailed
	run.ExitCode = 2
	if err := storage.SaveRun(ctx, run); err != nil {
		t.Fatalf("Second SaveRun failed: %v", err)
	}
	got, err = storage.GetRun(ctx, "job_abc")
	if err != nil {
		t.Fatalf("GetRun after upsert failed: %v", err)
	}
	if got.Status != models.RunFailed || got.ExitCode != 2 {
		t.Errorf("Upsert did not replace: %+v", got)
	}

	count, err := storage.CountRuns(ctx)
	if err != nil {
		t.Fatalf("CountRuns failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 run after upsert, got %d", count)
	}
}

func TestRunStorage_SaveRequiresJobID(t *testing.T) {
	storage := newTestStorage(t)

	if err := storage.SaveRun(context.Background(), &models.JobRun{}); err == nil {
		t.Fatal("Expected error for run without job ID")
	}
}

func TestRunStorage_GetMissing(t *testing.T) {
	storage := newTestStorage(t)

	if _, err := storage.GetRun(context.Background(), "job_nope"); err == nil {
		t.Fatal("Expected error for missing run")
	}
}

func TestRunStorage_ListRuns(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	statuses := []models.RunStatus{
		models.RunCompleted,
		models.RunFailed,
		models.RunCompleted,
		models.RunCancelled,
		models.RunCompleted,
	}
	for i, status := range statuses {
		run := testRun(fmt.Sprintf("job_%03d", i), status, base.Add(time.Duration(i)*time.Minute))
		if err := storage.SaveRun(ctx, run); err != nil {
			t.Fatalf("SaveRun %d failed: %v", i, err)
		}
	}

	t.Run("newest first", func(t *testing.T) {
		runs, err := storage.ListRuns(ctx, nil)
		if err != nil {
			t.Fatalf("ListRuns failed: %v", err)
		}
		if len(runs) != 5 {
			t.Fatalf("Expected 5 runs, got %d", len(runs))
		}
		if runs[0].JobID != "job_004" {
			t.Errorf("Expected newest run first, got %s", runs[0].JobID)
		}
		for i := 1; i < len(runs); i++ {
			if runs[i].StartedAt.After(runs[i-1].StartedAt) {
				t.Fatalf("Runs not in reverse chronological order at %d", i)
			}
		}
	})

	t.Run("status filter", func(t *testing.T) {
		runs, err := storage.ListRuns(ctx, &interfaces.RunListOptions{Status: models.RunCompleted})
		if err != nil {
			t.Fatalf("ListRuns failed: %v", err)
		}
		if len(runs) != 3 {
			t.Fatalf("Expected 3 completed runs, got %d", len(runs))
		}
		for _, run := range runs {
			if run.Status != models.RunCompleted {
				t.Errorf("Filter leaked status %s", run.Status)
			}
		}
	})

	t.Run("limit and offset", func(t *testing.T) {
		runs, err := storage.ListRuns(ctx, &interfaces.RunListOptions{Limit: 2, Offset: 1})
		if err != nil {
			t.Fatalf("ListRuns failed: %v", err)
		}
		if len(runs) != 2 {
			t.Fatalf("Expected 2 runs, got %d", len(runs))
		}
	})
}

func TestRunStorage_DeleteRun(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	run := testRun("job_del", models.RunCompleted, time.Now().UTC())
	if err := storage.SaveRun(ctx, run); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	if err := storage.DeleteRun(ctx, "job_del"); err != nil {
		t.Fatalf("DeleteRun failed: %v", err)
	}
	if _, err := storage.GetRun(ctx, "job_del"); err == nil {
		t.Fatal("Run still present after delete")
	}
	if err := storage.DeleteRun(ctx, "job_del"); err == nil {
		t.Fatal("Expected error deleting missing run")
	}
}
