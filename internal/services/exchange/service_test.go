package exchange

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/ternarybob/arbor"

	"github.com/flutter-gis/earthbridge/internal/common"
	"github.com/flutter-gis/earthbridge/internal/models"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell-based test requires a POSIX shell")
	}
}

func newTestService(t *testing.T, tempDir, workerExe string) *Service {
	t.Helper()
	svc := NewService(
		&common.ExchangeConfig{TempDir: tempDir, Timeout: "10s"},
		&common.WorkerConfig{Executable: workerExe, JobCommand: "crawl", InvokeTimeout: "10s"},
		arbor.NewLogger(),
	)
	return svc.(*Service)
}

// writeScript creates an executable shell script used as a stand-in worker.
func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatalf("Failed to write script: %v", err)
	}
	return path
}

func tempFileCount(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("Failed to read temp dir: %v", err)
	}
	return len(entries)
}

func TestExchange_Success(t *testing.T) {
	skipOnWindows(t)

	tempDir := t.TempDir()
	svc := newTestService(t, tempDir, "")

	payload := map[string]interface{}{"tiles": []string{"a1", "b2"}, "zoom": 12}

	// The temp path is appended as the last argument; with sh -c it
	// arrives as $0 of the inline script.
	result := svc.Exchange(context.Background(), payload, "/bin/sh", []string{"-c", `cat "$0"`})

	if result.Status != models.ResultSuccess {
		t.Fatalf("Expected success, got %s: %s", result.Status, result.Message)
	}
	if !strings.Contains(result.Message, `"zoom":12`) {
		t.Errorf("Command should have received the serialized payload, got: %s", result.Message)
	}
	if n := tempFileCount(t, tempDir); n != 0 {
		t.Errorf("Temp file leaked: %d files remain", n)
	}
}

func TestExchange_CommandFailure(t *testing.T) {
	skipOnWindows(t)

	tempDir := t.TempDir()
	svc := newTestService(t, tempDir, "")

	result := svc.Exchange(context.Background(), map[string]string{"k": "v"},
		"/bin/sh", []string{"-c", "echo boom >&2; exit 3"})

	if result.Status != models.ResultError {
		t.Fatalf("Expected error result, got %s", result.Status)
	}
	if !strings.Contains(result.Message, "boom") {
		t.Errorf("Expected stderr in message, got: %s", result.Message)
	}
	if n := tempFileCount(t, tempDir); n != 0 {
		t.Errorf("Temp file leaked after failure: %d files remain", n)
	}
}

func TestExchange_MissingBinary(t *testing.T) {
	tempDir := t.TempDir()
	svc := newTestService(t, tempDir, "")

	result := svc.Exchange(context.Background(), map[string]string{"k": "v"},
		filepath.Join(tempDir, "does-not-exist"), nil)

	if result.Status != models.ResultError {
		t.Fatalf("Expected error result, got %s", result.Status)
	}
	if n := tempFileCount(t, tempDir); n != 0 {
		t.Errorf("Temp file leaked after spawn failure: %d files remain", n)
	}
}

func TestExchange_UnserializablePayload(t *testing.T) {
	tempDir := t.TempDir()
	svc := newTestService(t, tempDir, "")

	result := svc.Exchange(context.Background(), map[string]interface{}{"bad": make(chan int)}, "/bin/sh", nil)

	if result.Status != models.ResultError {
		t.Fatalf("Expected error result for unserializable payload, got %s", result.Status)
	}
}

func TestInvokeWorker(t *testing.T) {
	skipOnWindows(t)

	dir := t.TempDir()

	t.Run("valid JSON output", func(t *testing.T) {
		worker := writeScript(t, dir, "worker-ok", `echo '{"authenticated":true,"user":"sat-ops"}'`)
		svc := newTestService(t, dir, worker)

		payload, err := svc.InvokeWorker(context.Background(), "check-auth", "")
		if err != nil {
			t.Fatalf("InvokeWorker failed: %v", err)
		}

		var decoded map[string]interface{}
		if err := json.Unmarshal(payload, &decoded); err != nil {
			t.Fatalf("Payload is not valid JSON: %v", err)
		}
		if decoded["authenticated"] != true {
			t.Errorf("Unexpected payload: %v", decoded)
		}
	})

	t.Run("json args are forwarded", func(t *testing.T) {
		// Script echoes its second argument back, proving argv wiring
		worker := writeScript(t, dir, "worker-echo", `echo "$2"`)
		svc := newTestService(t, dir, worker)

		payload, err := svc.InvokeWorker(context.Background(), "init", `{"region":"AU"}`)
		if err != nil {
			t.Fatalf("InvokeWorker failed: %v", err)
		}
		if string(payload) != `{"region":"AU"}` {
			t.Errorf("Expected args echoed back, got: %s", payload)
		}
	})

	t.Run("nonzero exit surfaces stderr", func(t *testing.T) {
		worker := writeScript(t, dir, "worker-fail", `echo "credentials expired" >&2; exit 1`)
		svc := newTestService(t, dir, worker)

		_, err := svc.InvokeWorker(context.Background(), "check-auth", "")
		if err == nil {
			t.Fatal("Expected error for failing worker")
		}
		if !strings.Contains(err.Error(), "credentials expired") {
			t.Errorf("Expected stderr diagnostic, got: %v", err)
		}
	})

	t.Run("malformed output is rejected", func(t *testing.T) {
		worker := writeScript(t, dir, "worker-garbage", `echo 'not json'`)
		svc := newTestService(t, dir, worker)

		_, err := svc.InvokeWorker(context.Background(), "init", "")
		if err == nil || !strings.Contains(err.Error(), "malformed JSON") {
			t.Fatalf("Expected malformed JSON error, got: %v", err)
		}
	})

	t.Run("empty output is rejected", func(t *testing.T) {
		worker := writeScript(t, dir, "worker-silent", `exit 0`)
		svc := newTestService(t, dir, worker)

		_, err := svc.InvokeWorker(context.Background(), "init", "")
		if err == nil || !strings.Contains(err.Error(), "no output") {
			t.Fatalf("Expected no-output error, got: %v", err)
		}
	})

	t.Run("unconfigured worker is rejected", func(t *testing.T) {
		svc := newTestService(t, dir, "")

		_, err := svc.InvokeWorker(context.Background(), "init", "")
		if err == nil {
			t.Fatal("Expected error for unconfigured worker")
		}
	})
}
