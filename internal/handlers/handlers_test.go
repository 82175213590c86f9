package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/flutter-gis/earthbridge/internal/bridge"
	"github.com/flutter-gis/earthbridge/internal/common"
	"github.com/flutter-gis/earthbridge/internal/interfaces"
	"github.com/flutter-gis/earthbridge/internal/models"
)

// Stub services backing a real bridge; handler tests exercise the full
// handler -> bridge -> service path.

type stubSupervisor struct {
	startResult models.CommandResult
	status      models.SupervisorStatus
}

func (s *stubSupervisor) Start(context.Context, string) models.CommandResult {
	return s.startResult
}
func (s *stubSupervisor) Cancel(context.Context) models.CommandResult {
	return models.CancelledResult("job job_1 cancelled")
}
func (s *stubSupervisor) Status() models.SupervisorStatus { return s.status }

type stubProgress struct{ snapshot *models.ProgressSnapshot }

func (s *stubProgress) Read(context.Context) (*models.ProgressSnapshot, error) {
	return s.snapshot, nil
}

type stubTailer struct{ lines []string }

func (s *stubTailer) LatestLogPath() (string, error) { return "/logs/x.log", nil }

func (s *stubTailer) Tail(string, int) ([]string, error) { return s.lines, nil }

func (s *stubTailer) TailLatest(int) ([]string, error) { return s.lines, nil }

type stubExchanger struct{}

func (s *stubExchanger) Exchange(context.Context, interface{}, string, []string) models.CommandResult {
	return models.SuccessResult("exchanged", nil)
}
func (s *stubExchanger) InvokeWorker(context.Context, string, string) (json.RawMessage, error) {
	return json.RawMessage(`{"ok":true}`), nil
}

type stubRunStorage struct {
	lastOpts *interfaces.RunListOptions
}

func (s *stubRunStorage) SaveRun(context.Context, *models.JobRun) error { return nil }

func (s *stubRunStorage) GetRun(context.Context, string) (*models.JobRun, error) { return nil, nil }

func (s *stubRunStorage) CountRuns(context.Context) (int, error) { return 0, nil }

func (s *stubRunStorage) DeleteRun(context.Context, string) error { return nil }
func (s *stubRunStorage) ListRuns(_ context.Context, opts *interfaces.RunListOptions) ([]*models.JobRun, error) {
	s.lastOpts = opts
	return []*models.JobRun{{JobID: "job_1", Status: models.RunCompleted}}, nil
}

func newTestBridge() (*bridge.Bridge, *stubRunStorage) {
	storage := &stubRunStorage{}
	b := bridge.New(
		&stubSupervisor{
			startResult: models.StartedResult("job job_1 started (pid 9)"),
			status:      models.SupervisorStatus{State: models.SupervisorIdle},
		},
		&stubProgress{snapshot: &models.ProgressSnapshot{Status: models.ProgressRunning, Progress: 55}},
		&stubTailer{lines: []string{"l1", "l2", "l3"}},
		&stubExchanger{},
		storage,
		arbor.NewLogger(),
	)
	return b, storage
}

func decodeResult(t *testing.T, rec *httptest.ResponseRecorder) models.CommandResult {
	t.Helper()
	var result models.CommandResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	return result
}

func TestCommandHandler_Execute(t *testing.T) {
	b, _ := newTestBridge()
	h := NewCommandHandler(b, arbor.NewLogger())

	t.Run("dispatches named command", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/command", strings.NewReader(`{"command":"job-status"}`))
		rec := httptest.NewRecorder()

		h.ExecuteHandler(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		result := decodeResult(t, rec)
		assert.Equal(t, models.ResultSuccess, result.Status)
	})

	t.Run("command failure still returns HTTP 200", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/command", strings.NewReader(`{"command":"no-such-command"}`))
		rec := httptest.NewRecorder()

		h.ExecuteHandler(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		result := decodeResult(t, rec)
		assert.Equal(t, models.ResultError, result.Status)
		assert.Contains(t, result.Message, "unknown command")
	})

	t.Run("malformed body is a transport error", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/command", strings.NewReader(`{not json`))
		rec := httptest.NewRecorder()

		h.ExecuteHandler(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing command name rejected", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/command", strings.NewReader(`{"args":{}}`))
		rec := httptest.NewRecorder()

		h.ExecuteHandler(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("wrong method rejected", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/command", nil)
		rec := httptest.NewRecorder()

		h.ExecuteHandler(rec, req)

		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

func TestCommandHandler_ListCommands(t *testing.T) {
	b, _ := newTestBridge()
	h := NewCommandHandler(b, arbor.NewLogger())

	req := httptest.NewRequest("GET", "/api/commands", nil)
	rec := httptest.NewRecorder()

	h.ListCommandsHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string][]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body["commands"], "start-job")
	assert.Contains(t, body["commands"], "get-progress")
}

func TestJobHandler(t *testing.T) {
	b, storage := newTestBridge()
	h := NewJobHandler(b, arbor.NewLogger())

	t.Run("start passes body through", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/jobs/start", strings.NewReader(`{"params":{"region":"AU"}}`))
		rec := httptest.NewRecorder()

		h.StartJobHandler(rec, req)

		result := decodeResult(t, rec)
		assert.Equal(t, models.ResultStarted, result.Status)
	})

	t.Run("start with empty body", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/jobs/start", nil)
		rec := httptest.NewRecorder()

		h.StartJobHandler(rec, req)

		result := decodeResult(t, rec)
		assert.Equal(t, models.ResultStarted, result.Status)
	})

	t.Run("start with invalid JSON body rejected", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/jobs/start", strings.NewReader(`{broken`))
		rec := httptest.NewRecorder()

		h.StartJobHandler(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("cancel", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/jobs/cancel", nil)
		rec := httptest.NewRecorder()

		h.CancelJobHandler(rec, req)

		result := decodeResult(t, rec)
		assert.Equal(t, models.ResultCancelled, result.Status)
	})

	t.Run("status", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/jobs/status", nil)
		rec := httptest.NewRecorder()

		h.StatusHandler(rec, req)

		result := decodeResult(t, rec)
		assert.Equal(t, models.ResultSuccess, result.Status)
		assert.Equal(t, string(models.SupervisorIdle), result.Message)
	})

	t.Run("list runs maps query params", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/jobs/runs?status=completed&limit=5&offset=2", nil)
		rec := httptest.NewRecorder()

		h.ListRunsHandler(rec, req)

		result := decodeResult(t, rec)
		require.Equal(t, models.ResultSuccess, result.Status)
		require.NotNil(t, storage.lastOpts)
		assert.Equal(t, models.RunCompleted, storage.lastOpts.Status)
		assert.Equal(t, 5, storage.lastOpts.Limit)
		assert.Equal(t, 2, storage.lastOpts.Offset)
	})

	t.Run("list runs rejects bad status filter", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/jobs/runs?status=bogus", nil)
		rec := httptest.NewRecorder()

		h.ListRunsHandler(rec, req)

		result := decodeResult(t, rec)
		assert.Equal(t, models.ResultError, result.Status)
	})
}

func TestProgressHandler(t *testing.T) {
	b, _ := newTestBridge()
	h := NewProgressHandler(b, arbor.NewLogger())

	req := httptest.NewRequest("GET", "/api/progress", nil)
	rec := httptest.NewRecorder()

	h.GetProgressHandler(rec, req)

	result := decodeResult(t, rec)
	require.Equal(t, models.ResultSuccess, result.Status)

	payload, ok := result.Payload.(map[string]interface{})
	require.True(t, ok, "expected snapshot payload")
	assert.Equal(t, "running", payload["status"])
	assert.Equal(t, 55.0, payload["progress"])
}

func TestLogsHandler(t *testing.T) {
	b, _ := newTestBridge()
	h := NewLogsHandler(b, arbor.NewLogger())

	req := httptest.NewRequest("GET", "/api/logs/tail?lines=3", nil)
	rec := httptest.NewRecorder()

	h.TailLogHandler(rec, req)

	result := decodeResult(t, rec)
	require.Equal(t, models.ResultSuccess, result.Status)

	payload, ok := result.Payload.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 3.0, payload["count"])
}

func TestExchangeHandler(t *testing.T) {
	b, _ := newTestBridge()
	h := NewExchangeHandler(b, arbor.NewLogger())

	t.Run("exchange", func(t *testing.T) {
		body := `{"payload":{"tiles":[1]},"command":"tile-export"}`
		req := httptest.NewRequest("POST", "/api/exchange", strings.NewReader(body))
		rec := httptest.NewRecorder()

		h.ExchangeDataHandler(rec, req)

		result := decodeResult(t, rec)
		assert.Equal(t, models.ResultSuccess, result.Status)
	})

	t.Run("exchange with empty body rejected", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/exchange", nil)
		rec := httptest.NewRecorder()

		h.ExchangeDataHandler(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("backend init", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/backend/init", nil)
		rec := httptest.NewRecorder()

		h.InitBackendHandler(rec, req)

		result := decodeResult(t, rec)
		assert.Equal(t, models.ResultSuccess, result.Status)
	})

	t.Run("auth check", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/backend/auth", nil)
		rec := httptest.NewRecorder()

		h.CheckAuthHandler(rec, req)

		result := decodeResult(t, rec)
		assert.Equal(t, models.ResultSuccess, result.Status)
	})
}

func TestConfigHandler(t *testing.T) {
	cfg := common.NewDefaultConfig()
	h := NewConfigHandler(cfg, arbor.NewLogger())

	req := httptest.NewRequest("GET", "/api/config", nil)
	rec := httptest.NewRecorder()

	h.GetConfigHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "development", body["environment"])

	// Only client-relevant settings leak out
	assert.NotContains(t, body, "worker")
	assert.NotContains(t, body, "storage")
}
