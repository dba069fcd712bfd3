package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/errors"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/health"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/recordstore"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/scheduler"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/service"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/storage"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/testutil"
)

type testServer struct {
	handler http.Handler
	store   *recordstore.MemoryStore
	backend *storage.MemoryBackend
}

func newTestServer(t *testing.T, opts *ServerOptions) *testServer {
	t.Helper()
	store := testutil.NewClinicFixture(t).WithPatients(4).WithAppointments(1).MustBuild()
	backend := storage.NewMemoryBackend("primary")

	svc, err := service.New(service.Deps{
		Store:    store,
		Writer:   storage.NewMultiWriter(storage.Location{Name: "primary", Backend: backend}),
		Liveness: health.NewChecker(health.NewStoreProber(store), 0),
		Schedule: scheduler.Config{StateDir: t.TempDir()},
		Clock:    testutil.NewStubClock(testutil.ReferenceTime),
		IDs:      testutil.NewStubIDGenerator("b"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })

	srv := NewServer(svc, ":0", opts)
	return &testServer{handler: srv.Handler(), store: store, backend: backend}
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	var out map[string]interface{}
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") && strings.HasPrefix(rec.Body.String(), "{") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

// triggerBackup runs a manual backup and returns the primary file path.
func (ts *testServer) triggerBackup(t *testing.T) string {
	t.Helper()
	rec, body := ts.do(t, http.MethodPost, "/api/backup", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "COMPLETE", body["status"])
	return body["backup"].(map[string]interface{})["filePath"].(string)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, nil)
	rec, body := ts.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])

	down := newTestServer(t, &ServerOptions{Health: health.ProberFunc(func(context.Context) error {
		return apperrors.ErrConnectivity
	})})
	rec, body = down.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "degraded", body["status"])
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.triggerBackup(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "clinicguard_")
}

func TestTriggerBackup(t *testing.T) {
	ts := newTestServer(t, nil)
	rec, body := ts.do(t, http.MethodPost, "/api/backup", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "COMPLETE", body["status"])
	b := body["backup"].(map[string]interface{})
	assert.Equal(t, "b-0001", b["id"])
	assert.True(t, strings.HasPrefix(b["filePath"].(string), "primary:manual-backup-"))
	assert.Greater(t, b["size"].(float64), float64(0))
}

func TestTriggerBackup_StoreDownIsStillHandled(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.store.SetDown(true)

	rec, body := ts.do(t, http.MethodPost, "/api/backup", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "FALLBACK_MODE", body["status"])
	assert.Equal(t, true, body["warning"])
	assert.Equal(t, float64(0), body["totalRecords"])
	assert.Nil(t, body["backup"])
}

func TestTriggerBackup_AllLocationsFail(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.backend.FailPuts(errors.New("disk full"))

	rec, body := ts.do(t, http.MethodPost, "/api/backup", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "EMERGENCY_FALLBACK", body["status"])
	assert.Contains(t, body["error"], "disk full")
	require.Len(t, body["failedLocations"], 1)
}

func TestListBackups(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.triggerBackup(t)

	rec, body := ts.do(t, http.MethodGet, "/api/backup", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	backups := body["backups"].([]interface{})
	require.Len(t, backups, 1)
	first := backups[0].(map[string]interface{})
	assert.Equal(t, "manual", first["type"])
	assert.Equal(t, strings.TrimSuffix(first["filename"].(string), ".json"), first["id"])
	assert.NotEmpty(t, first["createdAt"])
}

func TestScheduler(t *testing.T) {
	ts := newTestServer(t, nil)

	rec, body := ts.do(t, http.MethodGet, "/api/backup/scheduler", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	status := body["status"].(map[string]interface{})
	assert.Equal(t, false, status["isRunning"])
	assert.Nil(t, status["lastBackupTime"])
	assert.Nil(t, status["nextBackupIn"])

	rec, body = ts.do(t, http.MethodPost, "/api/backup/scheduler", SchedulerControlBody{Action: "start"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Scheduler started", body["message"])
	status = body["status"].(map[string]interface{})
	assert.Equal(t, true, status["isRunning"])
	assert.NotEmpty(t, status["nextBackupIn"])

	rec, body = ts.do(t, http.MethodPost, "/api/backup/scheduler", SchedulerControlBody{Action: "force"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "COMPLETE", body["backup"].(map[string]interface{})["status"])
	assert.NotNil(t, body["status"].(map[string]interface{})["lastBackupTime"])

	rec, body = ts.do(t, http.MethodPost, "/api/backup/scheduler", SchedulerControlBody{Action: "stop"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, body["status"].(map[string]interface{})["isRunning"])
}

func TestScheduler_BadRequests(t *testing.T) {
	ts := newTestServer(t, nil)
	tests := []struct {
		name    string
		body    interface{}
		wantErr string
	}{
		{"empty body", nil, "request body required"},
		{"malformed", "{", "invalid request body"},
		{"missing action", map[string]string{}, "action is required"},
		{"unknown action", SchedulerControlBody{Action: "reboot"}, "action must be one of: start, stop, force"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := ts.do(t, http.MethodPost, "/api/backup/scheduler", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.wantErr, body["error"])
		})
	}
}

func TestRecoveryList(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/recovery", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	path := ts.triggerBackup(t)
	rec = httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/recovery", nil))
	var entries []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, path, entries[0]["path"])
	for _, field := range []string{"filename", "size", "created", "modified", "directory"} {
		assert.Contains(t, entries[0], field)
	}
}

func TestValidate(t *testing.T) {
	ts := newTestServer(t, nil)
	path := ts.triggerBackup(t)
	require.NoError(t, ts.backend.Put(context.Background(), "manual-backup-20240101-000000-deadbeef.json", []byte("{not json")))

	tests := []struct {
		name     string
		path     string
		wantCode int
	}{
		{"valid", path, http.StatusOK},
		{"missing", "primary:manual-backup-20200101-000000-00000000.json", http.StatusNotFound},
		{"outside locations", "/etc/passwd", http.StatusNotFound},
		{"corrupted", "primary:manual-backup-20240101-000000-deadbeef.json", http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := ts.do(t, http.MethodPost, "/api/recovery/validate", BackupPathBody{BackupPath: tt.path})
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantCode == http.StatusOK, body["success"])
			assert.NotEmpty(t, body["message"])
			if tt.wantCode == http.StatusOK {
				data := body["data"].(map[string]interface{})
				assert.Greater(t, data["totalRecords"].(float64), float64(0))
				counts := data["perCollectionCounts"].(map[string]interface{})
				assert.Equal(t, float64(4), counts[recordstore.Patients])
			} else {
				assert.Nil(t, body["data"])
			}
		})
	}

	rec, body := ts.do(t, http.MethodPost, "/api/recovery/validate", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "backupPath is required", body["error"])
}

func TestRestore(t *testing.T) {
	ts := newTestServer(t, nil)
	path := ts.triggerBackup(t)

	// lose every patient, then restore them
	ts.store.Seed(recordstore.Patients)
	require.Zero(t, ts.store.Count(recordstore.Patients))

	rec, body := ts.do(t, http.MethodPost, "/api/recovery/restore", RestoreBody{
		BackupPath: path,
		Include:    []string{recordstore.Patients},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, body["success"])
	recovered := body["recovered"].(map[string]interface{})
	assert.Equal(t, float64(4), recovered[recordstore.Patients])
	assert.True(t, strings.HasPrefix(body["preRecoveryBackup"].(string), "primary:pre-recovery-backup-"))
	assert.Equal(t, 4, ts.store.Count(recordstore.Patients))
}

func TestRestore_Rejections(t *testing.T) {
	ts := newTestServer(t, nil)
	path := ts.triggerBackup(t)

	rec, body := ts.do(t, http.MethodPost, "/api/recovery/restore", RestoreBody{BackupPath: "primary:absent.json"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, false, body["success"])

	rec, body = ts.do(t, http.MethodPost, "/api/recovery/restore", RestoreBody{BackupPath: path, Include: []string{"invoices"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body["error"], "unknown collection")

	// a failed pre-recovery backup aborts before any write
	ts.backend.FailPuts(errors.New("disk full"))
	ts.store.Seed(recordstore.Patients)
	rec, body = ts.do(t, http.MethodPost, "/api/recovery/restore", RestoreBody{BackupPath: path})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, false, body["success"])
	assert.Zero(t, ts.store.Count(recordstore.Patients))
}

func TestIntegrityAuditAndHistory(t *testing.T) {
	ts := newTestServer(t, nil)

	for i := 0; i < 3; i++ {
		rec, body := ts.do(t, http.MethodPost, "/api/integrity/audit", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		report := body["report"].(map[string]interface{})
		assert.NotEmpty(t, report["id"])
		assert.Contains(t, []interface{}{"PASSED", "WARNING"}, report["status"])
	}

	rec, body := ts.do(t, http.MethodGet, "/api/integrity/history?limit=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["reports"], 2)

	rec, body = ts.do(t, http.MethodGet, "/api/integrity/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["reports"], 3)

	rec, _ = ts.do(t, http.MethodGet, "/api/integrity/history?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIntegrityHistory_Empty(t *testing.T) {
	ts := newTestServer(t, nil)
	rec, body := ts.do(t, http.MethodGet, "/api/integrity/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []interface{}{}, body["reports"])
}

func TestCORS(t *testing.T) {
	ts := newTestServer(t, &ServerOptions{CORSOrigins: []string{"https://clinic.example"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/backup", nil)
	req.Header.Set("Origin", "https://clinic.example")
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://clinic.example", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/api/backup", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMounts(t *testing.T) {
	ts := newTestServer(t, &ServerOptions{Mounts: []Mount{{
		Path: "/rpc/",
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}),
	}}})
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/rpc/x", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}
