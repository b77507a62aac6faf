package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/agrisentinel/agrisentinel/internal/config"
	"github.com/agrisentinel/agrisentinel/internal/di"
)

func newTestServer(t *testing.T) (*Server, *di.Container) {
	t.Helper()

	cfg := &config.Config{
		DataDir:          t.TempDir(),
		StubSeed:         1,
		HistoryRetention: 365 * 24 * time.Hour,
		Schedules: config.ScheduleConfig{
			Sweep:       "@every 1h",
			Archive:     "@daily",
			Maintenance: "0 2 * * *",
			Prune:       "0 3 * * *",
		},
	}
	container, jobs, err := di.Wire(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { container.Close(zerolog.Nop()) })

	s := New(Config{
		Log:       zerolog.Nop(),
		Container: container,
		Jobs:      jobs,
		DataDir:   cfg.DataDir,
		DevMode:   true,
	})
	return s, container
}

func serve(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(method, path, &buf))
	return rec
}

func TestServer_Health(t *testing.T) {
	s, _ := newTestServer(t)

	rec := serve(t, s, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Status    string            `json:"status"`
		Databases map[string]string `json:"databases"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, map[string]string{"engine": "ok", "history": "ok"}, body.Databases)
}

func TestServer_HealthReportsClosedDatabase(t *testing.T) {
	s, container := newTestServer(t)
	require.NoError(t, container.HistoryDB.Close())

	rec := serve(t, s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "unhealthy")
}

func TestServer_EvaluationShowsUpInMetrics(t *testing.T) {
	s, _ := newTestServer(t)

	rec := serve(t, s, http.MethodPost, "/api/evaluations/market_price/wheat", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = serve(t, s, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `agrisentinel_evaluations_total{domain="market_price",outcome="completed"} 1`)
}

func TestServer_ModuleRoutesAreMounted(t *testing.T) {
	s, _ := newTestServer(t)

	rec := serve(t, s, http.MethodGet, "/api/domains/credit", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(t, s, http.MethodPost, "/api/loans/applications", map[string]interface{}{
		"farmer_id":     "farmer-1",
		"amount":        "50000",
		"tenure_months": 12,
		"purpose":       "seeds",
	})
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = serve(t, s, http.MethodGet, "/api/claims/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(t, s, http.MethodPost, "/api/history/market_price/wheat/series", map[string]interface{}{
		"points": []map[string]interface{}{
			{"timestamp": "2026-03-01T00:00:00Z", "value": 100},
			{"timestamp": "2026-03-02T00:00:00Z", "value": 101},
		},
	})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = serve(t, s, http.MethodGet, "/api/history/market_price/wheat/series", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":2`)
}

func TestServer_SystemStatusAndJobs(t *testing.T) {
	s, _ := newTestServer(t)

	rec := serve(t, s, http.MethodGet, "/api/system/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var status StatusResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&status))
	require.Len(t, status.Databases, 2)
	assert.Equal(t, "engine", status.Databases[0].Name)
	assert.Equal(t, "ledger", status.Databases[0].Profile)
	assert.Contains(t, status.Domains, "credit")
	assert.Equal(t, []string{"check_wal_checkpoints", "daily_maintenance", "prune_history", "sweep_expired_evaluations"}, status.Jobs)

	rec = serve(t, s, http.MethodPost, "/api/system/jobs/check_wal_checkpoints/run", nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"status":"completed"`)

	rec = serve(t, s, http.MethodPost, "/api/system/jobs/no_such_job/run", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_EventStream(t *testing.T) {
	s, _ := newTestServer(t)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/events/ws?types=EVALUATION_COMPLETED"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	var msg map[string]interface{}
	require.NoError(t, wsjson.Read(ctx, conn, &msg))
	assert.Equal(t, "connected", msg["type"])

	resp, err := http.Post(srv.URL+"/api/evaluations/market_price/wheat", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	require.NoError(t, wsjson.Read(ctx, conn, &msg))
	assert.Equal(t, "EVALUATION_COMPLETED", msg["type"])
	assert.Equal(t, "evaluation", msg["module"])
}
