package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrisentinel/agrisentinel/internal/modules/domains"
	"github.com/agrisentinel/agrisentinel/internal/modules/providers"
	testutil "github.com/agrisentinel/agrisentinel/internal/testing"
)

type recordingInvalidator struct {
	keys []string
}

func (r *recordingInvalidator) Invalidate(_ context.Context, domainKey, entityID string) error {
	r.keys = append(r.keys, domainKey+"/"+entityID)
	return nil
}

func newTestRouter(t *testing.T) (http.Handler, *recordingInvalidator) {
	t.Helper()
	log := zerolog.Nop()

	registry, err := domains.LoadDefault("")
	require.NoError(t, err)

	cache := &recordingInvalidator{}
	history := providers.NewHistoryRepository(testutil.NewMemoryDB(t, "history"), log)
	router := chi.NewRouter()
	NewHandler(history, registry, cache, log).RegisterRoutes(router)
	return router, cache
}

func do(router http.Handler, method, path string, body []byte) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(method, path, bytes.NewReader(body)))
	return rec
}

func TestSnapshotIngestion(t *testing.T) {
	router, _ := newTestRouter(t)
	path := "/api/history/credit/F1/snapshot"

	assert.Equal(t, http.StatusNotFound, do(router, http.MethodGet, path, nil).Code)

	body, err := json.Marshal(testutil.CreditSnapshotFixture())
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, do(router, http.MethodPut, path, body).Code)

	rec := do(router, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "borewell", got["irrigation"])

	assert.Equal(t, http.StatusBadRequest, do(router, http.MethodPut, path, []byte(`{}`)).Code)
	assert.Equal(t, http.StatusBadRequest, do(router, http.MethodPut, "/api/history/livestock/F1/snapshot", body).Code)
}

func TestSeriesIngestionInvalidatesCache(t *testing.T) {
	router, cache := newTestRouter(t)
	path := "/api/history/market_price/wheat/series"

	body, err := json.Marshal(map[string]interface{}{"points": testutil.FallingPriceSeriesFixture()})
	require.NoError(t, err)
	rec := do(router, http.MethodPost, path, body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []string{"market_price/wheat"}, cache.keys)

	rec = do(router, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 5, got.Count)

	assert.Equal(t, http.StatusBadRequest, do(router, http.MethodPost, path, []byte(`{"points":[]}`)).Code)
	assert.Len(t, cache.keys, 1)
}
