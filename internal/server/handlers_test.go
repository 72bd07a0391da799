package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/roach88/cfrstat/internal/cfr"
	"github.com/roach88/cfrstat/internal/engine"
	"github.com/roach88/cfrstat/internal/metric"
	"github.com/roach88/cfrstat/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fileFetcher serves SampleXML from a temp directory.
type fileFetcher struct {
	dir string
	err error
}

func (f *fileFetcher) FetchTitleXML(_ context.Context, title int, date time.Time) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	path := filepath.Join(f.dir, cfr.FormatDate(date)+".xml")
	return path, os.WriteFile(path, []byte(testutil.SampleXML), 0o644)
}

func setupRouter(t *testing.T, fetcher Fetcher) *gin.Engine {
	t.Helper()
	s := testutil.OpenStore(t)
	_, err := s.ReplaceAgencies(context.Background(), testutil.SampleAgencies())
	require.NoError(t, err)

	e := engine.New(s, engine.WithRunIDs(testutil.NewSequentialRunIDs("run")))
	return NewRouter(NewHandlers(e, fetcher, nil), nil)
}

func do(t *testing.T, r http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHealth(t *testing.T) {
	r := setupRouter(t, nil)
	w := do(t, r, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCatalog(t *testing.T) {
	r := setupRouter(t, nil)
	w := do(t, r, http.MethodGet, "/v1/catalog", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var metrics []metric.Metric
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &metrics))
	require.Len(t, metrics, 5)
	assert.Equal(t, "word_count", metrics[0].Name)
	assert.Equal(t, "cross-references Average", metrics[2].DisplayName)
}

func TestIngestComputeRollup(t *testing.T) {
	r := setupRouter(t, &fileFetcher{dir: t.TempDir()})

	w := do(t, r, http.MethodPost, "/v1/ingest", IngestRequest{Title: 1, Date: "2024-01-01"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var ingest engine.IngestStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ingest))
	assert.Equal(t, 2, ingest.Written)

	w = do(t, r, http.MethodPost, "/v1/compute", ComputeRequest{Title: 1, Start: "2024-01-01", End: "2024-01-31"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var compute engine.ComputeStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &compute))
	assert.Equal(t, 10, compute.Written)

	w = do(t, r, http.MethodGet, "/v1/rollup?metric=word_count&level=part&start=2024-01-01&end=2024-01-01&agencies=AA", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var rows []cfr.RollupRow
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "agency-a", rows[0].AgencySlug)
	assert.Equal(t, "Part I", rows[0].LevelValue)
	assert.Equal(t, 5.0, rows[0].Value)

	w = do(t, r, http.MethodPost, "/v1/ingest", IngestRequest{Title: 1, Date: "2024-01-01", Reload: true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ingest))
	assert.Equal(t, 2, ingest.Cleared)
}

func TestRollup_Errors(t *testing.T) {
	r := setupRouter(t, nil)

	tests := []struct {
		name   string
		target string
		code   string
	}{
		{"missing params", "/v1/rollup?metric=word_count", "INVALID_REQUEST"},
		{"bad date", "/v1/rollup?metric=0&level=part&start=yesterday&end=2024-01-01&agencies=AA", "INVALID_DATE"},
		{"unknown agency", "/v1/rollup?metric=0&level=part&start=2024-01-01&end=2024-01-01&agencies=ZZZ", string(engine.ErrCodeUnknownAgency)},
		{"unknown metric", "/v1/rollup?metric=nope&level=part&start=2024-01-01&end=2024-01-01&agencies=AA", string(engine.ErrCodeUnknownMetric)},
		{"unknown level", "/v1/rollup?metric=0&level=clause&start=2024-01-01&end=2024-01-01&agencies=AA", string(engine.ErrCodeUnknownLevel)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, r, http.MethodGet, tt.target, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.code, decodeError(t, w).Code)
		})
	}
}

func TestCompute_InvalidBody(t *testing.T) {
	r := setupRouter(t, nil)

	w := do(t, r, http.MethodPost, "/v1/compute", map[string]any{"title": 0, "start": "2024-01-01", "end": "2024-01-01"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", decodeError(t, w).Code)

	w = do(t, r, http.MethodPost, "/v1/compute", ComputeRequest{Title: 1, Start: "2024-02-01", End: "2024-01-01"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(engine.ErrCodeInvalidRange), decodeError(t, w).Code)
}

func TestIngest_NoFetcher(t *testing.T) {
	r := setupRouter(t, nil)

	w := do(t, r, http.MethodPost, "/v1/ingest", IngestRequest{Title: 1, Date: "2024-01-01"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestIngest_FetchFailure(t *testing.T) {
	r := setupRouter(t, &fileFetcher{err: errors.New("GET title-1.xml: 404 Not Found")})

	w := do(t, r, http.MethodPost, "/v1/ingest", IngestRequest{Title: 1, Date: "2024-01-01"})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "FETCH_FAILED", decodeError(t, w).Code)
}

func TestIngest_TitleMismatch(t *testing.T) {
	r := setupRouter(t, &fileFetcher{dir: t.TempDir()})

	w := do(t, r, http.MethodPost, "/v1/ingest", IngestRequest{Title: 2, Date: "2024-01-01"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(engine.ErrCodeTitleMismatch), decodeError(t, w).Code)
}

func TestMetricsEndpoint(t *testing.T) {
	r := setupRouter(t, nil)

	w := do(t, r, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "cfrstat_rollup_duration_seconds")
}

func TestServe_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, "127.0.0.1:0", http.NotFoundHandler(), testLogger())
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}
