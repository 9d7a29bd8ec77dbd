package http_test

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/couchcryptid/storm-flash-track/internal/adapter/http"
	"github.com/couchcryptid/storm-flash-track/internal/domain"
	"github.com/couchcryptid/storm-flash-track/internal/pipeline"
)

type mockService struct {
	readyErr error
	last     *pipeline.Result
	runErr   error
	runs     []domain.TrajectoryParams
}

func (m *mockService) CheckReadiness(_ context.Context) error { return m.readyErr }

func (m *mockService) Run(_ context.Context, params domain.TrajectoryParams) (*pipeline.Result, error) {
	m.runs = append(m.runs, params)
	if m.runErr != nil {
		return m.last, m.runErr
	}
	return m.last, nil
}

func (m *mockService) Last() (*pipeline.Result, bool) {
	return m.last, m.last != nil
}

var testParams = domain.TrajectoryParams{
	Start:        domain.GeoPoint{Lat: 30.3, Lon: -55.5},
	End:          domain.GeoPoint{Lat: 30.86, Lon: -55.11},
	ElapsedHours: 3,
	StartTime:    time.Date(2021, time.May, 20, 0, 0, 0, 0, time.UTC),
}

func testResult() *pipeline.Result {
	t0 := testParams.StartTime
	return &pipeline.Result{
		RunID:   "run-1",
		Summary: domain.TrajectorySummary{DistanceKm: 72.48, SampleCount: 540},
		Series: domain.ResultSeries{Observations: []domain.AggregatedObservation{
			{Timestamp: t0, Position: testParams.Start, EventCount: 4},
			{Timestamp: t0.Add(20 * time.Second), Position: domain.GeoPoint{Lat: 30.301, Lon: -55.499}, EventCount: 0},
		}},
	}
}

func newTestServer(svc *mockService) *httpadapter.Server {
	return httpadapter.NewServer(":0", svc, testParams, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func serve(srv *httpadapter.Server, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestHealthzReturns200(t *testing.T) {
	rec := serve(newTestServer(&mockService{}), http.MethodGet, "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec := serve(newTestServer(&mockService{}), http.MethodGet, "/readyz")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	rec := serve(newTestServer(&mockService{readyErr: fmt.Errorf("not ready yet")}), http.MethodGet, "/readyz")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "not ready yet", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	rec := serve(newTestServer(&mockService{}), http.MethodGet, "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestSeries(t *testing.T) {
	t.Run("404 before first run", func(t *testing.T) {
		rec := serve(newTestServer(&mockService{}), http.MethodGet, "/series")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("returns last result", func(t *testing.T) {
		rec := serve(newTestServer(&mockService{last: testResult()}), http.MethodGet, "/series")
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			RunID   string                   `json:"run_id"`
			Summary domain.TrajectorySummary `json:"summary"`
			Series  domain.ResultSeries      `json:"series"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "run-1", body.RunID)
		assert.Equal(t, 540, body.Summary.SampleCount)
		require.Len(t, body.Series.Observations, 2)
		assert.Equal(t, 4, body.Series.Observations[0].EventCount)
		assert.True(t, testParams.StartTime.Equal(body.Series.Observations[0].Timestamp))
	})
}

func TestSeriesCSV(t *testing.T) {
	rec := serve(newTestServer(&mockService{last: testResult()}), http.MethodGet, "/series.csv")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))

	rows, err := csv.NewReader(strings.NewReader(rec.Body.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"2021-05-20T00:00:00Z", "30.3", "-55.5", "4"}, rows[1])
}

func TestRun(t *testing.T) {
	t.Run("runs with configured params", func(t *testing.T) {
		svc := &mockService{last: testResult()}
		rec := serve(newTestServer(svc), http.MethodPost, "/runs")

		assert.Equal(t, http.StatusCreated, rec.Code)
		require.Len(t, svc.runs, 1)
		assert.Equal(t, testParams, svc.runs[0])
	})

	t.Run("reports run errors", func(t *testing.T) {
		svc := &mockService{last: testResult(), runErr: errors.New("load series: disk full")}
		rec := serve(newTestServer(svc), http.MethodPost, "/runs")

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "load series: disk full", body["error"])
		assert.Equal(t, "run-1", body["run_id"])
	})

	t.Run("rate limited per client", func(t *testing.T) {
		svc := &mockService{last: testResult()}
		srv := newTestServer(svc)

		for range 2 {
			assert.Equal(t, http.StatusCreated, serve(srv, http.MethodPost, "/runs").Code)
		}
		assert.Equal(t, http.StatusTooManyRequests, serve(srv, http.MethodPost, "/runs").Code)
		assert.Len(t, svc.runs, 2)
	})

	t.Run("GET not allowed", func(t *testing.T) {
		rec := serve(newTestServer(&mockService{}), http.MethodGet, "/runs")
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}
