package export

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/storm-flash-track/internal/domain"
)

func sampleRun() domain.RunOutput {
	t0 := time.Date(2021, time.May, 20, 0, 0, 0, 0, time.UTC)
	return domain.RunOutput{
		Summary: domain.TrajectorySummary{DistanceKm: 72.48, SpeedKmh: 24.16, CadenceKm: 0.1342, SampleCount: 540, CadenceSeconds: 20},
		Series: domain.ResultSeries{Observations: []domain.AggregatedObservation{
			{Timestamp: t0, Position: domain.GeoPoint{Lat: 30.3, Lon: -55.5}, EventCount: 12},
			{Timestamp: t0.Add(20 * time.Second), Position: domain.GeoPoint{Lat: 30.301, Lon: -55.499}, EventCount: 0},
		}},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleRun().Series))

	want := "timestamp,latitude,longitude,event_count\n" +
		"2021-05-20T00:00:00Z,30.3,-55.5,12\n" +
		"2021-05-20T00:00:20Z,30.301,-55.499,0\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteCSV_EmptySeries(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, domain.ResultSeries{}))
	assert.Equal(t, "timestamp,latitude,longitude,event_count\n", buf.String())
}

func TestWriteJSON_ReadBack(t *testing.T) {
	run := sampleRun()
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, run))

	doc, err := ReadJSON(&buf)
	require.NoError(t, err)
	assert.Equal(t, 12, doc.TotalEvents)
	assert.Equal(t, run.Summary, doc.Summary)
	if diff := cmp.Diff(run.Series.Observations, doc.Observations); diff != "" {
		t.Errorf("observations mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteJSON_EmptySeriesIsArray(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, domain.RunOutput{}))
	assert.Contains(t, buf.String(), `"observations": []`)
}

func TestFileLoader(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "out", "series.csv")
	jsonPath := filepath.Join(dir, "out", "series.json")
	loader := NewFileLoader(csvPath, jsonPath, slog.New(slog.NewTextHandler(io.Discard, nil)))

	require.NoError(t, loader.LoadSeries(context.Background(), sampleRun()))

	csvData, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.Contains(t, string(csvData), "2021-05-20T00:00:20Z,30.301,-55.499,0")

	f, err := os.Open(jsonPath)
	require.NoError(t, err)
	defer f.Close()
	doc, err := ReadJSON(f)
	require.NoError(t, err)
	assert.Len(t, doc.Observations, 2)

	// Only the two exports remain; temporary files are cleaned up.
	entries, err := os.ReadDir(filepath.Dir(csvPath))
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestFileLoader_Disabled(t *testing.T) {
	loader := NewFileLoader("", "", slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, loader.LoadSeries(context.Background(), sampleRun()))
}
