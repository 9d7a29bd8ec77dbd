package glm

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/storm-flash-track/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDirCatalog_ListsScansInBeginOrder(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2021, time.May, 20, 0, 0, 0, 0, time.UTC)
	events := domain.EventCoordinates{Lats: []float64{30}, Lons: []float64{-55}}

	// Written out of order and split across hourly subdirectories.
	offsets := []time.Duration{40 * time.Second, 0, time.Hour, 20 * time.Second}
	for _, off := range offsets {
		begin := base.Add(off)
		sub := filepath.Join(dir, begin.Format("15"))
		require.NoError(t, os.MkdirAll(sub, 0o755))
		name := FormatFilename("GLM-L2-LCFA", "G16", begin, begin.Add(20*time.Second), begin.Add(22*time.Second))
		require.NoError(t, WriteScanFile(filepath.Join(sub, name), events))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".DS_Store"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("x"), 0o644))

	scans, err := NewDirCatalog(dir, discardLogger()).Scans(context.Background())
	require.NoError(t, err)
	require.Len(t, scans, 4)

	wantBegins := []time.Time{base, base.Add(20 * time.Second), base.Add(40 * time.Second), base.Add(time.Hour)}
	for i, s := range scans {
		assert.Equal(t, wantBegins[i], s.BeginTime)
		assert.Equal(t, 20*time.Second, s.Duration())
		assert.Equal(t, filepath.Base(s.Source), s.ID)
		assert.FileExists(t, s.Source)
	}
}

func TestDirCatalog_EmptyDirectory(t *testing.T) {
	scans, err := NewDirCatalog(t.TempDir(), discardLogger()).Scans(context.Background())
	require.NoError(t, err)
	assert.Empty(t, scans)
}

func TestDirCatalog_MissingDirectory(t *testing.T) {
	_, err := NewDirCatalog(filepath.Join(t.TempDir(), "nope"), discardLogger()).Scans(context.Background())
	require.Error(t, err)
}

func TestDirCatalog_CatalogFeedsReader(t *testing.T) {
	dir := t.TempDir()
	begin := time.Date(2021, time.May, 20, 0, 0, 0, 0, time.UTC)
	name := FormatFilename("GLM-L2-LCFA", "G16", begin, begin.Add(20*time.Second), begin.Add(22*time.Second))
	want := domain.EventCoordinates{Lats: []float64{30.5, 31}, Lons: []float64{-55, -56}}
	require.NoError(t, WriteScanFile(filepath.Join(dir, name), want))

	scans, err := NewDirCatalog(dir, discardLogger()).Scans(context.Background())
	require.NoError(t, err)
	require.Len(t, scans, 1)

	got, err := NewNetCDFReader().ReadEvents(context.Background(), scans[0])
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
