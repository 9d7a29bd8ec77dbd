// Package export writes a result series to local files.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/couchcryptid/storm-flash-track/internal/domain"
)

// CSVHeader is the first row of every CSV export.
var CSVHeader = []string{"timestamp", "latitude", "longitude", "event_count"}

// Document is the JSON export layout.
type Document struct {
	Summary      domain.TrajectorySummary       `json:"summary"`
	Observations []domain.AggregatedObservation `json:"observations"`
	TotalEvents  int                            `json:"total_events"`
}

// WriteCSV writes one row per observation in series order.
func WriteCSV(w io.Writer, series domain.ResultSeries) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, o := range series.Observations {
		row := []string{
			o.Timestamp.UTC().Format(time.RFC3339),
			strconv.FormatFloat(o.Position.Lat, 'f', -1, 64),
			strconv.FormatFloat(o.Position.Lon, 'f', -1, 64),
			strconv.Itoa(o.EventCount),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes the run summary and series as an indented document.
func WriteJSON(w io.Writer, run domain.RunOutput) error {
	obs := run.Series.Observations
	if obs == nil {
		obs = []domain.AggregatedObservation{}
	}
	doc := Document{
		Summary:      run.Summary,
		Observations: obs,
		TotalEvents:  run.Series.TotalEvents(),
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// ReadJSON decodes a document written by WriteJSON.
func ReadJSON(r io.Reader) (Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return Document{}, fmt.Errorf("decode series document: %w", err)
	}
	return doc, nil
}

// FileLoader writes CSV and JSON exports after each run. An empty path
// disables that format.
type FileLoader struct {
	csvPath  string
	jsonPath string
	logger   *slog.Logger
}

// NewFileLoader creates a loader for the given paths.
func NewFileLoader(csvPath, jsonPath string, logger *slog.Logger) *FileLoader {
	return &FileLoader{csvPath: csvPath, jsonPath: jsonPath, logger: logger}
}

// LoadSeries implements pipeline.SeriesLoader.
func (l *FileLoader) LoadSeries(_ context.Context, run domain.RunOutput) error {
	if l.csvPath != "" {
		if err := writeFile(l.csvPath, func(w io.Writer) error { return WriteCSV(w, run.Series) }); err != nil {
			return fmt.Errorf("export csv: %w", err)
		}
		l.logger.Info("series exported", "format", "csv", "path", l.csvPath, "rows", run.Series.Len())
	}
	if l.jsonPath != "" {
		if err := writeFile(l.jsonPath, func(w io.Writer) error { return WriteJSON(w, run) }); err != nil {
			return fmt.Errorf("export json: %w", err)
		}
		l.logger.Info("series exported", "format", "json", "path", l.jsonPath, "rows", run.Series.Len())
	}
	return nil
}

// writeFile replaces path atomically with what fn writes.
func writeFile(path string, fn func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".export-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after a successful rename

	if err := fn(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
