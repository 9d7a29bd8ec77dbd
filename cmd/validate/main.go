// Command validate checks a JSON series export for internal consistency and,
// when a scan directory is given, cross-checks it against the scan files the
// run was built from.
//
// Usage:
//
//	go run ./cmd/validate -json out/series.json -scan-dir data/mock
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/couchcryptid/storm-flash-track/internal/adapter/export"
	"github.com/couchcryptid/storm-flash-track/internal/adapter/glm"
	"github.com/couchcryptid/storm-flash-track/internal/domain"
	"github.com/couchcryptid/storm-flash-track/internal/pipeline"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	jsonPath := flag.String("json", "", "path to the JSON series export")
	scanDir := flag.String("scan-dir", "", "optional directory holding the scan files of the run")
	flag.Parse()

	if *jsonPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*jsonPath, *scanDir); code != 0 {
		os.Exit(code)
	}
}

func run(jsonPath, scanDir string) int {
	fmt.Println("=== Flash Series Validation ===")
	fmt.Println()

	doc, err := loadDocument(jsonPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load series: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateSeries(doc),
		validateSummary(doc),
	}

	if scanDir != "" {
		catalog := glm.NewDirCatalog(scanDir, slog.New(slog.NewTextHandler(io.Discard, nil)))
		scans, err := catalog.Scans(context.Background())
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: list scans: %v\n", err)
			return 1
		}
		phases = append(phases, validateAgainstScans(doc, scans))
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Observations: %d, total events: %d, trajectory samples: %d\n",
		len(doc.Observations), doc.TotalEvents, doc.Summary.SampleCount)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func loadDocument(path string) (export.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return export.Document{}, err
	}
	defer f.Close()
	return export.ReadJSON(f)
}

// ── Phase 1: Series ──
// Observations are time ordered with valid positions and counts.

func validateSeries(doc export.Document) *phase {
	p := &phase{name: "Phase 1: Series ordering and values"}

	total := 0
	for i, o := range doc.Observations {
		if i > 0 && o.Timestamp.Before(doc.Observations[i-1].Timestamp) {
			p.errorf("observation %d at %s precedes observation %d at %s",
				i, o.Timestamp.Format(time.RFC3339), i-1, doc.Observations[i-1].Timestamp.Format(time.RFC3339))
		}
		if o.EventCount < 0 {
			p.errorf("observation %d: negative event count %d", i, o.EventCount)
		}
		if err := o.Position.Validate(); err != nil {
			p.errorf("observation %d: %v", i, err)
		}
		total += o.EventCount
	}
	if total != doc.TotalEvents {
		p.errorf("total_events is %d but observations sum to %d", doc.TotalEvents, total)
	}
	return p
}

// ── Phase 2: Summary ──
// The trajectory summary is consistent with itself and the series.

func validateSummary(doc export.Document) *phase {
	p := &phase{name: "Phase 2: Trajectory summary"}
	s := doc.Summary

	if s.DistanceKm < 0 || s.SpeedKmh < 0 || s.CadenceKm < 0 {
		p.errorf("negative derived quantity: distance=%g speed=%g cadence=%g", s.DistanceKm, s.SpeedKmh, s.CadenceKm)
	}
	if s.CadenceKm > 0 && s.SampleCount != int(s.DistanceKm/s.CadenceKm) {
		p.errorf("sample_count %d does not match distance/cadence %g", s.SampleCount, s.DistanceKm/s.CadenceKm)
	}
	if len(doc.Observations) > s.SampleCount && !sharesTimestamps(doc.Observations) {
		p.errorf("%d observations exceed %d trajectory samples", len(doc.Observations), s.SampleCount)
	}
	return p
}

func sharesTimestamps(obs []domain.AggregatedObservation) bool {
	for i := 1; i < len(obs); i++ {
		if obs[i].Timestamp.Equal(obs[i-1].Timestamp) {
			return true
		}
	}
	return false
}

// ── Phase 3: Scan files ──
// Every observation is backed by a scan beginning at its timestamp.

func validateAgainstScans(doc export.Document, scans []domain.ScanRecord) *phase {
	p := &phase{name: "Phase 3: Observations match scan files"}

	samples := make([]domain.TrajectorySample, len(doc.Observations))
	for i, o := range doc.Observations {
		samples[i] = domain.TrajectorySample{Index: i, Position: o.Position, Timestamp: o.Timestamp}
	}
	_, stats := pipeline.Join(samples, scans)
	if stats.UnmatchedSamples > 0 {
		p.errorf("%d of %d observations have no scan file beginning at their timestamp",
			stats.UnmatchedSamples, len(doc.Observations))
	}
	return p
}
