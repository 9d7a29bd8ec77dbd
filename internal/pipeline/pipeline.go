package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/couchcryptid/storm-flash-track/internal/domain"
	"github.com/couchcryptid/storm-flash-track/internal/observability"
	"github.com/couchcryptid/storm-flash-track/internal/trajectory"
)

// ScanCatalog lists the scans available for a run.
type ScanCatalog interface {
	Scans(ctx context.Context) ([]domain.ScanRecord, error)
}

// ScanFetcher makes the scans covering a trajectory available to the catalog,
// for example by downloading them.
type ScanFetcher interface {
	Prepare(ctx context.Context, samples []domain.TrajectorySample) error
}

// SeriesLoader receives the output of every completed run.
type SeriesLoader interface {
	LoadSeries(ctx context.Context, run domain.RunOutput) error
}

// Result describes one completed run.
type Result struct {
	RunID       string                    `json:"run_id"`
	Summary     domain.TrajectorySummary  `json:"summary"`
	Samples     []domain.TrajectorySample `json:"-"`
	ScansListed int                       `json:"scans_listed"`
	Join        JoinStats                 `json:"join"`
	Aggregate   AggregateStats            `json:"aggregate"`
	Series      domain.ResultSeries       `json:"series"`
	StartedAt   time.Time                 `json:"started_at"`
	CompletedAt time.Time                 `json:"completed_at"`
}

// Output returns what the run hands to its loaders.
func (r *Result) Output() domain.RunOutput {
	return domain.RunOutput{Summary: r.Summary, Samples: r.Samples, Series: r.Series}
}

// Pipeline composes the trajectory builder, scan catalog, join, aggregator
// and loaders into a single run. Runs are serialized; each builds its own
// trajectory so nothing leaks between runs.
type Pipeline struct {
	catalog    ScanCatalog
	fetcher    ScanFetcher
	aggregator *Aggregator
	loaders    []SeriesLoader
	logger     *slog.Logger
	metrics    *observability.Metrics

	mu    sync.Mutex
	ready atomic.Bool
	last  atomic.Pointer[Result]
}

// New creates a Pipeline. fetcher may be nil when scans are already local.
func New(catalog ScanCatalog, fetcher ScanFetcher, aggregator *Aggregator, loaders []SeriesLoader, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		catalog:    catalog,
		fetcher:    fetcher,
		aggregator: aggregator,
		loaders:    loaders,
		logger:     logger,
		metrics:    metrics,
	}
}

// CheckReadiness returns nil once a run has completed.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not completed a run yet")
	}
	return nil
}

// Last returns the most recent completed run.
func (p *Pipeline) Last() (*Result, bool) {
	r := p.last.Load()
	return r, r != nil
}

// Run executes one pass: build the trajectory, optionally fetch scans, list
// the catalog, join, aggregate, assemble the series and hand it to every
// loader. Trajectory, catalog and fetch errors abort the run. Loader errors
// are collected and returned after all loaders were tried; the result is
// still recorded.
func (p *Pipeline) Run(ctx context.Context, params domain.TrajectoryParams) (*Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	runID := uuid.NewString()
	logger := p.logger.With("run_id", runID)
	start := domain.Now()

	result, err := p.run(ctx, logger, params)
	if err != nil {
		p.metrics.RunsTotal.WithLabelValues("error").Inc()
		logger.Error("pipeline run failed", "error", err)
		return nil, err
	}
	result.RunID = runID
	result.StartedAt = start
	result.CompletedAt = domain.Now()
	p.metrics.RunDuration.Observe(result.CompletedAt.Sub(start).Seconds())

	var loadErrs []error
	out := result.Output()
	for _, l := range p.loaders {
		if err := l.LoadSeries(ctx, out); err != nil {
			logger.Error("load series failed", "error", err)
			loadErrs = append(loadErrs, err)
		}
	}

	p.last.Store(result)
	p.ready.Store(true)

	if err := errors.Join(loadErrs...); err != nil {
		p.metrics.RunsTotal.WithLabelValues("error").Inc()
		return result, fmt.Errorf("load series: %w", err)
	}
	p.metrics.RunsTotal.WithLabelValues("success").Inc()

	logger.Info("pipeline run complete",
		"observations", result.Series.Len(),
		"total_events", result.Series.TotalEvents(),
		"skipped", result.Aggregate.Skipped,
		"duration", result.CompletedAt.Sub(start),
	)
	return result, nil
}

func (p *Pipeline) run(ctx context.Context, logger *slog.Logger, params domain.TrajectoryParams) (*Result, error) {
	samples, summary, err := trajectory.Build(trajectory.NewBuilder(), params)
	if err != nil {
		return nil, fmt.Errorf("build trajectory: %w", err)
	}
	p.metrics.TrajectorySamples.Set(float64(len(samples)))
	logger.Info("trajectory built",
		"start", params.Start.String(),
		"end", params.End.String(),
		"distance_km", summary.DistanceKm,
		"speed_kmh", summary.SpeedKmh,
		"cadence_km", summary.CadenceKm,
		"samples", summary.SampleCount,
	)

	if p.fetcher != nil {
		if err := p.fetcher.Prepare(ctx, samples); err != nil {
			return nil, fmt.Errorf("fetch scans: %w", err)
		}
	}

	scans, err := p.catalog.Scans(ctx)
	if err != nil {
		return nil, fmt.Errorf("list scans: %w", err)
	}
	p.metrics.ScansListed.Set(float64(len(scans)))

	pairs, joinStats := Join(samples, scans)
	p.metrics.JoinResults.WithLabelValues("matched").Add(float64(joinStats.Matched))
	p.metrics.JoinResults.WithLabelValues("unmatched_scan").Add(float64(joinStats.UnmatchedScans))
	p.metrics.JoinResults.WithLabelValues("unmatched_sample").Add(float64(joinStats.UnmatchedSamples))
	logger.Info("samples joined to scans",
		"scans", len(scans),
		"matched", joinStats.Matched,
		"unmatched_scans", joinStats.UnmatchedScans,
		"unmatched_samples", joinStats.UnmatchedSamples,
	)

	observations, aggStats, err := p.aggregator.Aggregate(ctx, pairs)
	if err != nil {
		return nil, fmt.Errorf("aggregate: %w", err)
	}

	return &Result{
		Summary:     summary,
		Samples:     samples,
		ScansListed: len(scans),
		Join:        joinStats,
		Aggregate:   aggStats,
		Series:      Assemble(observations),
	}, nil
}
