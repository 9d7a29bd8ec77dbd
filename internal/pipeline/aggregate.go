package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/couchcryptid/storm-flash-track/internal/domain"
	"github.com/couchcryptid/storm-flash-track/internal/observability"
)

// PairFailure records a pair skipped because its scan could not be read.
type PairFailure struct {
	ScanID    string `json:"scan_id"`
	Timestamp string `json:"timestamp"`
	Error     string `json:"error"`
}

// AggregateStats reports the outcome of one aggregation batch.
type AggregateStats struct {
	Processed int           `json:"processed"`
	Skipped   int           `json:"skipped"`
	Failures  []PairFailure `json:"failures,omitempty"`
}

// aggregateJob is a unit of work for the worker pool.
type aggregateJob struct {
	index int
	pair  domain.JoinedPair
}

// aggregateResult is the outcome of counting one pair.
type aggregateResult struct {
	index       int
	observation domain.AggregatedObservation
	err         error
}

// Aggregator counts scan events around each joined sample using a fixed
// number of workers. Output order follows the input pairs regardless of
// which worker finishes first.
type Aggregator struct {
	reader  domain.EventReader
	mode    domain.CountMode
	workers int
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewAggregator creates an Aggregator. workers below 1 are treated as 1.
func NewAggregator(reader domain.EventReader, mode domain.CountMode, workers int, logger *slog.Logger, metrics *observability.Metrics) *Aggregator {
	if workers < 1 {
		workers = 1
	}
	if mode == "" {
		mode = domain.CountCrossProduct
	}
	return &Aggregator{
		reader:  reader,
		mode:    mode,
		workers: workers,
		logger:  logger,
		metrics: metrics,
	}
}

// Aggregate emits one observation per readable pair. A pair whose scan fails
// to load is skipped and reported in AggregateStats; the batch continues.
// The only error returned is context cancellation.
func (a *Aggregator) Aggregate(ctx context.Context, pairs []domain.JoinedPair) ([]domain.AggregatedObservation, AggregateStats, error) {
	if len(pairs) == 0 {
		return nil, AggregateStats{}, ctx.Err()
	}

	jobs := make(chan aggregateJob, a.workers*2)
	results := make(chan aggregateResult, a.workers*2)

	var wg sync.WaitGroup
	for range a.workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				result := a.aggregateOne(ctx, job)
				select {
				case results <- result:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i, pair := range pairs {
			select {
			case jobs <- aggregateJob{index: i, pair: pair}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	slots := make([]*domain.AggregatedObservation, len(pairs))
	var stats AggregateStats
	var failures []aggregateResult

	for result := range results {
		if result.err != nil {
			failures = append(failures, result)
			continue
		}
		obs := result.observation
		slots[result.index] = &obs
	}

	if err := ctx.Err(); err != nil {
		return nil, stats, err
	}

	// Report failures in pair order so logs and stats are reproducible.
	failed := make([]error, len(pairs))
	for _, f := range failures {
		failed[f.index] = f.err
	}
	for i, err := range failed {
		if err == nil {
			continue
		}
		pair := pairs[i]
		stats.Skipped++
		stats.Failures = append(stats.Failures, PairFailure{
			ScanID:    pair.Scan.ID,
			Timestamp: pair.Sample.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z"),
			Error:     err.Error(),
		})
		a.logger.Warn("scan data unavailable, skipping pair",
			"scan_id", pair.Scan.ID,
			"sample_index", pair.Sample.Index,
			"error", err,
		)
		a.metrics.PairsSkipped.Inc()
	}

	observations := make([]domain.AggregatedObservation, 0, len(pairs)-stats.Skipped)
	for _, obs := range slots {
		if obs != nil {
			observations = append(observations, *obs)
		}
	}
	stats.Processed = len(observations)
	a.metrics.PairsAggregated.Add(float64(stats.Processed))

	return observations, stats, nil
}

func (a *Aggregator) aggregateOne(ctx context.Context, job aggregateJob) aggregateResult {
	events, err := a.reader.ReadEvents(ctx, job.pair.Scan)
	if err != nil {
		return aggregateResult{
			index: job.index,
			err:   fmt.Errorf("scan %s: %w: %w", job.pair.Scan.ID, domain.ErrDataUnavailable, err),
		}
	}

	sample := job.pair.Sample
	count := CountEvents(events, BoxAround(sample.Position), a.mode)
	a.metrics.EventsCounted.Observe(float64(count))

	return aggregateResult{
		index: job.index,
		observation: domain.AggregatedObservation{
			Timestamp:  sample.Timestamp,
			Position:   sample.Position,
			EventCount: count,
		},
	}
}
