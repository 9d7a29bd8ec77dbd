// Package trajectory reconstructs a straight-line storm track between two
// fixes and samples it at a fixed cadence.
package trajectory

import (
	"fmt"
	"math"
	"time"

	"github.com/couchcryptid/storm-flash-track/internal/domain"
	"github.com/couchcryptid/storm-flash-track/internal/geodesy"
	"gonum.org/v1/gonum/floats"
)

// stage tracks how far the builder has progressed. Each operation requires
// the previous stage and resets everything derived after it.
type stage int

const (
	stageEmpty stage = iota
	stageEndpoints
	stageDistance
	stageSpeed
	stageCadence
	stageCount
	stagePositions
	stageTimestamps
)

var stageNames = map[stage]string{
	stageEmpty:      "empty",
	stageEndpoints:  "SetEndpoints",
	stageDistance:   "ComputeDistance",
	stageSpeed:      "ComputeAverageSpeed",
	stageCadence:    "ComputeCadenceDistance",
	stageCount:      "ComputeSampleCount",
	stagePositions:  "InterpolatePositions",
	stageTimestamps: "GenerateTimestamps",
}

// Builder derives the sample count, positions and timestamps of a storm
// track. Operations must be called in order; calling one before its
// predecessor fails with domain.ErrPreconditionNotMet.
//
// A Builder is not safe for concurrent use.
type Builder struct {
	stage stage

	start domain.GeoPoint
	end   domain.GeoPoint

	distanceKm     float64
	speedKmh       float64
	cadenceKm      float64
	cadenceSeconds int
	count          int
	positions      []domain.GeoPoint
	timestamps     []time.Time
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// SetEndpoints stores the two fixes and discards all derived state.
func (b *Builder) SetEndpoints(start, end domain.GeoPoint) error {
	if err := start.Validate(); err != nil {
		return fmt.Errorf("start fix: %w", err)
	}
	if err := end.Validate(); err != nil {
		return fmt.Errorf("end fix: %w", err)
	}
	*b = Builder{start: start, end: end}
	b.advance(stageEndpoints)
	return nil
}

// ComputeDistance measures the ellipsoidal distance between the fixes in km.
func (b *Builder) ComputeDistance() (float64, error) {
	if err := b.require(stageEndpoints); err != nil {
		return 0, err
	}
	d, err := geodesy.Distance(b.start, b.end)
	if err != nil {
		return 0, fmt.Errorf("compute distance: %w", err)
	}
	b.distanceKm = d
	b.advance(stageDistance)
	return d, nil
}

// ComputeAverageSpeed derives the storm speed in km/h from the time taken to
// travel between the fixes.
func (b *Builder) ComputeAverageSpeed(elapsedHours float64) (float64, error) {
	if err := b.require(stageDistance); err != nil {
		return 0, err
	}
	if !(elapsedHours > 0) || math.IsInf(elapsedHours, 1) {
		return 0, fmt.Errorf("%w: elapsed hours must be positive, got %v", domain.ErrInvalidDuration, elapsedHours)
	}
	b.speedKmh = b.distanceKm / elapsedHours
	b.advance(stageSpeed)
	return b.speedKmh, nil
}

// ComputeCadenceDistance derives the distance in km travelled during one
// sampling interval. A zero or non-finite speed fails with domain.ErrInvalidState.
func (b *Builder) ComputeCadenceDistance(cadenceSeconds int) (float64, error) {
	if err := b.require(stageSpeed); err != nil {
		return 0, err
	}
	if cadenceSeconds < 0 {
		return 0, fmt.Errorf("%w: cadence must not be negative, got %ds", domain.ErrInvalidDuration, cadenceSeconds)
	}
	if b.speedKmh == 0 || math.IsNaN(b.speedKmh) || math.IsInf(b.speedKmh, 0) {
		return 0, fmt.Errorf("%w: speed is %v km/h", domain.ErrInvalidState, b.speedKmh)
	}
	b.cadenceSeconds = cadenceSeconds
	b.cadenceKm = b.speedKmh * float64(cadenceSeconds) / 3600
	b.advance(stageCadence)
	return b.cadenceKm, nil
}

// ComputeSampleCount truncates distance / cadence distance toward zero.
func (b *Builder) ComputeSampleCount() (int, error) {
	if err := b.require(stageCadence); err != nil {
		return 0, err
	}
	if b.cadenceKm == 0 {
		return 0, fmt.Errorf("%w: cadence distance is zero", domain.ErrDivisionByZero)
	}
	ratio := b.distanceKm / b.cadenceKm
	if math.IsNaN(ratio) || math.IsInf(ratio, 0) || ratio > math.MaxInt32 {
		return 0, fmt.Errorf("%w: sample ratio %v", domain.ErrInvalidState, ratio)
	}
	n := int(ratio)
	if n < 0 {
		n = 0
	}
	b.count = n
	b.advance(stageCount)
	return n, nil
}

// InterpolatePositions spaces the sample positions evenly in latitude and
// longitude between the fixes. Both fixes are included when there are at
// least two samples; a single sample sits on the start fix.
func (b *Builder) InterpolatePositions() ([]domain.GeoPoint, error) {
	if err := b.require(stageCount); err != nil {
		return nil, err
	}
	positions := make([]domain.GeoPoint, b.count)
	switch b.count {
	case 0:
	case 1:
		positions[0] = b.start
	default:
		lats := floats.Span(make([]float64, b.count), b.start.Lat, b.end.Lat)
		lons := floats.Span(make([]float64, b.count), b.start.Lon, b.end.Lon)
		for i := range positions {
			positions[i] = domain.GeoPoint{Lat: lats[i], Lon: lons[i]}
		}
		// Span can miss the upper bound by an ulp.
		positions[b.count-1] = b.end
	}
	b.positions = positions
	b.advance(stagePositions)
	return clonePoints(positions), nil
}

// GenerateTimestamps produces one timestamp per sample: start, start+cadence,
// start+2*cadence and so on. The first timestamp is always exactly start.
func (b *Builder) GenerateTimestamps(start time.Time, cadenceSeconds int) ([]time.Time, error) {
	if err := b.require(stagePositions); err != nil {
		return nil, err
	}
	if cadenceSeconds <= 0 {
		return nil, fmt.Errorf("%w: cadence must be positive, got %ds", domain.ErrInvalidDuration, cadenceSeconds)
	}
	step := time.Duration(cadenceSeconds) * time.Second
	timestamps := make([]time.Time, b.count)
	for i := range timestamps {
		timestamps[i] = start.Add(time.Duration(i) * step)
	}
	b.timestamps = timestamps
	b.advance(stageTimestamps)
	return append([]time.Time(nil), timestamps...), nil
}

// Samples zips positions and timestamps into indexed trajectory samples.
func (b *Builder) Samples() ([]domain.TrajectorySample, error) {
	if err := b.require(stageTimestamps); err != nil {
		return nil, err
	}
	samples := make([]domain.TrajectorySample, b.count)
	for i := range samples {
		samples[i] = domain.TrajectorySample{
			Index:     i,
			Position:  b.positions[i],
			Timestamp: b.timestamps[i],
		}
	}
	return samples, nil
}

// Summary reports the derived quantities computed so far.
func (b *Builder) Summary() domain.TrajectorySummary {
	return domain.TrajectorySummary{
		DistanceKm:     b.distanceKm,
		SpeedKmh:       b.speedKmh,
		CadenceKm:      b.cadenceKm,
		SampleCount:    b.count,
		CadenceSeconds: b.cadenceSeconds,
	}
}

func (b *Builder) require(s stage) error {
	if b.stage < s {
		return fmt.Errorf("%w: %s must be called first (builder is at %s)",
			domain.ErrPreconditionNotMet, stageNames[s], stageNames[b.stage])
	}
	return nil
}

// advance moves to s and drops state derived by later stages.
func (b *Builder) advance(s stage) {
	if s < stageTimestamps {
		b.timestamps = nil
	}
	if s < stagePositions {
		b.positions = nil
	}
	if s < stageCount {
		b.count = 0
	}
	if s < stageCadence {
		b.cadenceKm, b.cadenceSeconds = 0, 0
	}
	if s < stageSpeed {
		b.speedKmh = 0
	}
	b.stage = s
}

func clonePoints(points []domain.GeoPoint) []domain.GeoPoint {
	return append([]domain.GeoPoint(nil), points...)
}
