package domain

import (
	"context"
	"fmt"
	"time"
)

// Latitude and longitude limits in degrees.
const (
	MaxLatitude  = 90.0
	MaxLongitude = 180.0
)

// BoxHalfSizeDeg is the half-width and half-height of the counting box
// centered on a trajectory sample. It is in degrees on both axes and is not
// scaled by latitude.
const BoxHalfSizeDeg = 1.0

// DefaultCadenceSeconds is the trajectory sampling interval, matching the
// 20-second GLM scan files.
const DefaultCadenceSeconds = 20

// GeoPoint represents a WGS-84 latitude/longitude coordinate pair in degrees.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// NewGeoPoint returns a point after checking both coordinates are in range.
func NewGeoPoint(lat, lon float64) (GeoPoint, error) {
	p := GeoPoint{Lat: lat, Lon: lon}
	if err := p.Validate(); err != nil {
		return GeoPoint{}, err
	}
	return p, nil
}

// Validate reports ErrInvalidCoordinate for NaN or out-of-range values.
func (p GeoPoint) Validate() error {
	if p.Lat != p.Lat || p.Lat < -MaxLatitude || p.Lat > MaxLatitude {
		return fmt.Errorf("%w: latitude %v outside [-90, 90]", ErrInvalidCoordinate, p.Lat)
	}
	if p.Lon != p.Lon || p.Lon < -MaxLongitude || p.Lon > MaxLongitude {
		return fmt.Errorf("%w: longitude %v outside [-180, 180]", ErrInvalidCoordinate, p.Lon)
	}
	return nil
}

func (p GeoPoint) String() string {
	return fmt.Sprintf("(%.4f, %.4f)", p.Lat, p.Lon)
}

// TrajectorySample is one interpolated storm position. Samples are produced
// only by the trajectory builder with contiguous indexes starting at 0.
type TrajectorySample struct {
	Index     int       `json:"index"`
	Position  GeoPoint  `json:"position"`
	Timestamp time.Time `json:"timestamp"`
}

// TrajectoryParams are the inputs of one pipeline run.
type TrajectoryParams struct {
	Start          GeoPoint
	End            GeoPoint
	ElapsedHours   float64
	CadenceSeconds int
	StartTime      time.Time
}

// TrajectorySummary records the derived quantities of a built trajectory.
type TrajectorySummary struct {
	DistanceKm     float64 `json:"distance_km"`
	SpeedKmh       float64 `json:"speed_kmh"`
	CadenceKm      float64 `json:"cadence_km"`
	SampleCount    int     `json:"sample_count"`
	CadenceSeconds int     `json:"cadence_seconds"`
}

// ScanRecord describes one externally supplied scan. It is read-only to the
// core; event coordinates are fetched through an EventReader using Source.
type ScanRecord struct {
	ID        string
	Source    string
	Created   time.Time
	BeginTime time.Time
	EndTime   time.Time
}

// Duration is the time covered by the scan.
func (s ScanRecord) Duration() time.Duration {
	return s.EndTime.Sub(s.BeginTime)
}

// EventCoordinates holds a scan's flash latitudes and longitudes. The two
// slices are independent and may differ in length.
type EventCoordinates struct {
	Lats []float64
	Lons []float64
}

// EventReader loads the event coordinate arrays of a scan.
type EventReader interface {
	ReadEvents(ctx context.Context, scan ScanRecord) (EventCoordinates, error)
}

// JoinedPair is a trajectory sample matched to a scan starting at the same instant.
type JoinedPair struct {
	Sample TrajectorySample
	Scan   ScanRecord
}

// AggregatedObservation is the event count near the storm at one sample time.
type AggregatedObservation struct {
	Timestamp  time.Time `json:"timestamp"`
	Position   GeoPoint  `json:"position"`
	EventCount int       `json:"event_count"`
}

// ResultSeries is the time-ordered output of a run. Observations sharing a
// timestamp are kept as separate entries.
type ResultSeries struct {
	Observations []AggregatedObservation `json:"observations"`
}

// Len returns the number of observations.
func (s ResultSeries) Len() int { return len(s.Observations) }

// TotalEvents sums the event counts of all observations.
func (s ResultSeries) TotalEvents() int {
	total := 0
	for _, o := range s.Observations {
		total += o.EventCount
	}
	return total
}

// CountMode selects how events inside the box are tallied.
type CountMode string

const (
	// CountCrossProduct multiplies the number of in-range latitude values by
	// the number of in-range longitude values.
	CountCrossProduct CountMode = "cross"
	// CountPaired counts index-aligned (lat, lon) events that both fall in the box.
	CountPaired CountMode = "paired"
)

// ParseCountMode validates a count mode name.
func ParseCountMode(s string) (CountMode, error) {
	switch CountMode(s) {
	case CountCrossProduct, CountPaired:
		return CountMode(s), nil
	default:
		return "", fmt.Errorf("unknown count mode %q", s)
	}
}

// RunOutput is what a completed run hands to its sinks.
type RunOutput struct {
	Summary TrajectorySummary
	Samples []TrajectorySample
	Series  ResultSeries
}
