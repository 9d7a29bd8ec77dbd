package trajectory

import (
	"math"
	"testing"
	"time"

	"github.com/couchcryptid/storm-flash-track/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	anaStart     = domain.GeoPoint{Lat: 30.30, Lon: -55.50}
	anaEnd       = domain.GeoPoint{Lat: 30.86, Lon: -55.11}
	anaStartTime = time.Date(2021, time.May, 20, 0, 0, 0, 0, time.UTC)
)

func anaParams() domain.TrajectoryParams {
	return domain.TrajectoryParams{
		Start:          anaStart,
		End:            anaEnd,
		ElapsedHours:   3,
		CadenceSeconds: 20,
		StartTime:      anaStartTime,
	}
}

func TestBuild_HurricaneAna(t *testing.T) {
	samples, summary, err := Build(NewBuilder(), anaParams())
	require.NoError(t, err)

	assert.InDelta(t, 72.48, summary.DistanceKm, 0.01)
	assert.InDelta(t, 24.16, summary.SpeedKmh, 0.01)
	assert.InDelta(t, 0.1342, summary.CadenceKm, 0.0001)

	// distance / (distance/3 * 20/3600) is 540 on paper; float error may
	// leave the ratio just under 540 and truncation then yields 539.
	want := int(summary.DistanceKm / summary.CadenceKm)
	assert.Equal(t, want, summary.SampleCount)
	assert.GreaterOrEqual(t, summary.SampleCount, 539)
	assert.LessOrEqual(t, summary.SampleCount, 540)

	require.Len(t, samples, summary.SampleCount)
	assert.Equal(t, anaStartTime, samples[0].Timestamp)
	assert.Equal(t, anaStartTime.Add(20*time.Second), samples[1].Timestamp)
	assert.Equal(t, anaStart, samples[0].Position)
	assert.Equal(t, anaEnd, samples[len(samples)-1].Position)
}

func TestBuilder_SampleCountTruncates(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.SetEndpoints(anaStart, anaEnd))
	d, err := b.ComputeDistance()
	require.NoError(t, err)
	speed, err := b.ComputeAverageSpeed(1)
	require.NoError(t, err)
	tick, err := b.ComputeCadenceDistance(7)
	require.NoError(t, err)
	assert.InDelta(t, speed*7/3600, tick, 1e-12)

	n, err := b.ComputeSampleCount()
	require.NoError(t, err)
	assert.Equal(t, int(math.Floor(d/tick)), n)
	// 3600/7 = 514.28..., never rounded up.
	assert.Equal(t, 514, n)
}

func TestBuilder_InterpolatePositions(t *testing.T) {
	b := builderAtCount(t, 0.25, 19) // 47 samples
	points, err := b.InterpolatePositions()
	require.NoError(t, err)
	require.Len(t, points, 47)

	assert.Equal(t, anaStart, points[0])
	assert.Equal(t, anaEnd, points[46])

	latStep := (anaEnd.Lat - anaStart.Lat) / 46
	lonStep := (anaEnd.Lon - anaStart.Lon) / 46
	for i := 1; i < len(points); i++ {
		assert.InDelta(t, latStep, points[i].Lat-points[i-1].Lat, 1e-9)
		assert.InDelta(t, lonStep, points[i].Lon-points[i-1].Lon, 1e-9)
	}
}

func TestBuilder_InterpolateSinglePoint(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.SetEndpoints(anaStart, anaEnd))
	_, err := b.ComputeDistance()
	require.NoError(t, err)
	// A cadence long enough that only one tick fits.
	_, err = b.ComputeAverageSpeed(1)
	require.NoError(t, err)
	_, err = b.ComputeCadenceDistance(3599)
	require.NoError(t, err)
	n, err := b.ComputeSampleCount()
	require.NoError(t, err)
	require.Equal(t, 1, n)

	points, err := b.InterpolatePositions()
	require.NoError(t, err)
	assert.Equal(t, []domain.GeoPoint{anaStart}, points)
}

func TestBuilder_GenerateTimestamps(t *testing.T) {
	b := builderAtCount(t, 0.25, 19)
	_, err := b.InterpolatePositions()
	require.NoError(t, err)

	stamps, err := b.GenerateTimestamps(anaStartTime, 20)
	require.NoError(t, err)
	require.Len(t, stamps, 47)

	assert.Equal(t, anaStartTime, stamps[0])
	for i := 1; i < len(stamps); i++ {
		assert.Equal(t, 20*time.Second, stamps[i].Sub(stamps[i-1]))
	}

	samples, err := b.Samples()
	require.NoError(t, err)
	for i, s := range samples {
		assert.Equal(t, i, s.Index)
	}
}

func TestBuilder_ZeroSamples(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.SetEndpoints(anaStart, anaEnd))
	_, err := b.ComputeDistance()
	require.NoError(t, err)
	_, err = b.ComputeAverageSpeed(1)
	require.NoError(t, err)
	// One tick longer than the whole trip.
	_, err = b.ComputeCadenceDistance(7200)
	require.NoError(t, err)
	n, err := b.ComputeSampleCount()
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	points, err := b.InterpolatePositions()
	require.NoError(t, err)
	assert.Empty(t, points)

	stamps, err := b.GenerateTimestamps(anaStartTime, 7200)
	require.NoError(t, err)
	assert.Empty(t, stamps)
}

func TestBuilder_Errors(t *testing.T) {
	t.Run("invalid coordinate", func(t *testing.T) {
		err := NewBuilder().SetEndpoints(domain.GeoPoint{Lat: 95}, anaEnd)
		require.ErrorIs(t, err, domain.ErrInvalidCoordinate)
	})

	t.Run("zero elapsed hours", func(t *testing.T) {
		b := NewBuilder()
		require.NoError(t, b.SetEndpoints(anaStart, anaEnd))
		_, err := b.ComputeDistance()
		require.NoError(t, err)
		_, err = b.ComputeAverageSpeed(0)
		require.ErrorIs(t, err, domain.ErrInvalidDuration)
	})

	t.Run("negative elapsed hours", func(t *testing.T) {
		b := NewBuilder()
		require.NoError(t, b.SetEndpoints(anaStart, anaEnd))
		_, err := b.ComputeDistance()
		require.NoError(t, err)
		_, err = b.ComputeAverageSpeed(-2)
		require.ErrorIs(t, err, domain.ErrInvalidDuration)
	})

	t.Run("zero speed", func(t *testing.T) {
		b := NewBuilder()
		require.NoError(t, b.SetEndpoints(anaStart, anaStart))
		_, err := b.ComputeDistance()
		require.NoError(t, err)
		speed, err := b.ComputeAverageSpeed(3)
		require.NoError(t, err)
		assert.Zero(t, speed)
		_, err = b.ComputeCadenceDistance(20)
		require.ErrorIs(t, err, domain.ErrInvalidState)
	})

	t.Run("zero cadence distance", func(t *testing.T) {
		b := NewBuilder()
		require.NoError(t, b.SetEndpoints(anaStart, anaEnd))
		_, err := b.ComputeDistance()
		require.NoError(t, err)
		_, err = b.ComputeAverageSpeed(3)
		require.NoError(t, err)
		_, err = b.ComputeCadenceDistance(0)
		require.NoError(t, err)
		_, err = b.ComputeSampleCount()
		require.ErrorIs(t, err, domain.ErrDivisionByZero)
		require.ErrorIs(t, err, domain.ErrInvalidState)
	})

	t.Run("timestamp cadence must be positive", func(t *testing.T) {
		b := builderAtCount(t, 0.25, 19)
		_, err := b.InterpolatePositions()
		require.NoError(t, err)
		_, err = b.GenerateTimestamps(anaStartTime, 0)
		require.ErrorIs(t, err, domain.ErrInvalidDuration)
	})
}

func TestBuilder_OutOfOrder(t *testing.T) {
	cases := []struct {
		name string
		call func(b *Builder) error
	}{
		{"distance before endpoints", func(b *Builder) error { _, err := b.ComputeDistance(); return err }},
		{"speed before distance", func(b *Builder) error { _, err := b.ComputeAverageSpeed(3); return err }},
		{"cadence before speed", func(b *Builder) error { _, err := b.ComputeCadenceDistance(20); return err }},
		{"count before cadence", func(b *Builder) error { _, err := b.ComputeSampleCount(); return err }},
		{"interpolate before count", func(b *Builder) error { _, err := b.InterpolatePositions(); return err }},
		{"timestamps before interpolate", func(b *Builder) error { _, err := b.GenerateTimestamps(anaStartTime, 20); return err }},
		{"samples before timestamps", func(b *Builder) error { _, err := b.Samples(); return err }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.call(NewBuilder())
			require.ErrorIs(t, err, domain.ErrPreconditionNotMet)
		})
	}
}

func TestBuilder_RecomputeInvalidatesLaterStages(t *testing.T) {
	b := builderAtCount(t, 0.25, 19)
	_, err := b.InterpolatePositions()
	require.NoError(t, err)

	// Recomputing the speed must force the caller through the later steps again.
	_, err = b.ComputeAverageSpeed(0.5)
	require.NoError(t, err)
	_, err = b.InterpolatePositions()
	require.ErrorIs(t, err, domain.ErrPreconditionNotMet)
	assert.Zero(t, b.Summary().SampleCount)
}

func TestBuild_Deterministic(t *testing.T) {
	first, _, err := Build(NewBuilder(), anaParams())
	require.NoError(t, err)
	second, _, err := Build(NewBuilder(), anaParams())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestBuild_DefaultsCadence(t *testing.T) {
	p := anaParams()
	p.CadenceSeconds = 0
	_, summary, err := Build(NewBuilder(), p)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultCadenceSeconds, summary.CadenceSeconds)
}

// builderAtCount returns a builder over the Ana fixes advanced through
// ComputeSampleCount. With elapsedHours=0.25 and a 19s cadence the ratio is
// 900/19 = 47.37, well clear of a whole number.
func builderAtCount(t *testing.T, elapsedHours float64, cadence int) *Builder {
	t.Helper()
	b := NewBuilder()
	require.NoError(t, b.SetEndpoints(anaStart, anaEnd))
	_, err := b.ComputeDistance()
	require.NoError(t, err)
	_, err = b.ComputeAverageSpeed(elapsedHours)
	require.NoError(t, err)
	_, err = b.ComputeCadenceDistance(cadence)
	require.NoError(t, err)
	n, err := b.ComputeSampleCount()
	require.NoError(t, err)
	require.Equal(t, 47, n)
	return b
}
