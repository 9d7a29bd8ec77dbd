package trajectory

import (
	"github.com/couchcryptid/storm-flash-track/internal/domain"
)

// Build runs every builder operation in order and returns the samples along
// with the derived summary. The first error aborts the build.
func Build(b *Builder, params domain.TrajectoryParams) ([]domain.TrajectorySample, domain.TrajectorySummary, error) {
	cadence := params.CadenceSeconds
	if cadence == 0 {
		cadence = domain.DefaultCadenceSeconds
	}

	if err := b.SetEndpoints(params.Start, params.End); err != nil {
		return nil, domain.TrajectorySummary{}, err
	}
	if _, err := b.ComputeDistance(); err != nil {
		return nil, b.Summary(), err
	}
	if _, err := b.ComputeAverageSpeed(params.ElapsedHours); err != nil {
		return nil, b.Summary(), err
	}
	if _, err := b.ComputeCadenceDistance(cadence); err != nil {
		return nil, b.Summary(), err
	}
	if _, err := b.ComputeSampleCount(); err != nil {
		return nil, b.Summary(), err
	}
	if _, err := b.InterpolatePositions(); err != nil {
		return nil, b.Summary(), err
	}
	if _, err := b.GenerateTimestamps(params.StartTime, cadence); err != nil {
		return nil, b.Summary(), err
	}

	samples, err := b.Samples()
	if err != nil {
		return nil, b.Summary(), err
	}
	return samples, b.Summary(), nil
}
