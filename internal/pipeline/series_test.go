package pipeline_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/couchcryptid/storm-flash-track/internal/domain"
	"github.com/couchcryptid/storm-flash-track/internal/pipeline"
)

func TestAssemble(t *testing.T) {
	t0 := anaStartTime
	obs := []domain.AggregatedObservation{
		{Timestamp: t0.Add(40 * time.Second), EventCount: 3},
		{Timestamp: t0, EventCount: 1},
		{Timestamp: t0.Add(20 * time.Second), EventCount: 7},
		{Timestamp: t0, EventCount: 2},
	}
	input := append([]domain.AggregatedObservation(nil), obs...)

	series := pipeline.Assemble(obs)

	counts := make([]int, 0, series.Len())
	for _, o := range series.Observations {
		counts = append(counts, o.EventCount)
	}
	// Duplicate timestamps are kept in input order.
	assert.Equal(t, []int{1, 2, 7, 3}, counts)
	assert.Equal(t, 13, series.TotalEvents())
	assert.Equal(t, input, obs, "input must not be reordered")
}

func TestAssemble_Empty(t *testing.T) {
	series := pipeline.Assemble(nil)
	assert.Equal(t, 0, series.Len())
	assert.Equal(t, 0, series.TotalEvents())
}
