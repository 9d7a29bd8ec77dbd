package pipeline

import (
	"sort"

	"github.com/couchcryptid/storm-flash-track/internal/domain"
)

// Assemble orders observations by timestamp. The sort is stable and entries
// sharing a timestamp are kept as they are.
func Assemble(observations []domain.AggregatedObservation) domain.ResultSeries {
	ordered := make([]domain.AggregatedObservation, len(observations))
	copy(ordered, observations)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})
	return domain.ResultSeries{Observations: ordered}
}
