package s3

import (
	"fmt"
	"time"

	"github.com/couchcryptid/storm-flash-track/internal/domain"
)

// Prefixes returns one object key prefix per UTC hour touched by the samples,
// in time order and without duplicates. Each prefix is
// <product>/<year>/<day-of-year>/<hour>/ using that hour's own year and day,
// so a track crossing midnight or New Year yields the correct directories.
func Prefixes(samples []domain.TrajectorySample, product string) []string {
	seen := make(map[string]struct{})
	var prefixes []string
	var last time.Time

	for i, s := range samples {
		hour := s.Timestamp.UTC().Truncate(time.Hour)
		if i > 0 && hour.Equal(last) {
			continue
		}
		last = hour
		p := hourPrefix(product, hour)
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		prefixes = append(prefixes, p)
	}
	return prefixes
}

func hourPrefix(product string, hour time.Time) string {
	return fmt.Sprintf("%s/%04d/%03d/%02d/", product, hour.Year(), hour.YearDay(), hour.Hour())
}
