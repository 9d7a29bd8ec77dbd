package pipeline

import (
	"sort"

	"github.com/couchcryptid/storm-flash-track/internal/domain"
)

// JoinStats reports how many entries on each side found a partner.
type JoinStats struct {
	Matched          int `json:"matched"`
	UnmatchedScans   int `json:"unmatched_scans"`
	UnmatchedSamples int `json:"unmatched_samples"`
}

// Join pairs every scan with the sample whose timestamp equals the scan begin
// time exactly. There is no tolerance window: a scan starting one nanosecond
// off a sample tick is dropped. Unmatched scans and samples are dropped
// silently and only counted in JoinStats.
//
// The result is ordered by sample index; scans sharing a begin time keep
// their catalog order.
func Join(samples []domain.TrajectorySample, scans []domain.ScanRecord) ([]domain.JoinedPair, JoinStats) {
	byTime := make(map[int64]int, len(samples))
	for i, s := range samples {
		key := s.Timestamp.UnixNano()
		// Builder samples never share a timestamp, but callers such as
		// cmd/validate build samples themselves. The first one wins.
		if _, dup := byTime[key]; !dup {
			byTime[key] = i
		}
	}

	pairs := make([]domain.JoinedPair, 0, min(len(samples), len(scans)))
	matchedSamples := make(map[int]struct{}, len(samples))
	var stats JoinStats

	for _, scan := range scans {
		i, ok := byTime[scan.BeginTime.UnixNano()]
		if !ok {
			stats.UnmatchedScans++
			continue
		}
		pairs = append(pairs, domain.JoinedPair{Sample: samples[i], Scan: scan})
		matchedSamples[i] = struct{}{}
	}

	sort.SliceStable(pairs, func(a, b int) bool {
		return pairs[a].Sample.Index < pairs[b].Sample.Index
	})

	stats.Matched = len(pairs)
	stats.UnmatchedSamples = len(samples) - len(matchedSamples)
	return pairs, stats
}
