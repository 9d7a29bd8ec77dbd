package pipeline

import (
	"github.com/couchcryptid/storm-flash-track/internal/domain"
)

// Box is an inclusive latitude/longitude window.
type Box struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
}

// BoxAround returns the fixed ±domain.BoxHalfSizeDeg window centred on p.
func BoxAround(p domain.GeoPoint) Box {
	return Box{
		MinLat: p.Lat - domain.BoxHalfSizeDeg,
		MaxLat: p.Lat + domain.BoxHalfSizeDeg,
		MinLon: p.Lon - domain.BoxHalfSizeDeg,
		MaxLon: p.Lon + domain.BoxHalfSizeDeg,
	}
}

func (b Box) containsLat(lat float64) bool { return lat >= b.MinLat && lat <= b.MaxLat }
func (b Box) containsLon(lon float64) bool { return lon >= b.MinLon && lon <= b.MaxLon }

// CountEvents tallies the events of a scan inside box using mode.
//
// CountCrossProduct treats the latitude and longitude arrays as independent:
// every in-range latitude is combined with every in-range longitude, so the
// tally is |lats in box| * |lons in box|.
//
// CountPaired counts index-aligned (lat, lon) events that both fall inside
// the box. Indexes past the shorter array are ignored.
func CountEvents(events domain.EventCoordinates, box Box, mode domain.CountMode) int {
	if mode == domain.CountPaired {
		n := min(len(events.Lats), len(events.Lons))
		count := 0
		for i := range n {
			if box.containsLat(events.Lats[i]) && box.containsLon(events.Lons[i]) {
				count++
			}
		}
		return count
	}

	lats := 0
	for _, lat := range events.Lats {
		if box.containsLat(lat) {
			lats++
		}
	}
	lons := 0
	for _, lon := range events.Lons {
		if box.containsLon(lon) {
			lons++
		}
	}
	return lats * lons
}
