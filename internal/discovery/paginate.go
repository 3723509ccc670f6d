package discovery

import (
	"cmp"
	"slices"

	"venuehub/internal/domain/venues"
	"venuehub/internal/geo"
	"venuehub/internal/params"
)

// filterByRating keeps ids whose average rating reaches threshold, preserving
// order. Venues without reviews rate 0.
func filterByRating(ids []int64, averages map[int64]float64, threshold float64) []int64 {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if averages[id] >= threshold {
			out = append(out, id)
		}
	}
	return out
}

// pageOf slices one page out of a fully filtered, ordered id set.
func pageOf(ids []int64, p params.Pagination) []int64 {
	start, end := p.Window(len(ids))
	return ids[start:end]
}

type hit struct {
	id int64
	km float64
}

// rankByDistance keeps candidates within radiusKm of center, nearest first.
// Equal distances are ordered by id.
func rankByDistance(center geo.Point, candidates []venues.Located, radiusKm float64) []hit {
	hits := make([]hit, 0, len(candidates))
	for _, c := range candidates {
		if km, ok := geo.Within(center, geo.Point{Lat: c.Latitude, Lng: c.Longitude}, radiusKm); ok {
			hits = append(hits, hit{id: c.ID, km: km})
		}
	}
	slices.SortFunc(hits, func(a, b hit) int {
		if c := cmp.Compare(a.km, b.km); c != 0 {
			return c
		}
		return cmp.Compare(a.id, b.id)
	})
	return hits
}
