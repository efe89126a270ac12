// Package geo holds the straight-line distance helpers used by merchant discovery.
package geo

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"
)

const earthRadiusKm = 6371.0

// DistanceKm returns the great-circle (haversine) distance between two
// coordinates in kilometres, rounded half-up to 2 decimals. Range checks are
// the caller's job.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := degreesToRadians(lat2 - lat1)
	dLon := degreesToRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(degreesToRadians(lat1))*math.Cos(degreesToRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	// Rounding can push a just outside [0,1] near antipodes.
	a = math.Min(1, math.Max(0, a))

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	km, _ := decimal.NewFromFloat(earthRadiusKm * c).Round(2).Float64()
	return km
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// Hit pairs an item with its distance from the search origin.
type Hit[T any] struct {
	Item       T
	DistanceKm float64
}

// Within keeps the items no further than radiusKm from (lat, lon) and sorts
// them nearest first. Equal distances keep their input order.
func Within[T any](items []T, lat, lon, radiusKm float64, coords func(T) (float64, float64)) []Hit[T] {
	hits := make([]Hit[T], 0, len(items))
	for _, it := range items {
		ilat, ilon := coords(it)
		d := DistanceKm(lat, lon, ilat, ilon)
		if d <= radiusKm {
			hits = append(hits, Hit[T]{Item: it, DistanceKm: d})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].DistanceKm < hits[j].DistanceKm
	})
	return hits
}
