package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceKm_SamePoint(t *testing.T) {
	assert.Equal(t, 0.0, DistanceKm(48.8566, 2.3522, 48.8566, 2.3522))
}

func TestDistanceKm_OneKilometre(t *testing.T) {
	// 1 km north of Paris centre is 1/111.195 degrees of latitude.
	d := DistanceKm(48.8566, 2.3522, 48.8566+1/111.195, 2.3522)
	assert.InDelta(t, 1.00, d, 0.01)
}

func TestDistanceKm_ParisLyon(t *testing.T) {
	d := DistanceKm(48.8566, 2.3522, 45.7640, 4.8357)
	assert.InDelta(t, 391.5, d, 1.0)
}

func TestDistanceKm_RoundedToHundredths(t *testing.T) {
	d := DistanceKm(0, 0, 0.0123, 0.0456)
	assert.InDelta(t, math.Round(d*100), d*100, 1e-6)
}

func TestDistanceKm_AntipodesStayFinite(t *testing.T) {
	halfCircumference := math.Pi * earthRadiusKm
	for lat := -89.0; lat <= 89.0; lat += 0.7123 {
		for lon := -179.0; lon <= 0; lon += 0.8911 {
			var d float64
			assert.NotPanics(t, func() { d = DistanceKm(lat, lon, -lat, lon+180) })
			assert.False(t, math.IsNaN(d))
			assert.InDelta(t, halfCircumference, d, 0.01)
		}
	}
	assert.NotPanics(t, func() { DistanceKm(-88.9911, -178.9821, 88.9911, 1.0179) })
}

func TestWithin_AntipodalItemIsSafe(t *testing.T) {
	pts := [][2]float64{{88.9911, 1.0179}, {-88.9911, -178.9821}}
	var hits []Hit[[2]float64]
	assert.NotPanics(t, func() {
		hits = Within(pts, -88.9911, -178.9821, 50, func(p [2]float64) (float64, float64) { return p[0], p[1] })
	})
	assert.Len(t, hits, 1)
	assert.Equal(t, 0.0, hits[0].DistanceKm)
}

func TestWithin_FiltersAndSorts(t *testing.T) {
	type shop struct {
		name     string
		lat, lon float64
	}
	shops := []shop{
		{"far", 45.7640, 4.8357},
		{"near", 48.8600, 2.3522},
		{"here", 48.8566, 2.3522},
		{"tie", 48.8600, 2.3522},
	}

	hits := Within(shops, 48.8566, 2.3522, 10, func(s shop) (float64, float64) { return s.lat, s.lon })

	names := make([]string, len(hits))
	for i, h := range hits {
		names[i] = h.Item.name
	}
	assert.Equal(t, []string{"here", "near", "tie"}, names)
	assert.Equal(t, 0.0, hits[0].DistanceKm)
}
