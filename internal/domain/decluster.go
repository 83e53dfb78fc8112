package domain

import (
	"fmt"
	"math"
)

const (
	// declusterRing is the ring step in degrees (~16 m), small enough that
	// spread markers stay visually attached to their true location.
	declusterRing = 0.00015

	// declusterSlots is the number of markers placed per ring before the
	// radius expands.
	declusterSlots = 8
)

// DeclusterPositions computes a rendering position per report so that
// reports at identical or near-identical coordinates do not visually
// overlap. Reports are grouped by coordinate rounded to 5 decimal places
// (~1.1 m); within a group, the i-th report (in input order) is offset by
// angle (i mod 8)·45° at radius 0.00015°·ceil((i+1)/8), spreading up to
// eight markers evenly around the point before expanding to a second ring.
//
// Deterministic in input order: the same slice always yields the same
// offsets. Callers that need cross-run stability sort the input by report
// ID first (see service.MapPositions). The mapping is computed fresh on
// every render input and never persisted.
func DeclusterPositions(reports []Report) map[string]LatLng {
	positions := make(map[string]LatLng, len(reports))
	seen := make(map[string]int)

	for _, r := range reports {
		key := coordKey(r.Location.Lat, r.Location.Lng)
		idx := seen[key]
		seen[key]++

		angle := float64(idx%declusterSlots) * (math.Pi / 4)
		radius := declusterRing * math.Ceil(float64(idx+1)/declusterSlots)

		positions[r.ID] = LatLng{
			Lat: r.Location.Lat + math.Cos(angle)*radius,
			Lng: r.Location.Lng + math.Sin(angle)*radius,
		}
	}

	return positions
}

// coordKey buckets a coordinate at 5-decimal precision. Reports sharing a
// key are considered co-located.
func coordKey(lat, lng float64) string {
	return fmt.Sprintf("%.5f,%.5f", lat, lng)
}
