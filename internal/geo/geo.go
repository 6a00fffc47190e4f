package geo

import (
	"math"
	"sort"
)

// EarthRadiusMeters mean earth radius used by the haversine formula.
const EarthRadiusMeters = 6371000.0

// Point a WGS84 coordinate pair.
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether the coordinates are inside the WGS84 ranges.
func (p Point) Valid() bool {
	return p.Latitude >= -90 && p.Latitude <= 90 &&
		p.Longitude >= -180 && p.Longitude <= 180
}

// Distance returns the great-circle distance between two points in meters
// using the haversine formula.
func Distance(a, b Point) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lon1 := a.Longitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	lon2 := b.Longitude * math.Pi / 180

	dlat := lat2 - lat1
	dlon := lon2 - lon1

	h := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dlon/2)*math.Sin(dlon/2)
	c := 2 * math.Asin(math.Sqrt(h))

	return c * EarthRadiusMeters
}

// Located is implemented by records that carry a coordinate.
type Located interface {
	Location() Point
}

// Match one record that passed the radius filter.
type Match struct {
	// Index into the candidate slice handed to Nearby.
	Index int
	// DistanceMeters rounded to the nearest meter.
	DistanceMeters int
}

// Nearby filters candidates to those within radiusMeters of origin and
// returns them sorted by non-decreasing distance. Ties keep candidate order.
func Nearby[T Located](origin Point, radiusMeters int, candidates []T) []Match {
	matches := make([]Match, 0, len(candidates))
	for i, c := range candidates {
		d := Distance(origin, c.Location())
		if d <= float64(radiusMeters) {
			matches = append(matches, Match{Index: i, DistanceMeters: int(math.Round(d))})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].DistanceMeters < matches[j].DistanceMeters
	})
	return matches
}
