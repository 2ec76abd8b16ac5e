// Package geo holds the coordinate helpers shared by the route graph,
// the routing providers and the exporters.
package geo

import (
	"math"

	"github.com/paulmach/orb"
)

const earthRadius = 6371000 // meters

// LatLng is a WGS84 coordinate in degrees.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Point converts to an orb point (lng, lat order).
func (p LatLng) Point() orb.Point {
	return orb.Point{p.Lng, p.Lat}
}

// FromPoint converts an orb point back to LatLng.
func FromPoint(p orb.Point) LatLng {
	return LatLng{Lat: p.Lat(), Lng: p.Lon()}
}

// Haversine calculates the great-circle distance between two points in meters.
func Haversine(p1, p2 LatLng) float64 {
	lat1 := p1.Lat * math.Pi / 180
	lat2 := p2.Lat * math.Pi / 180
	dLat := (p2.Lat - p1.Lat) * math.Pi / 180
	dLon := (p2.Lng - p1.Lng) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadius * c
}

// PathLength sums the Haversine distance over consecutive points.
func PathLength(points []LatLng) float64 {
	dist := 0.0
	for i := 1; i < len(points); i++ {
		dist += Haversine(points[i-1], points[i])
	}
	return dist
}

// CumulativeDistances returns the distance from the first point to each point.
// The result has the same length as points.
func CumulativeDistances(points []LatLng) []float64 {
	out := make([]float64, len(points))
	for i := 1; i < len(points); i++ {
		out[i] = out[i-1] + Haversine(points[i-1], points[i])
	}
	return out
}

// NearestIndex finds the point closest to target by Manhattan distance in
// degrees. Returns -1 for an empty slice.
func NearestIndex(points []LatLng, target LatLng) int {
	best, bestDist := -1, math.Inf(1)
	for i, p := range points {
		d := math.Abs(p.Lat-target.Lat) + math.Abs(p.Lng-target.Lng)
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// SquaredDegreeDistance is the cheap planar distance used for nearest-segment
// lookups where only ordering matters.
func SquaredDegreeDistance(a, b LatLng) float64 {
	dLat, dLng := a.Lat-b.Lat, a.Lng-b.Lng
	return dLat*dLat + dLng*dLng
}

// Interpolate returns the point a fraction r of the way from a to b.
func Interpolate(a, b LatLng, r float64) LatLng {
	return LatLng{
		Lat: a.Lat + (b.Lat-a.Lat)*r,
		Lng: a.Lng + (b.Lng-a.Lng)*r,
	}
}

// Midpoint returns the point halfway along the path by distance.
// The second return value is false when the path has no length.
func Midpoint(points []LatLng) (LatLng, bool) {
	if len(points) < 2 {
		return LatLng{}, false
	}
	total := PathLength(points)
	if total == 0 {
		return LatLng{}, false
	}
	half := total / 2
	cum := 0.0
	for i := 1; i < len(points); i++ {
		d := Haversine(points[i-1], points[i])
		if cum+d >= half {
			return Interpolate(points[i-1], points[i], (half-cum)/d), true
		}
		cum += d
	}
	return points[len(points)-1], true
}

// ToLineString converts a path to an orb line string.
func ToLineString(points []LatLng) orb.LineString {
	ls := make(orb.LineString, len(points))
	for i, p := range points {
		ls[i] = p.Point()
	}
	return ls
}

// FromLineString converts an orb line string to a path.
func FromLineString(ls orb.LineString) []LatLng {
	out := make([]LatLng, len(ls))
	for i, p := range ls {
		out[i] = FromPoint(p)
	}
	return out
}

// Bounds returns the bounding box of the path.
func Bounds(points []LatLng) orb.Bound {
	return ToLineString(points).Bound()
}

// SameSpot reports whether two coordinates are within tol degrees on both axes.
func SameSpot(a, b LatLng, tol float64) bool {
	return math.Abs(a.Lat-b.Lat) < tol && math.Abs(a.Lng-b.Lng) < tol
}

// Reversed returns a reversed copy of the path.
func Reversed(points []LatLng) []LatLng {
	out := make([]LatLng, len(points))
	for i, p := range points {
		out[len(points)-1-i] = p
	}
	return out
}
