// Package elevation builds elevation profiles for planned routes.
package elevation

import (
	"math"

	"github.com/xpayn3/cyclinghub-server/pkg/geo"
)

// DefaultSamples is how many points BuildProfile looks up per route.
const DefaultSamples = 200

// Sample is one profile point. Dist is metres from the route start and
// Grade is the percentage slope from the previous sample.
type Sample struct {
	Dist  float64 `json:"dist"`
	Elev  float64 `json:"elev"`
	Grade float64 `json:"grade"`
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
}

// Profile is an ordered elevation profile.
type Profile struct {
	Samples []Sample `json:"samples"`
}

// Empty reports whether the profile has no samples.
func (p Profile) Empty() bool { return len(p.Samples) == 0 }

// GainLoss sums the climbing and descending between consecutive samples.
func (p Profile) GainLoss() (gain, loss float64) {
	for i := 1; i < len(p.Samples); i++ {
		d := p.Samples[i].Elev - p.Samples[i-1].Elev
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	return gain, loss
}

// At returns the sample closest to dist metres from the start.
func (p Profile) At(dist float64) (Sample, bool) {
	if len(p.Samples) == 0 {
		return Sample{}, false
	}
	best, bestD := 0, math.Inf(1)
	for i, s := range p.Samples {
		if d := math.Abs(s.Dist - dist); d < bestD {
			best, bestD = i, d
		}
	}
	return p.Samples[best], true
}

// Reverse mirrors the profile for a reversed route of the given length.
func (p Profile) Reverse(total float64) Profile {
	n := len(p.Samples)
	out := make([]Sample, n)
	for i, s := range p.Samples {
		s.Dist = total - s.Dist
		out[n-1-i] = s
	}
	regrade(out)
	return Profile{Samples: out}
}

// ElevationAt returns the elevation of the sample nearest to point.
func (p Profile) ElevationAt(point geo.LatLng) (float64, bool) {
	if len(p.Samples) == 0 {
		return 0, false
	}
	pts := make([]geo.LatLng, len(p.Samples))
	for i, s := range p.Samples {
		pts[i] = geo.LatLng{Lat: s.Lat, Lng: s.Lng}
	}
	return p.Samples[geo.NearestIndex(pts, point)].Elev, true
}

// SamplePoints picks every n/max-th point, always keeping the last.
func SamplePoints(points []geo.LatLng, max int) []geo.LatLng {
	if max <= 0 {
		max = DefaultSamples
	}
	return geo.Downsample(points, max)
}

// FromElevations builds a profile from points and their elevations.
func FromElevations(points []geo.LatLng, elevs []float64) Profile {
	n := len(points)
	if len(elevs) < n {
		n = len(elevs)
	}
	out := make([]Sample, n)
	var dist float64
	for i := 0; i < n; i++ {
		if i > 0 {
			dist += geo.Haversine(points[i-1], points[i])
		}
		out[i] = Sample{Dist: dist, Elev: elevs[i], Lat: points[i].Lat, Lng: points[i].Lng}
	}
	regrade(out)
	return Profile{Samples: out}
}

func regrade(samples []Sample) {
	for i := range samples {
		if i == 0 {
			samples[i].Grade = 0
			continue
		}
		run := math.Abs(samples[i].Dist - samples[i-1].Dist)
		if run == 0 {
			samples[i].Grade = 0
			continue
		}
		samples[i].Grade = (samples[i].Elev - samples[i-1].Elev) / run * 100
	}
}
