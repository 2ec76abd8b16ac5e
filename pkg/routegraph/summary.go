package routegraph

import (
	"fmt"
	"math"

	"github.com/xpayn3/cyclinghub-server/pkg/geo"
)

// Speed thresholds in m/s used to classify annotated edges.
const (
	pavedSpeed = 5.0
	mixedSpeed = 2.5
)

// Totals are sums over the segment list.
type Totals struct {
	DistanceMeters  float64 `json:"distance"`
	DurationSeconds float64 `json:"duration"`
}

// Totals sums distance and provider duration.
func (s Snapshot) Totals() Totals {
	var t Totals
	for _, seg := range s.Segments {
		t.DistanceMeters += seg.DistanceMeters
		t.DurationSeconds += seg.DurationSeconds
	}
	return t
}

// Points concatenates every segment's points in route order.
func (s Snapshot) Points() []geo.LatLng {
	n := 0
	for _, seg := range s.Segments {
		n += len(seg.Points)
	}
	out := make([]geo.LatLng, 0, n)
	for _, seg := range s.Segments {
		out = append(out, seg.Points...)
	}
	return out
}

// Summary is the stats panel for a route.
type Summary struct {
	DistanceMeters   float64 `json:"distance"`
	DurationSeconds  float64 `json:"duration"`
	EstimatedSeconds float64 `json:"estimatedTime"`
	ElevationGain    float64 `json:"elevGain"`
	ElevationLoss    float64 `json:"elevLoss"`
	AverageGrade     float64 `json:"avgGrade"`
	Waypoints        int     `json:"waypoints"`
	Fallbacks        int     `json:"fallbacks"`
	Surface          string  `json:"surface,omitempty"`
}

// Summary derives the route stats. Moving time assumes a speed that drops
// with climbing per kilometre, never below 15 km/h.
func (s Snapshot) Summary() Summary {
	t := s.Totals()
	gain, loss := s.Elevation.GainLoss()
	sum := Summary{
		DistanceMeters:  t.DistanceMeters,
		DurationSeconds: t.DurationSeconds,
		ElevationGain:   gain,
		ElevationLoss:   loss,
		Waypoints:       len(s.Waypoints),
		Surface:         s.SurfaceMix(),
	}
	for _, seg := range s.Segments {
		if seg.IsFallback {
			sum.Fallbacks++
		}
	}

	if n := len(s.Elevation.Samples); n > 1 {
		total := 0.0
		for _, smp := range s.Elevation.Samples[1:] {
			total += math.Abs(smp.Grade)
		}
		sum.AverageGrade = total / float64(n-1)
	}

	if t.DistanceMeters > 0 {
		km := t.DistanceMeters / 1000
		speed := math.Max(15, 25-(gain/math.Max(1, km))*2)
		sum.EstimatedSeconds = km / speed * 3600
	}
	return sum
}

// SurfaceMix classifies annotated edge speeds into paved, mixed and
// off-road. It returns "" when no segment carries speed annotations.
func (s Snapshot) SurfaceMix() string {
	var paved, mixed, offroad int
	for _, seg := range s.Segments {
		if seg.Annotations == nil {
			continue
		}
		for _, speed := range seg.Annotations.Speed {
			switch {
			case speed >= pavedSpeed:
				paved++
			case speed >= mixedSpeed:
				mixed++
			default:
				offroad++
			}
		}
	}
	total := paved + mixed + offroad
	switch {
	case total == 0:
		return ""
	case mixed == 0 && offroad == 0:
		return "Paved"
	case paved == 0 && mixed == 0:
		return "Off-road"
	}
	pct := func(n int) int { return int(math.Round(float64(n) / float64(total) * 100)) }
	return fmt.Sprintf("%d/%d/%d%%", pct(paved), pct(mixed), pct(offroad))
}

// FormatDuration renders seconds as h:mm.
func FormatDuration(secs float64) string {
	if secs < 0 || math.IsNaN(secs) {
		secs = 0
	}
	total := int(secs)
	return fmt.Sprintf("%d:%02d", total/3600, (total%3600)/60)
}

// Totals sums the current segments.
func (g *Graph) Totals() Totals {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state.Totals()
}

// Points returns the flattened route.
func (g *Graph) Points() []geo.LatLng {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state.Points()
}

// Summary returns the stats for the current state.
func (g *Graph) Summary() Summary {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state.Summary()
}
