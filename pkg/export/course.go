package export

import (
	"github.com/xpayn3/cyclinghub-server/pkg/elevation"
	hubErrors "github.com/xpayn3/cyclinghub-server/pkg/errors"
	"github.com/xpayn3/cyclinghub-server/pkg/fit"
	"github.com/xpayn3/cyclinghub-server/pkg/geo"
	"github.com/xpayn3/cyclinghub-server/pkg/routegraph"
)

// CourseSamples caps the record count of exported courses.
const CourseSamples = 500

// TrackPoints downsamples the route and attaches profile elevations.
func TrackPoints(points []geo.LatLng, profile elevation.Profile, max int) []fit.TrackPoint {
	sampled := geo.Downsample(points, max)
	out := make([]fit.TrackPoint, len(sampled))
	for i, p := range sampled {
		out[i] = fit.TrackPoint{Lat: p.Lat, Lng: p.Lng}
		if ele, ok := profile.ElevationAt(p); ok {
			out[i].Elevation = &ele
		}
	}
	return out
}

// CourseFromGraph encodes the snapshot as a FIT course with one course point
// per waypoint. A nil encoder uses fit.NewEncoder.
func CourseFromGraph(enc *fit.Encoder, s routegraph.Snapshot, name string) ([]byte, error) {
	if len(s.Segments) == 0 {
		return nil, hubErrors.ErrEmptyExportInput.WithMessage("no route to export")
	}
	if enc == nil {
		enc = fit.NewEncoder()
	}

	waypoints := make([]geo.LatLng, len(s.Waypoints))
	for i, wp := range s.Waypoints {
		waypoints[i] = wp.LatLng()
	}
	track := TrackPoints(s.Points(), s.Elevation, CourseSamples)
	return enc.EncodeCourse(track, waypoints, fit.CourseOptions{Name: name})
}
