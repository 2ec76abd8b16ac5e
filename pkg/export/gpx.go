// Package export turns a route graph into GPX, FIT course and GeoJSON
// files, and imports GPX back into a graph snapshot.
package export

import (
	"math"

	"github.com/tkrajina/gpxgo/gpx"

	"github.com/xpayn3/cyclinghub-server/pkg/elevation"
	hubErrors "github.com/xpayn3/cyclinghub-server/pkg/errors"
	"github.com/xpayn3/cyclinghub-server/pkg/geo"
	"github.com/xpayn3/cyclinghub-server/pkg/routegraph"
)

const (
	gpxCreator = "CyclingHub Route Builder"
	// DefaultTrackName names exported tracks without a route name.
	DefaultTrackName = "CyclingHub Route"
	// importWaypoints is roughly how many waypoints an imported track gets.
	importWaypoints = 10
)

func round6(v float64) float64 { return math.Round(v*1e6) / 1e6 }

// EncodeGPX writes points as a single-segment GPX 1.1 track. Elevations come
// from the nearest profile sample, rounded to whole metres.
func EncodeGPX(name string, points []geo.LatLng, profile elevation.Profile) ([]byte, error) {
	if len(points) == 0 {
		return nil, hubErrors.ErrEmptyExportInput.WithMessage("no route to export")
	}
	if name == "" {
		name = DefaultTrackName
	}

	seg := gpx.GPXTrackSegment{Points: make([]gpx.GPXPoint, 0, len(points))}
	for _, p := range points {
		pt := gpx.GPXPoint{Point: gpx.Point{Latitude: round6(p.Lat), Longitude: round6(p.Lng)}}
		if ele, ok := profile.ElevationAt(p); ok {
			pt.Elevation = *gpx.NewNullableFloat64(math.Round(ele))
		}
		seg.Points = append(seg.Points, pt)
	}

	doc := gpx.GPX{
		Version: "1.1",
		Creator: gpxCreator,
		Tracks: []gpx.GPXTrack{{
			Name:     name,
			Segments: []gpx.GPXTrackSegment{seg},
		}},
	}
	out, err := doc.ToXml(gpx.ToXmlParams{Version: "1.1", Indent: true})
	if err != nil {
		return nil, hubErrors.ErrInternal.WithMessage("gpx encode failed").WithCause(err)
	}
	return out, nil
}

// SnapshotGPX exports the graph's flattened route.
func SnapshotGPX(name string, s routegraph.Snapshot) ([]byte, error) {
	if len(s.Segments) == 0 {
		return nil, hubErrors.ErrEmptyExportInput.WithMessage("no route to export")
	}
	return EncodeGPX(name, s.Points(), s.Elevation)
}

// Imported is a GPX file converted into an editable graph.
type Imported struct {
	Name     string
	Points   int
	Snapshot routegraph.Snapshot
}

// DecodeGPX reads track points, or route points when the file has no
// tracks, and picks about ten evenly spaced points plus the last as
// waypoints. The slices between them become pre-routed segments.
func DecodeGPX(data []byte) (*Imported, error) {
	doc, err := gpx.ParseBytes(data)
	if err != nil {
		return nil, hubErrors.ErrInvalidFormat.WithMessage("unreadable GPX").WithCause(err)
	}

	name, raw := collectPoints(doc)
	if len(raw) == 0 {
		return nil, hubErrors.ErrInvalidFormat.WithMessage("no track points found in GPX")
	}

	points := make([]geo.LatLng, len(raw))
	for i, p := range raw {
		points[i] = geo.LatLng{Lat: p.Latitude, Lng: p.Longitude}
	}

	idx := waypointIndices(len(points))
	snap := routegraph.Snapshot{Waypoints: make([]routegraph.Waypoint, len(idx))}
	for i, at := range idx {
		snap.Waypoints[i] = routegraph.Waypoint{Lat: points[at].Lat, Lng: points[at].Lng}
	}
	for i := 0; i+1 < len(idx); i++ {
		slice := append([]geo.LatLng(nil), points[idx[i]:idx[i+1]+1]...)
		snap.Segments = append(snap.Segments, routegraph.Segment{
			Points:         slice,
			DistanceMeters: geo.PathLength(slice),
		})
	}

	snap.Elevation = importedProfile(raw)

	return &Imported{Name: name, Points: len(points), Snapshot: snap}, nil
}

// importedProfile builds a profile from the points that carry <ele>.
// Points without one are skipped rather than read as sea level.
func importedProfile(raw []gpx.GPXPoint) elevation.Profile {
	var (
		pts   []geo.LatLng
		elevs []float64
	)
	for _, p := range raw {
		if !p.Elevation.NotNull() {
			continue
		}
		pts = append(pts, geo.LatLng{Lat: p.Latitude, Lng: p.Longitude})
		elevs = append(elevs, p.Elevation.Value())
	}
	if len(pts) == 0 {
		return elevation.Profile{}
	}
	return elevation.FromElevations(pts, elevs)
}

func collectPoints(doc *gpx.GPX) (string, []gpx.GPXPoint) {
	var (
		name string
		pts  []gpx.GPXPoint
	)
	for _, trk := range doc.Tracks {
		if name == "" {
			name = trk.Name
		}
		for _, seg := range trk.Segments {
			pts = append(pts, seg.Points...)
		}
	}
	if len(pts) > 0 {
		return name, pts
	}
	for _, rte := range doc.Routes {
		if name == "" {
			name = rte.Name
		}
		pts = append(pts, rte.Points...)
	}
	return name, pts
}

func waypointIndices(n int) []int {
	step := n / importWaypoints
	if step < 1 {
		step = 1
	}
	idx := []int{0}
	for i := step; i < n-1; i += step {
		idx = append(idx, i)
	}
	if idx[len(idx)-1] != n-1 {
		idx = append(idx, n-1)
	}
	return idx
}
