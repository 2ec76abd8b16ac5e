package export

import (
	"github.com/paulmach/orb/geojson"

	"github.com/xpayn3/cyclinghub-server/pkg/geo"
	"github.com/xpayn3/cyclinghub-server/pkg/routegraph"
)

// Waypoint roles in GeoJSON output.
const (
	RoleStart  = "start"
	RoleVia    = "via"
	RoleFinish = "finish"
)

// FeatureCollection renders each segment as a LineString and each waypoint
// as a Point, segments first.
func FeatureCollection(s routegraph.Snapshot) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for i, seg := range s.Segments {
		f := geojson.NewFeature(geo.ToLineString(seg.Points))
		f.Properties["kind"] = "segment"
		f.Properties["index"] = i
		f.Properties["fallback"] = seg.IsFallback
		f.Properties["distance"] = seg.DistanceMeters
		f.Properties["duration"] = seg.DurationSeconds
		fc.Append(f)
	}
	for i, wp := range s.Waypoints {
		f := geojson.NewFeature(wp.LatLng().Point())
		f.Properties["kind"] = "waypoint"
		f.Properties["index"] = i
		f.Properties["role"] = waypointRole(i, len(s.Waypoints))
		if wp.Name != "" {
			f.Properties["name"] = wp.Name
		}
		fc.Append(f)
	}
	return fc
}

func waypointRole(i, n int) string {
	switch {
	case i == 0:
		return RoleStart
	case i == n-1:
		return RoleFinish
	default:
		return RoleVia
	}
}

// GeoJSON marshals FeatureCollection(s).
func GeoJSON(s routegraph.Snapshot) ([]byte, error) {
	return FeatureCollection(s).MarshalJSON()
}
