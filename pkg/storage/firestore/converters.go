package firestore

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/xpayn3/cyclinghub-server/pkg/elevation"
	"github.com/xpayn3/cyclinghub-server/pkg/routegraph"
	"github.com/xpayn3/cyclinghub-server/pkg/storage"
)

// Helper to safely get string from map
func getString(m map[string]interface{}, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Firestore returns whole numbers as int64 and fractions as float64.
func getFloat(m map[string]interface{}, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	}
	return 0
}

func getTime(m map[string]interface{}, key string) time.Time {
	if t, ok := m[key].(time.Time); ok {
		return t
	}
	return time.Time{}
}

// --- SavedRoute Converters ---

// RouteToFirestore flattens a route into a document. Segment geometry and
// the elevation profile are stored as JSON strings since Firestore cannot
// index nested point arrays and they are only ever read whole.
func RouteToFirestore(r *storage.SavedRoute) (map[string]interface{}, error) {
	segments, err := json.Marshal(r.Segments)
	if err != nil {
		return nil, fmt.Errorf("marshal segments: %w", err)
	}
	elev, err := json.Marshal(r.Elevation)
	if err != nil {
		return nil, fmt.Errorf("marshal elevation: %w", err)
	}

	waypoints := make([]interface{}, len(r.Waypoints))
	for i, wp := range r.Waypoints {
		w := map[string]interface{}{"lat": wp.Lat, "lng": wp.Lng}
		if wp.Name != "" {
			w["name"] = wp.Name
		}
		waypoints[i] = w
	}

	m := map[string]interface{}{
		"id":             r.ID,
		"name":           r.Name,
		"created_at":     r.CreatedAt,
		"waypoints":      waypoints,
		"segments_json":  string(segments),
		"elevation_json": string(elev),
		"distance":       r.DistanceMeters,
		"elev_gain":      r.ElevGain,
		"elev_loss":      r.ElevLoss,
	}
	if r.Profile != "" {
		m["profile"] = r.Profile
	}
	return m, nil
}

// FirestoreToRoute is the inverse of RouteToFirestore.
func FirestoreToRoute(m map[string]interface{}) (*storage.SavedRoute, error) {
	r := &storage.SavedRoute{
		ID:             getString(m, "id"),
		Name:           getString(m, "name"),
		CreatedAt:      getTime(m, "created_at"),
		Profile:        getString(m, "profile"),
		DistanceMeters: getFloat(m, "distance"),
		ElevGain:       getFloat(m, "elev_gain"),
		ElevLoss:       getFloat(m, "elev_loss"),
	}

	if raw, ok := m["waypoints"].([]interface{}); ok {
		r.Waypoints = make([]routegraph.Waypoint, 0, len(raw))
		for _, item := range raw {
			w, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			r.Waypoints = append(r.Waypoints, routegraph.Waypoint{
				Lat:  getFloat(w, "lat"),
				Lng:  getFloat(w, "lng"),
				Name: getString(w, "name"),
			})
		}
	}

	if s := getString(m, "segments_json"); s != "" {
		if err := json.Unmarshal([]byte(s), &r.Segments); err != nil {
			return nil, fmt.Errorf("unmarshal segments: %w", err)
		}
	}
	if s := getString(m, "elevation_json"); s != "" {
		var p elevation.Profile
		if err := json.Unmarshal([]byte(s), &p); err != nil {
			return nil, fmt.Errorf("unmarshal elevation: %w", err)
		}
		r.Elevation = p
	}
	return r, nil
}
