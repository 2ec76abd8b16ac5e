package types

import (
	"path"
	"time"

	"github.com/xpayn3/cyclinghub-server/pkg/geo"
)

// Pub/Sub topics.
const (
	TopicPlanRequested   = "route-plan-requested"
	TopicExportCompleted = "export-completed"
)

// CloudEvent types.
const (
	EventTypePlanRequested   = "com.cyclinghub.route.plan.requested"
	EventTypeExportCompleted = "com.cyclinghub.export.completed"
)

// ExportFormat names an artifact format.
type ExportFormat string

const (
	FormatFITCourse  ExportFormat = "fit_course"
	FormatFITWorkout ExportFormat = "fit_workout"
	FormatGPX        ExportFormat = "gpx"
	FormatZWO        ExportFormat = "zwo"
	FormatGeoJSON    ExportFormat = "geojson"
)

// ContentType returns the MIME type served for f.
func (f ExportFormat) ContentType() string {
	switch f {
	case FormatGPX:
		return "application/gpx+xml"
	case FormatZWO:
		return "application/xml"
	case FormatGeoJSON:
		return "application/geo+json"
	default:
		return "application/vnd.ant.fit"
	}
}

// Extension returns the file extension, without the dot.
func (f ExportFormat) Extension() string {
	switch f {
	case FormatGPX:
		return "gpx"
	case FormatZWO:
		return "zwo"
	case FormatGeoJSON:
		return "geojson"
	default:
		return "fit"
	}
}

// ContentTypeFor maps a file name to the MIME type of its export format.
func ContentTypeFor(name string) string {
	switch path.Ext(name) {
	case ".gpx":
		return FormatGPX.ContentType()
	case ".zwo":
		return FormatZWO.ContentType()
	case ".geojson":
		return FormatGeoJSON.ContentType()
	case ".fit":
		return FormatFITCourse.ContentType()
	}
	return "application/octet-stream"
}

// PlanRequestedEvent asks the planner to route and save a list of waypoints.
type PlanRequestedEvent struct {
	RequestID string       `json:"request_id"`
	Name      string       `json:"name"`
	Waypoints []geo.LatLng `json:"waypoints"`
	Engine    string       `json:"engine,omitempty"`
	Profile   string       `json:"profile,omitempty"`
	// Loop closes the route back to the first waypoint.
	Loop bool `json:"loop,omitempty"`
}

// ExportCompletedEvent announces an artifact written to the bucket.
type ExportCompletedEvent struct {
	ExportID  string       `json:"export_id"`
	RouteID   string       `json:"route_id,omitempty"`
	Format    ExportFormat `json:"format"`
	FileURI   string       `json:"file_uri"`
	SizeBytes int          `json:"size_bytes"`
	CreatedAt time.Time    `json:"created_at"`
}
