package fit

import (
	"fmt"
	"math"
	"time"

	hubErrors "github.com/xpayn3/cyclinghub-server/pkg/errors"
	"github.com/xpayn3/cyclinghub-server/pkg/geo"
)

// DefaultCourseName fits the 15 usable bytes of the name field.
const DefaultCourseName = "CyclingHub Ride"

// TrackPoint is one course record. Elevation is optional.
type TrackPoint struct {
	Lat       float64  `json:"lat"`
	Lng       float64  `json:"lng"`
	Elevation *float64 `json:"ele,omitempty"`
}

func (p TrackPoint) LatLng() geo.LatLng { return geo.LatLng{Lat: p.Lat, Lng: p.Lng} }

// CourseOptions controls the course header. A zero Start uses the
// encoder clock.
type CourseOptions struct {
	Name  string
	Start time.Time
}

const (
	eventTimer       uint8 = 0
	eventLap         uint8 = 9
	eventTypeStart   uint8 = 0
	eventTypeStop    uint8 = 1
	eventTypeStopAll uint8 = 4
	coursePointGen   uint8 = 0
)

var (
	courseFileIDDef = MessageDef{Local: 0, Global: MesgFileID, Fields: []FieldDef{
		{Num: 0, Size: 1, Base: BaseEnum},    // type
		{Num: 1, Size: 2, Base: BaseUint16},  // manufacturer
		{Num: 2, Size: 2, Base: BaseUint16},  // product
		{Num: 3, Size: 4, Base: BaseUint32z}, // serial_number
		{Num: 4, Size: 4, Base: BaseUint32},  // time_created
	}}
	courseDef = MessageDef{Local: 1, Global: MesgCourse, Fields: []FieldDef{
		{Num: 5, Size: nameFieldSize, Base: BaseString}, // name
		{Num: 4, Size: 1, Base: BaseEnum},               // sport
	}}
	eventDef = MessageDef{Local: 2, Global: MesgEvent, Fields: []FieldDef{
		{Num: 253, Size: 4, Base: BaseUint32}, // timestamp
		{Num: 0, Size: 1, Base: BaseEnum},     // event
		{Num: 1, Size: 1, Base: BaseEnum},     // event_type
	}}
	recordDef = MessageDef{Local: 3, Global: MesgRecord, Fields: []FieldDef{
		{Num: 253, Size: 4, Base: BaseUint32}, // timestamp
		{Num: 0, Size: 4, Base: BaseSint32},   // position_lat
		{Num: 1, Size: 4, Base: BaseSint32},   // position_long
		{Num: 2, Size: 2, Base: BaseUint16},   // altitude
		{Num: 5, Size: 4, Base: BaseUint32},   // distance
	}}
	coursePointDef = MessageDef{Local: 4, Global: MesgCoursePoint, Fields: []FieldDef{
		{Num: 254, Size: 2, Base: BaseUint16},           // message_index
		{Num: 1, Size: 4, Base: BaseUint32},             // timestamp
		{Num: 2, Size: 4, Base: BaseSint32},             // position_lat
		{Num: 3, Size: 4, Base: BaseSint32},             // position_long
		{Num: 4, Size: 4, Base: BaseUint32},             // distance
		{Num: 5, Size: 1, Base: BaseEnum},               // type
		{Num: 6, Size: nameFieldSize, Base: BaseString}, // name
	}}
	lapDef = MessageDef{Local: 5, Global: MesgLap, Fields: []FieldDef{
		{Num: 254, Size: 2, Base: BaseUint16}, // message_index
		{Num: 253, Size: 4, Base: BaseUint32}, // timestamp
		{Num: 0, Size: 1, Base: BaseEnum},     // event
		{Num: 1, Size: 1, Base: BaseEnum},     // event_type
		{Num: 2, Size: 4, Base: BaseUint32},   // start_time
		{Num: 3, Size: 4, Base: BaseSint32},   // start_position_lat
		{Num: 4, Size: 4, Base: BaseSint32},   // start_position_long
		{Num: 5, Size: 4, Base: BaseSint32},   // end_position_lat
		{Num: 6, Size: 4, Base: BaseSint32},   // end_position_long
		{Num: 7, Size: 4, Base: BaseUint32},   // total_elapsed_time
		{Num: 8, Size: 4, Base: BaseUint32},   // total_timer_time
		{Num: 9, Size: 4, Base: BaseUint32},   // total_distance
		{Num: 21, Size: 2, Base: BaseUint16},  // total_ascent
		{Num: 22, Size: 2, Base: BaseUint16},  // total_descent
	}}
)

// CoursePointName labels waypoint i of n.
func CoursePointName(i, n int) string {
	switch {
	case i == 0:
		return "Start"
	case i == n-1:
		return "Finish"
	default:
		return fmt.Sprintf("WP %d", i+1)
	}
}

type encodedPoint struct {
	lat, lng int32
	alt      uint16
	dist     uint32
}

// ElevationGainLoss sums positive and negative elevation changes between
// consecutive points that both carry an elevation.
func ElevationGainLoss(points []TrackPoint) (gain, loss float64) {
	var prev *float64
	for _, p := range points {
		if p.Elevation == nil {
			continue
		}
		if prev != nil {
			d := *p.Elevation - *prev
			if d > 0 {
				gain += d
			} else {
				loss -= d
			}
		}
		prev = p.Elevation
	}
	return gain, loss
}

// EncodeCourse serializes a GPS course. Each record is stamped one second
// after the previous one; course points take the timestamp and distance of
// the nearest record.
func (e *Encoder) EncodeCourse(points []TrackPoint, waypoints []geo.LatLng, opts CourseOptions) ([]byte, error) {
	if len(points) < 2 {
		return nil, hubErrors.ErrEmptyExportInput.WithMessagef("course needs at least 2 points, got %d", len(points))
	}
	start := opts.Start
	if start.IsZero() {
		start = e.now()
	}
	name := opts.Name
	if name == "" {
		name = DefaultCourseName
	}

	path := make([]geo.LatLng, len(points))
	for i, p := range points {
		path[i] = p.LatLng()
	}
	dists := geo.CumulativeDistances(path)

	encoded := make([]encodedPoint, len(points))
	for i, p := range points {
		lat, err := latitude(p.Lat)
		if err != nil {
			return nil, fmt.Errorf("points[%d]: %w", i, err)
		}
		lng, err := longitude(p.Lng)
		if err != nil {
			return nil, fmt.Errorf("points[%d]: %w", i, err)
		}
		alt := InvalidUint16
		if p.Elevation != nil {
			if alt, err = Altitude(*p.Elevation); err != nil {
				return nil, fmt.Errorf("points[%d]: %w", i, err)
			}
		}
		dist, err := Centimeters(dists[i])
		if err != nil {
			return nil, fmt.Errorf("points[%d]: %w", i, err)
		}
		encoded[i] = encodedPoint{lat: lat, lng: lng, alt: alt, dist: dist}
	}

	ts := Timestamp(start)
	n := uint32(len(points))
	f := newFile()

	f.define(courseFileIDDef)
	if err := f.write(courseFileIDDef, fileTypeCourse, e.Manufacturer, e.Product, e.SerialNumber, ts); err != nil {
		return nil, err
	}

	f.define(courseDef)
	if err := f.write(courseDef, name, sportCycling); err != nil {
		return nil, err
	}

	f.define(eventDef)
	if err := f.write(eventDef, ts, eventTimer, eventTypeStart); err != nil {
		return nil, err
	}

	f.define(recordDef)
	for i, p := range encoded {
		if err := f.write(recordDef, ts+uint32(i), p.lat, p.lng, p.alt, p.dist); err != nil {
			return nil, err
		}
	}

	f.define(coursePointDef)
	for i, wp := range waypoints {
		lat, err := latitude(wp.Lat)
		if err != nil {
			return nil, fmt.Errorf("waypoints[%d]: %w", i, err)
		}
		lng, err := longitude(wp.Lng)
		if err != nil {
			return nil, fmt.Errorf("waypoints[%d]: %w", i, err)
		}
		j := geo.NearestIndex(path, wp)
		err = f.write(coursePointDef,
			uint16(i),
			ts+uint32(j),
			lat,
			lng,
			encoded[j].dist,
			coursePointGen,
			CoursePointName(i, len(waypoints)),
		)
		if err != nil {
			return nil, err
		}
	}

	if err := f.write(eventDef, ts+n, eventTimer, eventTypeStopAll); err != nil {
		return nil, err
	}

	gain, loss := ElevationGainLoss(points)
	first, last := encoded[0], encoded[len(encoded)-1]
	elapsed := n * 1000
	f.define(lapDef)
	err := f.write(lapDef,
		uint16(0),
		ts+n,
		eventLap,
		eventTypeStop,
		ts,
		first.lat, first.lng,
		last.lat, last.lng,
		elapsed, elapsed,
		last.dist,
		clampUint16(gain),
		clampUint16(loss),
	)
	if err != nil {
		return nil, err
	}

	return f.finish(), nil
}

func clampUint16(v float64) uint16 {
	r := math.Round(v)
	if r < 0 {
		return 0
	}
	if r > float64(InvalidUint16-1) {
		return InvalidUint16 - 1
	}
	return uint16(r)
}
