package fit

import (
	"bytes"
	stderrors "errors"
	"math"
	"testing"
	"time"

	"github.com/muktihari/fit/decoder"
	"github.com/muktihari/fit/profile/mesgdef"
	"github.com/muktihari/fit/profile/typedef"

	hubErrors "github.com/xpayn3/cyclinghub-server/pkg/errors"
	"github.com/xpayn3/cyclinghub-server/pkg/geo"
)

func straightTrack(n int) []TrackPoint {
	pts := make([]TrackPoint, n)
	for i := range pts {
		ele := 10 + float64(i%7)
		pts[i] = TrackPoint{Lat: 52.0 + float64(i)*0.001, Lng: 4.0 + float64(i)*0.001, Elevation: &ele}
	}
	return pts
}

func TestEncodeCourse_Messages(t *testing.T) {
	start := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	points := straightTrack(50)
	waypoints := []geo.LatLng{
		{Lat: 52.0, Lng: 4.0},
		{Lat: 52.025, Lng: 4.025},
		{Lat: 52.049, Lng: 4.049},
	}

	data, err := EncodeCourse(points, waypoints, start)
	if err != nil {
		t.Fatalf("EncodeCourse failed: %v", err)
	}

	fitData, err := decoder.New(bytes.NewReader(data)).Decode()
	if err != nil {
		t.Fatalf("decoder rejected file: %v", err)
	}

	recordCount := 0
	var names []string
	var records []*mesgdef.Record
	var coursePoints []*mesgdef.CoursePoint
	lapCount, eventCount := 0, 0
	for i := range fitData.Messages {
		msg := &fitData.Messages[i]
		switch msg.Num {
		case typedef.MesgNumFileId:
			fid := mesgdef.NewFileId(msg)
			if fid.Type != typedef.FileCourse {
				t.Errorf("file type = %v, want course", fid.Type)
			}
		case typedef.MesgNumCourse:
			if c := mesgdef.NewCourse(msg); c.Name != DefaultCourseName {
				t.Errorf("course name = %q", c.Name)
			}
		case typedef.MesgNumRecord:
			recordCount++
			records = append(records, mesgdef.NewRecord(msg))
		case typedef.MesgNumCoursePoint:
			cp := mesgdef.NewCoursePoint(msg)
			names = append(names, cp.Name)
			coursePoints = append(coursePoints, cp)
		case typedef.MesgNumLap:
			lapCount++
		case typedef.MesgNumEvent:
			eventCount++
		}
	}

	if recordCount != len(points) {
		t.Errorf("expected %d records, got %d", len(points), recordCount)
	}
	if lapCount != 1 || eventCount != 2 {
		t.Errorf("expected 1 lap and 2 events, got %d and %d", lapCount, eventCount)
	}
	wantNames := []string{"Start", "WP 2", "Finish"}
	if len(names) != len(wantNames) {
		t.Fatalf("course point names = %v", names)
	}
	for i := range wantNames {
		if names[i] != wantNames[i] {
			t.Errorf("course point %d = %q, want %q", i, names[i], wantNames[i])
		}
	}

	// One synthetic second per record.
	for i, r := range records {
		if !r.Timestamp.Equal(start.Add(time.Duration(i) * time.Second)) {
			t.Fatalf("record %d timestamp = %v", i, r.Timestamp)
		}
	}

	// Distance is cumulative Haversine in centimeters.
	path := make([]geo.LatLng, len(points))
	for i, p := range points {
		path[i] = p.LatLng()
	}
	total := geo.PathLength(path)
	last := records[len(records)-1]
	if math.Abs(float64(last.Distance)/100-total) > 0.01 {
		t.Errorf("final distance %f m, want %f m", float64(last.Distance)/100, total)
	}
	if math.Abs(Degrees(last.PositionLat)-points[len(points)-1].Lat) > 1e-6 {
		t.Errorf("final latitude %f", Degrees(last.PositionLat))
	}
	if math.Abs(AltitudeMeters(records[3].Altitude)-13) > 0.2 {
		t.Errorf("altitude = %f, want 13", AltitudeMeters(records[3].Altitude))
	}

	if coursePoints[0].Distance != 0 {
		t.Errorf("start course point distance = %d", coursePoints[0].Distance)
	}
	if coursePoints[2].Distance != last.Distance {
		t.Errorf("finish distance %d != final record %d", coursePoints[2].Distance, last.Distance)
	}
}

func TestEncodeCourse_WithoutElevation(t *testing.T) {
	points := []TrackPoint{{Lat: 52.0, Lng: 4.0}, {Lat: 52.1, Lng: 4.1}}
	data, err := EncodeCourse(points, []geo.LatLng{{Lat: 52.0, Lng: 4.0}, {Lat: 52.1, Lng: 4.1}}, time.Unix(1700000000, 0))
	if err != nil {
		t.Fatal(err)
	}
	track, err := DecodeTrack(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("DecodeTrack: %v", err)
	}
	if len(track) != 2 {
		t.Fatalf("expected 2 points, got %d", len(track))
	}
	if track[0].Elevation != nil {
		t.Errorf("expected no elevation, got %f", *track[0].Elevation)
	}
	if math.Abs(track[1].Lng-4.1) > 1e-6 {
		t.Errorf("lng = %f", track[1].Lng)
	}
}

func TestEncodeCourse_Errors(t *testing.T) {
	_, err := EncodeCourse([]TrackPoint{{Lat: 1, Lng: 1}}, nil, time.Now())
	if !stderrors.Is(err, hubErrors.ErrEmptyExportInput) {
		t.Errorf("expected EmptyExportInput, got %v", err)
	}

	_, err = EncodeCourse([]TrackPoint{{Lat: math.NaN(), Lng: 1}, {Lat: 1, Lng: 1}}, nil, time.Now())
	if !stderrors.Is(err, hubErrors.ErrInvalidFieldValue) {
		t.Errorf("expected InvalidFieldValue for NaN, got %v", err)
	}

	_, err = EncodeCourse([]TrackPoint{{Lat: 91, Lng: 1}, {Lat: 1, Lng: 1}}, nil, time.Now())
	if !stderrors.Is(err, hubErrors.ErrInvalidFieldValue) {
		t.Errorf("expected InvalidFieldValue for out of range latitude, got %v", err)
	}
}

func TestEncodeCourse_LargeRouteGrowsBuffer(t *testing.T) {
	points := straightTrack(20000)
	for i := range points {
		points[i].Lat = 45 + float64(i)*1e-5
		points[i].Lng = 7 + float64(i)*1e-5
	}
	data, err := EncodeCourse(points, nil, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if len(data) <= initialBufferSize {
		t.Fatalf("expected output beyond the initial buffer, got %d bytes", len(data))
	}
	if _, err := Decode(bytes.NewReader(data)); err != nil {
		t.Fatalf("large course failed to decode: %v", err)
	}
}

func TestSemicircles(t *testing.T) {
	if Semicircles(0) != 0 {
		t.Error("zero should map to zero")
	}
	if Semicircles(90) != 1<<30 {
		t.Errorf("90 deg = %d", Semicircles(90))
	}
	if d := Degrees(Semicircles(52.370216)); math.Abs(d-52.370216) > 1e-7 {
		t.Errorf("round trip = %f", d)
	}
	if v, err := longitude(180); err != nil || v != math.MaxInt32 {
		t.Errorf("longitude(180) = %d, %v", v, err)
	}
}

func TestAltitude(t *testing.T) {
	v, _ := Altitude(0)
	if v != 2500 {
		t.Errorf("0m = %d, want 2500", v)
	}
	v, _ = Altitude(-600)
	if v != 0 {
		t.Errorf("below offset should clamp to 0, got %d", v)
	}
	if _, err := Altitude(math.Inf(-1)); err == nil {
		t.Error("expected error for -Inf")
	}
}
