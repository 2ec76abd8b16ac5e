package main

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	hubErrors "github.com/xpayn3/cyclinghub-server/pkg/errors"
	"github.com/xpayn3/cyclinghub-server/pkg/fit"
	"github.com/xpayn3/cyclinghub-server/pkg/geo"
	"github.com/xpayn3/cyclinghub-server/pkg/routegraph"
)

func TestGenerateWorkout(t *testing.T) {
	plan := []byte(`{"name":"Over Unders","segments":[{"type":"interval","reps":3,"onDuration":120,"onPower":105,"offDuration":60,"offPower":90}]}`)
	data, name, err := generateWorkout(plan, 300)
	if err != nil {
		t.Fatalf("generateWorkout failed: %v", err)
	}
	if name != "Over_Unders.fit" {
		t.Errorf("Unexpected file name %q", name)
	}
	w, err := fit.DecodeWorkout(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("DecodeWorkout failed: %v", err)
	}
	if len(w.Steps) != 6 {
		t.Errorf("Expected 6 flattened steps, got %d", len(w.Steps))
	}
}

func TestGenerateCourse(t *testing.T) {
	a, b := geo.LatLng{Lat: 52.0, Lng: 4.0}, geo.LatLng{Lat: 52.01, Lng: 4.01}
	snap := routegraph.Snapshot{
		Waypoints: []routegraph.Waypoint{{Lat: a.Lat, Lng: a.Lng}, {Lat: b.Lat, Lng: b.Lng}},
		Segments:  []routegraph.Segment{routegraph.FallbackSegment(a, b)},
	}
	raw, _ := json.Marshal(snap)

	data, name, err := generateCourse(raw, "Spin", time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("generateCourse failed: %v", err)
	}
	if name != "route-2024-03-09.fit" {
		t.Errorf("Unexpected file name %q", name)
	}
	if track, err := fit.DecodeTrack(bytes.NewReader(data)); err != nil || len(track) != 2 {
		t.Errorf("Expected 2 records, got %d (%v)", len(track), err)
	}
}

func TestGenerateCourse_BrokenSnapshot(t *testing.T) {
	raw := []byte(`{"waypoints":[{"lat":1,"lng":1},{"lat":2,"lng":2}],"segments":[]}`)
	if _, _, err := generateCourse(raw, "", time.Now()); hubErrors.GetCode(err) != hubErrors.CodeValidationError {
		t.Errorf("Expected VALIDATION_ERROR, got %v", err)
	}
}
