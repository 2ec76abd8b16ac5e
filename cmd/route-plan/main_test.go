package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	hubErrors "github.com/xpayn3/cyclinghub-server/pkg/errors"
	"github.com/xpayn3/cyclinghub-server/pkg/geo"
	"github.com/xpayn3/cyclinghub-server/pkg/routegraph"
)

func TestParseWaypoints(t *testing.T) {
	got, err := parseWaypoints(" 52.37,4.89 ; 52.09, 5.12;")
	if err != nil {
		t.Fatalf("parseWaypoints failed: %v", err)
	}
	want := []geo.LatLng{{Lat: 52.37, Lng: 4.89}, {Lat: 52.09, Lng: 5.12}}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("Unexpected waypoints %v", got)
	}
}

func TestParseWaypoints_Invalid(t *testing.T) {
	for _, in := range []string{"", "52.3,4.8", "52.3;4.8", "a,b;1,2", "1,2,3;4,5"} {
		if _, err := parseWaypoints(in); hubErrors.GetCode(err) != hubErrors.CodeValidationError {
			t.Errorf("parseWaypoints(%q): expected VALIDATION_ERROR, got %v", in, err)
		}
	}
}

func TestWriteExports(t *testing.T) {
	a, b := geo.LatLng{Lat: 52.0, Lng: 4.0}, geo.LatLng{Lat: 52.01, Lng: 4.01}
	snap := routegraph.Snapshot{
		Waypoints: []routegraph.Waypoint{{Lat: a.Lat, Lng: a.Lng}, {Lat: b.Lat, Lng: b.Lng}},
		Segments:  []routegraph.Segment{routegraph.FallbackSegment(a, b)},
	}
	dir := t.TempDir() + "/"
	gpxPath := filepath.Join(t.TempDir(), "out.gpx")

	var out bytes.Buffer
	opts := options{gpxOut: gpxPath, fitOut: dir, geojson: dir}
	if err := writeExports(snap, "Test", opts, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), &out); err != nil {
		t.Fatalf("writeExports failed: %v", err)
	}

	for _, p := range []string{gpxPath, dir + "route-2024-06-01.fit", dir + "route-2024-06-01.geojson"} {
		if info, err := os.Stat(p); err != nil || info.Size() == 0 {
			t.Errorf("Expected %s written: %v", p, err)
		}
	}
	if strings.Count(out.String(), "Wrote ") != 3 {
		t.Errorf("Unexpected output:\n%s", out.String())
	}
}

func TestPrintSummary(t *testing.T) {
	var out bytes.Buffer
	printSummary(&out, "osrm/cycling", routegraph.Summary{DistanceMeters: 42195, EstimatedSeconds: 5400, Waypoints: 3, Fallbacks: 1})
	report := out.String()
	for _, want := range []string{"osrm/cycling", "42.2 km", "1:30", "Fallbacks"} {
		if !strings.Contains(report, want) {
			t.Errorf("Missing %q in:\n%s", want, report)
		}
	}
}
