package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/xpayn3/cyclinghub-server/pkg/fit"
	"github.com/xpayn3/cyclinghub-server/pkg/geo"
)

func TestInspect_Workout(t *testing.T) {
	steps := []fit.WorkoutStep{
		{Label: "Warm Up", DurationSeconds: 300, Intensity: fit.IntensityWarmup},
		{Label: "Work", DurationSeconds: 600, TargetLow: fit.Percent(90), TargetHigh: fit.Percent(100), Intensity: fit.IntensityActive},
	}
	data, err := fit.EncodeWorkout(steps, "Tempo", 200)
	if err != nil {
		t.Fatalf("EncodeWorkout failed: %v", err)
	}

	var out bytes.Buffer
	if err := inspect(&out, data, false); err != nil {
		t.Fatalf("inspect failed: %v", err)
	}
	report := out.String()
	if !strings.Contains(report, `Workout "Tempo" (2 steps)`) {
		t.Errorf("Missing workout header:\n%s", report)
	}
	if !strings.Contains(report, "180-200 W") {
		t.Errorf("Missing power target:\n%s", report)
	}
}

func TestInspect_Course(t *testing.T) {
	ele := 12.0
	points := []fit.TrackPoint{
		{Lat: 52.0, Lng: 4.0, Elevation: &ele},
		{Lat: 52.001, Lng: 4.001, Elevation: &ele},
		{Lat: 52.002, Lng: 4.002, Elevation: &ele},
	}
	data, err := fit.EncodeCourse(points, []geo.LatLng{{Lat: 52.0, Lng: 4.0}}, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("EncodeCourse failed: %v", err)
	}

	var out bytes.Buffer
	if err := inspect(&out, data, true); err != nil {
		t.Fatalf("inspect failed: %v", err)
	}
	report := out.String()
	if !strings.Contains(report, "Total Records: 3") {
		t.Errorf("Missing record total:\n%s", report)
	}
	if strings.Contains(report, "Workout ") {
		t.Errorf("Course should not print a workout:\n%s", report)
	}
}

func TestInspect_Invalid(t *testing.T) {
	if err := inspect(&bytes.Buffer{}, []byte("nope"), false); err == nil {
		t.Error("Expected decode error")
	}
}

func TestFieldStats(t *testing.T) {
	fs := NewFieldStats("power")
	for _, v := range []interface{}{uint16(100), uint16(300), uint16(0xFFFF), "x"} {
		fs.Update(v)
	}
	if fs.Count != 2 || fs.Min != 100 || fs.Max != 300 || fs.Avg() != 200 {
		t.Errorf("Unexpected stats %+v", fs)
	}
}
