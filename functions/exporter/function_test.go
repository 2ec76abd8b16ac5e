package exporter

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cloudevents/sdk-go/v2/event"
	"github.com/tkrajina/gpxgo/gpx"

	"github.com/xpayn3/cyclinghub-server/pkg/bootstrap"
	"github.com/xpayn3/cyclinghub-server/pkg/config"
	hubErrors "github.com/xpayn3/cyclinghub-server/pkg/errors"
	"github.com/xpayn3/cyclinghub-server/pkg/fit"
	"github.com/xpayn3/cyclinghub-server/pkg/framework"
	"github.com/xpayn3/cyclinghub-server/pkg/geo"
	"github.com/xpayn3/cyclinghub-server/pkg/routegraph"
	"github.com/xpayn3/cyclinghub-server/pkg/storage"
	"github.com/xpayn3/cyclinghub-server/pkg/testing/mocks"
	"github.com/xpayn3/cyclinghub-server/pkg/types"
)

var exportDay = time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)

func testEncoder() *fit.Encoder {
	enc := fit.NewEncoder()
	enc.Now = func() time.Time { return exportDay }
	return enc
}

func sampleSnapshot() routegraph.Snapshot {
	a, b, c := geo.LatLng{Lat: 52.0, Lng: 4.0}, geo.LatLng{Lat: 52.05, Lng: 4.05}, geo.LatLng{Lat: 52.1, Lng: 4.1}
	return routegraph.Snapshot{
		Waypoints: []routegraph.Waypoint{{Lat: a.Lat, Lng: a.Lng}, {Lat: c.Lat, Lng: c.Lng}},
		Segments: []routegraph.Segment{{
			Points:         []geo.LatLng{a, b, c},
			DistanceMeters: geo.PathLength([]geo.LatLng{a, b, c}),
		}},
	}
}

type harness struct {
	svc       *bootstrap.Service
	written   map[string][]byte
	published []event.Event
	topics    []string
	statuses  []string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{written: map[string][]byte{}}
	h.svc = &bootstrap.Service{
		DB: &mocks.MockDatabase{
			UpdateExecutionFunc: func(ctx context.Context, id string, data map[string]interface{}) error {
				h.statuses = append(h.statuses, data["status"].(string))
				return nil
			},
		},
		Store: &mocks.MockBlobStore{
			WriteFunc: func(ctx context.Context, bucket, object string, data []byte) error {
				h.written[bucket+"/"+object] = data
				return nil
			},
		},
		Pub: &mocks.MockPublisher{
			PublishCloudEventFunc: func(ctx context.Context, topic string, e event.Event) (string, error) {
				h.topics = append(h.topics, topic)
				h.published = append(h.published, e)
				return "msg-1", nil
			},
		},
		Routes: &mocks.MockRouteStore{},
		Config: &config.Config{GCSArtifactBucket: "artifacts", FTPWatts: 250},
	}
	return h
}

func (h *harness) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	rec := httptest.NewRecorder()
	handler := framework.WrapHTTP(serviceName, h.svc, exportHandler(testEncoder()))
	handler(rec, httptest.NewRequest(method, path, &buf))
	return rec
}

func TestExport_GPX(t *testing.T) {
	h := newHarness(t)
	snap := sampleSnapshot()
	rec := h.do(http.MethodPost, "/gpx", routeRequest{Name: "Coast", Route: &snap})

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/gpx+xml" {
		t.Errorf("Unexpected content type %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "route-2024-06-01.gpx") {
		t.Errorf("Unexpected disposition %q", cd)
	}

	doc, err := gpx.ParseBytes(rec.Body.Bytes())
	if err != nil {
		t.Fatalf("response is not GPX: %v", err)
	}
	if doc.Tracks[0].Name != "Coast" || len(doc.Tracks[0].Segments[0].Points) != 3 {
		t.Errorf("Unexpected track %+v", doc.Tracks[0])
	}

	if len(h.written) != 1 {
		t.Fatalf("Expected one stored artifact, got %d", len(h.written))
	}
	for key := range h.written {
		if !strings.HasPrefix(key, "artifacts/exports/") || !strings.HasSuffix(key, "/route-2024-06-01.gpx") {
			t.Errorf("Unexpected object %q", key)
		}
	}

	if len(h.published) != 1 || h.topics[0] != types.TopicExportCompleted {
		t.Fatalf("Expected one export.completed event, got %v", h.topics)
	}
	var payload types.ExportCompletedEvent
	if err := h.published[0].DataAs(&payload); err != nil {
		t.Fatalf("event data: %v", err)
	}
	if payload.Format != types.FormatGPX || !strings.HasPrefix(payload.FileURI, "gs://artifacts/exports/") {
		t.Errorf("Unexpected payload %+v", payload)
	}
	if rec.Header().Get("X-Artifact-URI") != payload.FileURI {
		t.Errorf("Expected artifact header to match event URI")
	}
	if len(h.statuses) != 1 || h.statuses[0] != "SUCCESS" {
		t.Errorf("Unexpected execution statuses %v", h.statuses)
	}
}

func TestExport_CourseFromSavedRoute(t *testing.T) {
	h := newHarness(t)
	saved, err := storage.NewRoute("Saved Loop", sampleSnapshot(), "osrm/cycling")
	if err != nil {
		t.Fatalf("NewRoute failed: %v", err)
	}
	h.svc.Routes = &mocks.MockRouteStore{
		GetRouteFunc: func(ctx context.Context, id string) (*storage.SavedRoute, error) {
			if id != saved.ID {
				return nil, storage.NotFound(id)
			}
			return saved, nil
		},
	}

	rec := h.do(http.MethodPost, "/course", routeRequest{RouteID: saved.ID})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	track, err := fit.DecodeTrack(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatalf("response is not a FIT course: %v", err)
	}
	if len(track) != 3 {
		t.Errorf("Expected 3 records, got %d", len(track))
	}

	var payload types.ExportCompletedEvent
	h.published[0].DataAs(&payload)
	if payload.RouteID != saved.ID {
		t.Errorf("Expected route id on event, got %q", payload.RouteID)
	}
}

func TestExport_UnknownRoute(t *testing.T) {
	h := newHarness(t)
	rec := h.do(http.MethodPost, "/course", routeRequest{RouteID: "missing"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
	if len(h.statuses) != 1 || h.statuses[0] != "FAILED" {
		t.Errorf("Unexpected execution statuses %v", h.statuses)
	}
}

func TestExport_Workout(t *testing.T) {
	h := newHarness(t)
	plan := map[string]interface{}{
		"name": "Sweet Spot",
		"segments": []map[string]interface{}{
			{"type": "warmup", "duration": 600, "powerLow": 50, "powerHigh": 75},
			{"type": "steady", "duration": 1200, "power": 90},
		},
	}

	rec := h.do(http.MethodPost, "/workout", map[string]interface{}{"plan": plan})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "Sweet_Spot.fit") {
		t.Errorf("Unexpected disposition %q", cd)
	}
	if _, err := fit.Decode(bytes.NewReader(rec.Body.Bytes())); err != nil {
		t.Errorf("response is not valid FIT: %v", err)
	}

	rec = h.do(http.MethodPost, "/zwo", map[string]interface{}{"plan": plan})
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "<workout_file>") {
		t.Errorf("Unexpected ZWO response %d: %s", rec.Code, rec.Body.String())
	}
}

func TestExport_Errors(t *testing.T) {
	empty := routegraph.Snapshot{}
	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		code   hubErrors.ErrorCode
		status int
	}{
		{"wrong method", http.MethodGet, "/gpx", nil, hubErrors.CodeValidationError, http.StatusBadRequest},
		{"unknown path", http.MethodPost, "/kml", nil, hubErrors.CodeValidationError, http.StatusBadRequest},
		{"no route", http.MethodPost, "/gpx", routeRequest{}, hubErrors.CodeEmptyExportInput, http.StatusBadRequest},
		{"empty route", http.MethodPost, "/course", routeRequest{Route: &empty}, hubErrors.CodeEmptyExportInput, http.StatusBadRequest},
		{"empty workout", http.MethodPost, "/workout", map[string]interface{}{"plan": map[string]interface{}{}}, hubErrors.CodeEmptyExportInput, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			rec := h.do(tt.method, tt.path, tt.body)
			if rec.Code != tt.status {
				t.Errorf("Expected %d, got %d", tt.status, rec.Code)
			}
			var body framework.ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("error body is not JSON: %v", err)
			}
			if body.Code != string(tt.code) {
				t.Errorf("Expected %s, got %s", tt.code, body.Code)
			}
			if len(h.written) != 0 {
				t.Error("Expected nothing stored on failure")
			}
		})
	}
}

func TestExport_NoBucketSkipsStorage(t *testing.T) {
	h := newHarness(t)
	h.svc.Config = &config.Config{}
	snap := sampleSnapshot()
	rec := h.do(http.MethodPost, "/geojson", routeRequest{Route: &snap})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if len(h.written) != 0 || len(h.published) != 0 {
		t.Error("Expected no storage or events without a bucket")
	}
}
