package routeplanner

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cloudevents/sdk-go/v2/event"

	"github.com/xpayn3/cyclinghub-server/pkg/bootstrap"
	"github.com/xpayn3/cyclinghub-server/pkg/config"
	hubErrors "github.com/xpayn3/cyclinghub-server/pkg/errors"
	"github.com/xpayn3/cyclinghub-server/pkg/fit"
	"github.com/xpayn3/cyclinghub-server/pkg/framework"
	"github.com/xpayn3/cyclinghub-server/pkg/geo"
	"github.com/xpayn3/cyclinghub-server/pkg/routing"
	"github.com/xpayn3/cyclinghub-server/pkg/storage"
	"github.com/xpayn3/cyclinghub-server/pkg/testing/mocks"
	"github.com/xpayn3/cyclinghub-server/pkg/types"
)

func planEvent(t *testing.T, req types.PlanRequestedEvent) event.Event {
	t.Helper()
	e := event.New()
	e.SetID("evt-1")
	e.SetType(types.EventTypePlanRequested)
	e.SetSource("/test")
	if err := e.SetData(event.ApplicationJSON, req); err != nil {
		t.Fatalf("SetData failed: %v", err)
	}
	return e
}

type harness struct {
	svc     *bootstrap.Service
	saved   *storage.SavedRoute
	written map[string][]byte
	events  []event.Event
	outputs string
}

func newHarness(t *testing.T, provider routing.Provider) *harness {
	t.Helper()
	h := &harness{written: map[string][]byte{}}
	h.svc = &bootstrap.Service{
		DB: &mocks.MockDatabase{
			UpdateExecutionFunc: func(ctx context.Context, id string, data map[string]interface{}) error {
				h.outputs, _ = data["outputs_json"].(string)
				return nil
			},
		},
		Routes: &mocks.MockRouteStore{
			SaveRouteFunc: func(ctx context.Context, r *storage.SavedRoute) error {
				h.saved = r
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
				h.events = append(h.events, e)
				return "msg-1", nil
			},
		},
		Router:    provider,
		Elevation: &mocks.MockElevation{},
		Config:    &config.Config{GCSArtifactBucket: "artifacts", RouterEngine: "osrm", HTTPTimeout: time.Second, FTPWatts: 200},
	}
	return h
}

func (h *harness) run(t *testing.T, req types.PlanRequestedEvent) error {
	t.Helper()
	enc := fit.NewEncoder()
	enc.Now = func() time.Time { return time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC) }
	return framework.WrapCloudEvent(serviceName, h.svc, planHandler(enc))(context.Background(), planEvent(t, req))
}

var (
	home = geo.LatLng{Lat: 52.0, Lng: 4.0}
	cafe = geo.LatLng{Lat: 52.1, Lng: 4.1}
)

func TestPlanRoute(t *testing.T) {
	h := newHarness(t, &mocks.MockProvider{RouteFunc: mocks.StraightRoute(15000, 3000)})

	if err := h.run(t, types.PlanRequestedEvent{RequestID: "req-1", Name: "Cafe Run", Waypoints: []geo.LatLng{home, cafe}}); err != nil {
		t.Fatalf("PlanRoute failed: %v", err)
	}

	if h.saved == nil {
		t.Fatal("Expected route saved")
	}
	if h.saved.Name != "Cafe Run" || h.saved.Profile != "mock/test" {
		t.Errorf("Unexpected saved route %q/%q", h.saved.Name, h.saved.Profile)
	}
	if len(h.saved.Segments) != 1 || h.saved.DistanceMeters != 15000 {
		t.Errorf("Unexpected segments %d / distance %v", len(h.saved.Segments), h.saved.DistanceMeters)
	}
	if h.saved.Elevation.Empty() {
		t.Error("Expected elevation profile attached")
	}

	if len(h.written) != 1 {
		t.Fatalf("Expected one course written, got %d", len(h.written))
	}
	for key, data := range h.written {
		if !strings.HasPrefix(key, "artifacts/routes/"+h.saved.ID+"/route-") {
			t.Errorf("Unexpected object %q", key)
		}
		if _, err := fit.DecodeTrack(bytes.NewReader(data)); err != nil {
			t.Errorf("stored course is not valid FIT: %v", err)
		}
	}

	if len(h.events) != 1 || h.events[0].Type() != types.EventTypeExportCompleted {
		t.Fatalf("Expected one export.completed event, got %d", len(h.events))
	}
	if !strings.Contains(h.outputs, `"route_id":"`+h.saved.ID+`"`) || !strings.Contains(h.outputs, `"fallbacks":0`) {
		t.Errorf("Unexpected outputs %s", h.outputs)
	}
}

func TestPlanRoute_FallbackStillSaves(t *testing.T) {
	h := newHarness(t, &mocks.MockProvider{
		RouteFunc: func(ctx context.Context, req routing.Request) ([]routing.Route, error) {
			return nil, hubErrors.ErrRoutingUnavailable
		},
	})
	h.svc.Elevation = &mocks.MockElevation{
		LookupFunc: func(ctx context.Context, points []geo.LatLng) ([]float64, error) {
			return nil, errors.New("elevation down")
		},
	}

	if err := h.run(t, types.PlanRequestedEvent{Waypoints: []geo.LatLng{home, cafe}}); err != nil {
		t.Fatalf("PlanRoute failed: %v", err)
	}
	if h.saved == nil || !h.saved.Segments[0].IsFallback {
		t.Fatal("Expected fallback segment saved")
	}
	if h.saved.Name != storage.DefaultRouteName {
		t.Errorf("Expected default name, got %q", h.saved.Name)
	}
	if !h.saved.Elevation.Empty() {
		t.Error("Expected no elevation when lookup fails")
	}
	if !strings.Contains(h.outputs, `"fallbacks":1`) {
		t.Errorf("Expected one fallback in outputs, got %s", h.outputs)
	}
}

func TestPlanRoute_Loop(t *testing.T) {
	h := newHarness(t, &mocks.MockProvider{RouteFunc: mocks.StraightRoute(10000, 2000)})

	if err := h.run(t, types.PlanRequestedEvent{Waypoints: []geo.LatLng{home, cafe}, Loop: true}); err != nil {
		t.Fatalf("PlanRoute failed: %v", err)
	}
	if len(h.saved.Waypoints) != 3 || len(h.saved.Segments) != 2 {
		t.Errorf("Expected closed loop, got %d waypoints", len(h.saved.Waypoints))
	}
	last := h.saved.Waypoints[2]
	if last.Lat != home.Lat || last.Lng != home.Lng {
		t.Errorf("Expected loop to end at start, got %+v", last)
	}
}

func TestPlanRoute_Invalid(t *testing.T) {
	tests := map[string]types.PlanRequestedEvent{
		"one waypoint": {Waypoints: []geo.LatLng{home}},
		"bad engine":   {Waypoints: []geo.LatLng{home, cafe}, Engine: "graphhopper"},
	}
	for name, req := range tests {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t, &mocks.MockProvider{})
			err := h.run(t, req)
			if hubErrors.GetCode(err) != hubErrors.CodeValidationError {
				t.Errorf("Expected VALIDATION_ERROR, got %v", err)
			}
			if h.saved != nil {
				t.Error("Expected nothing saved")
			}
		})
	}
}

func TestPlanRoute_NoBucket(t *testing.T) {
	h := newHarness(t, &mocks.MockProvider{RouteFunc: mocks.StraightRoute(1000, 200)})
	h.svc.Config.GCSArtifactBucket = ""

	if err := h.run(t, types.PlanRequestedEvent{Waypoints: []geo.LatLng{home, cafe}}); err != nil {
		t.Fatalf("PlanRoute failed: %v", err)
	}
	if h.saved == nil || len(h.written) != 0 || len(h.events) != 0 {
		t.Error("Expected route saved without artifact")
	}
}
