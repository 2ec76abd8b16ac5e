package mocks

import (
	"context"
	"fmt"

	"github.com/cloudevents/sdk-go/v2/event"

	"github.com/xpayn3/cyclinghub-server/pkg/execution"
	"github.com/xpayn3/cyclinghub-server/pkg/geo"
	"github.com/xpayn3/cyclinghub-server/pkg/routing"
	"github.com/xpayn3/cyclinghub-server/pkg/storage"
)

// --- Mock Database ---
type MockDatabase struct {
	SetExecutionFunc    func(ctx context.Context, record *execution.Record) error
	UpdateExecutionFunc func(ctx context.Context, id string, data map[string]interface{}) error
}

func (m *MockDatabase) SetExecution(ctx context.Context, record *execution.Record) error {
	if m.SetExecutionFunc != nil {
		return m.SetExecutionFunc(ctx, record)
	}
	return nil
}
func (m *MockDatabase) UpdateExecution(ctx context.Context, id string, data map[string]interface{}) error {
	if m.UpdateExecutionFunc != nil {
		return m.UpdateExecutionFunc(ctx, id, data)
	}
	return nil
}

// --- Mock Route Store ---
type MockRouteStore struct {
	SaveRouteFunc   func(ctx context.Context, r *storage.SavedRoute) error
	GetRouteFunc    func(ctx context.Context, id string) (*storage.SavedRoute, error)
	ListRoutesFunc  func(ctx context.Context) ([]*storage.SavedRoute, error)
	DeleteRouteFunc func(ctx context.Context, id string) error
}

func (m *MockRouteStore) SaveRoute(ctx context.Context, r *storage.SavedRoute) error {
	if m.SaveRouteFunc != nil {
		return m.SaveRouteFunc(ctx, r)
	}
	return nil
}
func (m *MockRouteStore) GetRoute(ctx context.Context, id string) (*storage.SavedRoute, error) {
	if m.GetRouteFunc != nil {
		return m.GetRouteFunc(ctx, id)
	}
	return nil, storage.NotFound(id)
}
func (m *MockRouteStore) ListRoutes(ctx context.Context) ([]*storage.SavedRoute, error) {
	if m.ListRoutesFunc != nil {
		return m.ListRoutesFunc(ctx)
	}
	return nil, nil
}
func (m *MockRouteStore) DeleteRoute(ctx context.Context, id string) error {
	if m.DeleteRouteFunc != nil {
		return m.DeleteRouteFunc(ctx, id)
	}
	return nil
}

// --- Mock Publisher ---
type MockPublisher struct {
	PublishCloudEventFunc func(ctx context.Context, topic string, e event.Event) (string, error)
}

func (m *MockPublisher) PublishCloudEvent(ctx context.Context, topic string, e event.Event) (string, error) {
	if m.PublishCloudEventFunc != nil {
		return m.PublishCloudEventFunc(ctx, topic, e)
	}
	return "mock-msg-id", nil
}

// --- Mock Blob Store ---
type MockBlobStore struct {
	WriteFunc func(ctx context.Context, bucket, object string, data []byte) error
	ReadFunc  func(ctx context.Context, bucket, object string) ([]byte, error)
}

func (m *MockBlobStore) Write(ctx context.Context, bucket, object string, data []byte) error {
	if m.WriteFunc != nil {
		return m.WriteFunc(ctx, bucket, object, data)
	}
	return nil
}
func (m *MockBlobStore) Read(ctx context.Context, bucket, object string) ([]byte, error) {
	if m.ReadFunc != nil {
		return m.ReadFunc(ctx, bucket, object)
	}
	return nil, fmt.Errorf("object not found")
}

// --- Mock Secret Store ---
type MockSecretStore struct {
	GetSecretFunc func(ctx context.Context, projectID, name string) (string, error)
}

func (m *MockSecretStore) GetSecret(ctx context.Context, projectID, name string) (string, error) {
	if m.GetSecretFunc != nil {
		return m.GetSecretFunc(ctx, projectID, name)
	}
	return "mock-secret", nil
}

// --- Mock Routing Provider ---
type MockProvider struct {
	NameValue string
	RouteFunc func(ctx context.Context, req routing.Request) ([]routing.Route, error)
}

func (m *MockProvider) Name() string {
	if m.NameValue != "" {
		return m.NameValue
	}
	return "mock/test"
}
func (m *MockProvider) Route(ctx context.Context, req routing.Request) ([]routing.Route, error) {
	if m.RouteFunc != nil {
		return m.RouteFunc(ctx, req)
	}
	return nil, nil
}

// StraightRoute answers every request with a three-point path through the
// midpoint, carrying the given distance and duration.
func StraightRoute(distance, duration float64) func(ctx context.Context, req routing.Request) ([]routing.Route, error) {
	return func(ctx context.Context, req routing.Request) ([]routing.Route, error) {
		mid := geo.Interpolate(req.From, req.To, 0.5)
		return []routing.Route{{
			Points:   []geo.LatLng{req.From, mid, req.To},
			Distance: distance,
			Duration: duration,
		}}, nil
	}
}

// --- Mock Elevation Lookup ---
type MockElevation struct {
	LookupFunc func(ctx context.Context, points []geo.LatLng) ([]float64, error)
}

func (m *MockElevation) Lookup(ctx context.Context, points []geo.LatLng) ([]float64, error) {
	if m.LookupFunc != nil {
		return m.LookupFunc(ctx, points)
	}
	return make([]float64, len(points)), nil
}
