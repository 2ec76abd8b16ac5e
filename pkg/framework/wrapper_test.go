package framework

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cloudevents/sdk-go/v2/event"

	"github.com/xpayn3/cyclinghub-server/pkg/bootstrap"
	hubErrors "github.com/xpayn3/cyclinghub-server/pkg/errors"
	"github.com/xpayn3/cyclinghub-server/pkg/execution"
	"github.com/xpayn3/cyclinghub-server/pkg/testing/mocks"
	"github.com/xpayn3/cyclinghub-server/pkg/types"
)

func statusRecorder(t *testing.T, statuses *[]string) *mocks.MockDatabase {
	t.Helper()
	return &mocks.MockDatabase{
		SetExecutionFunc: func(ctx context.Context, record *execution.Record) error {
			*statuses = append(*statuses, string(record.Status))
			return nil
		},
		UpdateExecutionFunc: func(ctx context.Context, id string, data map[string]interface{}) error {
			*statuses = append(*statuses, data["status"].(string))
			return nil
		},
	}
}

func TestWrapCloudEvent(t *testing.T) {
	var statuses []string
	svc := &bootstrap.Service{DB: statusRecorder(t, &statuses)}

	handler := func(ctx context.Context, e event.Event, fwCtx *FrameworkContext) (interface{}, error) {
		if fwCtx.Service != svc {
			t.Error("Service not injected correctly")
		}
		if fwCtx.ExecutionID == "" {
			t.Error("ExecutionID not generated")
		}
		return "ok", nil
	}

	e := event.New()
	e.SetType("com.cyclinghub.route.plan.requested")
	e.SetSource("test-source")

	if err := WrapCloudEvent("test-service", svc, handler)(context.Background(), e); err != nil {
		t.Fatalf("Handler failed: %v", err)
	}
	if len(statuses) != 2 || statuses[0] != "STARTED" || statuses[1] != "SUCCESS" {
		t.Errorf("Unexpected status sequence %v", statuses)
	}
}

func TestWrapCloudEvent_Failure(t *testing.T) {
	var statuses []string
	svc := &bootstrap.Service{DB: statusRecorder(t, &statuses)}

	handler := func(ctx context.Context, e event.Event, fwCtx *FrameworkContext) (interface{}, error) {
		return nil, errors.New("simulated error")
	}

	err := WrapCloudEvent("test-service", svc, handler)(context.Background(), event.New())
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if len(statuses) != 2 || statuses[1] != "FAILED" {
		t.Errorf("Unexpected status sequence %v", statuses)
	}
}

func TestWrapCloudEvent_UnwrapsNestedEvent(t *testing.T) {
	svc := &bootstrap.Service{DB: &mocks.MockDatabase{}}

	expectedID := "inner-event-123"
	expectedType := types.EventTypePlanRequested

	handler := func(ctx context.Context, e event.Event, fwCtx *FrameworkContext) (interface{}, error) {
		if e.ID() != expectedID {
			t.Errorf("Expected event ID %s, got %s", expectedID, e.ID())
		}
		if e.Type() != expectedType {
			t.Errorf("Expected event type %s, got %s", expectedType, e.Type())
		}
		var data map[string]string
		if err := json.Unmarshal(e.Data(), &data); err != nil || data["foo"] != "bar" {
			t.Errorf("Expected inner data, got %s", e.Data())
		}
		return "ok", nil
	}

	inner := event.New()
	inner.SetID(expectedID)
	inner.SetType(expectedType)
	inner.SetSource("/test/source")
	inner.SetData(event.ApplicationJSON, map[string]string{"foo": "bar"})
	innerBytes, _ := json.Marshal(inner)

	var psMsg types.PubSubMessage
	psMsg.Message.Data = innerBytes

	outer := event.New()
	outer.SetID("outer-msg-id")
	outer.SetType(types.EventTypePubSubPublished)
	outer.SetSource("//pubsub")
	outer.SetData(event.ApplicationJSON, psMsg)

	if err := WrapCloudEvent("test-service", svc, handler)(context.Background(), outer); err != nil {
		t.Fatalf("Handler failed: %v", err)
	}
}

func TestWrapCloudEvent_RawPubSubData(t *testing.T) {
	svc := &bootstrap.Service{DB: &mocks.MockDatabase{}}

	var psMsg types.PubSubMessage
	psMsg.Message.Data = []byte(`{"request_id":"req-1"}`)
	outer := event.New()
	outer.SetID("outer")
	outer.SetType(types.EventTypePubSubPublished)
	outer.SetSource("//pubsub")
	outer.SetData(event.ApplicationJSON, psMsg)

	handler := func(ctx context.Context, e event.Event, fwCtx *FrameworkContext) (interface{}, error) {
		var req types.PlanRequestedEvent
		if err := e.DataAs(&req); err != nil || req.RequestID != "req-1" {
			t.Errorf("Expected raw message data, got %s (%v)", e.Data(), err)
		}
		return nil, nil
	}
	if err := WrapCloudEvent("test-service", svc, handler)(context.Background(), outer); err != nil {
		t.Fatalf("Handler failed: %v", err)
	}
}

func TestWrapHTTP(t *testing.T) {
	var statuses []string
	svc := &bootstrap.Service{DB: statusRecorder(t, &statuses)}

	h := WrapHTTP("exporter", svc, func(w http.ResponseWriter, r *http.Request, fwCtx *FrameworkContext) (interface{}, error) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("done"))
		return map[string]int{"bytes": 4}, nil
	})

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/gpx", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "done" {
		t.Errorf("Unexpected response %d %q", rec.Code, rec.Body.String())
	}
	if len(statuses) != 2 || statuses[1] != "SUCCESS" {
		t.Errorf("Unexpected status sequence %v", statuses)
	}
}

func TestWrapHTTP_Error(t *testing.T) {
	var statuses []string
	svc := &bootstrap.Service{DB: statusRecorder(t, &statuses)}

	h := WrapHTTP("exporter", svc, func(w http.ResponseWriter, r *http.Request, fwCtx *FrameworkContext) (interface{}, error) {
		return nil, hubErrors.ErrRouteNotFound.WithMetadata("route_id", "r-9")
	})

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/routes/r-9", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}

	var body ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("error body is not JSON: %v", err)
	}
	if body.Code != string(hubErrors.CodeRouteNotFound) || body.Metadata["route_id"] != "r-9" {
		t.Errorf("Unexpected error body %+v", body)
	}
	if len(statuses) != 2 || statuses[1] != "FAILED" {
		t.Errorf("Unexpected status sequence %v", statuses)
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{hubErrors.ErrValidation, http.StatusBadRequest},
		{hubErrors.ErrEmptyExportInput, http.StatusBadRequest},
		{hubErrors.ErrInvalidFormat.WithMessage("bad gpx"), http.StatusBadRequest},
		{hubErrors.ErrRouteNotFound, http.StatusNotFound},
		{hubErrors.ErrRoutingRateLimited, http.StatusTooManyRequests},
		{hubErrors.ErrRoutingUnavailable, http.StatusBadGateway},
		{hubErrors.ErrTimeout, http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := HTTPStatus(tt.err); got != tt.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
