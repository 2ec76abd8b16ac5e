package execution_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	hubErrors "github.com/xpayn3/cyclinghub-server/pkg/errors"
	"github.com/xpayn3/cyclinghub-server/pkg/execution"
)

type MockDB struct {
	SetExecutionFunc    func(ctx context.Context, record *execution.Record) error
	UpdateExecutionFunc func(ctx context.Context, id string, data map[string]interface{}) error
}

func (m *MockDB) SetExecution(ctx context.Context, record *execution.Record) error {
	if m.SetExecutionFunc != nil {
		return m.SetExecutionFunc(ctx, record)
	}
	return nil
}
func (m *MockDB) UpdateExecution(ctx context.Context, id string, data map[string]interface{}) error {
	if m.UpdateExecutionFunc != nil {
		return m.UpdateExecutionFunc(ctx, id, data)
	}
	return nil
}

func TestLogStart(t *testing.T) {
	var got *execution.Record
	mockDB := &MockDB{
		SetExecutionFunc: func(ctx context.Context, record *execution.Record) error {
			got = record
			return nil
		},
	}

	id, err := execution.LogStart(context.Background(), mockDB, "exporter", execution.ExecutionOptions{
		TriggerType: "http",
		Inputs:      map[string]string{"format": "gpx"},
	})
	if err != nil {
		t.Fatalf("LogStart failed: %v", err)
	}
	if !strings.HasPrefix(id, "exporter-") {
		t.Errorf("Expected id prefixed with service, got %s", id)
	}
	if got.Status != execution.StatusStarted {
		t.Errorf("Expected STARTED, got %v", got.Status)
	}
	if got.InputsJSON != `{"format":"gpx"}` {
		t.Errorf("Unexpected inputs_json %q", got.InputsJSON)
	}
	if got.TriggerType != "http" {
		t.Errorf("Expected trigger type http, got %s", got.TriggerType)
	}
}

func TestLogStart_DBError(t *testing.T) {
	mockDB := &MockDB{
		SetExecutionFunc: func(ctx context.Context, record *execution.Record) error {
			return errors.New("firestore down")
		},
	}
	id, err := execution.LogStart(context.Background(), mockDB, "exporter", execution.ExecutionOptions{})
	if err == nil {
		t.Fatal("Expected error")
	}
	if id == "" {
		t.Error("Expected execution ID even on failure")
	}
}

func TestLogSuccess(t *testing.T) {
	mockDB := &MockDB{
		UpdateExecutionFunc: func(ctx context.Context, id string, data map[string]interface{}) error {
			if id != "exec-1" {
				t.Errorf("Expected id exec-1, got %s", id)
			}
			if data["status"] != string(execution.StatusSuccess) {
				t.Errorf("Expected SUCCESS, got %v", data["status"])
			}
			if data["outputs_json"] != `{"bytes":42}` {
				t.Errorf("Unexpected outputs_json %v", data["outputs_json"])
			}
			if _, ok := data["end_time"]; !ok {
				t.Error("Expected end_time")
			}
			return nil
		},
	}
	if err := execution.LogSuccess(context.Background(), mockDB, "exec-1", map[string]int{"bytes": 42}); err != nil {
		t.Fatalf("LogSuccess failed: %v", err)
	}
}

func TestLogFailure(t *testing.T) {
	mockDB := &MockDB{
		UpdateExecutionFunc: func(ctx context.Context, id string, data map[string]interface{}) error {
			if data["status"] != string(execution.StatusFailed) {
				t.Errorf("Expected FAILED, got %v", data["status"])
			}
			if data["error_code"] != string(hubErrors.CodeEmptyExportInput) {
				t.Errorf("Expected error code EMPTY_EXPORT_INPUT, got %v", data["error_code"])
			}
			if msg, _ := data["error_message"].(string); !strings.Contains(msg, "nothing to export") {
				t.Errorf("Unexpected error message %q", msg)
			}
			return nil
		},
	}
	if err := execution.LogFailure(context.Background(), mockDB, "exec-2", hubErrors.ErrEmptyExportInput, nil); err != nil {
		t.Fatalf("LogFailure failed: %v", err)
	}
}
