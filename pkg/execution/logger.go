package execution

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	hubErrors "github.com/xpayn3/cyclinghub-server/pkg/errors"
)

// Status is the lifecycle state of an execution record.
type Status string

const (
	StatusStarted Status = "STARTED"
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
)

// Record is one function invocation, stored in the executions collection.
type Record struct {
	ExecutionID       string     `json:"execution_id" firestore:"execution_id"`
	Service           string     `json:"service" firestore:"service"`
	Status            Status     `json:"status" firestore:"status"`
	TriggerType       string     `json:"trigger_type" firestore:"trigger_type"`
	ParentExecutionID string     `json:"parent_execution_id,omitempty" firestore:"parent_execution_id,omitempty"`
	Timestamp         time.Time  `json:"timestamp" firestore:"timestamp"`
	StartTime         time.Time  `json:"start_time" firestore:"start_time"`
	EndTime           *time.Time `json:"end_time,omitempty" firestore:"end_time,omitempty"`
	InputsJSON        string     `json:"inputs_json,omitempty" firestore:"inputs_json,omitempty"`
	OutputsJSON       string     `json:"outputs_json,omitempty" firestore:"outputs_json,omitempty"`
	ErrorCode         string     `json:"error_code,omitempty" firestore:"error_code,omitempty"`
	ErrorMessage      string     `json:"error_message,omitempty" firestore:"error_message,omitempty"`
}

// Database interface for Firestore operations
type Database interface {
	SetExecution(ctx context.Context, record *Record) error
	UpdateExecution(ctx context.Context, id string, data map[string]interface{}) error
}

// ExecutionOptions contains optional fields for execution logging
type ExecutionOptions struct {
	TriggerType       string
	ParentExecutionID string
	Inputs            interface{}
}

func newID(service string) string {
	return fmt.Sprintf("%s-%d", service, time.Now().UnixNano())
}

// LogStart creates an execution record with STARTED status
func LogStart(ctx context.Context, db Database, service string, opts ExecutionOptions) (string, error) {
	execID := newID(service)
	now := time.Now().UTC()

	record := &Record{
		ExecutionID:       execID,
		Service:           service,
		Status:            StatusStarted,
		TriggerType:       opts.TriggerType,
		ParentExecutionID: opts.ParentExecutionID,
		Timestamp:         now,
		StartTime:         now,
	}
	if opts.Inputs != nil {
		if inputsJSON, err := json.Marshal(opts.Inputs); err == nil {
			record.InputsJSON = string(inputsJSON)
		}
	}

	if err := db.SetExecution(ctx, record); err != nil {
		return execID, fmt.Errorf("failed to log execution start: %w", err)
	}
	return execID, nil
}

// LogSuccess updates an execution record with SUCCESS status
func LogSuccess(ctx context.Context, db Database, execID string, outputs interface{}) error {
	updates := finished(StatusSuccess, outputs)
	if err := db.UpdateExecution(ctx, execID, updates); err != nil {
		return fmt.Errorf("failed to log execution success: %w", err)
	}
	return nil
}

// LogFailure updates an execution record with FAILED status and the error code
func LogFailure(ctx context.Context, db Database, execID string, err error, outputs interface{}) error {
	updates := finished(StatusFailed, outputs)
	updates["error_message"] = err.Error()
	updates["error_code"] = string(hubErrors.GetCode(err))

	if updateErr := db.UpdateExecution(ctx, execID, updates); updateErr != nil {
		return fmt.Errorf("failed to log execution failure: %w", updateErr)
	}
	return nil
}

func finished(status Status, outputs interface{}) map[string]interface{} {
	now := time.Now().UTC()
	updates := map[string]interface{}{
		"status":    string(status),
		"timestamp": now,
		"end_time":  now,
	}
	if outputs != nil {
		if outputsJSON, err := json.Marshal(outputs); err == nil {
			updates["outputs_json"] = string(outputsJSON)
		}
	}
	return updates
}
