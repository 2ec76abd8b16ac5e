// Package framework wraps Cloud Function handlers with execution logging.
package framework

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/cloudevents/sdk-go/v2/event"

	"github.com/xpayn3/cyclinghub-server/pkg/bootstrap"
	"github.com/xpayn3/cyclinghub-server/pkg/execution"
	"github.com/xpayn3/cyclinghub-server/pkg/types"
)

// FrameworkContext is what a handler gets alongside its trigger.
type FrameworkContext struct {
	Service     *bootstrap.Service
	Logger      *slog.Logger
	ExecutionID string
}

// HandlerFunc is the signature for a CloudEvent handler.
// Returns outputs (for logging) and error
type HandlerFunc func(ctx context.Context, e event.Event, fwCtx *FrameworkContext) (interface{}, error)

// WrapCloudEvent wraps a handler with automatic execution logging. Pub/Sub
// envelopes are unwrapped so the handler sees the published CloudEvent.
func WrapCloudEvent(serviceName string, svc *bootstrap.Service, handler HandlerFunc) func(context.Context, event.Event) error {
	return func(ctx context.Context, e event.Event) error {
		fwCtx := start(ctx, serviceName, svc, "pubsub", map[string]string{"event_type": e.Type()})

		inner, err := unwrap(e)
		if err != nil {
			fwCtx.Logger.Warn("Failed to unwrap Pub/Sub message, using outer event", "error", err)
			inner = e
		}

		outputs, handlerErr := handler(ctx, inner, fwCtx)
		return finish(ctx, fwCtx, outputs, handlerErr)
	}
}

// unwrap extracts the CloudEvent carried in a Pub/Sub push. Messages whose
// data is not a CloudEvent are passed on with their raw data.
func unwrap(e event.Event) (event.Event, error) {
	if e.Type() != types.EventTypePubSubPublished {
		return e, nil
	}
	msg, err := types.ParsePubSubMessage(e)
	if err != nil {
		return e, err
	}
	if inner, ok := msg.Inner(); ok {
		return inner, nil
	}

	raw := e.Clone()
	if err := raw.SetData(event.ApplicationJSON, json.RawMessage(msg.Message.Data)); err != nil {
		return e, err
	}
	return raw, nil
}

func start(ctx context.Context, serviceName string, svc *bootstrap.Service, trigger string, inputs interface{}) *FrameworkContext {
	logger := slog.Default().With("service", serviceName)

	execID, err := execution.LogStart(ctx, svc.DB, serviceName, execution.ExecutionOptions{
		TriggerType: trigger,
		Inputs:      inputs,
	})
	if err != nil {
		// Continue anyway - don't fail the function just because logging failed
		logger.Error("Failed to log execution start", "error", err)
	}

	logger = logger.With("execution_id", execID)
	logger.Info("Function started", "trigger", trigger)
	return &FrameworkContext{Service: svc, Logger: logger, ExecutionID: execID}
}

func finish(ctx context.Context, fwCtx *FrameworkContext, outputs interface{}, handlerErr error) error {
	db := fwCtx.Service.DB
	if handlerErr != nil {
		fwCtx.Logger.Error("Function failed", "error", handlerErr)
		if logErr := execution.LogFailure(ctx, db, fwCtx.ExecutionID, handlerErr, outputs); logErr != nil {
			fwCtx.Logger.Warn("Failed to log execution failure", "error", logErr)
		}
		return handlerErr
	}

	fwCtx.Logger.Info("Function completed successfully")
	if logErr := execution.LogSuccess(ctx, db, fwCtx.ExecutionID, outputs); logErr != nil {
		fwCtx.Logger.Warn("Failed to log execution success", "error", logErr)
	}
	return nil
}
