package pubsub

import (
	"context"
	"encoding/json"
	"log/slog"

	"cloud.google.com/go/pubsub"
	"github.com/cloudevents/sdk-go/v2/event"

	hubErrors "github.com/xpayn3/cyclinghub-server/pkg/errors"
)

// PubSubAdapter publishes CloudEvents as structured-mode JSON messages.
type PubSubAdapter struct {
	Client *pubsub.Client
}

func (a *PubSubAdapter) PublishCloudEvent(ctx context.Context, topicID string, e event.Event) (string, error) {
	data, attrs, err := encode(topicID, e)
	if err != nil {
		return "", err
	}

	res := a.Client.Topic(topicID).Publish(ctx, &pubsub.Message{Data: data, Attributes: attrs})
	msgID, err := res.Get(ctx)
	if err != nil {
		slog.Error("Failed to publish event", "topic", topicID, "event_type", e.Type(), "error", err)
		return "", hubErrors.ErrPubSubError.WithCause(err).WithMetadata("topic", topicID)
	}
	slog.Info("Event published", "topic", topicID, "event_type", e.Type(), "event_id", e.ID(), "message_id", msgID, "size_bytes", len(data))
	return msgID, nil
}

// LogPublisher logs events instead of publishing them. Used when
// ENABLE_PUBLISH is off.
type LogPublisher struct{}

func (p *LogPublisher) PublishCloudEvent(ctx context.Context, topicID string, e event.Event) (string, error) {
	data, attrs, err := encode(topicID, e)
	if err != nil {
		return "", err
	}
	slog.Info("MOCK PUBLISH", "topic", topicID, "data", string(data), "attributes", attrs)
	return "mock-msg-id", nil
}

// encode marshals e and copies its type and source into message attributes
// so subscriptions can filter without decoding the body.
func encode(topicID string, e event.Event) ([]byte, map[string]string, error) {
	data, err := json.Marshal(e)
	if err != nil {
		slog.Error("Failed to marshal CloudEvent", "topic", topicID, "error", err)
		return nil, nil, hubErrors.ErrPubSubError.WithCause(err).WithMessage("marshal cloud event")
	}
	attrs := map[string]string{
		"ce-type":   e.Type(),
		"ce-source": e.Source(),
	}
	return data, attrs, nil
}
