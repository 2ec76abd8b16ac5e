package types

import (
	"encoding/json"

	"github.com/cloudevents/sdk-go/v2/event"
)

// EventTypePubSubPublished is the type of a Pub/Sub push delivered as a
// CloudEvent.
const EventTypePubSubPublished = "google.cloud.pubsub.topic.v1.messagePublished"

// PubSubMessage is the data of a Pub/Sub push CloudEvent.
type PubSubMessage struct {
	Message struct {
		Data       []byte            `json:"data"`
		Attributes map[string]string `json:"attributes,omitempty"`
		MessageID  string            `json:"messageId,omitempty"`
	} `json:"message"`
	Subscription string `json:"subscription,omitempty"`
}

// ParsePubSubMessage decodes the envelope carried by e.
func ParsePubSubMessage(e event.Event) (*PubSubMessage, error) {
	var msg PubSubMessage
	if err := json.Unmarshal(e.Data(), &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// Inner returns the CloudEvent published as the message body, if the body
// is one.
func (m *PubSubMessage) Inner() (event.Event, bool) {
	var inner event.Event
	if err := json.Unmarshal(m.Message.Data, &inner); err != nil || inner.Type() == "" {
		return inner, false
	}
	return inner, true
}
