// Package kafka publishes badge lifecycle events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"

	"github.com/ericfisherdev/badgehub/internal/domain/model"
	"github.com/ericfisherdev/badgehub/internal/domain/port/driven"
)

var _ driven.BadgeNotifier = (*Notifier)(nil)

// publishBatchTimeout caps how long a write waits for more messages to join
// its batch. Events are written one at a time on the request path.
const publishBatchTimeout = 10 * time.Millisecond

// messageWriter is the subset of *kafkago.Writer the notifier uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// eventPayload is the JSON wire form of a model.BadgeEvent.
type eventPayload struct {
	ID             string            `json:"id"`
	Type           model.EventType   `json:"type"`
	OccurredAt     time.Time         `json:"occurred_at"`
	CredentialID   int64             `json:"user_credential_id"`
	Username       string            `json:"username"`
	CredentialKind string            `json:"credential_kind"`
	TemplateID     int64             `json:"credential_id"`
	Status         string            `json:"status"`
	State          string            `json:"state"`
	ExternalID     string            `json:"external_id,omitempty"`
	Attributes     map[string]string `json:"attributes,omitempty"`
}

// Notifier implements driven.BadgeNotifier on top of a Kafka writer.
type Notifier struct {
	writer messageWriter
	now    func() time.Time
}

// NewNotifier creates a Notifier that writes to topic on brokers.
// Messages are keyed by username so one user's events stay ordered.
func NewNotifier(brokers []string, topic string) *Notifier {
	return newNotifier(&kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.Hash{},
		BatchTimeout:           publishBatchTimeout,
		RequiredAcks:           kafkago.RequireOne,
		AllowAutoTopicCreation: true,
	})
}

func newNotifier(w messageWriter) *Notifier {
	return &Notifier{writer: w, now: time.Now}
}

// NotifyBadgeAwarded publishes a badge.awarded event.
func (n *Notifier) NotifyBadgeAwarded(ctx context.Context, cred model.UserCredential) {
	n.publish(ctx, model.EventBadgeAwarded, cred)
}

// NotifyBadgeRevoked publishes a badge.revoked event.
func (n *Notifier) NotifyBadgeRevoked(ctx context.Context, cred model.UserCredential) {
	n.publish(ctx, model.EventBadgeRevoked, cred)
}

// Close flushes pending messages and closes the writer.
func (n *Notifier) Close() error {
	return n.writer.Close()
}

func (n *Notifier) publish(ctx context.Context, eventType model.EventType, cred model.UserCredential) {
	event := model.BadgeEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: n.now().UTC(),
		Credential: cred,
	}

	msg, err := n.message(ctx, event)
	if err != nil {
		slog.Error("failed to encode badge event", "type", eventType, "credential_id", cred.ID, "error", err)
		return
	}

	if err := n.writer.WriteMessages(ctx, msg); err != nil {
		slog.Error("failed to publish badge event",
			"type", eventType,
			"event_id", event.ID,
			"credential_id", cred.ID,
			"error", err,
		)
		return
	}

	slog.Debug("badge event published", "type", eventType, "event_id", event.ID, "username", cred.Username)
}

func (n *Notifier) message(ctx context.Context, event model.BadgeEvent) (kafkago.Message, error) {
	cred := event.Credential

	var attrs map[string]string
	if len(cred.Attributes) > 0 {
		attrs = make(map[string]string, len(cred.Attributes))
		for _, a := range cred.Attributes {
			attrs[a.Name] = a.Value
		}
	}

	value, err := json.Marshal(eventPayload{
		ID:             event.ID,
		Type:           event.Type,
		OccurredAt:     event.OccurredAt,
		CredentialID:   cred.ID,
		Username:       cred.Username,
		CredentialKind: string(cred.Credential.Kind),
		TemplateID:     cred.Credential.ID,
		Status:         string(cred.Status),
		State:          string(cred.State),
		ExternalID:     cred.ExternalID,
		Attributes:     attrs,
	})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("marshal event %s: %w", event.ID, err)
	}

	carrier := headerCarrier{{Key: "event-type", Value: []byte(event.Type)}}
	otel.GetTextMapPropagator().Inject(ctx, &carrier)

	return kafkago.Message{
		Key:     []byte(cred.Username),
		Value:   value,
		Headers: carrier,
		Time:    event.OccurredAt,
	}, nil
}

// headerCarrier adapts Kafka message headers to a propagation.TextMapCarrier.
type headerCarrier []kafkago.Header

func (c *headerCarrier) Get(key string) string {
	for _, h := range *c {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c *headerCarrier) Set(key, value string) {
	for i, h := range *c {
		if h.Key == key {
			(*c)[i].Value = []byte(value)
			return
		}
	}
	*c = append(*c, kafkago.Header{Key: key, Value: []byte(value)})
}

func (c *headerCarrier) Keys() []string {
	keys := make([]string, 0, len(*c))
	for _, h := range *c {
		keys = append(keys, h.Key)
	}
	return keys
}
