package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"squadvault/events"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// MessagePublisher sends raw bytes to a subject
type MessagePublisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// EventEnvelope wraps every event forwarded to NATS
type EventEnvelope struct {
	EventID       string           `json:"event_id"`
	EventType     events.EventType `json:"event_type"`
	Timestamp     time.Time        `json:"timestamp"`
	SourceService string           `json:"source_service"`
	Payload       json.RawMessage  `json:"payload"`
}

// NATSEventForwarder relays committed events from the in-process bus to NATS.
// The bus only sees events after their unit of work commits, so nothing
// rolled back is ever forwarded.
type NATSEventForwarder struct {
	publisher     MessagePublisher
	subjectMapper *EventSubjectMapper
	now           func() time.Time
}

// NewNATSEventForwarder creates a new forwarder
func NewNATSEventForwarder(publisher MessagePublisher, subjectMapper *EventSubjectMapper) *NATSEventForwarder {
	return &NATSEventForwarder{
		publisher:     publisher,
		subjectMapper: subjectMapper,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Attach subscribes the forwarder to every event type that has a subject
func (f *NATSEventForwarder) Attach(bus *events.Bus) {
	bus.SubscribeAll(f.subjectMapper.ForwardedEventTypes(), f.handle)
}

func (f *NATSEventForwarder) handle(ctx context.Context, event events.Event) {
	if err := f.Forward(ctx, event); err != nil {
		log.WithFields(log.Fields{
			"eventType": event.Type(),
			"error":     err,
		}).Error("Failed to forward event to NATS")
	}
}

// Forward publishes a single event in its envelope
func (f *NATSEventForwarder) Forward(ctx context.Context, event events.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	envelope := EventEnvelope{
		EventID:       uuid.New().String(),
		EventType:     event.Type(),
		Timestamp:     f.now(),
		SourceService: "squadvault",
		Payload:       payload,
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal event envelope: %w", err)
	}

	subject := f.subjectMapper.MapEventToSubject(event)
	if err := f.publisher.Publish(ctx, subject, data); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"eventType": event.Type(),
		"subject":   subject,
		"eventID":   envelope.EventID,
	}).Debug("Forwarded event to NATS")
	return nil
}
