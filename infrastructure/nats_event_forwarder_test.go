package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"squadvault/events"
	"squadvault/ledger"
	"squadvault/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type publishedMessage struct {
	subject string
	data    []byte
}

// MockMessagePublisher records what would have gone to NATS
type MockMessagePublisher struct {
	mu           sync.Mutex
	Messages     []publishedMessage
	PublishError error
}

func (m *MockMessagePublisher) Publish(ctx context.Context, subject string, data []byte) error {
	if m.PublishError != nil {
		return m.PublishError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages = append(m.Messages, publishedMessage{subject: subject, data: data})
	return nil
}

func (m *MockMessagePublisher) subjects() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	subjects := make([]string, 0, len(m.Messages))
	for _, msg := range m.Messages {
		subjects = append(subjects, msg.subject)
	}
	return subjects
}

func TestNATSEventForwarder_Forward(t *testing.T) {
	publisher := &MockMessagePublisher{}
	forwarder := NewNATSEventForwarder(publisher, NewEventSubjectMapper())
	fixed := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	forwarder.now = func() time.Time { return fixed }

	member := ledger.Identity{9}
	event := events.InstructionEvent{
		Operation: events.EventTypeMemberAdded,
		AccountID: "squad-1",
		Actor:     ledger.Identity{1},
		Subject:   &member,
		Timestamp: 1_700_000_000,
		Sequence:  42,
	}

	require.NoError(t, forwarder.Forward(context.Background(), event))
	require.Len(t, publisher.Messages, 1)
	assert.Equal(t, "squads.member_added", publisher.Messages[0].subject)

	var envelope EventEnvelope
	require.NoError(t, json.Unmarshal(publisher.Messages[0].data, &envelope))
	assert.Equal(t, events.EventTypeMemberAdded, envelope.EventType)
	assert.Equal(t, "squadvault", envelope.SourceService)
	assert.True(t, fixed.Equal(envelope.Timestamp))
	_, err := uuid.Parse(envelope.EventID)
	assert.NoError(t, err)

	var decoded events.InstructionEvent
	require.NoError(t, json.Unmarshal(envelope.Payload, &decoded))
	assert.Equal(t, event, decoded)
}

func TestNATSEventForwarder_PublishError(t *testing.T) {
	publisher := &MockMessagePublisher{PublishError: errors.New("nats unavailable")}
	forwarder := NewNATSEventForwarder(publisher, NewEventSubjectMapper())

	err := forwarder.Forward(context.Background(), events.BalanceChangeEvent{AccountType: models.AccountTypeWallet})
	assert.EqualError(t, err, "nats unavailable")
}

func TestNATSEventForwarder_OnlyCommittedEventsReachNATS(t *testing.T) {
	publisher := &MockMessagePublisher{}
	bus := events.NewBus()
	NewNATSEventForwarder(publisher, NewEventSubjectMapper()).Attach(bus)

	ctx := context.Background()

	rolledBack := events.NewTransactionalBus(bus)
	rolledBack.Publish(events.InstructionEvent{Operation: events.EventTypeSquadDeposit})
	rolledBack.Discard()

	committed := events.NewTransactionalBus(bus)
	committed.Publish(events.InstructionEvent{Operation: events.EventTypeStreamCancelled})
	committed.Publish(events.BalanceChangeEvent{AccountType: models.AccountTypeStream})
	require.NoError(t, committed.Flush(ctx))

	bus.Wait()
	assert.ElementsMatch(t, []string{"streams.cancelled", "ledger.balance_changed"}, publisher.subjects())
}
