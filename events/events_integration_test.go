package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"squadvault/ledger"
	"squadvault/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestEventDeliveryIntegration tests the complete event flow from TransactionalBus to main Bus
func TestEventDeliveryIntegration(t *testing.T) {
	mainBus := NewBus()
	transactionalBus := NewTransactionalBus(mainBus)

	eventReceived := make(chan BalanceChangeEvent, 1)
	mainBus.Subscribe(EventTypeBalanceChange, func(ctx context.Context, event Event) {
		if balanceEvent, ok := event.(BalanceChangeEvent); ok {
			eventReceived <- balanceEvent
		} else {
			t.Errorf("Expected BalanceChangeEvent, got %T", event)
		}
	})

	testEvent := BalanceChangeEvent{
		AccountType:  models.AccountTypeSquad,
		AccountID:    "0b7e1c1e-8d8e-5b3a-9a57-2f1f3c7f6e10",
		OldBalance:   1000,
		NewBalance:   1500,
		ChangeAmount: 500,
		EntryType:    models.EntryTypeDeposit,
		Sequence:     42,
	}

	transactionalBus.Publish(testEvent)
	require.NoError(t, transactionalBus.Flush(context.Background()))

	select {
	case received := <-eventReceived:
		assert.Equal(t, testEvent, received)
	case <-time.After(2 * time.Second):
		t.Fatal("Event was not received within timeout")
	}
}

// TestInstructionEventRouting checks that instruction events are routed by their operation
func TestInstructionEventRouting(t *testing.T) {
	mainBus := NewBus()
	transactionalBus := NewTransactionalBus(mainBus)

	var mu sync.Mutex
	var got []EventType
	mainBus.SubscribeAll(InstructionEventTypes(), func(ctx context.Context, event Event) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, event.Type())
	})

	actor := ledger.Identity{1}
	transactionalBus.Publish(InstructionEvent{Operation: EventTypeSquadDeposit, Actor: actor, Amounts: map[string]ledger.Amount{"amount": 10}})
	transactionalBus.Publish(InstructionEvent{Operation: EventTypeVoteCast, Actor: actor, NewStatus: string(models.ProposalStatusPassed)})
	transactionalBus.Publish(BalanceChangeEvent{AccountType: models.AccountTypeWallet})
	assert.Len(t, transactionalBus.Pending(), 3)

	require.NoError(t, transactionalBus.Flush(context.Background()))
	mainBus.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []EventType{EventTypeSquadDeposit, EventTypeVoteCast}, got)
	assert.Empty(t, transactionalBus.Pending())
}

// TestMultipleEventsDelivery tests delivering multiple events in sequence
func TestMultipleEventsDelivery(t *testing.T) {
	mainBus := NewBus()
	transactionalBus := NewTransactionalBus(mainBus)

	eventsReceived := make(chan BalanceChangeEvent, 3)
	mainBus.Subscribe(EventTypeBalanceChange, func(ctx context.Context, event Event) {
		if balanceEvent, ok := event.(BalanceChangeEvent); ok {
			eventsReceived <- balanceEvent
		}
	})

	for seq := int64(1); seq <= 3; seq++ {
		transactionalBus.Publish(BalanceChangeEvent{
			AccountType:  models.AccountTypeWallet,
			OldBalance:   seq * 1000,
			NewBalance:   seq * 1100,
			ChangeAmount: seq * 100,
			EntryType:    models.EntryTypeMint,
			Sequence:     seq,
		})
	}
	require.NoError(t, transactionalBus.Flush(context.Background()))

	sequences := make(map[int64]bool)
	for i := 0; i < 3; i++ {
		select {
		case event := <-eventsReceived:
			sequences[event.Sequence] = true
		case <-time.After(2 * time.Second):
			t.Fatalf("Only received %d out of 3 events", len(sequences))
		}
	}

	// order may vary since handlers run on their own goroutines
	assert.True(t, sequences[1])
	assert.True(t, sequences[2])
	assert.True(t, sequences[3])
}

// TestTransactionalBusDiscard tests that discarded events are not delivered
func TestTransactionalBusDiscard(t *testing.T) {
	mainBus := NewBus()
	transactionalBus := NewTransactionalBus(mainBus)

	eventReceived := make(chan bool, 1)
	mainBus.Subscribe(EventTypeSquadWithdrawal, func(ctx context.Context, event Event) {
		eventReceived <- true
	})

	transactionalBus.Publish(InstructionEvent{Operation: EventTypeSquadWithdrawal})
	transactionalBus.Discard()

	select {
	case <-eventReceived:
		t.Fatal("Event was received despite being discarded")
	case <-time.After(100 * time.Millisecond):
	}
}

// TestPanickingHandlerIsIsolated ensures one failing subscriber does not block others
func TestPanickingHandlerIsIsolated(t *testing.T) {
	mainBus := NewBus()

	delivered := make(chan struct{}, 1)
	mainBus.Subscribe(EventTypeMemberAdded, func(ctx context.Context, event Event) {
		panic("boom")
	})
	mainBus.Subscribe(EventTypeMemberAdded, func(ctx context.Context, event Event) {
		delivered <- struct{}{}
	})

	mainBus.Emit(context.Background(), InstructionEvent{Operation: EventTypeMemberAdded})

	select {
	case <-delivered:
	case <-time.After(2 * time.Second):
		t.Fatal("second handler did not run")
	}
	mainBus.Wait()
}
