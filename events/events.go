package events

import (
	"context"
	"sync"

	"squadvault/ledger"
	"squadvault/models"

	log "github.com/sirupsen/logrus"
)

// EventType names a committed state transition
type EventType string

const (
	EventTypeBalanceChange    EventType = "balance_change"
	EventTypeSquadInitialized EventType = "squad_initialized"
	EventTypeSquadDeposit     EventType = "squad_deposit"
	EventTypeSquadWithdrawal  EventType = "squad_withdrawal"
	EventTypeMemberAdded      EventType = "member_added"
	EventTypeMemberRemoved    EventType = "member_removed"
	EventTypeStreamCreated    EventType = "stream_created"
	EventTypeStreamWithdrawal EventType = "stream_withdrawal"
	EventTypeStreamCancelled  EventType = "stream_cancelled"
	EventTypeProposalCreated  EventType = "proposal_created"
	EventTypeVoteCast         EventType = "vote_cast"
	EventTypeProposalResolved EventType = "proposal_resolved"
	EventTypeProposalExecuted EventType = "proposal_executed"
	EventTypeWalletCredited   EventType = "wallet_credited"
)

// InstructionEventTypes lists every operation that produces an InstructionEvent
func InstructionEventTypes() []EventType {
	return []EventType{
		EventTypeSquadInitialized,
		EventTypeSquadDeposit,
		EventTypeSquadWithdrawal,
		EventTypeMemberAdded,
		EventTypeMemberRemoved,
		EventTypeStreamCreated,
		EventTypeStreamWithdrawal,
		EventTypeStreamCancelled,
		EventTypeProposalCreated,
		EventTypeVoteCast,
		EventTypeProposalResolved,
		EventTypeProposalExecuted,
		EventTypeWalletCredited,
	}
}

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// InstructionEvent is the record downstream indexers and notifiers consume
// for every committed mutating operation.
type InstructionEvent struct {
	Operation EventType                `json:"operation"`
	AccountID string                   `json:"account_id"`
	Actor     ledger.Identity          `json:"actor"`
	Subject   *ledger.Identity         `json:"subject,omitempty"` // member or recipient affected, if any
	Amounts   map[string]ledger.Amount `json:"amounts,omitempty"`
	Timestamp int64                    `json:"timestamp"`
	NewStatus string                   `json:"new_status,omitempty"`
	Choice    string                   `json:"choice,omitempty"` // ballot choice on vote_cast
	Sequence  int64                    `json:"sequence"`
}

func (e InstructionEvent) Type() EventType {
	return e.Operation
}

// BalanceChangeEvent represents a balance change that occurred
type BalanceChangeEvent struct {
	AccountType  models.AccountType `json:"account_type"`
	AccountID    string             `json:"account_id"`
	OldBalance   int64              `json:"old_balance"`
	NewBalance   int64              `json:"new_balance"`
	ChangeAmount int64              `json:"change_amount"`
	EntryType    models.EntryType   `json:"entry_type"`
	Sequence     int64              `json:"sequence"`
}

func (e BalanceChangeEvent) Type() EventType {
	return EventTypeBalanceChange
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	inflight sync.WaitGroup
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// SubscribeAll adds one handler for several event types
func (b *Bus) SubscribeAll(eventTypes []EventType, handler Handler) {
	for _, eventType := range eventTypes {
		b.Subscribe(eventType, handler)
	}
}

// Emit publishes an event to all registered handlers. Handlers run on their
// own goroutines; a panicking handler is logged and does not affect others.
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	log.WithFields(log.Fields{
		"eventType":    event.Type(),
		"handlerCount": len(handlers),
	}).Debug("Emitting event to handlers")

	for i, handler := range handlers {
		b.inflight.Add(1)
		go func(h Handler, handlerIndex int) {
			defer b.inflight.Done()
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType":    event.Type(),
						"handlerIndex": handlerIndex,
						"panic":        r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler, i)
	}
}

// Wait blocks until every handler started so far has returned
func (b *Bus) Wait() {
	b.inflight.Wait()
}

// TransactionalBus holds events raised inside a unit of work until the
// transaction commits.
type TransactionalBus struct {
	real    *Bus
	pending []Event
}

func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

func (b *TransactionalBus) Publish(e Event) {
	log.WithFields(log.Fields{
		"eventType":    e.Type(),
		"pendingCount": len(b.pending),
	}).Debug("Queued event on transactional bus")
	b.pending = append(b.pending, e)
}

// Pending returns the queued events in publish order
func (b *TransactionalBus) Pending() []Event {
	out := make([]Event, len(b.pending))
	copy(out, b.pending)
	return out
}

// Flush is called after a successful commit. Emission uses a background
// context so handlers outlive the request that committed.
func (b *TransactionalBus) Flush(ctx context.Context) error {
	log.WithFields(log.Fields{
		"pendingEventCount": len(b.pending),
	}).Debug("Flushing transactional bus")

	eventCtx := context.Background()
	for _, ev := range b.pending {
		b.real.Emit(eventCtx, ev)
	}
	b.pending = nil
	return nil
}

// Discard drops queued events after a rollback
func (b *TransactionalBus) Discard() {
	b.pending = nil
}
