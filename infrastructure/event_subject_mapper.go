package infrastructure

import (
	"fmt"

	"squadvault/events"
)

var subjectsByEventType = map[events.EventType]string{
	events.EventTypeSquadInitialized: "squads.initialized",
	events.EventTypeSquadDeposit:     "squads.deposit",
	events.EventTypeSquadWithdrawal:  "squads.withdrawal",
	events.EventTypeMemberAdded:      "squads.member_added",
	events.EventTypeMemberRemoved:    "squads.member_removed",
	events.EventTypeStreamCreated:    "streams.created",
	events.EventTypeStreamWithdrawal: "streams.withdrawal",
	events.EventTypeStreamCancelled:  "streams.cancelled",
	events.EventTypeProposalCreated:  "proposals.created",
	events.EventTypeVoteCast:         "proposals.vote_cast",
	events.EventTypeProposalResolved: "proposals.resolved",
	events.EventTypeProposalExecuted: "proposals.executed",
	events.EventTypeWalletCredited:   "wallets.credited",
	events.EventTypeBalanceChange:    "ledger.balance_changed",
}

// EventSubjectMapper handles mapping between domain events and NATS subjects
type EventSubjectMapper struct {
	eventTypesBySubject map[string]events.EventType
}

// NewEventSubjectMapper creates a new event subject mapper
func NewEventSubjectMapper() *EventSubjectMapper {
	reverse := make(map[string]events.EventType, len(subjectsByEventType))
	for eventType, subject := range subjectsByEventType {
		reverse[subject] = eventType
	}
	return &EventSubjectMapper{eventTypesBySubject: reverse}
}

// MapEventToSubject converts a domain event to its corresponding NATS subject
func (m *EventSubjectMapper) MapEventToSubject(event events.Event) string {
	if subject, ok := subjectsByEventType[event.Type()]; ok {
		return subject
	}
	return fmt.Sprintf("unknown.%s", event.Type())
}

// MapSubjectToEventType converts a NATS subject back to an event type
func (m *EventSubjectMapper) MapSubjectToEventType(subject string) events.EventType {
	if eventType, ok := m.eventTypesBySubject[subject]; ok {
		return eventType
	}
	return events.EventType(subject)
}

// ForwardedEventTypes returns every event type that has a subject
func (m *EventSubjectMapper) ForwardedEventTypes() []events.EventType {
	return append(events.InstructionEventTypes(), events.EventTypeBalanceChange)
}

// StreamSubjects returns the subject filters the treasury_events stream captures
func (m *EventSubjectMapper) StreamSubjects() []string {
	return []string{"squads.>", "streams.>", "proposals.>", "wallets.>", "ledger.>"}
}
