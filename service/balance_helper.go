package service

import (
	"context"
	"fmt"

	"squadvault/events"
	"squadvault/models"
)

// RecordBalanceChange records a ledger entry and emits the matching event.
// This is the single entry point for all balance changes in the system.
func RecordBalanceChange(ctx context.Context, uow UnitOfWork, entry *models.LedgerEntry) error {
	if err := uow.LedgerRepository().Record(ctx, entry); err != nil {
		return fmt.Errorf("failed to record ledger entry: %w", err)
	}

	var sequence int64
	if entry.InstructionSequence != nil {
		sequence = *entry.InstructionSequence
	}

	// flushed only after the transaction commits
	uow.EventBus().Publish(events.BalanceChangeEvent{
		AccountType:  entry.AccountType,
		AccountID:    entry.AccountID,
		OldBalance:   entry.BalanceBefore,
		NewBalance:   entry.BalanceAfter,
		ChangeAmount: entry.ChangeAmount,
		EntryType:    entry.EntryType,
		Sequence:     sequence,
	})

	return nil
}
