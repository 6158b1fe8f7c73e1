package service

import (
	"context"
	"fmt"
	"sort"

	"squadvault/events"
	"squadvault/ledger"
	"squadvault/models"

	"github.com/google/uuid"
)

// Receipt describes the committed result of one instruction
type Receipt struct {
	Sequence  int64                     `json:"sequence"`
	Kind      models.InstructionKind    `json:"kind"`
	Timestamp int64                     `json:"timestamp"`
	Squad     *models.Squad             `json:"squad,omitempty"`
	Stream    *models.PaymentStream     `json:"stream,omitempty"`
	Proposal  *models.Proposal          `json:"proposal,omitempty"`
	Wallet    *models.Wallet            `json:"wallet,omitempty"`
	Paid      ledger.Amount             `json:"paid,omitempty"`
	Refunded  ledger.Amount             `json:"refunded,omitempty"`
	Events    []events.InstructionEvent `json:"events"`
}

// instructionContext carries one instruction through its unit of work
type instructionContext struct {
	ctx      context.Context
	uow      UnitOfWork
	actor    ledger.Identity
	now      int64
	sequence int64
	kind     models.InstructionKind
	receipt  *Receipt

	// deferredErr is reported to the caller after the transaction commits
	deferredErr error
}

// emit stamps the event with the instruction's actor, time and sequence and
// queues it until commit
func (ic *instructionContext) emit(event events.InstructionEvent) {
	event.Actor = ic.actor
	event.Timestamp = ic.now
	event.Sequence = ic.sequence
	ic.uow.EventBus().Publish(event)
	ic.receipt.Events = append(ic.receipt.Events, event)
}

// recordChange writes a ledger entry when a balance moved
func (ic *instructionContext) recordChange(accountType models.AccountType, accountID string, before, after ledger.Amount, entryType models.EntryType, relatedType models.RelatedType, relatedID string) error {
	if before == after {
		return nil
	}

	change, err := ledger.SignedChange(before, after)
	if err != nil {
		return err
	}
	sequence := ic.sequence

	entry := &models.LedgerEntry{
		AccountType:   accountType,
		AccountID:     accountID,
		BalanceBefore: int64(before),
		BalanceAfter:  int64(after),
		ChangeAmount:  change,
		EntryType:     entryType,
		Metadata: map[string]any{
			"actor":       ic.actor.String(),
			"instruction": string(ic.kind),
		},
		InstructionSequence: &sequence,
	}
	if relatedID != "" {
		entry.RelatedID = &relatedID
		entry.RelatedType = &relatedType
	}
	return RecordBalanceChange(ic.ctx, ic.uow, entry)
}

func subject(id ledger.Identity) *ledger.Identity {
	return &id
}

func (ic *instructionContext) loadSquad(id uuid.UUID) (*models.Squad, error) {
	squad, err := ic.uow.SquadRepository().GetByIDForUpdate(ic.ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load squad %s: %w", id, err)
	}
	if squad == nil {
		return nil, fmt.Errorf("%w: squad %s", ledger.ErrAccountNotFound, id)
	}
	return squad, nil
}

func (ic *instructionContext) loadStream(id int64) (*models.PaymentStream, error) {
	stream, err := ic.uow.StreamRepository().GetByIDForUpdate(ic.ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load stream %d: %w", id, err)
	}
	if stream == nil {
		return nil, fmt.Errorf("%w: stream %d", ledger.ErrAccountNotFound, id)
	}
	return stream, nil
}

func (ic *instructionContext) loadProposal(id int64) (*models.Proposal, error) {
	proposal, err := ic.uow.ProposalRepository().GetByIDForUpdate(ic.ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load proposal %d: %w", id, err)
	}
	if proposal == nil {
		return nil, fmt.Errorf("%w: proposal %d", ledger.ErrAccountNotFound, id)
	}
	return proposal, nil
}

// loadWallets locks the wallets of owners in byte order so concurrent
// instructions touching the same pair cannot deadlock.
func (ic *instructionContext) loadWallets(owners ...ledger.Identity) (map[ledger.Identity]*models.Wallet, error) {
	unique := make([]ledger.Identity, 0, len(owners))
	seen := make(map[ledger.Identity]bool, len(owners))
	for _, o := range owners {
		if !seen[o] {
			seen[o] = true
			unique = append(unique, o)
		}
	}
	sort.Slice(unique, func(i, j int) bool {
		return string(unique[i][:]) < string(unique[j][:])
	})

	wallets := make(map[ledger.Identity]*models.Wallet, len(unique))
	for _, owner := range unique {
		wallet, err := ic.uow.WalletRepository().GetOrCreateForUpdate(ic.ctx, owner)
		if err != nil {
			return nil, fmt.Errorf("failed to load wallet %s: %w", owner.Short(), err)
		}
		wallets[owner] = wallet
	}
	return wallets, nil
}

// saveWallet persists a wallet balance and its ledger entry
func (ic *instructionContext) saveWallet(before, after models.Wallet, entryType models.EntryType, relatedType models.RelatedType, relatedID string) error {
	if before.Balance == after.Balance {
		return nil
	}
	if err := ic.uow.WalletRepository().UpdateBalance(ic.ctx, after.Owner, after.Balance); err != nil {
		return fmt.Errorf("failed to update wallet %s: %w", after.Owner.Short(), err)
	}
	return ic.recordChange(models.AccountTypeWallet, after.Owner.String(), before.Balance, after.Balance, entryType, relatedType, relatedID)
}

// saveSquad persists a squad and, when the vault moved, its ledger entry
func (ic *instructionContext) saveSquad(before, after models.Squad, entryType models.EntryType, relatedType models.RelatedType, relatedID string) error {
	if err := ic.uow.SquadRepository().Update(ic.ctx, &after); err != nil {
		return fmt.Errorf("failed to update squad %s: %w", after.ID, err)
	}
	return ic.recordChange(models.AccountTypeSquad, after.ID.String(), before.VaultBalance, after.VaultBalance, entryType, relatedType, relatedID)
}
