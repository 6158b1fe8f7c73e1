package service

import (
	"fmt"

	"squadvault/engine"
	"squadvault/events"
	"squadvault/ledger"
	"squadvault/models"
)

func (d *Dispatcher) initializeSquad(ic *instructionContext, in models.InitializeSquad) error {
	squad, err := engine.InitializeSquad(engine.SquadInit{
		Authority:      ic.actor,
		Name:           in.Name,
		Salt:           in.Salt,
		InitialMembers: in.InitialMembers,
		SpendThreshold: in.SpendThreshold,
		MaxMembers:     d.maxSquadMembers,
		Now:            ic.now,
	})
	if err != nil {
		return err
	}

	created, err := ic.uow.SquadRepository().Create(ic.ctx, &squad)
	if err != nil {
		return fmt.Errorf("failed to create squad %s: %w", squad.ID, err)
	}
	if !created {
		return fmt.Errorf("%w: squad %s", ledger.ErrAlreadyInitialized, squad.ID)
	}

	ic.emit(events.InstructionEvent{
		Operation: events.EventTypeSquadInitialized,
		AccountID: squad.ID.String(),
		Amounts:   map[string]ledger.Amount{"spend_threshold": squad.SpendThreshold},
	})
	ic.receipt.Squad = &squad
	return nil
}

// deposit moves funds from the depositor's wallet into the vault
func (d *Dispatcher) deposit(ic *instructionContext, in models.Deposit) error {
	squad, err := ic.loadSquad(in.SquadID)
	if err != nil {
		return err
	}

	next, err := engine.Deposit(*squad, ic.actor, in.Amount)
	if err != nil {
		return err
	}

	wallets, err := ic.loadWallets(ic.actor)
	if err != nil {
		return err
	}
	wallet := wallets[ic.actor]
	nextWallet, err := engine.Debit(*wallet, in.Amount)
	if err != nil {
		return err
	}

	relatedID := squad.ID.String()
	if err := ic.saveWallet(*wallet, nextWallet, models.EntryTypeDeposit, models.RelatedTypeSquad, relatedID); err != nil {
		return err
	}
	if err := ic.saveSquad(*squad, next, models.EntryTypeDeposit, models.RelatedTypeSquad, relatedID); err != nil {
		return err
	}

	ic.emit(events.InstructionEvent{
		Operation: events.EventTypeSquadDeposit,
		AccountID: relatedID,
		Amounts: map[string]ledger.Amount{
			"amount":        in.Amount,
			"vault_balance": next.VaultBalance,
		},
	})
	ic.receipt.Squad = &next
	ic.receipt.Wallet = &nextWallet
	return nil
}

// withdraw is a direct member spend; it never carries vote approval
func (d *Dispatcher) withdraw(ic *instructionContext, in models.Withdraw) error {
	squad, err := ic.loadSquad(in.SquadID)
	if err != nil {
		return err
	}

	next, err := engine.Withdraw(*squad, ic.actor, in.Amount, false, in.Recipient)
	if err != nil {
		return err
	}

	if err := d.payOut(ic, *squad, next, in.Recipient, in.Amount, models.EntryTypeWithdrawal, models.RelatedTypeSquad, squad.ID.String()); err != nil {
		return err
	}

	ic.emit(events.InstructionEvent{
		Operation: events.EventTypeSquadWithdrawal,
		AccountID: squad.ID.String(),
		Subject:   subject(in.Recipient),
		Amounts: map[string]ledger.Amount{
			"amount":        in.Amount,
			"vault_balance": next.VaultBalance,
		},
	})
	ic.receipt.Squad = &next
	return nil
}

// payOut persists a vault debit and credits the recipient's wallet
func (d *Dispatcher) payOut(ic *instructionContext, before, after models.Squad, recipient ledger.Identity, amount ledger.Amount, entryType models.EntryType, relatedType models.RelatedType, relatedID string) error {
	if err := ic.saveSquad(before, after, entryType, relatedType, relatedID); err != nil {
		return err
	}

	wallets, err := ic.loadWallets(recipient)
	if err != nil {
		return err
	}
	wallet := wallets[recipient]
	credited, err := engine.Credit(*wallet, amount)
	if err != nil {
		return err
	}
	if err := ic.saveWallet(*wallet, credited, entryType, relatedType, relatedID); err != nil {
		return err
	}

	ic.receipt.Wallet = &credited
	return nil
}

func (d *Dispatcher) addMember(ic *instructionContext, in models.AddMember) error {
	squad, err := ic.loadSquad(in.SquadID)
	if err != nil {
		return err
	}

	next, err := engine.AddMember(*squad, ic.actor, in.Member)
	if err != nil {
		return err
	}
	if err := ic.uow.SquadRepository().Update(ic.ctx, &next); err != nil {
		return fmt.Errorf("failed to update squad %s: %w", next.ID, err)
	}

	ic.emit(events.InstructionEvent{
		Operation: events.EventTypeMemberAdded,
		AccountID: next.ID.String(),
		Subject:   subject(in.Member),
	})
	ic.receipt.Squad = &next
	return nil
}

func (d *Dispatcher) removeMember(ic *instructionContext, in models.RemoveMember) error {
	squad, err := ic.loadSquad(in.SquadID)
	if err != nil {
		return err
	}

	next, err := engine.RemoveMember(*squad, ic.actor, in.Member)
	if err != nil {
		return err
	}
	if err := ic.uow.SquadRepository().Update(ic.ctx, &next); err != nil {
		return fmt.Errorf("failed to update squad %s: %w", next.ID, err)
	}

	ic.emit(events.InstructionEvent{
		Operation: events.EventTypeMemberRemoved,
		AccountID: next.ID.String(),
		Subject:   subject(in.Member),
	})
	ic.receipt.Squad = &next
	return nil
}
