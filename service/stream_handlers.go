package service

import (
	"fmt"
	"strconv"

	"squadvault/engine"
	"squadvault/events"
	"squadvault/ledger"
	"squadvault/models"
)

// createStream escrows the full deposit out of the sender's wallet, or out
// of a squad vault when FundingSquadID is set.
func (d *Dispatcher) createStream(ic *instructionContext, in models.CreateStream) error {
	init := engine.StreamInit{
		Sender:          ic.actor,
		Recipient:       in.Recipient,
		AmountPerSecond: in.AmountPerSecond,
		StartTime:       in.StartTime,
		EndTime:         in.EndTime,
		FundingSquadID:  in.FundingSquadID,
	}

	var (
		stream     models.PaymentStream
		squad      *models.Squad
		nextSquad  models.Squad
		wallet     *models.Wallet
		nextWallet models.Wallet
	)

	if in.FundingSquadID != nil {
		var err error
		if squad, err = ic.loadSquad(*in.FundingSquadID); err != nil {
			return err
		}
		if stream, err = engine.CreateStream(init, squad.VaultBalance); err != nil {
			return err
		}
		// streams out of a vault follow the same spend rules as a withdrawal
		if nextSquad, err = engine.Withdraw(*squad, ic.actor, stream.TotalDeposited, false, in.Recipient); err != nil {
			return err
		}
	} else {
		wallets, err := ic.loadWallets(ic.actor)
		if err != nil {
			return err
		}
		wallet = wallets[ic.actor]
		if stream, err = engine.CreateStream(init, wallet.Balance); err != nil {
			return err
		}
		if nextWallet, err = engine.Debit(*wallet, stream.TotalDeposited); err != nil {
			return err
		}
	}

	if err := ic.uow.StreamRepository().Create(ic.ctx, &stream); err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}
	relatedID := strconv.FormatInt(stream.ID, 10)

	if squad != nil {
		if err := ic.saveSquad(*squad, nextSquad, models.EntryTypeStreamEscrow, models.RelatedTypeStream, relatedID); err != nil {
			return err
		}
		ic.receipt.Squad = &nextSquad
	} else {
		if err := ic.saveWallet(*wallet, nextWallet, models.EntryTypeStreamEscrow, models.RelatedTypeStream, relatedID); err != nil {
			return err
		}
		ic.receipt.Wallet = &nextWallet
	}
	if err := ic.recordChange(models.AccountTypeStream, relatedID, 0, stream.Escrowed(), models.EntryTypeStreamEscrow, models.RelatedTypeStream, relatedID); err != nil {
		return err
	}

	ic.emit(events.InstructionEvent{
		Operation: events.EventTypeStreamCreated,
		AccountID: relatedID,
		Subject:   subject(stream.Recipient),
		Amounts: map[string]ledger.Amount{
			"amount_per_second": stream.AmountPerSecond,
			"total_deposited":   stream.TotalDeposited,
		},
		NewStatus: string(stream.Status(ic.now, engine.AccruedAmount(stream, ic.now))),
	})
	ic.receipt.Stream = &stream
	return nil
}

// withdrawStream pays the recipient everything accrued so far
func (d *Dispatcher) withdrawStream(ic *instructionContext, in models.WithdrawStream) error {
	stream, err := ic.loadStream(in.StreamID)
	if err != nil {
		return err
	}

	next, paid, err := engine.WithdrawStream(*stream, ic.actor, ic.now)
	if err != nil {
		return err
	}

	if err := ic.uow.StreamRepository().Update(ic.ctx, &next); err != nil {
		return fmt.Errorf("failed to update stream %d: %w", next.ID, err)
	}
	relatedID := strconv.FormatInt(next.ID, 10)
	if err := ic.recordChange(models.AccountTypeStream, relatedID, stream.Escrowed(), next.Escrowed(), models.EntryTypeStreamPayout, models.RelatedTypeStream, relatedID); err != nil {
		return err
	}

	wallets, err := ic.loadWallets(next.Recipient)
	if err != nil {
		return err
	}
	wallet := wallets[next.Recipient]
	credited, err := engine.Credit(*wallet, paid)
	if err != nil {
		return err
	}
	if err := ic.saveWallet(*wallet, credited, models.EntryTypeStreamPayout, models.RelatedTypeStream, relatedID); err != nil {
		return err
	}

	ic.emit(events.InstructionEvent{
		Operation: events.EventTypeStreamWithdrawal,
		AccountID: relatedID,
		Subject:   subject(next.Recipient),
		Amounts: map[string]ledger.Amount{
			"amount":          paid,
			"total_withdrawn": next.TotalWithdrawn,
		},
		NewStatus: string(next.Status(ic.now, engine.AccruedAmount(next, ic.now))),
	})
	ic.receipt.Stream = &next
	ic.receipt.Wallet = &credited
	ic.receipt.Paid = paid
	return nil
}

// cancelStream settles a stream at now: the recipient receives what accrued
// and the funding account gets the rest back.
func (d *Dispatcher) cancelStream(ic *instructionContext, in models.CancelStream) error {
	// the funding squad is locked before the stream, so peek first
	peek, err := ic.uow.StreamRepository().GetByID(ic.ctx, in.StreamID)
	if err != nil {
		return fmt.Errorf("failed to load stream %d: %w", in.StreamID, err)
	}
	if peek == nil {
		return fmt.Errorf("%w: stream %d", ledger.ErrAccountNotFound, in.StreamID)
	}

	var squad *models.Squad
	if peek.IsSquadFunded() {
		if squad, err = ic.loadSquad(*peek.FundingSquadID); err != nil {
			return err
		}
	}

	stream, err := ic.loadStream(in.StreamID)
	if err != nil {
		return err
	}

	next, refunded, paid, err := engine.CancelStream(*stream, ic.actor, ic.now)
	if err != nil {
		return err
	}

	if err := ic.uow.StreamRepository().Update(ic.ctx, &next); err != nil {
		return fmt.Errorf("failed to update stream %d: %w", next.ID, err)
	}
	relatedID := strconv.FormatInt(next.ID, 10)
	if err := ic.recordChange(models.AccountTypeStream, relatedID, stream.Escrowed(), next.Escrowed(), models.EntryTypeStreamRefund, models.RelatedTypeStream, relatedID); err != nil {
		return err
	}

	owners := []ledger.Identity{next.Recipient}
	if squad == nil {
		owners = append(owners, next.Sender)
	}
	wallets, err := ic.loadWallets(owners...)
	if err != nil {
		return err
	}

	if !paid.IsZero() {
		recipient := wallets[next.Recipient]
		credited, err := engine.Credit(*recipient, paid)
		if err != nil {
			return err
		}
		if err := ic.saveWallet(*recipient, credited, models.EntryTypeStreamPayout, models.RelatedTypeStream, relatedID); err != nil {
			return err
		}
	}

	if squad != nil {
		nextSquad, err := engine.Refund(*squad, refunded)
		if err != nil {
			return err
		}
		if err := ic.saveSquad(*squad, nextSquad, models.EntryTypeStreamRefund, models.RelatedTypeStream, relatedID); err != nil {
			return err
		}
		ic.receipt.Squad = &nextSquad
	} else if !refunded.IsZero() {
		sender := wallets[next.Sender]
		credited, err := engine.Credit(*sender, refunded)
		if err != nil {
			return err
		}
		if err := ic.saveWallet(*sender, credited, models.EntryTypeStreamRefund, models.RelatedTypeStream, relatedID); err != nil {
			return err
		}
		ic.receipt.Wallet = &credited
	}

	ic.emit(events.InstructionEvent{
		Operation: events.EventTypeStreamCancelled,
		AccountID: relatedID,
		Amounts: map[string]ledger.Amount{
			"paid":     paid,
			"refunded": refunded,
		},
		NewStatus: string(models.StreamStatusCancelled),
	})
	ic.receipt.Stream = &next
	ic.receipt.Paid = paid
	ic.receipt.Refunded = refunded
	return nil
}
