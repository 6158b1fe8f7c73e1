package service

import (
	"errors"
	"fmt"
	"strconv"

	"squadvault/engine"
	"squadvault/events"
	"squadvault/ledger"
	"squadvault/models"
)

func (d *Dispatcher) createProposal(ic *instructionContext, in models.CreateProposal) error {
	// locked so the electorate snapshot matches the roster at this sequence
	squad, err := ic.loadSquad(in.SquadID)
	if err != nil {
		return err
	}

	proposal, err := engine.CreateProposal(*squad, engine.ProposalInit{
		Proposer:    ic.actor,
		Title:       in.Title,
		Description: in.Description,
		Amount:      in.Amount,
		Recipient:   in.Recipient,
		Deadline:    in.Deadline,
		Now:         ic.now,
	})
	if err != nil {
		return err
	}

	if err := ic.uow.ProposalRepository().Create(ic.ctx, &proposal); err != nil {
		return fmt.Errorf("failed to create proposal for squad %s: %w", squad.ID, err)
	}

	ic.emit(events.InstructionEvent{
		Operation: events.EventTypeProposalCreated,
		AccountID: strconv.FormatInt(proposal.ID, 10),
		Subject:   subject(proposal.Recipient),
		Amounts:   map[string]ledger.Amount{"amount": proposal.Amount},
		NewStatus: string(proposal.Status),
	})
	ic.receipt.Proposal = &proposal
	return nil
}

// castVote records a ballot. A vote arriving after the deadline is refused,
// but the deadline resolution it triggered is still committed.
func (d *Dispatcher) castVote(ic *instructionContext, in models.CastVote) error {
	proposal, err := ic.loadProposal(in.ProposalID)
	if err != nil {
		return err
	}

	next, err := engine.CastVote(*proposal, ic.actor, in.Choice, ic.now)
	if errors.Is(err, ledger.ErrDeadlinePassed) {
		if err := d.saveProposal(ic, &next); err != nil {
			return err
		}
		ic.emitResolved(&next)
		ic.deferredErr = err
		return nil
	}
	if err != nil {
		return err
	}

	if err := ic.uow.ProposalRepository().RecordVote(ic.ctx, next.Votes[len(next.Votes)-1]); err != nil {
		return fmt.Errorf("failed to record vote on proposal %d: %w", next.ID, err)
	}
	if err := d.saveProposal(ic, &next); err != nil {
		return err
	}

	ic.emit(events.InstructionEvent{
		Operation: events.EventTypeVoteCast,
		AccountID: strconv.FormatInt(next.ID, 10),
		Amounts: map[string]ledger.Amount{
			"yes_votes": ledger.Amount(next.YesVotes),
			"no_votes":  ledger.Amount(next.NoVotes),
		},
		NewStatus: string(next.Status),
		Choice:    string(in.Choice),
	})
	if !next.IsActive() {
		ic.emitResolved(&next)
	}
	return nil
}

// executeProposal pays out a Passed proposal from the squad vault
func (d *Dispatcher) executeProposal(ic *instructionContext, in models.ExecuteProposal) error {
	proposal, err := ic.loadProposal(in.ProposalID)
	if err != nil {
		return err
	}
	squad, err := ic.loadSquad(proposal.SquadID)
	if err != nil {
		return err
	}

	next, nextSquad, err := engine.ExecuteProposal(*proposal, *squad, ic.actor, ic.now)
	if err != nil {
		return err
	}

	if err := d.saveProposal(ic, &next); err != nil {
		return err
	}
	relatedID := strconv.FormatInt(next.ID, 10)
	if err := d.payOut(ic, *squad, nextSquad, next.Recipient, next.Amount, models.EntryTypeProposalPayout, models.RelatedTypeProposal, relatedID); err != nil {
		return err
	}

	if proposal.IsActive() {
		resolved := engine.ResolveExpired(*proposal, ic.now)
		ic.emitResolved(&resolved)
	}
	ic.emit(events.InstructionEvent{
		Operation: events.EventTypeProposalExecuted,
		AccountID: relatedID,
		Subject:   subject(next.Recipient),
		Amounts: map[string]ledger.Amount{
			"amount":        next.Amount,
			"vault_balance": nextSquad.VaultBalance,
		},
		NewStatus: string(next.Status),
	})
	ic.receipt.Squad = &nextSquad
	return nil
}

// finalizeProposal settles an expired proposal; anyone may call it
func (d *Dispatcher) finalizeProposal(ic *instructionContext, in models.FinalizeProposal) error {
	proposal, err := ic.loadProposal(in.ProposalID)
	if err != nil {
		return err
	}

	next, err := engine.FinalizeProposal(*proposal, ic.now)
	if err != nil {
		return err
	}
	if err := d.saveProposal(ic, &next); err != nil {
		return err
	}

	ic.emitResolved(&next)
	return nil
}

func (d *Dispatcher) saveProposal(ic *instructionContext, proposal *models.Proposal) error {
	if err := ic.uow.ProposalRepository().Update(ic.ctx, proposal); err != nil {
		return fmt.Errorf("failed to update proposal %d: %w", proposal.ID, err)
	}
	ic.receipt.Proposal = proposal
	return nil
}

func (ic *instructionContext) emitResolved(proposal *models.Proposal) {
	ic.emit(events.InstructionEvent{
		Operation: events.EventTypeProposalResolved,
		AccountID: strconv.FormatInt(proposal.ID, 10),
		Amounts: map[string]ledger.Amount{
			"yes_votes": ledger.Amount(proposal.YesVotes),
			"no_votes":  ledger.Amount(proposal.NoVotes),
		},
		NewStatus: string(proposal.Status),
	})
}
