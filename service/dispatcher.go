package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"squadvault/ledger"
	"squadvault/models"

	log "github.com/sirupsen/logrus"
)

// Dispatcher routes authenticated instructions to the engines. Each
// instruction runs in its own unit of work: accounts are row-locked, the
// engine computes the next state, and everything commits or nothing does.
type Dispatcher struct {
	uowFactory      UnitOfWorkFactory
	clock           ledger.Clock
	mintAuthorities []ledger.Identity
	maxSquadMembers int
	observer        InstructionObserver
}

// DispatcherOptions configures policy that is not part of ledger state
type DispatcherOptions struct {
	MintAuthorities []ledger.Identity
	MaxSquadMembers int
	Observer        InstructionObserver
}

// NewDispatcher creates a new instruction dispatcher
func NewDispatcher(uowFactory UnitOfWorkFactory, clock ledger.Clock, opts DispatcherOptions) *Dispatcher {
	return &Dispatcher{
		uowFactory:      uowFactory,
		clock:           clock,
		mintAuthorities: append([]ledger.Identity(nil), opts.MintAuthorities...),
		maxSquadMembers: opts.MaxSquadMembers,
		observer:        opts.Observer,
	}
}

// Dispatch executes one instruction on behalf of actor, whose identity has
// already been authenticated. Domain failures are returned unchanged so
// callers can match them with errors.Is or ledger.KindOf.
func (d *Dispatcher) Dispatch(ctx context.Context, actor ledger.Identity, ins models.Instruction) (*Receipt, error) {
	started := time.Now()

	payload, err := json.Marshal(ins)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s instruction: %w", ins.Kind(), err)
	}

	record := &models.InstructionRecord{
		Kind:      ins.Kind(),
		Actor:     actor,
		Payload:   payload,
		Timestamp: d.clock.Now(),
	}

	receipt, committed, err := d.execute(ctx, actor, ins, record)

	fields := log.Fields{
		"sequence": record.Sequence,
		"kind":     record.Kind,
		"actor":    actor.Short(),
	}

	switch {
	case err == nil:
		log.WithFields(fields).Info("Instruction committed")
		d.observe(record.Kind, models.InstructionOutcomeCommitted, "", started)
		return receipt, nil
	case committed:
		fields["error_kind"] = ledger.KindOf(err)
		log.WithFields(fields).Warn("Instruction rejected after recording state transition")
	default:
		d.logRejection(ctx, record, err)
		fields["error_kind"] = ledger.KindOf(err)
		fields["error"] = err.Error()
		if ledger.IsDomainError(err) {
			log.WithFields(fields).Warn("Instruction rejected")
		} else {
			log.WithFields(fields).Error("Instruction failed")
		}
	}

	d.observe(record.Kind, models.InstructionOutcomeRejected, ledger.KindOf(err), started)
	return nil, err
}

// execute runs the instruction in a unit of work. committed reports whether
// the transaction committed even though err is set, which only happens when
// a vote arrives after the deadline and the lazy resolution is recorded.
func (d *Dispatcher) execute(ctx context.Context, actor ledger.Identity, ins models.Instruction, record *models.InstructionRecord) (receipt *Receipt, committed bool, err error) {
	if actor.IsZero() {
		return nil, false, fmt.Errorf("%w: unauthenticated instruction", ledger.ErrUnauthorized)
	}

	uow := d.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	sequence, err := uow.InstructionRepository().ReserveSequence(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to reserve instruction sequence: %w", err)
	}
	record.Sequence = sequence

	ic := &instructionContext{
		ctx:      ctx,
		uow:      uow,
		actor:    actor,
		now:      record.Timestamp,
		sequence: sequence,
		kind:     record.Kind,
		receipt: &Receipt{
			Sequence:  sequence,
			Kind:      record.Kind,
			Timestamp: record.Timestamp,
		},
	}

	if err := d.route(ic, ins); err != nil {
		return nil, false, err
	}

	record.Outcome = models.InstructionOutcomeCommitted
	if ic.deferredErr != nil {
		markRejected(record, ic.deferredErr)
	}
	if err := uow.InstructionRepository().Append(ctx, record); err != nil {
		return nil, false, fmt.Errorf("failed to append instruction %d to log: %w", sequence, err)
	}

	if err := uow.Commit(); err != nil {
		return nil, false, fmt.Errorf("failed to commit instruction %d: %w", sequence, err)
	}

	if ic.deferredErr != nil {
		return nil, true, ic.deferredErr
	}
	return ic.receipt, true, nil
}

// route is the exhaustive switch over the instruction set
func (d *Dispatcher) route(ic *instructionContext, ins models.Instruction) error {
	switch in := ins.(type) {
	case models.InitializeSquad:
		return d.initializeSquad(ic, in)
	case models.Deposit:
		return d.deposit(ic, in)
	case models.Withdraw:
		return d.withdraw(ic, in)
	case models.AddMember:
		return d.addMember(ic, in)
	case models.RemoveMember:
		return d.removeMember(ic, in)
	case models.CreateStream:
		return d.createStream(ic, in)
	case models.WithdrawStream:
		return d.withdrawStream(ic, in)
	case models.CancelStream:
		return d.cancelStream(ic, in)
	case models.CreateProposal:
		return d.createProposal(ic, in)
	case models.CastVote:
		return d.castVote(ic, in)
	case models.ExecuteProposal:
		return d.executeProposal(ic, in)
	case models.FinalizeProposal:
		return d.finalizeProposal(ic, in)
	case models.CreditWallet:
		return d.creditWallet(ic, in)
	default:
		return fmt.Errorf("%w: %T", ledger.ErrUnknownInstruction, ins)
	}
}

// logRejection appends a rejected row in its own transaction, after the
// instruction's transaction rolled back.
func (d *Dispatcher) logRejection(ctx context.Context, record *models.InstructionRecord, cause error) {
	markRejected(record, cause)

	uow := d.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		log.WithError(err).Error("Failed to begin transaction for rejected instruction")
		return
	}
	defer uow.Rollback()

	if err := uow.InstructionRepository().Append(ctx, record); err != nil {
		log.WithError(err).WithField("kind", record.Kind).Error("Failed to log rejected instruction")
		return
	}
	if err := uow.Commit(); err != nil {
		log.WithError(err).WithField("kind", record.Kind).Error("Failed to commit rejected instruction")
	}
}

func markRejected(record *models.InstructionRecord, cause error) {
	kind := ledger.KindOf(cause)
	detail := cause.Error()
	record.Outcome = models.InstructionOutcomeRejected
	record.ErrorKind = &kind
	record.ErrorDetail = &detail
}

func (d *Dispatcher) observe(kind models.InstructionKind, outcome models.InstructionOutcome, errKind ledger.Kind, started time.Time) {
	if d.observer == nil {
		return
	}
	d.observer.ObserveInstruction(kind, outcome, errKind, time.Since(started))
}
