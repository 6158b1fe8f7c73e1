package service

import (
	"context"
	"fmt"

	"squadvault/engine"
	"squadvault/ledger"
	"squadvault/models"

	"github.com/google/uuid"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// StreamView is a stream together with its derived balances at a point in time
type StreamView struct {
	Stream       *models.PaymentStream `json:"stream"`
	At           int64                 `json:"at"`
	Accrued      ledger.Amount         `json:"accrued"`
	Withdrawable ledger.Amount         `json:"withdrawable"`
	Status       models.StreamStatus   `json:"status"`
}

// QueryService serves read-only views of ledger state. Time-dependent
// status is computed for display and never written back.
type QueryService struct {
	uowFactory UnitOfWorkFactory
	clock      ledger.Clock
}

// NewQueryService creates a new query service
func NewQueryService(uowFactory UnitOfWorkFactory, clock ledger.Clock) *QueryService {
	return &QueryService{
		uowFactory: uowFactory,
		clock:      clock,
	}
}

// read runs fn in a unit of work that is always rolled back
func (s *QueryService) read(ctx context.Context, fn func(uow UnitOfWork) error) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()
	return fn(uow)
}

// GetSquad returns a squad by id
func (s *QueryService) GetSquad(ctx context.Context, id uuid.UUID) (*models.Squad, error) {
	var squad *models.Squad
	err := s.read(ctx, func(uow UnitOfWork) error {
		var err error
		squad, err = uow.SquadRepository().GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to get squad %s: %w", id, err)
		}
		if squad == nil {
			return fmt.Errorf("%w: squad %s", ledger.ErrAccountNotFound, id)
		}
		return nil
	})
	return squad, err
}

// GetStream returns a stream with its accrued and withdrawable amounts at
// the given time, or now when at is zero.
func (s *QueryService) GetStream(ctx context.Context, id int64, at int64) (*StreamView, error) {
	if at == 0 {
		at = s.clock.Now()
	}

	var view *StreamView
	err := s.read(ctx, func(uow UnitOfWork) error {
		stream, err := uow.StreamRepository().GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to get stream %d: %w", id, err)
		}
		if stream == nil {
			return fmt.Errorf("%w: stream %d", ledger.ErrAccountNotFound, id)
		}

		accrued := engine.AccruedAmount(*stream, at)
		view = &StreamView{
			Stream:       stream,
			At:           at,
			Accrued:      accrued,
			Withdrawable: engine.Withdrawable(*stream, at),
			Status:       stream.Status(at, accrued),
		}
		return nil
	})
	return view, err
}

// ListStreams returns streams the identity sends or receives
func (s *QueryService) ListStreams(ctx context.Context, participant ledger.Identity, limit int) ([]*models.PaymentStream, error) {
	var streams []*models.PaymentStream
	err := s.read(ctx, func(uow UnitOfWork) error {
		var err error
		streams, err = uow.StreamRepository().ListByParticipant(ctx, participant, clampLimit(limit))
		if err != nil {
			return fmt.Errorf("failed to list streams of %s: %w", participant.Short(), err)
		}
		return nil
	})
	return streams, err
}

// GetProposal returns a proposal with its deadline rule applied for display
func (s *QueryService) GetProposal(ctx context.Context, id int64) (*models.Proposal, error) {
	now := s.clock.Now()

	var proposal *models.Proposal
	err := s.read(ctx, func(uow UnitOfWork) error {
		stored, err := uow.ProposalRepository().GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to get proposal %d: %w", id, err)
		}
		if stored == nil {
			return fmt.Errorf("%w: proposal %d", ledger.ErrAccountNotFound, id)
		}
		resolved := engine.ResolveExpired(*stored, now)
		proposal = &resolved
		return nil
	})
	return proposal, err
}

// ListSquadProposals returns the most recent proposals of a squad
func (s *QueryService) ListSquadProposals(ctx context.Context, squadID uuid.UUID, limit int) ([]*models.Proposal, error) {
	now := s.clock.Now()

	var proposals []*models.Proposal
	err := s.read(ctx, func(uow UnitOfWork) error {
		stored, err := uow.ProposalRepository().ListBySquad(ctx, squadID, clampLimit(limit))
		if err != nil {
			return fmt.Errorf("failed to list proposals of squad %s: %w", squadID, err)
		}
		proposals = make([]*models.Proposal, 0, len(stored))
		for _, p := range stored {
			resolved := engine.ResolveExpired(*p, now)
			proposals = append(proposals, &resolved)
		}
		return nil
	})
	return proposals, err
}

// GetWallet returns an identity's wallet; identities that never held funds
// get an empty one.
func (s *QueryService) GetWallet(ctx context.Context, owner ledger.Identity) (*models.Wallet, error) {
	var wallet *models.Wallet
	err := s.read(ctx, func(uow UnitOfWork) error {
		var err error
		wallet, err = uow.WalletRepository().GetByOwner(ctx, owner)
		if err != nil {
			return fmt.Errorf("failed to get wallet %s: %w", owner.Short(), err)
		}
		if wallet == nil {
			empty := engine.NewWallet(owner)
			wallet = &empty
		}
		return nil
	})
	return wallet, err
}

// GetLedgerEntries returns the most recent balance changes of an account
func (s *QueryService) GetLedgerEntries(ctx context.Context, accountType models.AccountType, accountID string, limit int) ([]*models.LedgerEntry, error) {
	var entries []*models.LedgerEntry
	err := s.read(ctx, func(uow UnitOfWork) error {
		var err error
		entries, err = uow.LedgerRepository().GetByAccount(ctx, accountType, accountID, clampLimit(limit))
		if err != nil {
			return fmt.Errorf("failed to get ledger entries for %s %s: %w", accountType, accountID, err)
		}
		return nil
	})
	return entries, err
}

// GetInstruction returns one instruction log record
func (s *QueryService) GetInstruction(ctx context.Context, sequence int64) (*models.InstructionRecord, error) {
	var record *models.InstructionRecord
	err := s.read(ctx, func(uow UnitOfWork) error {
		var err error
		record, err = uow.InstructionRepository().GetBySequence(ctx, sequence)
		if err != nil {
			return fmt.Errorf("failed to get instruction %d: %w", sequence, err)
		}
		if record == nil {
			return fmt.Errorf("%w: instruction %d", ledger.ErrAccountNotFound, sequence)
		}
		return nil
	})
	return record, err
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}
