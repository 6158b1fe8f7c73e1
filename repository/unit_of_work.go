package repository

import (
	"context"
	"fmt"

	"squadvault/database"
	"squadvault/events"
	"squadvault/service"

	"github.com/jackc/pgx/v5"
)

// unitOfWork implements the UnitOfWork interface
type unitOfWork struct {
	db               *database.DB
	tx               pgx.Tx
	ctx              context.Context
	transactionalBus *events.TransactionalBus
	squadRepo        service.SquadRepository
	streamRepo       service.StreamRepository
	proposalRepo     service.ProposalRepository
	walletRepo       service.WalletRepository
	ledgerRepo       service.LedgerRepository
	instructionRepo  service.InstructionRepository
}

// NewUnitOfWorkFactory creates a new UnitOfWork factory
func NewUnitOfWorkFactory(db *database.DB, eventBus *events.Bus) service.UnitOfWorkFactory {
	return &unitOfWorkFactory{
		db:       db,
		eventBus: eventBus,
	}
}

type unitOfWorkFactory struct {
	db       *database.DB
	eventBus *events.Bus
}

func (f *unitOfWorkFactory) Create() service.UnitOfWork {
	return &unitOfWork{
		db:               f.db,
		transactionalBus: events.NewTransactionalBus(f.eventBus),
	}
}

// Begin starts a new transaction
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx, err := u.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.tx = tx
	u.ctx = ctx

	u.squadRepo = newSquadRepositoryWithTx(tx)
	u.streamRepo = newStreamRepositoryWithTx(tx)
	u.proposalRepo = newProposalRepositoryWithTx(tx)
	u.walletRepo = newWalletRepositoryWithTx(tx)
	u.ledgerRepo = newLedgerRepositoryWithTx(tx)
	u.instructionRepo = newInstructionRepositoryWithTx(tx)

	return nil
}

// Commit commits the transaction and then flushes queued events
func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	err := u.tx.Commit(u.ctx)
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	u.tx = nil

	if u.transactionalBus != nil {
		u.transactionalBus.Flush(u.ctx)
	}

	return nil
}

// Rollback rolls back the transaction and discards queued events
func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil
	}

	err := u.tx.Rollback(u.ctx)
	if err != nil && err != pgx.ErrTxClosed {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}

	u.tx = nil

	if u.transactionalBus != nil {
		u.transactionalBus.Discard()
	}

	return nil
}

// SquadRepository returns the squad repository for this unit of work
func (u *unitOfWork) SquadRepository() service.SquadRepository {
	if u.squadRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.squadRepo
}

// StreamRepository returns the stream repository for this unit of work
func (u *unitOfWork) StreamRepository() service.StreamRepository {
	if u.streamRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.streamRepo
}

// ProposalRepository returns the proposal repository for this unit of work
func (u *unitOfWork) ProposalRepository() service.ProposalRepository {
	if u.proposalRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.proposalRepo
}

// WalletRepository returns the wallet repository for this unit of work
func (u *unitOfWork) WalletRepository() service.WalletRepository {
	if u.walletRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.walletRepo
}

// LedgerRepository returns the ledger repository for this unit of work
func (u *unitOfWork) LedgerRepository() service.LedgerRepository {
	if u.ledgerRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.ledgerRepo
}

// InstructionRepository returns the instruction log repository for this unit of work
func (u *unitOfWork) InstructionRepository() service.InstructionRepository {
	if u.instructionRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.instructionRepo
}

// EventBus returns the transactional event bus for this unit of work
func (u *unitOfWork) EventBus() service.EventPublisher {
	if u.transactionalBus == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.transactionalBus
}
