package service

import (
	"context"
	"time"

	"squadvault/events"
	"squadvault/ledger"
	"squadvault/models"

	"github.com/google/uuid"
)

// SquadRepository defines the interface for squad data access.
// Getters return nil, nil when the squad does not exist.
type SquadRepository interface {
	// GetByID retrieves a squad with its roster
	GetByID(ctx context.Context, id uuid.UUID) (*models.Squad, error)

	// GetByIDForUpdate retrieves a squad and locks it for the rest of the transaction
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Squad, error)

	// Create inserts a new squad and its roster, reporting false if the id is taken
	Create(ctx context.Context, squad *models.Squad) (bool, error)

	// Update persists the vault balance, threshold and roster
	Update(ctx context.Context, squad *models.Squad) error
}

// StreamRepository defines the interface for payment stream data access
type StreamRepository interface {
	// GetByID retrieves a stream by its ID
	GetByID(ctx context.Context, id int64) (*models.PaymentStream, error)

	// GetByIDForUpdate retrieves a stream and locks it for the rest of the transaction
	GetByIDForUpdate(ctx context.Context, id int64) (*models.PaymentStream, error)

	// Create inserts a new stream and assigns its ID
	Create(ctx context.Context, stream *models.PaymentStream) error

	// Update persists withdrawal and cancellation state
	Update(ctx context.Context, stream *models.PaymentStream) error

	// ListByParticipant returns streams where the identity is sender or recipient
	ListByParticipant(ctx context.Context, participant ledger.Identity, limit int) ([]*models.PaymentStream, error)
}

// ProposalRepository defines the interface for proposal data access
type ProposalRepository interface {
	// GetByID retrieves a proposal with its electorate and votes
	GetByID(ctx context.Context, id int64) (*models.Proposal, error)

	// GetByIDForUpdate retrieves a proposal and locks it for the rest of the transaction
	GetByIDForUpdate(ctx context.Context, id int64) (*models.Proposal, error)

	// Create inserts a new proposal with its electorate and assigns its ID
	Create(ctx context.Context, proposal *models.Proposal) error

	// Update persists status, tallies and resolution timestamps
	Update(ctx context.Context, proposal *models.Proposal) error

	// RecordVote stores a single ballot
	RecordVote(ctx context.Context, vote models.Vote) error

	// ListBySquad returns the most recent proposals of a squad
	ListBySquad(ctx context.Context, squadID uuid.UUID, limit int) ([]*models.Proposal, error)
}

// WalletRepository defines the interface for wallet data access
type WalletRepository interface {
	// GetByOwner retrieves a wallet, or nil if the identity never held funds
	GetByOwner(ctx context.Context, owner ledger.Identity) (*models.Wallet, error)

	// GetOrCreateForUpdate retrieves a wallet, creating it empty if needed, and locks it
	GetOrCreateForUpdate(ctx context.Context, owner ledger.Identity) (*models.Wallet, error)

	// UpdateBalance sets a wallet's balance
	UpdateBalance(ctx context.Context, owner ledger.Identity, balance ledger.Amount) error
}

// LedgerRepository defines the interface for balance change tracking
type LedgerRepository interface {
	// Record creates a new ledger entry
	Record(ctx context.Context, entry *models.LedgerEntry) error

	// GetByAccount returns the most recent entries of an account
	GetByAccount(ctx context.Context, accountType models.AccountType, accountID string, limit int) ([]*models.LedgerEntry, error)

	// GetByDateRange returns an account's entries within a date range
	GetByDateRange(ctx context.Context, accountType models.AccountType, accountID string, from, to time.Time) ([]*models.LedgerEntry, error)
}

// InstructionRepository defines the interface for the append-only instruction log
type InstructionRepository interface {
	// ReserveSequence allocates the sequence number of the next log row
	ReserveSequence(ctx context.Context) (int64, error)

	// Append writes a log row; a zero Sequence lets the database assign one
	Append(ctx context.Context, record *models.InstructionRecord) error

	// GetBySequence retrieves a log row
	GetBySequence(ctx context.Context, sequence int64) (*models.InstructionRecord, error)
}

// VaultAuditor compares every squad's vault balance with its ledger entries
type VaultAuditor interface {
	AuditVaults(ctx context.Context) ([]models.VaultAudit, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork manages one transaction and the repositories bound to it
type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	SquadRepository() SquadRepository
	StreamRepository() StreamRepository
	ProposalRepository() ProposalRepository
	WalletRepository() WalletRepository
	LedgerRepository() LedgerRepository
	InstructionRepository() InstructionRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory creates new UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

// InstructionObserver receives one observation per processed instruction
type InstructionObserver interface {
	ObserveInstruction(kind models.InstructionKind, outcome models.InstructionOutcome, errKind ledger.Kind, duration time.Duration)
}

// ReconciliationReporter receives the result of each vault audit
type ReconciliationReporter interface {
	ReportVaultAudit(audits []models.VaultAudit)
}
