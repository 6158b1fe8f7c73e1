package service

import (
	"context"
	"time"

	"squadvault/events"
	"squadvault/ledger"
	"squadvault/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockSquadRepository is a mock implementation of SquadRepository
type MockSquadRepository struct {
	mock.Mock
}

func (m *MockSquadRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Squad, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Squad), args.Error(1)
}

func (m *MockSquadRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Squad, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Squad), args.Error(1)
}

func (m *MockSquadRepository) Create(ctx context.Context, squad *models.Squad) (bool, error) {
	args := m.Called(ctx, squad)
	return args.Bool(0), args.Error(1)
}

func (m *MockSquadRepository) Update(ctx context.Context, squad *models.Squad) error {
	args := m.Called(ctx, squad)
	return args.Error(0)
}

// MockStreamRepository is a mock implementation of StreamRepository
type MockStreamRepository struct {
	mock.Mock
}

func (m *MockStreamRepository) GetByID(ctx context.Context, id int64) (*models.PaymentStream, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PaymentStream), args.Error(1)
}

func (m *MockStreamRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.PaymentStream, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PaymentStream), args.Error(1)
}

func (m *MockStreamRepository) Create(ctx context.Context, stream *models.PaymentStream) error {
	args := m.Called(ctx, stream)
	return args.Error(0)
}

func (m *MockStreamRepository) Update(ctx context.Context, stream *models.PaymentStream) error {
	args := m.Called(ctx, stream)
	return args.Error(0)
}

func (m *MockStreamRepository) ListByParticipant(ctx context.Context, participant ledger.Identity, limit int) ([]*models.PaymentStream, error) {
	args := m.Called(ctx, participant, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.PaymentStream), args.Error(1)
}

// MockProposalRepository is a mock implementation of ProposalRepository
type MockProposalRepository struct {
	mock.Mock
}

func (m *MockProposalRepository) GetByID(ctx context.Context, id int64) (*models.Proposal, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Proposal), args.Error(1)
}

func (m *MockProposalRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Proposal, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Proposal), args.Error(1)
}

func (m *MockProposalRepository) Create(ctx context.Context, proposal *models.Proposal) error {
	args := m.Called(ctx, proposal)
	return args.Error(0)
}

func (m *MockProposalRepository) Update(ctx context.Context, proposal *models.Proposal) error {
	args := m.Called(ctx, proposal)
	return args.Error(0)
}

func (m *MockProposalRepository) RecordVote(ctx context.Context, vote models.Vote) error {
	args := m.Called(ctx, vote)
	return args.Error(0)
}

func (m *MockProposalRepository) ListBySquad(ctx context.Context, squadID uuid.UUID, limit int) ([]*models.Proposal, error) {
	args := m.Called(ctx, squadID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Proposal), args.Error(1)
}

// MockWalletRepository is a mock implementation of WalletRepository
type MockWalletRepository struct {
	mock.Mock
}

func (m *MockWalletRepository) GetByOwner(ctx context.Context, owner ledger.Identity) (*models.Wallet, error) {
	args := m.Called(ctx, owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Wallet), args.Error(1)
}

func (m *MockWalletRepository) GetOrCreateForUpdate(ctx context.Context, owner ledger.Identity) (*models.Wallet, error) {
	args := m.Called(ctx, owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Wallet), args.Error(1)
}

func (m *MockWalletRepository) UpdateBalance(ctx context.Context, owner ledger.Identity, balance ledger.Amount) error {
	args := m.Called(ctx, owner, balance)
	return args.Error(0)
}

// MockLedgerRepository is a mock implementation of LedgerRepository
type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) Record(ctx context.Context, entry *models.LedgerEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockLedgerRepository) GetByAccount(ctx context.Context, accountType models.AccountType, accountID string, limit int) ([]*models.LedgerEntry, error) {
	args := m.Called(ctx, accountType, accountID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.LedgerEntry), args.Error(1)
}

func (m *MockLedgerRepository) GetByDateRange(ctx context.Context, accountType models.AccountType, accountID string, from, to time.Time) ([]*models.LedgerEntry, error) {
	args := m.Called(ctx, accountType, accountID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.LedgerEntry), args.Error(1)
}

// MockInstructionRepository is a mock implementation of InstructionRepository
type MockInstructionRepository struct {
	mock.Mock
}

func (m *MockInstructionRepository) ReserveSequence(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockInstructionRepository) Append(ctx context.Context, record *models.InstructionRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockInstructionRepository) GetBySequence(ctx context.Context, sequence int64) (*models.InstructionRecord, error) {
	args := m.Called(ctx, sequence)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.InstructionRecord), args.Error(1)
}

// MockVaultAuditor is a mock implementation of VaultAuditor
type MockVaultAuditor struct {
	mock.Mock
}

func (m *MockVaultAuditor) AuditVaults(ctx context.Context) ([]models.VaultAudit, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.VaultAudit), args.Error(1)
}

// MockReconciliationReporter is a mock implementation of ReconciliationReporter
type MockReconciliationReporter struct {
	mock.Mock
}

func (m *MockReconciliationReporter) ReportVaultAudit(audits []models.VaultAudit) {
	m.Called(audits)
}

// MockInstructionObserver is a mock implementation of InstructionObserver
type MockInstructionObserver struct {
	mock.Mock
}

func (m *MockInstructionObserver) ObserveInstruction(kind models.InstructionKind, outcome models.InstructionOutcome, errKind ledger.Kind, duration time.Duration) {
	m.Called(kind, outcome, errKind, duration)
}

// MockEventPublisher is a mock implementation of EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) {
	m.Called(event)
}

// MockUnitOfWork is a mock implementation of UnitOfWork. Repository getters
// return whatever SetRepositories installed.
type MockUnitOfWork struct {
	mock.Mock

	squadRepo       SquadRepository
	streamRepo      StreamRepository
	proposalRepo    ProposalRepository
	walletRepo      WalletRepository
	ledgerRepo      LedgerRepository
	instructionRepo InstructionRepository
	eventBus        EventPublisher
}

// SetRepositories installs the repositories the unit of work hands out
func (m *MockUnitOfWork) SetRepositories(
	squadRepo SquadRepository,
	streamRepo StreamRepository,
	proposalRepo ProposalRepository,
	walletRepo WalletRepository,
	ledgerRepo LedgerRepository,
	instructionRepo InstructionRepository,
	eventBus EventPublisher,
) {
	m.squadRepo = squadRepo
	m.streamRepo = streamRepo
	m.proposalRepo = proposalRepo
	m.walletRepo = walletRepo
	m.ledgerRepo = ledgerRepo
	m.instructionRepo = instructionRepo
	m.eventBus = eventBus
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) SquadRepository() SquadRepository             { return m.squadRepo }
func (m *MockUnitOfWork) StreamRepository() StreamRepository           { return m.streamRepo }
func (m *MockUnitOfWork) ProposalRepository() ProposalRepository       { return m.proposalRepo }
func (m *MockUnitOfWork) WalletRepository() WalletRepository           { return m.walletRepo }
func (m *MockUnitOfWork) LedgerRepository() LedgerRepository           { return m.ledgerRepo }
func (m *MockUnitOfWork) InstructionRepository() InstructionRepository { return m.instructionRepo }
func (m *MockUnitOfWork) EventBus() EventPublisher                     { return m.eventBus }

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}
