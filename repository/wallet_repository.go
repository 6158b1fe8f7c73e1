package repository

import (
	"context"
	"fmt"

	"squadvault/database"
	"squadvault/ledger"
	"squadvault/models"

	"github.com/jackc/pgx/v5"
)

// WalletRepository implements the WalletRepository interface
type WalletRepository struct {
	q queryable
}

// NewWalletRepository creates a new wallet repository
func NewWalletRepository(db *database.DB) *WalletRepository {
	return &WalletRepository{q: db.Pool}
}

// newWalletRepositoryWithTx creates a new wallet repository with a transaction
func newWalletRepositoryWithTx(tx queryable) *WalletRepository {
	return &WalletRepository{q: tx}
}

// GetByOwner retrieves a wallet, or nil if the identity never held funds
func (r *WalletRepository) GetByOwner(ctx context.Context, owner ledger.Identity) (*models.Wallet, error) {
	query := `SELECT owner, balance, created_at, updated_at FROM wallets WHERE owner = $1`

	var wallet models.Wallet
	err := r.q.QueryRow(ctx, query, owner).Scan(
		&wallet.Owner,
		&wallet.Balance,
		&wallet.CreatedAt,
		&wallet.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet %s: %w", owner.Short(), err)
	}

	return &wallet, nil
}

// GetOrCreateForUpdate retrieves a wallet, creating it empty on first touch,
// and locks it for the rest of the transaction.
func (r *WalletRepository) GetOrCreateForUpdate(ctx context.Context, owner ledger.Identity) (*models.Wallet, error) {
	if _, err := r.q.Exec(ctx, `INSERT INTO wallets (owner) VALUES ($1) ON CONFLICT (owner) DO NOTHING`, owner); err != nil {
		return nil, fmt.Errorf("failed to create wallet %s: %w", owner.Short(), err)
	}

	query := `SELECT owner, balance, created_at, updated_at FROM wallets WHERE owner = $1 FOR UPDATE`

	var wallet models.Wallet
	err := r.q.QueryRow(ctx, query, owner).Scan(
		&wallet.Owner,
		&wallet.Balance,
		&wallet.CreatedAt,
		&wallet.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to lock wallet %s: %w", owner.Short(), err)
	}

	return &wallet, nil
}

// UpdateBalance sets a wallet's balance
func (r *WalletRepository) UpdateBalance(ctx context.Context, owner ledger.Identity, balance ledger.Amount) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE wallets
		SET balance = $2, updated_at = NOW()
		WHERE owner = $1
	`, owner, balance)
	if err != nil {
		return fmt.Errorf("failed to update balance of wallet %s: %w", owner.Short(), err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("wallet %s not found", owner.Short())
	}

	return nil
}
