package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"squadvault/database"
	"squadvault/models"

	"github.com/jackc/pgx/v5"
)

// LedgerRepository implements the LedgerRepository interface
type LedgerRepository struct {
	q queryable
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(db *database.DB) *LedgerRepository {
	return &LedgerRepository{q: db.Pool}
}

// newLedgerRepositoryWithTx creates a new ledger repository with a transaction
func newLedgerRepositoryWithTx(tx queryable) *LedgerRepository {
	return &LedgerRepository{q: tx}
}

// Record creates a new ledger entry
func (r *LedgerRepository) Record(ctx context.Context, entry *models.LedgerEntry) error {
	metadataJSON, err := json.Marshal(entry.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal ledger metadata: %w", err)
	}

	query := `
		INSERT INTO ledger_entries
		(account_type, account_id, balance_before, balance_after, change_amount, entry_type,
		 metadata, instruction_sequence, related_id, related_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at
	`

	err = r.q.QueryRow(ctx, query,
		entry.AccountType,
		entry.AccountID,
		entry.BalanceBefore,
		entry.BalanceAfter,
		entry.ChangeAmount,
		entry.EntryType,
		metadataJSON,
		entry.InstructionSequence,
		entry.RelatedID,
		entry.RelatedType,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record ledger entry for %s %s: %w", entry.AccountType, entry.AccountID, err)
	}

	return nil
}

const ledgerColumns = `
	id, account_type, account_id, balance_before, balance_after, change_amount, entry_type,
	metadata, instruction_sequence, related_id, related_type, created_at
`

// GetByAccount returns the most recent entries of an account
func (r *LedgerRepository) GetByAccount(ctx context.Context, accountType models.AccountType, accountID string, limit int) ([]*models.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + `
		FROM ledger_entries
		WHERE account_type = $1 AND account_id = $2
		ORDER BY id DESC
		LIMIT $3
	`

	rows, err := r.q.Query(ctx, query, accountType, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger entries for %s %s: %w", accountType, accountID, err)
	}
	return collectEntries(rows)
}

// GetByDateRange returns an account's entries within a date range
func (r *LedgerRepository) GetByDateRange(ctx context.Context, accountType models.AccountType, accountID string, from, to time.Time) ([]*models.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + `
		FROM ledger_entries
		WHERE account_type = $1 AND account_id = $2 AND created_at >= $3 AND created_at < $4
		ORDER BY id DESC
	`

	rows, err := r.q.Query(ctx, query, accountType, accountID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger entries for %s %s in date range: %w", accountType, accountID, err)
	}
	return collectEntries(rows)
}

func collectEntries(rows pgx.Rows) ([]*models.LedgerEntry, error) {
	defer rows.Close()

	var entries []*models.LedgerEntry
	for rows.Next() {
		var entry models.LedgerEntry
		var metadataJSON []byte

		err := rows.Scan(
			&entry.ID,
			&entry.AccountType,
			&entry.AccountID,
			&entry.BalanceBefore,
			&entry.BalanceAfter,
			&entry.ChangeAmount,
			&entry.EntryType,
			&metadataJSON,
			&entry.InstructionSequence,
			&entry.RelatedID,
			&entry.RelatedType,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}

		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &entry.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal ledger metadata: %w", err)
			}
		}

		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ledger entries: %w", err)
	}

	return entries, nil
}
