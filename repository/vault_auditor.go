package repository

import (
	"context"
	"fmt"

	"squadvault/database"
	"squadvault/models"

	"github.com/jackc/pgx/v5"
)

// VaultAuditor implements service.VaultAuditor over a read-only snapshot,
// so balances and ledger sums are compared at the same instant.
type VaultAuditor struct {
	db *database.DB
}

// NewVaultAuditor creates a new vault auditor
func NewVaultAuditor(db *database.DB) *VaultAuditor {
	return &VaultAuditor{db: db}
}

// AuditVaults returns one row per squad with its stored balance and ledger total
func (a *VaultAuditor) AuditVaults(ctx context.Context) ([]models.VaultAudit, error) {
	query := `
		SELECT s.id::text,
		       s.vault_balance,
		       COALESCE(SUM(e.change_amount), 0)::bigint,
		       COUNT(e.id)
		FROM squads s
		LEFT JOIN ledger_entries e
		       ON e.account_type = 'squad' AND e.account_id = s.id::text
		GROUP BY s.id, s.vault_balance
		ORDER BY s.id
	`

	var audits []models.VaultAudit
	err := a.db.WithTransaction(ctx, database.SnapshotTxOptions, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to query vault totals: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var audit models.VaultAudit
			if err := rows.Scan(&audit.SquadID, &audit.VaultBalance, &audit.LedgerSum, &audit.EntryCount); err != nil {
				return fmt.Errorf("failed to scan vault audit: %w", err)
			}
			audits = append(audits, audit)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	return audits, nil
}
