package models

import (
	"time"
)

// AccountType identifies which balance a ledger entry belongs to
type AccountType string

const (
	AccountTypeWallet AccountType = "wallet"
	AccountTypeSquad  AccountType = "squad"
	AccountTypeStream AccountType = "stream"
)

// EntryType represents the reason for a balance change
type EntryType string

const (
	EntryTypeMint           EntryType = "mint"
	EntryTypeDeposit        EntryType = "deposit"
	EntryTypeWithdrawal     EntryType = "withdrawal"
	EntryTypeProposalPayout EntryType = "proposal_payout"
	EntryTypeStreamEscrow   EntryType = "stream_escrow"
	EntryTypeStreamPayout   EntryType = "stream_payout"
	EntryTypeStreamRefund   EntryType = "stream_refund"
)

// RelatedType represents what kind of record related_id refers to
type RelatedType string

const (
	RelatedTypeSquad    RelatedType = "squad"
	RelatedTypeStream   RelatedType = "stream"
	RelatedTypeProposal RelatedType = "proposal"
)

// LedgerEntry is one recorded balance change on a wallet, squad vault or
// stream escrow
type LedgerEntry struct {
	ID                  int64          `db:"id" json:"id"`
	AccountType         AccountType    `db:"account_type" json:"account_type"`
	AccountID           string         `db:"account_id" json:"account_id"`
	BalanceBefore       int64          `db:"balance_before" json:"balance_before"`
	BalanceAfter        int64          `db:"balance_after" json:"balance_after"`
	ChangeAmount        int64          `db:"change_amount" json:"change_amount"`
	EntryType           EntryType      `db:"entry_type" json:"entry_type"`
	Metadata            map[string]any `db:"metadata" json:"metadata,omitempty"`
	InstructionSequence *int64         `db:"instruction_sequence" json:"instruction_sequence,omitempty"`
	RelatedID           *string        `db:"related_id" json:"related_id,omitempty"`
	RelatedType         *RelatedType   `db:"related_type" json:"related_type,omitempty"`
	CreatedAt           time.Time      `db:"created_at" json:"created_at"`
}

// VaultAudit compares a squad's stored vault balance with the sum of its
// vault ledger entries
type VaultAudit struct {
	SquadID      string `db:"squad_id"`
	VaultBalance int64  `db:"vault_balance"`
	LedgerSum    int64  `db:"ledger_sum"`
	EntryCount   int64  `db:"entry_count"`
}

// Drift is the stored balance minus the ledger total; zero when consistent
func (a VaultAudit) Drift() int64 {
	return a.VaultBalance - a.LedgerSum
}
