package models

import (
	"time"

	"squadvault/ledger"
)

// Wallet is an identity's spendable balance outside any squad
type Wallet struct {
	Owner     ledger.Identity `db:"owner" json:"owner"`
	Balance   ledger.Amount   `db:"balance" json:"balance"`
	CreatedAt time.Time       `db:"created_at" json:"-"`
	UpdatedAt time.Time       `db:"updated_at" json:"-"`
}
