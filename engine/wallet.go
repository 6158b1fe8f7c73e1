package engine

import (
	"fmt"

	"squadvault/ledger"
	"squadvault/models"
)

// NewWallet returns the empty wallet every identity implicitly owns
func NewWallet(owner ledger.Identity) models.Wallet {
	return models.Wallet{Owner: owner}
}

// Credit adds amount to the wallet
func Credit(wallet models.Wallet, amount ledger.Amount) (models.Wallet, error) {
	balance, err := wallet.Balance.Add(amount)
	if err != nil {
		return wallet, err
	}
	wallet.Balance = balance
	return wallet, nil
}

// Debit removes amount from the wallet
func Debit(wallet models.Wallet, amount ledger.Amount) (models.Wallet, error) {
	if amount > wallet.Balance {
		return wallet, fmt.Errorf("%w: wallet holds %d, requested %d", ledger.ErrInsufficientFunds, wallet.Balance, amount)
	}
	wallet.Balance -= amount
	return wallet, nil
}

// Mint credits a wallet on behalf of a mint authority
func Mint(wallet models.Wallet, minter ledger.Identity, amount ledger.Amount, authorities []ledger.Identity) (models.Wallet, error) {
	allowed := false
	for _, a := range authorities {
		if a == minter {
			allowed = true
			break
		}
	}
	if !allowed || minter.IsZero() {
		return wallet, fmt.Errorf("%w: %s is not a mint authority", ledger.ErrUnauthorized, minter.Short())
	}
	if wallet.Owner.IsZero() {
		return wallet, fmt.Errorf("%w: missing wallet owner", ledger.ErrInvalidRecipient)
	}
	if amount.IsZero() {
		return wallet, fmt.Errorf("%w: credit must be greater than zero", ledger.ErrInvalidAmount)
	}
	return Credit(wallet, amount)
}
