package service

import (
	"squadvault/engine"
	"squadvault/events"
	"squadvault/ledger"
	"squadvault/models"
)

// creditWallet mints funds into a wallet on behalf of a mint authority
func (d *Dispatcher) creditWallet(ic *instructionContext, in models.CreditWallet) error {
	wallets, err := ic.loadWallets(in.Owner)
	if err != nil {
		return err
	}
	wallet := wallets[in.Owner]

	credited, err := engine.Mint(*wallet, ic.actor, in.Amount, d.mintAuthorities)
	if err != nil {
		return err
	}
	if err := ic.saveWallet(*wallet, credited, models.EntryTypeMint, "", ""); err != nil {
		return err
	}

	ic.emit(events.InstructionEvent{
		Operation: events.EventTypeWalletCredited,
		AccountID: in.Owner.String(),
		Amounts: map[string]ledger.Amount{
			"amount":  in.Amount,
			"balance": credited.Balance,
		},
	})
	ic.receipt.Wallet = &credited
	return nil
}
