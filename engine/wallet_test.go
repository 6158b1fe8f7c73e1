package engine

import (
	"testing"

	"squadvault/ledger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMint(t *testing.T) {
	minters := []ledger.Identity{authority}
	wallet := NewWallet(alice)

	t.Run("mint authority credits", func(t *testing.T) {
		next, err := Mint(wallet, authority, 250, minters)
		require.NoError(t, err)
		assert.Equal(t, ledger.Amount(250), next.Balance)
		assert.Equal(t, ledger.Amount(0), wallet.Balance)
	})

	t.Run("anyone else is rejected", func(t *testing.T) {
		_, err := Mint(wallet, alice, 250, minters)
		assert.ErrorIs(t, err, ledger.ErrUnauthorized)
	})

	t.Run("zero amount", func(t *testing.T) {
		_, err := Mint(wallet, authority, 0, minters)
		assert.ErrorIs(t, err, ledger.ErrInvalidAmount)
	})
}

func TestDebit(t *testing.T) {
	wallet, err := Credit(NewWallet(bob), 100)
	require.NoError(t, err)

	next, err := Debit(wallet, 100)
	require.NoError(t, err)
	assert.Equal(t, ledger.Amount(0), next.Balance)

	_, err = Debit(wallet, 101)
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)
}
