package engine

import (
	"testing"

	"squadvault/ledger"
	"squadvault/models"

	"github.com/stretchr/testify/require"
)

const testNow int64 = 1_700_000_000

func identity(b byte) ledger.Identity {
	var id ledger.Identity
	for i := range id {
		id[i] = b
	}
	return id
}

var (
	authority = identity(0xA1)
	alice     = identity(0xB2)
	bob       = identity(0xC3)
	carol     = identity(0xD4)
	outsider  = identity(0xE5)
)

func newTestSquad(t *testing.T, threshold ledger.Amount, members ...ledger.Identity) models.Squad {
	t.Helper()
	squad, err := InitializeSquad(SquadInit{
		Authority:      authority,
		Name:           "test squad",
		Salt:           "salt",
		InitialMembers: members,
		SpendThreshold: threshold,
		MaxMembers:     MaxSquadMembers,
		Now:            testNow,
	})
	require.NoError(t, err)
	return squad
}

func fundSquad(t *testing.T, squad models.Squad, amount ledger.Amount) models.Squad {
	t.Helper()
	funded, err := Deposit(squad, outsider, amount)
	require.NoError(t, err)
	return funded
}
