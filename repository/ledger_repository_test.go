package repository

import (
	"context"
	"testing"
	"time"

	"squadvault/ledger"
	"squadvault/models"
	"squadvault/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWalletRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	testDB := testutil.SetupTestDatabase(t)
	repo := NewWalletRepository(testDB.DB)
	ctx := context.Background()
	owner := testutil.TestIdentity(7)

	wallet, err := repo.GetByOwner(ctx, owner)
	require.NoError(t, err)
	assert.Nil(t, wallet)

	wallet, err = repo.GetOrCreateForUpdate(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, owner, wallet.Owner)
	assert.True(t, wallet.Balance.IsZero())

	require.NoError(t, repo.UpdateBalance(ctx, owner, 1234))

	// second touch finds the existing row
	wallet, err = repo.GetOrCreateForUpdate(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, ledger.Amount(1234), wallet.Balance)

	assert.Error(t, repo.UpdateBalance(ctx, testutil.TestIdentity(8), 1))
}

func TestLedgerAndInstructionRepositories(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	testDB := testutil.SetupTestDatabase(t)
	entries := NewLedgerRepository(testDB.DB)
	instructions := NewInstructionRepository(testDB.DB)
	ctx := context.Background()
	actor := testutil.TestIdentity(1)

	t.Run("reserved sequence is used by append", func(t *testing.T) {
		sequence, err := instructions.ReserveSequence(ctx)
		require.NoError(t, err)

		record := &models.InstructionRecord{
			Sequence:  sequence,
			Kind:      models.InstructionDeposit,
			Actor:     actor,
			Payload:   []byte(`{"amount":5}`),
			Outcome:   models.InstructionOutcomeCommitted,
			Timestamp: 1_700_000_000,
		}
		require.NoError(t, instructions.Append(ctx, record))
		assert.Equal(t, sequence, record.Sequence)

		stored, err := instructions.GetBySequence(ctx, sequence)
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.Equal(t, models.InstructionDeposit, stored.Kind)
		assert.Equal(t, actor, stored.Actor)
		assert.JSONEq(t, `{"amount":5}`, string(stored.Payload))
		assert.Nil(t, stored.ErrorKind)
	})

	t.Run("rejected record without reservation", func(t *testing.T) {
		kind := ledger.KindVoteRequired
		detail := "vote required"
		record := &models.InstructionRecord{
			Kind:        models.InstructionWithdraw,
			Actor:       actor,
			Outcome:     models.InstructionOutcomeRejected,
			ErrorKind:   &kind,
			ErrorDetail: &detail,
			Timestamp:   1_700_000_001,
		}
		require.NoError(t, instructions.Append(ctx, record))
		assert.NotZero(t, record.Sequence)

		stored, err := instructions.GetBySequence(ctx, record.Sequence)
		require.NoError(t, err)
		require.NotNil(t, stored.ErrorKind)
		assert.Equal(t, ledger.KindVoteRequired, *stored.ErrorKind)
	})

	t.Run("log is append-only", func(t *testing.T) {
		_, err := testDB.DB.Exec(ctx, `UPDATE instruction_log SET kind = 'withdraw'`)
		assert.Error(t, err)
		_, err = testDB.DB.Exec(ctx, `DELETE FROM ledger_entries`)
		assert.Error(t, err)
	})

	t.Run("ledger entries by account", func(t *testing.T) {
		relatedID := "squad-1"
		relatedType := models.RelatedTypeSquad
		for i, change := range []int64{100, -40} {
			before := int64(0)
			if i == 1 {
				before = 100
			}
			entry := &models.LedgerEntry{
				AccountType:   models.AccountTypeWallet,
				AccountID:     actor.String(),
				BalanceBefore: before,
				BalanceAfter:  before + change,
				ChangeAmount:  change,
				EntryType:     models.EntryTypeDeposit,
				Metadata:      map[string]any{"instruction": "deposit"},
				RelatedID:     &relatedID,
				RelatedType:   &relatedType,
			}
			require.NoError(t, entries.Record(ctx, entry))
			assert.NotZero(t, entry.ID)
		}

		got, err := entries.GetByAccount(ctx, models.AccountTypeWallet, actor.String(), 10)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, int64(-40), got[0].ChangeAmount)
		assert.Equal(t, "deposit", got[0].Metadata["instruction"])

		got, err = entries.GetByDateRange(ctx, models.AccountTypeWallet, actor.String(), time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("inconsistent change is refused", func(t *testing.T) {
		entry := &models.LedgerEntry{
			AccountType:   models.AccountTypeSquad,
			AccountID:     "x",
			BalanceBefore: 10,
			BalanceAfter:  20,
			ChangeAmount:  5,
			EntryType:     models.EntryTypeDeposit,
		}
		assert.Error(t, entries.Record(ctx, entry))
	})
}

func TestVaultAuditor(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	testDB := testutil.SetupTestDatabase(t)
	squads := NewSquadRepository(testDB.DB)
	entries := NewLedgerRepository(testDB.DB)
	auditor := NewVaultAuditor(testDB.DB)
	ctx := context.Background()

	consistent := testutil.CreateTestSquad(testutil.TestIdentity(1), "ok", 0)
	drifted := testutil.CreateTestSquad(testutil.TestIdentity(1), "drift", 0)
	for _, s := range []*models.Squad{consistent, drifted} {
		_, err := squads.Create(ctx, s)
		require.NoError(t, err)
		s.VaultBalance = 300
		require.NoError(t, squads.Update(ctx, s))
	}

	require.NoError(t, entries.Record(ctx, &models.LedgerEntry{
		AccountType:   models.AccountTypeSquad,
		AccountID:     consistent.ID.String(),
		BalanceBefore: 0,
		BalanceAfter:  300,
		ChangeAmount:  300,
		EntryType:     models.EntryTypeDeposit,
	}))

	audits, err := auditor.AuditVaults(ctx)
	require.NoError(t, err)
	require.Len(t, audits, 2)

	byID := map[string]models.VaultAudit{}
	for _, a := range audits {
		byID[a.SquadID] = a
	}
	assert.Zero(t, byID[consistent.ID.String()].Drift())
	assert.Equal(t, int64(1), byID[consistent.ID.String()].EntryCount)
	assert.Equal(t, int64(300), byID[drifted.ID.String()].Drift())
}
