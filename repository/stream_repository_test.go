package repository

import (
	"context"
	"testing"

	"squadvault/ledger"
	"squadvault/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	testDB := testutil.SetupTestDatabase(t)
	repo := NewStreamRepository(testDB.DB)
	squads := NewSquadRepository(testDB.DB)
	ctx := context.Background()

	sender := testutil.TestIdentity(1)
	recipient := testutil.TestIdentity(2)

	t.Run("create and read back", func(t *testing.T) {
		stream := testutil.CreateTestStream(sender, recipient, 10, 1000, 1100)
		require.NoError(t, repo.Create(ctx, stream))
		assert.NotZero(t, stream.ID)

		stored, err := repo.GetByID(ctx, stream.ID)
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.Equal(t, ledger.Amount(1000), stored.TotalDeposited)
		assert.Nil(t, stored.FundingSquadID)
		assert.Nil(t, stored.CancelledAt)
		assert.False(t, stored.IsCancelled)
	})

	t.Run("squad funded stream keeps its squad", func(t *testing.T) {
		squad := testutil.CreateTestSquad(sender, "streams", 0)
		_, err := squads.Create(ctx, squad)
		require.NoError(t, err)

		stream := testutil.CreateTestStream(sender, recipient, 5, 0, 10)
		stream.FundingSquadID = &squad.ID
		require.NoError(t, repo.Create(ctx, stream))

		stored, err := repo.GetByIDForUpdate(ctx, stream.ID)
		require.NoError(t, err)
		require.NotNil(t, stored.FundingSquadID)
		assert.Equal(t, squad.ID, *stored.FundingSquadID)
	})

	t.Run("update cancellation", func(t *testing.T) {
		stream := testutil.CreateTestStream(sender, recipient, 10, 1000, 1100)
		require.NoError(t, repo.Create(ctx, stream))

		cancelledAt := int64(1040)
		stream.IsCancelled = true
		stream.CancelledAt = &cancelledAt
		stream.TotalWithdrawn = 400
		require.NoError(t, repo.Update(ctx, stream))

		stored, err := repo.GetByID(ctx, stream.ID)
		require.NoError(t, err)
		assert.True(t, stored.IsCancelled)
		assert.Equal(t, int64(1040), *stored.CancelledAt)
		assert.Equal(t, ledger.Amount(400), stored.TotalWithdrawn)
	})

	t.Run("list by participant", func(t *testing.T) {
		other := testutil.TestIdentity(9)
		stream := testutil.CreateTestStream(other, sender, 1, 0, 100)
		require.NoError(t, repo.Create(ctx, stream))

		streams, err := repo.ListByParticipant(ctx, other, 10)
		require.NoError(t, err)
		require.Len(t, streams, 1)
		assert.Equal(t, stream.ID, streams[0].ID)

		streams, err = repo.ListByParticipant(ctx, recipient, 2)
		require.NoError(t, err)
		assert.Len(t, streams, 2)
	})

	t.Run("missing stream", func(t *testing.T) {
		stream, err := repo.GetByID(ctx, 999999)
		require.NoError(t, err)
		assert.Nil(t, stream)
	})
}
