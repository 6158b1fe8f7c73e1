package repository

import (
	"context"
	"testing"

	"squadvault/ledger"
	"squadvault/models"
	"squadvault/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProposalRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	testDB := testutil.SetupTestDatabase(t)
	repo := NewProposalRepository(testDB.DB)
	squads := NewSquadRepository(testDB.DB)
	ctx := context.Background()

	authority := testutil.TestIdentity(1)
	bob := testutil.TestIdentity(2)
	carol := testutil.TestIdentity(3)
	outsider := testutil.TestIdentity(4)

	squad := testutil.CreateTestSquad(authority, "votes", 100, bob, carol)
	_, err := squads.Create(ctx, squad)
	require.NoError(t, err)

	t.Run("create stores the electorate snapshot", func(t *testing.T) {
		proposal := testutil.CreateTestProposal(squad, carol, 500, 1_700_003_600)
		require.NoError(t, repo.Create(ctx, proposal))
		assert.NotZero(t, proposal.ID)

		stored, err := repo.GetByID(ctx, proposal.ID)
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.Equal(t, []ledger.Identity{authority, bob, carol}, stored.EligibleVoters)
		assert.Equal(t, uint32(3), stored.Quorum)
		assert.Equal(t, models.ProposalStatusActive, stored.Status)
		assert.Empty(t, stored.Votes)
	})

	t.Run("votes and status", func(t *testing.T) {
		proposal := testutil.CreateTestProposal(squad, carol, 500, 1_700_003_600)
		require.NoError(t, repo.Create(ctx, proposal))

		vote := models.Vote{ProposalID: proposal.ID, Voter: bob, Choice: models.VoteChoiceYes, CastAt: 1_700_000_100}
		require.NoError(t, repo.RecordVote(ctx, vote))

		resolvedAt := int64(1_700_000_100)
		proposal.YesVotes = 1
		proposal.Status = models.ProposalStatusPassed
		proposal.ResolvedAt = &resolvedAt
		require.NoError(t, repo.Update(ctx, proposal))

		stored, err := repo.GetByIDForUpdate(ctx, proposal.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ProposalStatusPassed, stored.Status)
		assert.Equal(t, uint32(1), stored.YesVotes)
		require.Len(t, stored.Votes, 1)
		assert.Equal(t, vote, stored.Votes[0])
		assert.Equal(t, resolvedAt, *stored.ResolvedAt)
	})

	t.Run("duplicate and ineligible votes are refused", func(t *testing.T) {
		proposal := testutil.CreateTestProposal(squad, carol, 500, 1_700_003_600)
		require.NoError(t, repo.Create(ctx, proposal))

		vote := models.Vote{ProposalID: proposal.ID, Voter: carol, Choice: models.VoteChoiceNo, CastAt: 1}
		require.NoError(t, repo.RecordVote(ctx, vote))
		assert.Error(t, repo.RecordVote(ctx, vote))

		vote.Voter = outsider
		assert.Error(t, repo.RecordVote(ctx, vote))
	})

	t.Run("list by squad newest first", func(t *testing.T) {
		proposals, err := repo.ListBySquad(ctx, squad.ID, 2)
		require.NoError(t, err)
		require.Len(t, proposals, 2)
		assert.Greater(t, proposals[0].ID, proposals[1].ID)
		assert.Len(t, proposals[0].EligibleVoters, 3)
	})

	t.Run("missing proposal", func(t *testing.T) {
		proposal, err := repo.GetByID(ctx, 999999)
		require.NoError(t, err)
		assert.Nil(t, proposal)
	})
}
