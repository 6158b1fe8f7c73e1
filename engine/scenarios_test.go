package engine

import (
	"encoding/json"
	"testing"

	"squadvault/ledger"
	"squadvault/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenario_DirectWithdrawalThreshold(t *testing.T) {
	squad := newTestSquad(t, 1_000_000_000, alice, bob)
	require.Len(t, squad.Members, 3)

	squad, err := Deposit(squad, alice, 2_000_000_000)
	require.NoError(t, err)

	squad, err = Withdraw(squad, alice, 500_000_000, false, alice)
	require.NoError(t, err)
	assert.Equal(t, ledger.Amount(1_500_000_000), squad.VaultBalance)

	_, err = Withdraw(squad, alice, 1_500_000_000, false, alice)
	assert.ErrorIs(t, err, ledger.ErrVoteRequired)
	assert.Equal(t, ledger.KindVoteRequired, ledger.KindOf(err))
}

func TestScenario_StreamHalfway(t *testing.T) {
	const start = testNow
	stream := newTestStream(t, 1000, start, start+3600)

	assert.Equal(t, ledger.Amount(1_800_000), AccruedAmount(stream, start+1800))

	stream, paid, err := WithdrawStream(stream, bob, start+1800)
	require.NoError(t, err)
	assert.Equal(t, ledger.Amount(1_800_000), paid)

	_, _, err = WithdrawStream(stream, bob, start+1800)
	assert.ErrorIs(t, err, ledger.ErrNothingToWithdraw)
}

func TestScenario_VotingToPassed(t *testing.T) {
	squad := newTestSquad(t, 1000, alice, bob)
	p := newTestProposal(t, squad, 5000)
	require.Equal(t, uint32(3), p.Quorum)

	p, err := CastVote(p, authority, models.VoteChoiceYes, testNow+1)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), p.YesVotes)
	assert.Equal(t, models.ProposalStatusActive, p.Status)

	p, err = CastVote(p, alice, models.VoteChoiceYes, testNow+2)
	require.NoError(t, err)
	assert.Equal(t, models.ProposalStatusPassed, p.Status)

	_, err = CastVote(p, bob, models.VoteChoiceYes, testNow+3)
	assert.ErrorIs(t, err, ledger.ErrProposalNotActive)

	// not in the electorate
	_, err = CastVote(p, carol, models.VoteChoiceYes, testNow+3)
	assert.ErrorIs(t, err, ledger.ErrProposalNotActive)

	_, err = CastVote(p, authority, models.VoteChoiceNo, testNow+4)
	assert.ErrorIs(t, err, ledger.ErrAlreadyVoted)

	assert.Len(t, p.Voters(), int(p.YesVotes+p.NoVotes))
}

func TestScenario_ExecuteUnderfunded(t *testing.T) {
	squad := fundSquad(t, newTestSquad(t, 1000, alice), 2000)
	p := newTestProposal(t, squad, 5000)

	p, err := CastVote(p, authority, models.VoteChoiceYes, testNow+1)
	require.NoError(t, err)
	p, err = CastVote(p, alice, models.VoteChoiceYes, testNow+2)
	require.NoError(t, err)
	require.Equal(t, models.ProposalStatusPassed, p.Status)

	after, afterSquad, err := ExecuteProposal(p, squad, alice, testNow+3)
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)
	assert.Equal(t, models.ProposalStatusPassed, after.Status)
	assert.Equal(t, ledger.Amount(2000), afterSquad.VaultBalance)
}

func snapshot(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}

func TestRejectionLeavesStateUnchanged(t *testing.T) {
	squad := fundSquad(t, newTestSquad(t, 1000, alice, bob), 3000)
	stream := newTestStream(t, 10, testNow, testNow+100)
	p := newTestProposal(t, squad, 2000)
	p, err := CastVote(p, alice, models.VoteChoiceYes, testNow+1)
	require.NoError(t, err)

	squadBefore := snapshot(t, squad)
	streamBefore := snapshot(t, stream)
	proposalBefore := snapshot(t, p)

	rejected := []func() error{
		func() error { _, err := Withdraw(squad, alice, 1500, false, bob); return err },
		func() error { _, err := Withdraw(squad, outsider, 10, false, bob); return err },
		func() error { _, err := AddMember(squad, authority, alice); return err },
		func() error { _, err := RemoveMember(squad, authority, authority); return err },
		func() error { _, err := Deposit(squad, alice, 0); return err },
		func() error { _, _, err := WithdrawStream(stream, alice, testNow+50); return err },
		func() error { _, _, _, err := CancelStream(stream, bob, testNow+50); return err },
		func() error { _, err := CastVote(p, alice, models.VoteChoiceNo, testNow+2); return err },
		func() error { _, err := CastVote(p, outsider, models.VoteChoiceYes, testNow+2); return err },
		func() error { _, _, err := ExecuteProposal(p, squad, alice, testNow+2); return err },
	}

	for i, call := range rejected {
		require.Error(t, call(), "call %d should be rejected", i)
	}

	assert.Equal(t, squadBefore, snapshot(t, squad))
	assert.Equal(t, streamBefore, snapshot(t, stream))
	assert.Equal(t, proposalBefore, snapshot(t, p))
}

func TestVaultEqualsDepositsMinusWithdrawals(t *testing.T) {
	squad := newTestSquad(t, 500, alice, bob)
	var deposited, withdrawn ledger.Amount

	steps := []struct {
		deposit  bool
		amount   ledger.Amount
		approved bool
	}{
		{true, 1000, false},
		{false, 400, false},
		{false, 700, false},
		{true, 250, false},
		{false, 600, true},
		{false, 5000, true},
		{true, 1, false},
	}

	for _, s := range steps {
		var next models.Squad
		var err error
		if s.deposit {
			next, err = Deposit(squad, bob, s.amount)
			if err == nil {
				deposited += s.amount
			}
		} else {
			next, err = Withdraw(squad, alice, s.amount, s.approved, carol)
			if err == nil {
				withdrawn += s.amount
			}
		}
		if err == nil {
			squad = next
		}
		assert.Equal(t, deposited-withdrawn, squad.VaultBalance)
	}
}
