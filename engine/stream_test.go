package engine

import (
	"testing"

	"squadvault/ledger"
	"squadvault/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStream(t *testing.T, rate ledger.Amount, start, end int64) models.PaymentStream {
	t.Helper()
	stream, err := CreateStream(StreamInit{
		Sender:          alice,
		Recipient:       bob,
		AmountPerSecond: rate,
		StartTime:       start,
		EndTime:         end,
	}, ^ledger.Amount(0))
	require.NoError(t, err)
	stream.ID = 7
	return stream
}

func TestCreateStream(t *testing.T) {
	t.Run("escrows rate times duration", func(t *testing.T) {
		stream := newTestStream(t, 1000, testNow, testNow+3600)
		assert.Equal(t, ledger.Amount(3_600_000), stream.TotalDeposited)
		assert.Equal(t, ledger.Amount(0), stream.TotalWithdrawn)
		assert.False(t, stream.IsCancelled)
	})

	tests := []struct {
		name      string
		in        StreamInit
		available ledger.Amount
		wantErr   error
	}{
		{"zero rate", StreamInit{Sender: alice, Recipient: bob, StartTime: 1, EndTime: 2}, 100, ledger.ErrInvalidRate},
		{"empty window", StreamInit{Sender: alice, Recipient: bob, AmountPerSecond: 1, StartTime: 5, EndTime: 5}, 100, ledger.ErrInvalidWindow},
		{"reversed window", StreamInit{Sender: alice, Recipient: bob, AmountPerSecond: 1, StartTime: 5, EndTime: 4}, 100, ledger.ErrInvalidWindow},
		{"underfunded", StreamInit{Sender: alice, Recipient: bob, AmountPerSecond: 10, StartTime: 0, EndTime: 11}, 100, ledger.ErrInsufficientFunds},
		{"overflow", StreamInit{Sender: alice, Recipient: bob, AmountPerSecond: ^ledger.Amount(0), StartTime: 0, EndTime: 2}, ^ledger.Amount(0), ledger.ErrArithmeticOverflow},
		{"self stream", StreamInit{Sender: alice, Recipient: alice, AmountPerSecond: 1, StartTime: 0, EndTime: 2}, 100, ledger.ErrInvalidRecipient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CreateStream(tt.in, tt.available)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestAccruedAmount(t *testing.T) {
	stream := newTestStream(t, 1000, testNow, testNow+3600)

	tests := []struct {
		name string
		now  int64
		want ledger.Amount
	}{
		{"before start", testNow - 100, 0},
		{"at start", testNow, 0},
		{"midway", testNow + 1800, 1_800_000},
		{"at end", testNow + 3600, 3_600_000},
		{"after end", testNow + 99_999, 3_600_000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AccruedAmount(stream, tt.now))
		})
	}

	t.Run("cancelled stream stops accruing", func(t *testing.T) {
		cancelled, _, _, err := CancelStream(stream, alice, testNow+600)
		require.NoError(t, err)
		assert.Equal(t, ledger.Amount(600_000), AccruedAmount(cancelled, testNow+3000))
	})
}

func TestWithdrawStream(t *testing.T) {
	stream := newTestStream(t, 1000, testNow, testNow+3600)

	t.Run("only recipient", func(t *testing.T) {
		_, _, err := WithdrawStream(stream, alice, testNow+10)
		assert.ErrorIs(t, err, ledger.ErrUnauthorized)
	})

	t.Run("nothing accrued yet", func(t *testing.T) {
		_, _, err := WithdrawStream(stream, bob, testNow)
		assert.ErrorIs(t, err, ledger.ErrNothingToWithdraw)
	})

	t.Run("successive withdrawals pay the delta", func(t *testing.T) {
		first, paid, err := WithdrawStream(stream, bob, testNow+100)
		require.NoError(t, err)
		assert.Equal(t, ledger.Amount(100_000), paid)

		second, paid, err := WithdrawStream(first, bob, testNow+250)
		require.NoError(t, err)
		assert.Equal(t, ledger.Amount(150_000), paid)
		assert.Equal(t, ledger.Amount(250_000), second.TotalWithdrawn)

		assert.Equal(t, ledger.Amount(0), stream.TotalWithdrawn)
	})
}

func TestCancelStream(t *testing.T) {
	stream := newTestStream(t, 1000, testNow, testNow+3600)
	partly, _, err := WithdrawStream(stream, bob, testNow+500)
	require.NoError(t, err)

	t.Run("splits between recipient and sender", func(t *testing.T) {
		next, refunded, paid, err := CancelStream(partly, alice, testNow+1800)
		require.NoError(t, err)
		assert.Equal(t, ledger.Amount(1_300_000), paid)
		assert.Equal(t, ledger.Amount(1_800_000), refunded)
		assert.True(t, next.IsCancelled)
		require.NotNil(t, next.CancelledAt)
		assert.Equal(t, testNow+1800, *next.CancelledAt)
		assert.Equal(t, next.TotalDeposited, next.TotalWithdrawn+refunded)

		_, _, err = WithdrawStream(next, bob, testNow+3000)
		assert.ErrorIs(t, err, ledger.ErrNothingToWithdraw)
	})

	t.Run("before start refunds everything", func(t *testing.T) {
		_, refunded, paid, err := CancelStream(stream, alice, testNow-10)
		require.NoError(t, err)
		assert.Equal(t, ledger.Amount(0), paid)
		assert.Equal(t, stream.TotalDeposited, refunded)
	})

	t.Run("only sender", func(t *testing.T) {
		_, _, _, err := CancelStream(partly, bob, testNow+1800)
		assert.ErrorIs(t, err, ledger.ErrUnauthorized)
	})

	t.Run("twice", func(t *testing.T) {
		cancelled, _, _, err := CancelStream(partly, alice, testNow+1800)
		require.NoError(t, err)
		_, _, _, err = CancelStream(cancelled, alice, testNow+1900)
		assert.ErrorIs(t, err, ledger.ErrAlreadyCancelled)
	})
}

func TestStreamInvariant(t *testing.T) {
	stream := newTestStream(t, 37, testNow, testNow+1000)
	current := stream

	for now := testNow - 50; now <= testNow+1100; now += 73 {
		if next, _, err := WithdrawStream(current, bob, now); err == nil {
			current = next
		}
		accrued := AccruedAmount(current, now)
		assert.LessOrEqual(t, uint64(current.TotalWithdrawn), uint64(accrued))
		assert.LessOrEqual(t, uint64(accrued), uint64(current.TotalDeposited))
	}
}
