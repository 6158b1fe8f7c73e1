package ledger

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	t.Run("wrapped domain error keeps its kind", func(t *testing.T) {
		err := fmt.Errorf("%w: 1500 exceeds threshold 1000", ErrVoteRequired)
		assert.Equal(t, KindVoteRequired, KindOf(err))
		assert.True(t, errors.Is(err, ErrVoteRequired))
		assert.False(t, errors.Is(err, ErrInsufficientFunds))
		assert.True(t, IsDomainError(err))
	})

	t.Run("double wrapped", func(t *testing.T) {
		err := fmt.Errorf("failed to withdraw: %w", fmt.Errorf("%w: vault empty", ErrInsufficientFunds))
		assert.Equal(t, KindInsufficientFunds, KindOf(err))
	})

	t.Run("infrastructure errors are internal", func(t *testing.T) {
		err := fmt.Errorf("failed to begin transaction: %w", errors.New("connection refused"))
		assert.Equal(t, KindInternal, KindOf(err))
		assert.False(t, IsDomainError(err))
	})

	t.Run("nil", func(t *testing.T) {
		assert.Equal(t, Kind(""), KindOf(nil))
	})
}
