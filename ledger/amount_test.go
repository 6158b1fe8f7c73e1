package ledger

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAmount_CheckedArithmetic(t *testing.T) {
	tests := []struct {
		name    string
		op      func() (Amount, error)
		want    Amount
		wantErr error
	}{
		{"add", func() (Amount, error) { return Amount(2).Add(3) }, 5, nil},
		{"add overflow", func() (Amount, error) { return Amount(math.MaxUint64).Add(1) }, 0, ErrArithmeticOverflow},
		{"sub", func() (Amount, error) { return Amount(5).Sub(3) }, 2, nil},
		{"sub to zero", func() (Amount, error) { return Amount(5).Sub(5) }, 0, nil},
		{"sub underflow", func() (Amount, error) { return Amount(3).Sub(5) }, 0, ErrArithmeticOverflow},
		{"mul", func() (Amount, error) { return Amount(1000).Mul(3600) }, 3_600_000, nil},
		{"mul by zero", func() (Amount, error) { return Amount(math.MaxUint64).Mul(0) }, 0, nil},
		{"mul overflow", func() (Amount, error) { return Amount(math.MaxUint64 / 2).Mul(3) }, 0, ErrArithmeticOverflow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.op()
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr))
				assert.Equal(t, KindArithmeticOverflow, KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAmount_StorageBoundary(t *testing.T) {
	t.Run("value fits", func(t *testing.T) {
		v, err := (2 * UnitsPerToken).Value()
		require.NoError(t, err)
		assert.Equal(t, int64(2_000_000_000), v)
	})

	t.Run("value too large", func(t *testing.T) {
		_, err := Amount(math.MaxUint64).Value()
		assert.ErrorIs(t, err, ErrArithmeticOverflow)
	})

	t.Run("scan", func(t *testing.T) {
		var a Amount
		require.NoError(t, a.Scan(int64(42)))
		assert.Equal(t, Amount(42), a)
	})

	t.Run("scan negative", func(t *testing.T) {
		var a Amount
		assert.Error(t, a.Scan(int64(-1)))
	})

	t.Run("scan wrong type", func(t *testing.T) {
		var a Amount
		assert.Error(t, a.Scan("42"))
	})
}

func TestSignedChange(t *testing.T) {
	change, err := SignedChange(1500, 500)
	require.NoError(t, err)
	assert.Equal(t, int64(-1000), change)

	change, err = SignedChange(0, 2*UnitsPerToken)
	require.NoError(t, err)
	assert.Equal(t, int64(2_000_000_000), change)
}
