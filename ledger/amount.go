package ledger

import (
	"database/sql/driver"
	"fmt"
	"math"
	"math/bits"
	"strconv"
)

// UnitsPerToken is the number of smallest units in one native token
const UnitsPerToken Amount = 1_000_000_000

// Amount is an unsigned fixed-point balance expressed in smallest units.
// All arithmetic is checked; nothing in the engines ever wraps.
type Amount uint64

// Add returns a+b or ErrArithmeticOverflow
func (a Amount) Add(b Amount) (Amount, error) {
	sum, carry := bits.Add64(uint64(a), uint64(b), 0)
	if carry != 0 {
		return 0, fmt.Errorf("%w: %d + %d", ErrArithmeticOverflow, a, b)
	}
	return Amount(sum), nil
}

// Sub returns a-b or ErrArithmeticOverflow when b > a
func (a Amount) Sub(b Amount) (Amount, error) {
	diff, borrow := bits.Sub64(uint64(a), uint64(b), 0)
	if borrow != 0 {
		return 0, fmt.Errorf("%w: %d - %d", ErrArithmeticOverflow, a, b)
	}
	return Amount(diff), nil
}

// Mul returns a*n or ErrArithmeticOverflow
func (a Amount) Mul(n uint64) (Amount, error) {
	hi, lo := bits.Mul64(uint64(a), n)
	if hi != 0 {
		return 0, fmt.Errorf("%w: %d * %d", ErrArithmeticOverflow, a, n)
	}
	return Amount(lo), nil
}

// Min returns the smaller of a and b
func (a Amount) Min(b Amount) Amount {
	if a < b {
		return a
	}
	return b
}

// IsZero reports whether the amount is zero
func (a Amount) IsZero() bool {
	return a == 0
}

// Int64 converts the amount for storage. Balances above MaxInt64 cannot be
// persisted and are reported as an overflow.
func (a Amount) Int64() (int64, error) {
	if uint64(a) > math.MaxInt64 {
		return 0, fmt.Errorf("%w: %d does not fit in storage", ErrArithmeticOverflow, a)
	}
	return int64(a), nil
}

func (a Amount) String() string {
	return strconv.FormatUint(uint64(a), 10)
}

// Value implements driver.Valuer
func (a Amount) Value() (driver.Value, error) {
	return a.Int64()
}

// Scan implements sql.Scanner
func (a *Amount) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*a = 0
	case int64:
		if v < 0 {
			return fmt.Errorf("negative amount %d in storage", v)
		}
		*a = Amount(v)
	case int32:
		if v < 0 {
			return fmt.Errorf("negative amount %d in storage", v)
		}
		*a = Amount(v)
	default:
		return fmt.Errorf("cannot scan %T into Amount", src)
	}
	return nil
}

// SignedChange returns after-before as a signed value for ledger rows
func SignedChange(before, after Amount) (int64, error) {
	b, err := before.Int64()
	if err != nil {
		return 0, err
	}
	a, err := after.Int64()
	if err != nil {
		return 0, err
	}
	return a - b, nil
}
