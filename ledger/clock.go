package ledger

import "time"

// Clock supplies the current time as Unix seconds. The engines never read
// the wall clock themselves; time-dependent state is computed lazily from
// whatever the dispatcher passes in.
type Clock interface {
	Now() int64
}

// SystemClock reads the wall clock
type SystemClock struct{}

func (SystemClock) Now() int64 {
	return time.Now().Unix()
}

// FixedClock always returns the same instant
type FixedClock int64

func (c FixedClock) Now() int64 {
	return int64(c)
}
