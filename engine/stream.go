package engine

import (
	"fmt"

	"squadvault/ledger"
	"squadvault/models"

	"github.com/google/uuid"
)

// StreamInit carries the parameters of CreateStream
type StreamInit struct {
	Sender          ledger.Identity
	Recipient       ledger.Identity
	AmountPerSecond ledger.Amount
	StartTime       int64
	EndTime         int64
	FundingSquadID  *uuid.UUID
}

// StreamDeposit validates a rate and window and returns the amount that
// must be escrowed for them.
func StreamDeposit(rate ledger.Amount, start, end int64) (ledger.Amount, error) {
	if rate.IsZero() {
		return 0, ledger.ErrInvalidRate
	}
	if end <= start {
		return 0, fmt.Errorf("%w: end %d is not after start %d", ledger.ErrInvalidWindow, end, start)
	}
	return rate.Mul(uint64(end - start))
}

// CreateStream builds a new stream whose deposit is escrowed out of
// available. The caller debits the funding account by TotalDeposited in the
// same unit of work.
func CreateStream(in StreamInit, available ledger.Amount) (models.PaymentStream, error) {
	if in.Sender.IsZero() {
		return models.PaymentStream{}, fmt.Errorf("%w: missing sender", ledger.ErrUnauthorized)
	}
	if in.Recipient.IsZero() || in.Recipient == in.Sender {
		return models.PaymentStream{}, fmt.Errorf("%w: recipient must differ from sender", ledger.ErrInvalidRecipient)
	}

	total, err := StreamDeposit(in.AmountPerSecond, in.StartTime, in.EndTime)
	if err != nil {
		return models.PaymentStream{}, err
	}
	if total > available {
		return models.PaymentStream{}, fmt.Errorf("%w: stream needs %d, available %d", ledger.ErrInsufficientFunds, total, available)
	}

	stream := models.PaymentStream{
		Sender:          in.Sender,
		Recipient:       in.Recipient,
		AmountPerSecond: in.AmountPerSecond,
		StartTime:       in.StartTime,
		EndTime:         in.EndTime,
		TotalDeposited:  total,
	}
	if in.FundingSquadID != nil {
		id := *in.FundingSquadID
		stream.FundingSquadID = &id
	}
	return stream, nil
}

// AccruedAmount is the part of the deposit claimable at now, clamped to
// [0, TotalDeposited].
func AccruedAmount(stream models.PaymentStream, now int64) ledger.Amount {
	end := stream.EffectiveEnd()
	if now > end {
		now = end
	}
	if now <= stream.StartTime {
		return 0
	}

	accrued, err := stream.AmountPerSecond.Mul(uint64(now - stream.StartTime))
	if err != nil || accrued > stream.TotalDeposited {
		return stream.TotalDeposited
	}
	return accrued
}

// Withdrawable is the accrued amount not yet paid to the recipient
func Withdrawable(stream models.PaymentStream, now int64) ledger.Amount {
	accrued := AccruedAmount(stream, now)
	if stream.TotalWithdrawn >= accrued {
		return 0
	}
	return accrued - stream.TotalWithdrawn
}

// WithdrawStream pays everything accrued so far to the recipient
func WithdrawStream(stream models.PaymentStream, caller ledger.Identity, now int64) (models.PaymentStream, ledger.Amount, error) {
	if caller != stream.Recipient {
		return stream, 0, fmt.Errorf("%w: only the recipient can withdraw from stream %d", ledger.ErrUnauthorized, stream.ID)
	}

	available := Withdrawable(stream, now)
	if available.IsZero() {
		return stream, 0, ledger.ErrNothingToWithdraw
	}

	withdrawn, err := stream.TotalWithdrawn.Add(available)
	if err != nil {
		return stream, 0, err
	}

	next := stream.Clone()
	next.TotalWithdrawn = withdrawn
	return next, available, nil
}

// CancelStream stops a stream at now. The accrued but unwithdrawn remainder
// goes to the recipient and the unaccrued remainder back to the sender.
func CancelStream(stream models.PaymentStream, caller ledger.Identity, now int64) (next models.PaymentStream, refunded, paid ledger.Amount, err error) {
	if caller != stream.Sender {
		return stream, 0, 0, fmt.Errorf("%w: only the sender can cancel stream %d", ledger.ErrUnauthorized, stream.ID)
	}
	if stream.IsCancelled {
		return stream, 0, 0, ledger.ErrAlreadyCancelled
	}

	accrued := AccruedAmount(stream, now)
	if paid, err = accrued.Sub(stream.TotalWithdrawn); err != nil {
		return stream, 0, 0, err
	}
	if refunded, err = stream.TotalDeposited.Sub(accrued); err != nil {
		return stream, 0, 0, err
	}

	next = stream.Clone()
	next.IsCancelled = true
	cancelledAt := now
	next.CancelledAt = &cancelledAt
	next.TotalWithdrawn = accrued
	return next, refunded, paid, nil
}
