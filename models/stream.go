package models

import (
	"time"

	"squadvault/ledger"

	"github.com/google/uuid"
)

// StreamStatus is a derived, display-only view of a stream at a point in time
type StreamStatus string

const (
	StreamStatusScheduled StreamStatus = "scheduled"
	StreamStatusStreaming StreamStatus = "streaming"
	StreamStatusEnded     StreamStatus = "ended"
	StreamStatusSettled   StreamStatus = "settled"
	StreamStatusCancelled StreamStatus = "cancelled"
)

// PaymentStream is a continuous transfer from sender to recipient.
// TotalDeposited is escrowed at creation and released as it accrues.
type PaymentStream struct {
	ID              int64           `db:"id" json:"id"`
	Sender          ledger.Identity `db:"sender" json:"sender"`
	Recipient       ledger.Identity `db:"recipient" json:"recipient"`
	FundingSquadID  *uuid.UUID      `db:"funding_squad_id" json:"funding_squad_id,omitempty"`
	AmountPerSecond ledger.Amount   `db:"amount_per_second" json:"amount_per_second"`
	StartTime       int64           `db:"start_time" json:"start_time"`
	EndTime         int64           `db:"end_time" json:"end_time"`
	TotalDeposited  ledger.Amount   `db:"total_deposited" json:"total_deposited"`
	TotalWithdrawn  ledger.Amount   `db:"total_withdrawn" json:"total_withdrawn"`
	IsCancelled     bool            `db:"is_cancelled" json:"is_cancelled"`
	CancelledAt     *int64          `db:"cancelled_at" json:"cancelled_at,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"-"`
	UpdatedAt       time.Time       `db:"updated_at" json:"-"`
}

// EffectiveEnd is the end time, or the cancellation time when that is earlier
func (s *PaymentStream) EffectiveEnd() int64 {
	if s.IsCancelled && s.CancelledAt != nil && *s.CancelledAt < s.EndTime {
		return *s.CancelledAt
	}
	return s.EndTime
}

// Escrowed returns the part of the deposit still held by the stream
func (s *PaymentStream) Escrowed() ledger.Amount {
	if s.IsCancelled || s.TotalWithdrawn >= s.TotalDeposited {
		return 0
	}
	return s.TotalDeposited - s.TotalWithdrawn
}

// IsSquadFunded checks if the escrow came out of a squad vault
func (s *PaymentStream) IsSquadFunded() bool {
	return s.FundingSquadID != nil
}

// Status derives the display status at now. accrued must be the stream's
// accrued amount at now.
func (s *PaymentStream) Status(now int64, accrued ledger.Amount) StreamStatus {
	switch {
	case s.IsCancelled:
		return StreamStatusCancelled
	case now < s.StartTime:
		return StreamStatusScheduled
	case now < s.EndTime:
		return StreamStatusStreaming
	case s.TotalWithdrawn >= accrued:
		return StreamStatusSettled
	default:
		return StreamStatusEnded
	}
}

// Clone returns a copy that shares no memory with s
func (s PaymentStream) Clone() PaymentStream {
	if s.FundingSquadID != nil {
		id := *s.FundingSquadID
		s.FundingSquadID = &id
	}
	if s.CancelledAt != nil {
		at := *s.CancelledAt
		s.CancelledAt = &at
	}
	return s
}
