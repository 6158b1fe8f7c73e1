package models

import (
	"encoding/json"
	"time"

	"squadvault/ledger"
)

// InstructionOutcome records whether an instruction changed state
type InstructionOutcome string

const (
	InstructionOutcomeCommitted InstructionOutcome = "committed"
	InstructionOutcomeRejected  InstructionOutcome = "rejected"
)

// InstructionRecord is one row of the append-only instruction log
type InstructionRecord struct {
	Sequence    int64              `db:"sequence" json:"sequence"`
	Kind        InstructionKind    `db:"kind" json:"kind"`
	Actor       ledger.Identity    `db:"actor" json:"actor"`
	Payload     json.RawMessage    `db:"payload" json:"payload"`
	Outcome     InstructionOutcome `db:"outcome" json:"outcome"`
	ErrorKind   *ledger.Kind       `db:"error_kind" json:"error_kind,omitempty"`
	ErrorDetail *string            `db:"error_detail" json:"error_detail,omitempty"`
	Timestamp   int64              `db:"timestamp" json:"timestamp"`
	ProcessedAt time.Time          `db:"processed_at" json:"processed_at"`
}
