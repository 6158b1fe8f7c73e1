package models

import (
	"bytes"
	"encoding/json"
	"fmt"

	"squadvault/ledger"

	"github.com/google/uuid"
)

// InstructionKind names one member of the closed instruction set
type InstructionKind string

const (
	InstructionInitializeSquad  InstructionKind = "initialize_squad"
	InstructionDeposit          InstructionKind = "deposit"
	InstructionWithdraw         InstructionKind = "withdraw"
	InstructionAddMember        InstructionKind = "add_member"
	InstructionRemoveMember     InstructionKind = "remove_member"
	InstructionCreateStream     InstructionKind = "create_stream"
	InstructionWithdrawStream   InstructionKind = "withdraw_stream"
	InstructionCancelStream     InstructionKind = "cancel_stream"
	InstructionCreateProposal   InstructionKind = "create_proposal"
	InstructionCastVote         InstructionKind = "cast_vote"
	InstructionExecuteProposal  InstructionKind = "execute_proposal"
	InstructionFinalizeProposal InstructionKind = "finalize_proposal"
	InstructionCreditWallet     InstructionKind = "credit_wallet"
)

// Instruction is a request to mutate ledger state. The set of
// implementations is closed; see the cases in DecodeInstruction.
type Instruction interface {
	Kind() InstructionKind
	instruction()
}

type InitializeSquad struct {
	Name           string            `json:"name"`
	Salt           string            `json:"salt"`
	InitialMembers []ledger.Identity `json:"initial_members"`
	SpendThreshold ledger.Amount     `json:"spend_threshold"`
}

type Deposit struct {
	SquadID uuid.UUID     `json:"squad_id"`
	Amount  ledger.Amount `json:"amount"`
}

// Withdraw is a direct spend. It is never vote-approved; spends above the
// threshold go through CreateProposal and ExecuteProposal.
type Withdraw struct {
	SquadID   uuid.UUID       `json:"squad_id"`
	Amount    ledger.Amount   `json:"amount"`
	Recipient ledger.Identity `json:"recipient"`
}

type AddMember struct {
	SquadID uuid.UUID       `json:"squad_id"`
	Member  ledger.Identity `json:"member"`
}

type RemoveMember struct {
	SquadID uuid.UUID       `json:"squad_id"`
	Member  ledger.Identity `json:"member"`
}

// CreateStream escrows rate*(end-start) from the sender's wallet, or from a
// squad vault when FundingSquadID is set.
type CreateStream struct {
	Recipient       ledger.Identity `json:"recipient"`
	AmountPerSecond ledger.Amount   `json:"amount_per_second"`
	StartTime       int64           `json:"start_time"`
	EndTime         int64           `json:"end_time"`
	FundingSquadID  *uuid.UUID      `json:"funding_squad_id,omitempty"`
}

type WithdrawStream struct {
	StreamID int64 `json:"stream_id"`
}

type CancelStream struct {
	StreamID int64 `json:"stream_id"`
}

type CreateProposal struct {
	SquadID     uuid.UUID       `json:"squad_id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Amount      ledger.Amount   `json:"amount"`
	Recipient   ledger.Identity `json:"recipient"`
	Deadline    int64           `json:"deadline"`
}

type CastVote struct {
	ProposalID int64      `json:"proposal_id"`
	Choice     VoteChoice `json:"choice"`
}

type ExecuteProposal struct {
	ProposalID int64 `json:"proposal_id"`
}

// FinalizeProposal settles an expired Active proposal to Passed or Failed
type FinalizeProposal struct {
	ProposalID int64 `json:"proposal_id"`
}

// CreditWallet mints into a wallet; only configured mint authorities may send it
type CreditWallet struct {
	Owner  ledger.Identity `json:"owner"`
	Amount ledger.Amount   `json:"amount"`
}

func (InitializeSquad) Kind() InstructionKind { return InstructionInitializeSquad }
func (Deposit) Kind() InstructionKind { return InstructionDeposit }
func (Withdraw) Kind() InstructionKind { return InstructionWithdraw }
func (AddMember) Kind() InstructionKind { return InstructionAddMember }
func (RemoveMember) Kind() InstructionKind { return InstructionRemoveMember }
func (CreateStream) Kind() InstructionKind { return InstructionCreateStream }
func (WithdrawStream) Kind() InstructionKind { return InstructionWithdrawStream }
func (CancelStream) Kind() InstructionKind { return InstructionCancelStream }
func (CreateProposal) Kind() InstructionKind { return InstructionCreateProposal }
func (CastVote) Kind() InstructionKind { return InstructionCastVote }
func (ExecuteProposal) Kind() InstructionKind { return InstructionExecuteProposal }
func (FinalizeProposal) Kind() InstructionKind { return InstructionFinalizeProposal }
func (CreditWallet) Kind() InstructionKind { return InstructionCreditWallet }

func (InitializeSquad) instruction() {}
func (Deposit) instruction() {}
func (Withdraw) instruction() {}
func (AddMember) instruction() {}
func (RemoveMember) instruction() {}
func (CreateStream) instruction() {}
func (WithdrawStream) instruction() {}
func (CancelStream) instruction() {}
func (CreateProposal) instruction() {}
func (CastVote) instruction() {}
func (ExecuteProposal) instruction() {}
func (FinalizeProposal) instruction() {}
func (CreditWallet) instruction() {}

// DecodeInstruction builds an instruction from its kind and JSON parameters.
// Unknown kinds fail with ledger.ErrUnknownInstruction and malformed
// parameters with ledger.ErrInvalidInstruction.
func DecodeInstruction(kind InstructionKind, params json.RawMessage) (Instruction, error) {
	var ins Instruction
	switch kind {
	case InstructionInitializeSquad:
		ins = &InitializeSquad{}
	case InstructionDeposit:
		ins = &Deposit{}
	case InstructionWithdraw:
		ins = &Withdraw{}
	case InstructionAddMember:
		ins = &AddMember{}
	case InstructionRemoveMember:
		ins = &RemoveMember{}
	case InstructionCreateStream:
		ins = &CreateStream{}
	case InstructionWithdrawStream:
		ins = &WithdrawStream{}
	case InstructionCancelStream:
		ins = &CancelStream{}
	case InstructionCreateProposal:
		ins = &CreateProposal{}
	case InstructionCastVote:
		ins = &CastVote{}
	case InstructionExecuteProposal:
		ins = &ExecuteProposal{}
	case InstructionFinalizeProposal:
		ins = &FinalizeProposal{}
	case InstructionCreditWallet:
		ins = &CreditWallet{}
	default:
		return nil, fmt.Errorf("%w: %q", ledger.ErrUnknownInstruction, kind)
	}

	if len(params) == 0 {
		params = json.RawMessage("{}")
	}
	dec := json.NewDecoder(bytes.NewReader(params))
	dec.DisallowUnknownFields()
	if err := dec.Decode(ins); err != nil {
		return nil, fmt.Errorf("%w: %s parameters: %v", ledger.ErrInvalidInstruction, kind, err)
	}

	return deref(ins), nil
}

// deref turns the decode target back into a value so callers can switch on
// plain struct types.
func deref(ins Instruction) Instruction {
	switch v := ins.(type) {
	case *InitializeSquad:
		return *v
	case *Deposit:
		return *v
	case *Withdraw:
		return *v
	case *AddMember:
		return *v
	case *RemoveMember:
		return *v
	case *CreateStream:
		return *v
	case *WithdrawStream:
		return *v
	case *CancelStream:
		return *v
	case *CreateProposal:
		return *v
	case *CastVote:
		return *v
	case *ExecuteProposal:
		return *v
	case *FinalizeProposal:
		return *v
	case *CreditWallet:
		return *v
	}
	return ins
}
