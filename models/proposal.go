package models

import (
	"time"

	"squadvault/ledger"

	"github.com/google/uuid"
)

// ProposalStatus represents the state of a spend proposal
type ProposalStatus string

const (
	ProposalStatusActive   ProposalStatus = "active"
	ProposalStatusPassed   ProposalStatus = "passed"
	ProposalStatusFailed   ProposalStatus = "failed"
	ProposalStatusExecuted ProposalStatus = "executed"
)

// VoteChoice is a member's answer on a proposal
type VoteChoice string

const (
	VoteChoiceYes VoteChoice = "yes"
	VoteChoiceNo  VoteChoice = "no"
)

// IsValid checks if the choice is yes or no
func (c VoteChoice) IsValid() bool {
	return c == VoteChoiceYes || c == VoteChoiceNo
}

// Vote is a single recorded ballot
type Vote struct {
	ProposalID int64           `db:"proposal_id" json:"-"`
	Voter      ledger.Identity `db:"voter" json:"voter"`
	Choice     VoteChoice      `db:"choice" json:"choice"`
	CastAt     int64           `db:"cast_at" json:"cast_at"`
}

// Proposal is a pending spend of squad funds above the spend threshold.
// EligibleVoters is the roster at creation time and Quorum its size.
type Proposal struct {
	ID             int64             `db:"id" json:"id"`
	SquadID        uuid.UUID         `db:"squad_id" json:"squad_id"`
	Proposer       ledger.Identity   `db:"proposer" json:"proposer"`
	Title          string            `db:"title" json:"title"`
	Description    string            `db:"description" json:"description"`
	Amount         ledger.Amount     `db:"amount" json:"amount"`
	Recipient      ledger.Identity   `db:"recipient" json:"recipient"`
	Deadline       int64             `db:"deadline" json:"deadline"`
	Status         ProposalStatus    `db:"status" json:"status"`
	YesVotes       uint32            `db:"yes_votes" json:"yes_votes"`
	NoVotes        uint32            `db:"no_votes" json:"no_votes"`
	Quorum         uint32            `db:"quorum" json:"quorum"`
	EligibleVoters []ledger.Identity `json:"eligible_voters"`
	Votes          []Vote            `json:"votes"`
	CreatedAtUnix  int64             `db:"created_at_unix" json:"created_at"`
	ResolvedAt     *int64            `db:"resolved_at" json:"resolved_at,omitempty"`
	ExecutedAt     *int64            `db:"executed_at" json:"executed_at,omitempty"`
	UpdatedAt      time.Time         `db:"updated_at" json:"-"`
}

// IsActive checks if the proposal is still collecting votes
func (p *Proposal) IsActive() bool {
	return p.Status == ProposalStatusActive
}

// IsPassed checks if the proposal is approved and not yet executed
func (p *Proposal) IsPassed() bool {
	return p.Status == ProposalStatusPassed
}

// IsExecuted checks if the approved spend has been paid out
func (p *Proposal) IsExecuted() bool {
	return p.Status == ProposalStatusExecuted
}

// IsTerminal checks if no further transition is possible
func (p *Proposal) IsTerminal() bool {
	return p.Status == ProposalStatusFailed || p.Status == ProposalStatusExecuted
}

// IsExpired checks if voting closed before now
func (p *Proposal) IsExpired(now int64) bool {
	return now > p.Deadline
}

// HasVoted checks if the identity already cast a ballot
func (p *Proposal) HasVoted(id ledger.Identity) bool {
	for _, v := range p.Votes {
		if v.Voter == id {
			return true
		}
	}
	return false
}

// IsEligible checks if the identity was a member when the proposal was created
func (p *Proposal) IsEligible(id ledger.Identity) bool {
	for _, m := range p.EligibleVoters {
		if m == id {
			return true
		}
	}
	return false
}

// Voters returns the identities that voted, in casting order
func (p *Proposal) Voters() []ledger.Identity {
	voters := make([]ledger.Identity, 0, len(p.Votes))
	for _, v := range p.Votes {
		voters = append(voters, v.Voter)
	}
	return voters
}

// TotalVotes returns the number of ballots cast
func (p *Proposal) TotalVotes() uint32 {
	return p.YesVotes + p.NoVotes
}

// Clone returns a copy that shares no memory with p
func (p Proposal) Clone() Proposal {
	p.EligibleVoters = append([]ledger.Identity(nil), p.EligibleVoters...)
	p.Votes = append([]Vote(nil), p.Votes...)
	if p.ResolvedAt != nil {
		at := *p.ResolvedAt
		p.ResolvedAt = &at
	}
	if p.ExecutedAt != nil {
		at := *p.ExecutedAt
		p.ExecutedAt = &at
	}
	return p
}
