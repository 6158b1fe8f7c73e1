package engine

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"squadvault/ledger"
	"squadvault/models"
)

const (
	MaxTitleLength       = 128
	MaxDescriptionLength = 2000
)

// ProposalInit carries the parameters of CreateProposal
type ProposalInit struct {
	Proposer    ledger.Identity
	Title       string
	Description string
	Amount      ledger.Amount
	Recipient   ledger.Identity
	Deadline    int64
	Now         int64
}

// CreateProposal opens a vote on spending amount from the squad vault. The
// current roster becomes the fixed electorate and its size the quorum.
func CreateProposal(squad models.Squad, in ProposalInit) (models.Proposal, error) {
	if !squad.IsMember(in.Proposer) {
		return models.Proposal{}, fmt.Errorf("%w: %s is not a member of squad %s", ledger.ErrUnauthorized, in.Proposer.Short(), squad.ID)
	}

	title := strings.TrimSpace(in.Title)
	if title == "" || utf8.RuneCountInString(title) > MaxTitleLength {
		return models.Proposal{}, fmt.Errorf("%w: title must be 1-%d characters", ledger.ErrInvalidName, MaxTitleLength)
	}
	if utf8.RuneCountInString(in.Description) > MaxDescriptionLength {
		return models.Proposal{}, fmt.Errorf("%w: description longer than %d characters", ledger.ErrInvalidName, MaxDescriptionLength)
	}
	if in.Deadline <= in.Now {
		return models.Proposal{}, fmt.Errorf("%w: deadline %d is not after %d", ledger.ErrInvalidDeadline, in.Deadline, in.Now)
	}
	if !squad.RequiresVote(in.Amount) {
		return models.Proposal{}, fmt.Errorf("%w: %d does not exceed spend threshold %d", ledger.ErrInvalidAmount, in.Amount, squad.SpendThreshold)
	}
	if in.Recipient.IsZero() {
		return models.Proposal{}, fmt.Errorf("%w: missing proposal recipient", ledger.ErrInvalidRecipient)
	}

	electorate := append([]ledger.Identity(nil), squad.Members...)

	return models.Proposal{
		SquadID:        squad.ID,
		Proposer:       in.Proposer,
		Title:          title,
		Description:    in.Description,
		Amount:         in.Amount,
		Recipient:      in.Recipient,
		Deadline:       in.Deadline,
		Status:         models.ProposalStatusActive,
		Quorum:         uint32(len(electorate)),
		EligibleVoters: electorate,
		Votes:          []models.Vote{},
		CreatedAtUnix:  in.Now,
	}, nil
}

// passes reports whether the yes side holds a strict majority of the quorum
func passes(p *models.Proposal) bool {
	return p.YesVotes > p.Quorum/2
}

// cannotPass reports whether yes can no longer reach a majority even if
// every outstanding voter votes yes.
func cannotPass(p *models.Proposal) bool {
	return p.NoVotes >= p.Quorum-p.Quorum/2
}

// ResolveExpired applies the deadline rule to an Active proposal whose
// deadline is before now: it passes when yes beats no and at least half the
// quorum took part, and fails otherwise. Any other proposal is returned as is.
func ResolveExpired(p models.Proposal, now int64) models.Proposal {
	if !p.IsActive() || !p.IsExpired(now) {
		return p
	}

	next := p.Clone()
	if p.YesVotes > p.NoVotes && p.TotalVotes() > p.Quorum/2 {
		next.Status = models.ProposalStatusPassed
	} else {
		next.Status = models.ProposalStatusFailed
	}
	resolvedAt := now
	next.ResolvedAt = &resolvedAt
	return next
}

// CastVote records one ballot. Checks run in this order: repeat voter,
// non-active status, expired deadline, electorate membership.
//
// When the deadline has passed the returned proposal carries the lazily
// resolved status together with ledger.ErrDeadlinePassed; callers persist it.
func CastVote(p models.Proposal, voter ledger.Identity, choice models.VoteChoice, now int64) (models.Proposal, error) {
	if !choice.IsValid() {
		return p, fmt.Errorf("%w: %q", ledger.ErrInvalidChoice, choice)
	}
	if p.HasVoted(voter) {
		return p, fmt.Errorf("%w: %s on proposal %d", ledger.ErrAlreadyVoted, voter.Short(), p.ID)
	}
	if !p.IsActive() {
		return p, fmt.Errorf("%w: proposal %d is %s", ledger.ErrProposalNotActive, p.ID, p.Status)
	}
	if p.IsExpired(now) {
		return ResolveExpired(p, now), fmt.Errorf("%w: proposal %d closed at %d", ledger.ErrDeadlinePassed, p.ID, p.Deadline)
	}
	if !p.IsEligible(voter) {
		return p, fmt.Errorf("%w: %s was not a member when proposal %d opened", ledger.ErrUnauthorized, voter.Short(), p.ID)
	}

	next := p.Clone()
	next.Votes = append(next.Votes, models.Vote{
		ProposalID: p.ID,
		Voter:      voter,
		Choice:     choice,
		CastAt:     now,
	})
	if choice == models.VoteChoiceYes {
		next.YesVotes++
	} else {
		next.NoVotes++
	}

	switch {
	case passes(&next):
		next.Status = models.ProposalStatusPassed
	case cannotPass(&next):
		next.Status = models.ProposalStatusFailed
	}
	if next.Status != models.ProposalStatusActive {
		resolvedAt := now
		next.ResolvedAt = &resolvedAt
	}

	return next, nil
}

// FinalizeProposal settles an expired Active proposal. Anyone may call it.
func FinalizeProposal(p models.Proposal, now int64) (models.Proposal, error) {
	if !p.IsActive() {
		return p, fmt.Errorf("%w: proposal %d is %s", ledger.ErrProposalNotActive, p.ID, p.Status)
	}
	if !p.IsExpired(now) {
		return p, fmt.Errorf("%w: proposal %d closes at %d", ledger.ErrVotingOpen, p.ID, p.Deadline)
	}
	return ResolveExpired(p, now), nil
}

// ExecuteProposal pays out a Passed proposal through the squad's Withdraw
// with vote approval. On any failure both inputs are returned unchanged, so
// a Passed proposal stays Passed when the vault cannot cover it.
func ExecuteProposal(p models.Proposal, squad models.Squad, caller ledger.Identity, now int64) (models.Proposal, models.Squad, error) {
	if p.IsExecuted() {
		return p, squad, fmt.Errorf("%w: proposal %d", ledger.ErrAlreadyExecuted, p.ID)
	}
	if p.SquadID != squad.ID {
		return p, squad, fmt.Errorf("%w: proposal %d belongs to squad %s", ledger.ErrAccountNotFound, p.ID, p.SquadID)
	}

	resolved := ResolveExpired(p, now)
	if !resolved.IsPassed() {
		return p, squad, fmt.Errorf("%w: proposal %d is %s", ledger.ErrProposalNotPassed, p.ID, resolved.Status)
	}

	nextSquad, err := Withdraw(squad, caller, p.Amount, true, p.Recipient)
	if err != nil {
		return p, squad, err
	}

	next := resolved.Clone()
	next.Status = models.ProposalStatusExecuted
	executedAt := now
	next.ExecutedAt = &executedAt
	return next, nextSquad, nil
}
