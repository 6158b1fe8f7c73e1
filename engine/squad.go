// Package engine holds the deterministic state-transition rules for squads,
// payment streams, proposals and wallets. Every function takes the current
// account by value and returns the next value or an error; a rejected call
// never modifies its inputs.
package engine

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"squadvault/ledger"
	"squadvault/models"

	"github.com/google/uuid"
)

const (
	// MaxSquadMembers bounds the roster, and with it vote tallying cost
	MaxSquadMembers = 32
	MaxNameLength   = 64
	MaxSaltLength   = 64
)

var squadNamespace = uuid.MustParse("6f1c9a52-3b8e-5d47-9a0e-2c4b7d81e3f5")

// DeriveSquadID returns the stable squad id for authority and salt
func DeriveSquadID(authority ledger.Identity, salt string) uuid.UUID {
	seed := make([]byte, 0, ledger.IdentitySize+len(salt))
	seed = append(seed, authority[:]...)
	seed = append(seed, salt...)
	return uuid.NewSHA1(squadNamespace, seed)
}

// ClampMemberLimit keeps a configured roster limit within [1, MaxSquadMembers]
func ClampMemberLimit(limit int) int {
	if limit <= 0 || limit > MaxSquadMembers {
		return MaxSquadMembers
	}
	return limit
}

// SquadInit carries the parameters of InitializeSquad
type SquadInit struct {
	Authority      ledger.Identity
	Name           string
	Salt           string
	InitialMembers []ledger.Identity
	SpendThreshold ledger.Amount
	MaxMembers     int
	Now            int64
}

// InitializeSquad creates a squad with an empty vault. The authority is
// always the first member; listing it again in InitialMembers is tolerated.
// A zero spend threshold is valid and means every withdrawal needs a vote.
func InitializeSquad(in SquadInit) (models.Squad, error) {
	if in.Authority.IsZero() {
		return models.Squad{}, fmt.Errorf("%w: missing authority", ledger.ErrUnauthorized)
	}

	name := strings.TrimSpace(in.Name)
	if name == "" || utf8.RuneCountInString(name) > MaxNameLength {
		return models.Squad{}, fmt.Errorf("%w: squad name must be 1-%d characters", ledger.ErrInvalidName, MaxNameLength)
	}
	if len(in.Salt) > MaxSaltLength {
		return models.Squad{}, fmt.Errorf("%w: salt longer than %d bytes", ledger.ErrInvalidName, MaxSaltLength)
	}

	limit := ClampMemberLimit(in.MaxMembers)
	members := make([]ledger.Identity, 0, len(in.InitialMembers)+1)
	members = append(members, in.Authority)
	seen := make(map[ledger.Identity]bool, len(in.InitialMembers))

	for _, m := range in.InitialMembers {
		if m.IsZero() {
			return models.Squad{}, fmt.Errorf("%w: empty member identity", ledger.ErrInvalidMembership)
		}
		if seen[m] {
			return models.Squad{}, fmt.Errorf("%w: duplicate member %s", ledger.ErrInvalidMembership, m)
		}
		seen[m] = true
		// the authority may be listed once; it already leads the roster
		if m == in.Authority {
			continue
		}
		members = append(members, m)
	}

	if len(members) > limit {
		return models.Squad{}, fmt.Errorf("%w: %d members exceeds limit of %d", ledger.ErrInvalidMembership, len(members), limit)
	}

	return models.Squad{
		ID:             DeriveSquadID(in.Authority, in.Salt),
		Authority:      in.Authority,
		Name:           name,
		Salt:           in.Salt,
		Members:        members,
		VaultBalance:   0,
		SpendThreshold: in.SpendThreshold,
		MaxMembers:     limit,
		CreatedAtUnix:  in.Now,
	}, nil
}

// Deposit adds amount to the vault. Anyone may deposit.
func Deposit(squad models.Squad, depositor ledger.Identity, amount ledger.Amount) (models.Squad, error) {
	if depositor.IsZero() {
		return squad, fmt.Errorf("%w: missing depositor", ledger.ErrUnauthorized)
	}
	if amount.IsZero() {
		return squad, fmt.Errorf("%w: deposit must be greater than zero", ledger.ErrInvalidAmount)
	}

	balance, err := squad.VaultBalance.Add(amount)
	if err != nil {
		return squad, err
	}

	next := squad.Clone()
	next.VaultBalance = balance
	return next, nil
}

// Withdraw moves amount out of the vault to recipient. Amounts above the
// spend threshold are only allowed when approvedByVote is set, which the
// dispatcher does solely for an executing Passed proposal.
func Withdraw(squad models.Squad, withdrawer ledger.Identity, amount ledger.Amount, approvedByVote bool, recipient ledger.Identity) (models.Squad, error) {
	if amount.IsZero() {
		return squad, fmt.Errorf("%w: withdrawal must be greater than zero", ledger.ErrInvalidAmount)
	}
	if recipient.IsZero() {
		return squad, fmt.Errorf("%w: missing withdrawal recipient", ledger.ErrInvalidRecipient)
	}
	if !squad.IsMember(withdrawer) {
		return squad, fmt.Errorf("%w: %s is not a member of squad %s", ledger.ErrUnauthorized, withdrawer.Short(), squad.ID)
	}
	if amount > squad.VaultBalance {
		return squad, fmt.Errorf("%w: vault holds %d, requested %d", ledger.ErrInsufficientFunds, squad.VaultBalance, amount)
	}
	if squad.RequiresVote(amount) && !approvedByVote {
		return squad, fmt.Errorf("%w: %d exceeds threshold %d", ledger.ErrVoteRequired, amount, squad.SpendThreshold)
	}

	balance, err := squad.VaultBalance.Sub(amount)
	if err != nil {
		return squad, err
	}

	next := squad.Clone()
	next.VaultBalance = balance
	return next, nil
}

// Refund returns unspent stream escrow to the vault that funded it
func Refund(squad models.Squad, amount ledger.Amount) (models.Squad, error) {
	balance, err := squad.VaultBalance.Add(amount)
	if err != nil {
		return squad, err
	}
	next := squad.Clone()
	next.VaultBalance = balance
	return next, nil
}

// AddMember appends newMember to the roster. Only the authority may add.
func AddMember(squad models.Squad, caller ledger.Identity, newMember ledger.Identity) (models.Squad, error) {
	if !squad.IsAuthority(caller) {
		return squad, fmt.Errorf("%w: only the squad authority can add members", ledger.ErrUnauthorized)
	}
	if newMember.IsZero() {
		return squad, fmt.Errorf("%w: empty member identity", ledger.ErrInvalidMembership)
	}
	if squad.IsMember(newMember) {
		return squad, fmt.Errorf("%w: %s", ledger.ErrAlreadyMember, newMember.Short())
	}
	if squad.IsFull() {
		return squad, fmt.Errorf("%w: limit is %d", ledger.ErrMembershipFull, squad.MaxMembers)
	}

	next := squad.Clone()
	next.Members = append(next.Members, newMember)
	return next, nil
}

// RemoveMember drops member from the roster, keeping the order of the rest.
// Only the authority may remove, and never itself.
func RemoveMember(squad models.Squad, caller ledger.Identity, member ledger.Identity) (models.Squad, error) {
	if !squad.IsAuthority(caller) {
		return squad, fmt.Errorf("%w: only the squad authority can remove members", ledger.ErrUnauthorized)
	}
	if squad.IsAuthority(member) {
		return squad, ledger.ErrCannotRemoveAuthority
	}
	if !squad.IsMember(member) {
		return squad, fmt.Errorf("%w: %s", ledger.ErrNotMember, member.Short())
	}

	next := squad.Clone()
	members := make([]ledger.Identity, 0, len(squad.Members)-1)
	for _, m := range squad.Members {
		if m != member {
			members = append(members, m)
		}
	}
	next.Members = members
	return next, nil
}
