package ledger

import "errors"

// Kind is the stable code of a failure, surfaced unchanged to callers
type Kind string

const (
	KindUnauthorized          Kind = "Unauthorized"
	KindInvalidAmount         Kind = "InvalidAmount"
	KindInvalidRate           Kind = "InvalidRate"
	KindInvalidWindow         Kind = "InvalidWindow"
	KindInvalidDeadline       Kind = "InvalidDeadline"
	KindInvalidThreshold      Kind = "InvalidThreshold"
	KindInvalidMembership     Kind = "InvalidMembership"
	KindInvalidName           Kind = "InvalidName"
	KindInvalidRecipient      Kind = "InvalidRecipient"
	KindInvalidChoice         Kind = "InvalidChoice"
	KindInvalidInstruction    Kind = "InvalidInstruction"
	KindInsufficientFunds     Kind = "InsufficientFunds"
	KindVoteRequired          Kind = "VoteRequired"
	KindAlreadyVoted          Kind = "AlreadyVoted"
	KindAlreadyMember         Kind = "AlreadyMember"
	KindAlreadyCancelled      Kind = "AlreadyCancelled"
	KindAlreadyExecuted       Kind = "AlreadyExecuted"
	KindAlreadyInitialized    Kind = "AlreadyInitialized"
	KindNotMember             Kind = "NotMember"
	KindMembershipFull        Kind = "MembershipFull"
	KindCannotRemoveAuthority Kind = "CannotRemoveAuthority"
	KindProposalNotActive     Kind = "ProposalNotActive"
	KindProposalNotPassed     Kind = "ProposalNotPassed"
	KindDeadlinePassed        Kind = "DeadlinePassed"
	KindVotingOpen            Kind = "VotingOpen"
	KindNothingToWithdraw     Kind = "NothingToWithdraw"
	KindArithmeticOverflow    Kind = "ArithmeticOverflow"
	KindAccountNotFound       Kind = "AccountNotFound"
	KindUnknownInstruction    Kind = "UnknownInstruction"
	KindInternal              Kind = "Internal"
)

// Error is a domain failure carrying its kind. Engines return the package
// level sentinels below, usually wrapped with context via fmt.Errorf("%w: ...").
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

var (
	ErrUnauthorized          = newError(KindUnauthorized, "actor is not authorized for this operation")
	ErrInvalidAmount         = newError(KindInvalidAmount, "invalid amount")
	ErrInvalidRate           = newError(KindInvalidRate, "stream rate must be greater than zero")
	ErrInvalidWindow         = newError(KindInvalidWindow, "stream end time must be after start time")
	ErrInvalidDeadline       = newError(KindInvalidDeadline, "deadline must be in the future")
	ErrInvalidThreshold      = newError(KindInvalidThreshold, "invalid spend threshold")
	ErrInvalidMembership     = newError(KindInvalidMembership, "invalid member list")
	ErrInvalidName           = newError(KindInvalidName, "invalid name")
	ErrInvalidRecipient      = newError(KindInvalidRecipient, "invalid recipient")
	ErrInvalidChoice         = newError(KindInvalidChoice, "vote choice must be yes or no")
	ErrInvalidInstruction    = newError(KindInvalidInstruction, "malformed instruction")
	ErrInsufficientFunds     = newError(KindInsufficientFunds, "insufficient funds")
	ErrVoteRequired          = newError(KindVoteRequired, "amount exceeds spend threshold and requires an approved proposal")
	ErrAlreadyVoted          = newError(KindAlreadyVoted, "member has already voted on this proposal")
	ErrAlreadyMember         = newError(KindAlreadyMember, "identity is already a member")
	ErrAlreadyCancelled      = newError(KindAlreadyCancelled, "stream is already cancelled")
	ErrAlreadyExecuted       = newError(KindAlreadyExecuted, "proposal has already been executed")
	ErrAlreadyInitialized    = newError(KindAlreadyInitialized, "account already exists")
	ErrNotMember             = newError(KindNotMember, "identity is not a member")
	ErrMembershipFull        = newError(KindMembershipFull, "squad member limit reached")
	ErrCannotRemoveAuthority = newError(KindCannotRemoveAuthority, "the squad authority cannot be removed")
	ErrProposalNotActive     = newError(KindProposalNotActive, "proposal is not active")
	ErrProposalNotPassed     = newError(KindProposalNotPassed, "proposal has not passed")
	ErrDeadlinePassed        = newError(KindDeadlinePassed, "proposal voting deadline has passed")
	ErrVotingOpen            = newError(KindVotingOpen, "proposal voting is still open")
	ErrNothingToWithdraw     = newError(KindNothingToWithdraw, "nothing to withdraw")
	ErrArithmeticOverflow    = newError(KindArithmeticOverflow, "arithmetic overflow")
	ErrAccountNotFound       = newError(KindAccountNotFound, "account not found")
	ErrUnknownInstruction    = newError(KindUnknownInstruction, "unknown instruction")
)

// KindOf returns the kind of a domain error anywhere in err's chain, or
// KindInternal for infrastructure failures.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Kind
	}
	return KindInternal
}

// IsDomainError reports whether err is a rejection produced by the engines
// rather than an infrastructure failure.
func IsDomainError(err error) bool {
	var domainErr *Error
	return errors.As(err, &domainErr)
}
