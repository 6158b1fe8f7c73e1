package models

import (
	"time"

	"squadvault/ledger"

	"github.com/google/uuid"
)

// Squad is a shared treasury with a member roster and a spend policy
type Squad struct {
	ID             uuid.UUID         `db:"id" json:"id"`
	Authority      ledger.Identity   `db:"authority" json:"authority"`
	Name           string            `db:"name" json:"name"`
	Salt           string            `db:"salt" json:"salt"`
	Members        []ledger.Identity `json:"members"` // insertion order, authority first
	VaultBalance   ledger.Amount     `db:"vault_balance" json:"vault_balance"`
	SpendThreshold ledger.Amount     `db:"spend_threshold" json:"spend_threshold"`
	MaxMembers     int               `db:"max_members" json:"max_members"`
	CreatedAtUnix  int64             `db:"created_at_unix" json:"created_at"`
	UpdatedAt      time.Time         `db:"updated_at" json:"-"`
}

// IsMember checks if the identity is on the roster
func (s *Squad) IsMember(id ledger.Identity) bool {
	return s.memberIndex(id) >= 0
}

// IsAuthority checks if the identity created the squad
func (s *Squad) IsAuthority(id ledger.Identity) bool {
	return s.Authority == id
}

// MemberCount returns the roster size
func (s *Squad) MemberCount() int {
	return len(s.Members)
}

// IsFull checks if no further members can be added
func (s *Squad) IsFull() bool {
	return len(s.Members) >= s.MaxMembers
}

// RequiresVote checks if a withdrawal of amount needs an approved proposal
func (s *Squad) RequiresVote(amount ledger.Amount) bool {
	return amount > s.SpendThreshold
}

func (s *Squad) memberIndex(id ledger.Identity) int {
	for i, m := range s.Members {
		if m == id {
			return i
		}
	}
	return -1
}

// Clone returns a copy that shares no memory with s
func (s Squad) Clone() Squad {
	s.Members = append([]ledger.Identity(nil), s.Members...)
	return s
}
