package ledger

import (
	"database/sql/driver"
	"encoding/hex"
	"fmt"
)

// IdentitySize is the byte length of an actor identity (an ed25519 public key)
const IdentitySize = 32

// Identity is an opaque, fixed-length actor identity. Authentication happens
// before an instruction reaches the engines; they only compare identities.
type Identity [IdentitySize]byte

// ParseIdentity decodes the hex text form of an identity
func ParseIdentity(s string) (Identity, error) {
	var id Identity
	raw, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("invalid identity %q: %w", s, err)
	}
	if len(raw) != IdentitySize {
		return id, fmt.Errorf("invalid identity %q: expected %d bytes, got %d", s, IdentitySize, len(raw))
	}
	copy(id[:], raw)
	return id, nil
}

// MustParseIdentity is ParseIdentity for constants and tests
func MustParseIdentity(s string) Identity {
	id, err := ParseIdentity(s)
	if err != nil {
		panic(err)
	}
	return id
}

// IdentityFromBytes copies a raw identity
func IdentityFromBytes(raw []byte) (Identity, error) {
	var id Identity
	if len(raw) != IdentitySize {
		return id, fmt.Errorf("invalid identity: expected %d bytes, got %d", IdentitySize, len(raw))
	}
	copy(id[:], raw)
	return id, nil
}

// IsZero reports whether the identity is unset
func (id Identity) IsZero() bool {
	return id == Identity{}
}

func (id Identity) String() string {
	return hex.EncodeToString(id[:])
}

// Short returns an abbreviated form for log fields
func (id Identity) Short() string {
	s := id.String()
	return s[:8] + ".." + s[len(s)-4:]
}

// MarshalText implements encoding.TextMarshaler
func (id Identity) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (id *Identity) UnmarshalText(text []byte) error {
	parsed, err := ParseIdentity(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// Value implements driver.Valuer
func (id Identity) Value() (driver.Value, error) {
	return id[:], nil
}

// Scan implements sql.Scanner
func (id *Identity) Scan(src any) error {
	raw, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into Identity", src)
	}
	parsed, err := IdentityFromBytes(raw)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
