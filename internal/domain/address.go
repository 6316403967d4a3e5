package domain

import (
	"fmt"

	"github.com/mr-tron/base58"
)

// AddressLen is the byte length of an account address.
const AddressLen = 32

// Address identifies an account: a signer key, a collaborator subsystem,
// or a derived protocol record address.
type Address [AddressLen]byte

// ZeroAddress is the all-zero address, used for absent optional fields.
var ZeroAddress Address

// ParseAddress decodes a base58-encoded address.
func ParseAddress(s string) (Address, error) {
	var a Address
	raw, err := base58.Decode(s)
	if err != nil {
		return a, fmt.Errorf("decode address %q: %w", s, err)
	}
	if len(raw) != AddressLen {
		return a, fmt.Errorf("address %q: expected %d bytes, got %d", s, AddressLen, len(raw))
	}
	copy(a[:], raw)
	return a, nil
}

// MustParseAddress is ParseAddress that panics on error. For fixtures and tests.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// String returns the base58 text form.
func (a Address) String() string {
	return base58.Encode(a[:])
}

// IsZero reports whether the address is all zeroes.
func (a Address) IsZero() bool {
	return a == ZeroAddress
}
