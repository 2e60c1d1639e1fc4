package core

import (
	"crypto/ed25519"

	"github.com/tonkeeper/tongo"
)

// Address identifies an account on the ledger. For keyed accounts it is the ed25519 public key.
type Address = tongo.Bits256

// DefaultAddress is the zero address. Records use it to mark "nobody".
var DefaultAddress Address

func ParseAddress(s string) (Address, error) {
	return tongo.ParseHash(s)
}

func MustParseAddress(s string) Address {
	return tongo.MustParseHash(s)
}

// AddressFromPublicKey returns the address controlled by the given ed25519 key.
func AddressFromPublicKey(pub ed25519.PublicKey) Address {
	var a Address
	copy(a[:], pub)
	return a
}

func IsDefault(a Address) bool {
	return a == DefaultAddress
}
