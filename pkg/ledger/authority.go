package ledger

import (
	"crypto/sha256"

	"github.com/arnac-io/auctionescrow/pkg/core"
)

const derivedAddressMarker = "ProgramDerivedAddress"

// DeriveAddress maps seeds and a program identity to an address nobody holds a key for.
// Only the program itself can act as this address, see Invocation.DerivedAuthority.
func DeriveAddress(programID core.Address, seeds ...[]byte) core.Address {
	h := sha256.New()
	for _, s := range seeds {
		h.Write(s)
	}
	h.Write(programID[:])
	h.Write([]byte(derivedAddressMarker))
	var a core.Address
	copy(a[:], h.Sum(nil))
	return a
}

// Authority is proof that an address approved the transaction being executed.
// Values are minted by the runtime only and are valid inside the transaction that produced them.
type Authority struct {
	address core.Address
	tx      *Tx
}

func (a Authority) Address() core.Address {
	return a.address
}

// ValidIn reports whether the authority was issued for the transaction behind inv.
func (a Authority) ValidIn(inv *Invocation) bool {
	return a.tx != nil && inv != nil && a.tx == inv.tx
}
