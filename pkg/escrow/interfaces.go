package escrow

import (
	"github.com/arnac-io/auctionescrow/pkg/core"
	"github.com/arnac-io/auctionescrow/pkg/ledger"
)

// TokenService moves balances between holding accounts inside the running transaction.
type TokenService interface {
	Transfer(inv *ledger.Invocation, from, to core.Address, authority ledger.Authority, amount uint64) error
	SetAuthority(inv *ledger.Invocation, account, newAuthority core.Address, current ledger.Authority) error
	CloseAccount(inv *ledger.Invocation, account, destination core.Address, authority ledger.Authority) error
	Amount(inv *ledger.Invocation, account core.Address) (uint64, error)
	MintOf(inv *ledger.Invocation, account core.Address) (core.Address, error)
}
