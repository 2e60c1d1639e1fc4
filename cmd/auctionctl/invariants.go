package main

import (
	"context"

	"github.com/go-faster/errors"
	"go.uber.org/multierr"

	"github.com/arnac-io/auctionescrow/pkg/core"
	"github.com/arnac-io/auctionescrow/pkg/escrow"
	"github.com/arnac-io/auctionescrow/pkg/ledger"
	"github.com/arnac-io/auctionescrow/pkg/token"
)

type accountLister interface {
	Accounts(ctx context.Context) ([]core.Account, error)
}

var _ accountLister = (*ledger.Runtime)(nil)

// checkInvariants sweeps the whole ledger. Every live auction must keep the NFT and the
// leading bid in holdings controlled by the escrow authority, and no mint may have
// more units in circulation than its supply.
func checkInvariants(ctx context.Context, l accountLister, programID core.Address) error {
	accounts, err := l.Accounts(ctx)
	if err != nil {
		return errors.Wrap(err, "list accounts")
	}
	authority := escrow.AuthorityAddress(programID)
	holdings := map[core.Address]token.Account{}
	mints := map[core.Address]token.Mint{}
	var auctions []core.Account
	for _, acc := range accounts {
		switch {
		case acc.Owner == token.ProgramID && len(acc.Data) == token.AccountLen:
			h, err := token.UnpackAccount(acc.Data)
			if err == nil && h.Initialized {
				holdings[acc.Address] = h
			}
		case acc.Owner == token.ProgramID && len(acc.Data) == token.MintLen:
			m, err := token.UnpackMint(acc.Data)
			if err == nil && m.Initialized {
				mints[acc.Address] = m
			}
		case acc.Owner == programID && len(acc.Data) == core.AuctionLen:
			auctions = append(auctions, acc)
		}
	}

	var result error
	for _, acc := range auctions {
		a, err := core.UnpackAuction(acc.Data)
		if err != nil {
			continue
		}
		result = multierr.Append(result, checkEscrowed(holdings, authority, a.AssetHolding, 1, "asset of "+acc.Address.Hex()))
		if a.HasBidder() {
			result = multierr.Append(result, checkEscrowed(holdings, authority, a.BidderHolding, a.Price, "bid on "+acc.Address.Hex()))
		}
	}

	circulating := map[core.Address]uint64{}
	for _, h := range holdings {
		circulating[h.Mint] += h.Amount
	}
	for addr, m := range mints {
		if circulating[addr] != m.Supply {
			result = multierr.Append(result, errors.Errorf("mint %v: %d units held, supply is %d", addr.Hex(), circulating[addr], m.Supply))
		}
	}
	return result
}

func checkEscrowed(holdings map[core.Address]token.Account, authority, addr core.Address, amount uint64, what string) error {
	h, ok := holdings[addr]
	if !ok {
		return errors.Errorf("%v: holding %v is missing", what, addr.Hex())
	}
	if h.Owner != authority {
		return errors.Errorf("%v: holding %v is not controlled by the escrow", what, addr.Hex())
	}
	if h.Amount != amount {
		return errors.Errorf("%v: holding %v has %d units, want %d", what, addr.Hex(), h.Amount, amount)
	}
	return nil
}
