package api

import (
	"context"

	"github.com/arnac-io/auctionescrow/pkg/core"
	"github.com/arnac-io/auctionescrow/pkg/ledger"
)

// ledgerService is the part of the ledger runtime the API serves.
type ledgerService interface {
	Submit(ctx context.Context, txn *ledger.Transaction) (*ledger.Receipt, error)
	Account(ctx context.Context, addr core.Address) (core.Account, error)
	Now() int64
}
