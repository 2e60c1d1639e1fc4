package sources

import (
	"context"

	"github.com/arnac-io/auctionescrow/pkg/core"
)

type SubscribeToReceiptsOptions struct {
	AllAccounts bool
	Accounts    []core.Address
	// FailedToo enables delivery of receipts of rejected transactions.
	FailedToo bool
}

// DeliveryFn describes a callback that will be triggered once a new receipt is published.
type DeliveryFn func(eventData []byte)

// CancelFn has to be called to unsubscribe.
type CancelFn func()

// ReceiptSource provides a method to subscribe to notifications about finished transactions.
type ReceiptSource interface {
	SubscribeToReceipts(ctx context.Context, deliveryFn DeliveryFn, opts SubscribeToReceiptsOptions) CancelFn
}
