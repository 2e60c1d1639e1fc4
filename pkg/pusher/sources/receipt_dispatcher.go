package sources

import (
	"context"
	"sync"

	"github.com/go-faster/jx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/arnac-io/auctionescrow/pkg/core"
	"github.com/arnac-io/auctionescrow/pkg/ledger"
	"github.com/arnac-io/auctionescrow/pkg/wire"
)

type subscriberID int64

var droppedReceipts = promauto.NewCounter(prometheus.CounterOpts{
	Name: "streaming_api_dropped_receipts_total",
	Help: "Receipts dropped because the dispatcher queue was full.",
})

type subscriber struct {
	fn      DeliveryFn
	options SubscribeToReceiptsOptions
}

// ReceiptDispatcher implements the fan-out pattern reading receipts from a single channel
// and delivering them to the subscribers of the touched accounts.
type ReceiptDispatcher struct {
	logger *zap.Logger
	ch     chan ledger.Receipt

	mu          sync.RWMutex
	accounts    map[core.Address]map[subscriberID]struct{}
	allAccounts map[subscriberID]struct{}
	subscribers map[subscriberID]subscriber
	currentID   subscriberID
}

func NewReceiptDispatcher(logger *zap.Logger, queueSize int) *ReceiptDispatcher {
	return &ReceiptDispatcher{
		logger:      logger,
		ch:          make(chan ledger.Receipt, queueSize),
		accounts:    map[core.Address]map[subscriberID]struct{}{},
		allAccounts: map[subscriberID]struct{}{},
		subscribers: map[subscriberID]subscriber{},
		currentID:   1,
	}
}

// Observe queues a receipt for delivery. It never blocks the caller,
// a receipt is dropped when the queue is full.
func (disp *ReceiptDispatcher) Observe(r ledger.Receipt) {
	select {
	case disp.ch <- r:
	default:
		droppedReceipts.Inc()
		disp.logger.Warn("receipt queue is full, dropping receipt", zap.Stringer("receipt", r.ID))
	}
}

// Run runs a dispatching loop until ctx is done.
func (disp *ReceiptDispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case r := <-disp.ch:
			disp.logger.Debug("handling receipt",
				zap.Stringer("receipt", r.ID),
				zap.Bool("success", r.Success))
			disp.dispatch(r)
		}
	}
}

func (disp *ReceiptDispatcher) dispatch(r ledger.Receipt) {
	var e jx.Encoder
	wire.EncodeReceipt(&e, r)
	eventData := e.Bytes()

	disp.mu.RLock()
	defer disp.mu.RUnlock()

	delivered := map[subscriberID]struct{}{}
	deliver := func(id subscriberID) {
		if _, ok := delivered[id]; ok {
			return
		}
		delivered[id] = struct{}{}
		sub := disp.subscribers[id]
		if !r.Success && !sub.options.FailedToo {
			return
		}
		sub.fn(eventData)
	}
	for id := range disp.allAccounts {
		deliver(id)
	}
	for _, account := range r.Accounts {
		for id := range disp.accounts[account] {
			deliver(id)
		}
	}
}

func (disp *ReceiptDispatcher) SubscribeToReceipts(ctx context.Context, fn DeliveryFn, options SubscribeToReceiptsOptions) CancelFn {
	return disp.RegisterSubscriber(fn, options)
}

func (disp *ReceiptDispatcher) RegisterSubscriber(fn DeliveryFn, options SubscribeToReceiptsOptions) CancelFn {
	disp.mu.Lock()
	defer disp.mu.Unlock()

	id := disp.currentID
	disp.currentID += 1
	disp.subscribers[id] = subscriber{fn: fn, options: options}

	if options.AllAccounts {
		disp.allAccounts[id] = struct{}{}
		return func() { disp.unsubscribe(id) }
	}
	for _, account := range options.Accounts {
		subscribers, ok := disp.accounts[account]
		if !ok {
			subscribers = map[subscriberID]struct{}{}
			disp.accounts[account] = subscribers
		}
		subscribers[id] = struct{}{}
	}
	return func() { disp.unsubscribe(id) }
}

func (disp *ReceiptDispatcher) unsubscribe(id subscriberID) {
	disp.mu.Lock()
	defer disp.mu.Unlock()

	sub, ok := disp.subscribers[id]
	if !ok {
		return
	}
	delete(disp.subscribers, id)
	if sub.options.AllAccounts {
		delete(disp.allAccounts, id)
		return
	}
	for _, account := range sub.options.Accounts {
		subscribers, ok := disp.accounts[account]
		if !ok {
			continue
		}
		delete(subscribers, id)
		if len(subscribers) == 0 {
			delete(disp.accounts, account)
		}
	}
}
