package api

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/arnac-io/auctionescrow/pkg/cache"
	"github.com/arnac-io/auctionescrow/pkg/core"
	"github.com/arnac-io/auctionescrow/pkg/escrow"
	"github.com/arnac-io/auctionescrow/pkg/ledger"
	"github.com/arnac-io/auctionescrow/pkg/token"
)

// Handler implements the HTTP API on top of a ledger runtime.
type Handler struct {
	logger         *zap.Logger
	ledger         ledgerService
	programID      core.Address
	tokenProgramID core.Address
	auctions       *cache.AccountCache[auctionView]
	receipts       cache.Store[ledger.Receipt]
	receiptTTL     time.Duration
	limits         Limits
}

// Options configures a Handler.
type Options struct {
	programID        core.Address
	tokenProgramID   core.Address
	receipts         cache.Store[ledger.Receipt]
	receiptTTL       time.Duration
	auctionCacheSize int
	limits           Limits
}

type Option func(o *Options)

func WithProgramIDs(escrowProgram, tokenProgram core.Address) Option {
	return func(o *Options) {
		o.programID = escrowProgram
		o.tokenProgramID = tokenProgram
	}
}

// WithReceiptStore replaces the default in-memory receipt store.
func WithReceiptStore(store cache.Store[ledger.Receipt], ttl time.Duration) Option {
	return func(o *Options) {
		o.receipts = store
		o.receiptTTL = ttl
	}
}

func WithAuctionCacheSize(size int) Option {
	return func(o *Options) {
		o.auctionCacheSize = size
	}
}

func WithLimits(limits Limits) Option {
	return func(o *Options) {
		o.limits = limits
	}
}

func NewHandler(logger *zap.Logger, l ledgerService, opts ...Option) (*Handler, error) {
	options := &Options{
		programID:        escrow.ProgramID,
		tokenProgramID:   token.ProgramID,
		receiptTTL:       time.Hour,
		auctionCacheSize: 10_000,
		limits:           DefaultLimits(),
	}
	for _, o := range opts {
		o(options)
	}
	if options.receipts == nil {
		store, err := cache.NewInMemoryStore[ledger.Receipt](100_000)
		if err != nil {
			return nil, errors.Wrap(err, "receipt store")
		}
		options.receipts = store
	}
	return &Handler{
		logger:         logger,
		ledger:         l,
		programID:      options.programID,
		tokenProgramID: options.tokenProgramID,
		auctions:       cache.NewAccountCache[auctionView](options.auctionCacheSize, "auction_views"),
		receipts:       options.receipts,
		receiptTTL:     options.receiptTTL,
		limits:         options.limits,
	}, nil
}

// Observe keeps the handler's caches in line with the ledger. It is a ledger.Observer.
func (h *Handler) Observe(r ledger.Receipt) {
	h.auctions.Observe(r)
	if err := h.receipts.Set(context.Background(), r.ID.String(), r, h.receiptTTL); err != nil {
		h.logger.Warn("failed to store receipt", zap.Stringer("receipt", r.ID), zap.Error(err))
	}
}
