package client

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/arnac-io/auctionescrow/pkg/core"
	"github.com/arnac-io/auctionescrow/pkg/ledger"
)

type Options struct {
	programID   core.Address
	rent        ledger.Rent
	logger      *zap.Logger
	bidAttempts uint
	retryDelay  time.Duration
}

type Option func(o *Options)

// WithProgramID points the client at an escrow program deployed under another id.
func WithProgramID(id core.Address) Option {
	return func(o *Options) {
		o.programID = id
	}
}

func WithRent(r ledger.Rent) Option {
	return func(o *Options) {
		o.rent = r
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *Options) {
		o.logger = logger
	}
}

// WithBidAttempts sets how many times Bid resubmits after losing a race to another bidder.
func WithBidAttempts(attempts uint, delay time.Duration) Option {
	return func(o *Options) {
		o.bidAttempts = attempts
		o.retryDelay = delay
	}
}

type RemoteOptions struct {
	httpClient *http.Client
	apiKey     string
}

type RemoteOption func(o *RemoteOptions)

func WithHTTPClient(c *http.Client) RemoteOption {
	return func(o *RemoteOptions) {
		o.httpClient = c
	}
}

// WithAPIKey sends key as a bearer token with every request.
func WithAPIKey(key string) RemoteOption {
	return func(o *RemoteOptions) {
		o.apiKey = key
	}
}
