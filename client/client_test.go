package client

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/arnac-io/auctionescrow/pkg/core"
	"github.com/arnac-io/auctionescrow/pkg/escrow"
	"github.com/arnac-io/auctionescrow/pkg/ledger"
	"github.com/arnac-io/auctionescrow/pkg/token"
)

type testEnv struct {
	t       *testing.T
	ctx     context.Context
	runtime *ledger.Runtime
	clock   *ledger.ManualClock
	client  *Client
	minter  Keypair
	nftMint core.Address
	payMint core.Address
}

func newTestEnv(t *testing.T) *testEnv {
	clock := ledger.NewManualClock(1_700_000_000)
	r := ledger.NewRuntime(zap.NewNop(), ledger.NewMemoryStore(), ledger.WithClock(clock))
	r.RegisterProgram(token.ProgramID, token.NewProgram())
	r.RegisterProgram(escrow.ProgramID, escrow.NewProcessor(zap.NewNop(), token.Service{}))
	env := &testEnv{t: t, ctx: context.Background(), runtime: r, clock: clock, client: New(r)}
	env.minter = env.funded()
	var err error
	env.nftMint, err = env.client.CreateMint(env.ctx, env.minter, env.minter.Address(), 0)
	require.NoError(t, err)
	env.payMint, err = env.client.CreateMint(env.ctx, env.minter, env.minter.Address(), 6)
	require.NoError(t, err)
	return env
}

func (env *testEnv) funded() Keypair {
	k, err := NewKeypair()
	require.NoError(env.t, err)
	require.NoError(env.t, env.runtime.Airdrop(env.ctx, k.Address(), 100_000_000_000))
	return k
}

func (env *testEnv) tokens(mint, owner core.Address, amount uint64) core.Address {
	acc, err := env.client.CreateTokenAccount(env.ctx, env.minter, mint, owner)
	require.NoError(env.t, err)
	if amount > 0 {
		require.NoError(env.t, env.client.MintTo(env.ctx, env.minter, mint, acc, amount))
	}
	return acc
}

func (env *testEnv) balance(acc core.Address) uint64 {
	a, err := env.client.FetchTokenAccount(env.ctx, acc)
	require.NoError(env.t, err)
	return a.Amount
}

type seller struct {
	key     Keypair
	nft     core.Address
	payment core.Address
	exhibit Exhibit
}

func (env *testEnv) openAuction(price uint64, duration time.Duration) seller {
	s := seller{key: env.funded()}
	s.nft = env.tokens(env.nftMint, s.key.Address(), 1)
	s.payment = env.tokens(env.payMint, s.key.Address(), 0)
	var err error
	s.exhibit, err = env.client.Open(env.ctx, s.key, OpenParams{
		Asset:              s.nft,
		PaymentDestination: s.payment,
		InitialPrice:       price,
		Duration:           duration,
	})
	require.NoError(env.t, err)
	return s
}

type buyer struct {
	key    Keypair
	source core.Address
}

func (env *testEnv) buyer(funds uint64) buyer {
	b := buyer{key: env.funded()}
	b.source = env.tokens(env.payMint, b.key.Address(), funds)
	return b
}

func TestClient_AuctionLifecycle(t *testing.T) {
	env := newTestEnv(t)
	s := env.openAuction(100, time.Hour)

	record, err := env.client.FetchAuction(env.ctx, s.exhibit.Auction)
	require.NoError(t, err)
	require.Equal(t, s.key.Address(), record.Exhibitor)
	require.Equal(t, int64(1_700_000_000+3600), record.EndAt)
	require.Equal(t, uint64(0), env.balance(s.nft))

	alice := env.buyer(1_000)
	bob := env.buyer(1_000)
	_, err = env.client.Bid(env.ctx, alice.key, s.exhibit.Auction, alice.source, 150)
	require.NoError(t, err)
	bobHolding, err := env.client.Bid(env.ctx, bob.key, s.exhibit.Auction, bob.source, 300)
	require.NoError(t, err)
	require.Equal(t, uint64(1_000), env.balance(alice.source))
	require.Equal(t, uint64(300), env.balance(bobHolding))

	receiving := env.tokens(env.nftMint, bob.key.Address(), 0)
	err = env.client.Settle(env.ctx, bob.key, s.exhibit.Auction, receiving)
	require.ErrorIs(t, err, core.ActiveAuction)

	env.clock.Advance(time.Hour)
	require.NoError(t, env.client.Settle(env.ctx, bob.key, s.exhibit.Auction, receiving))
	require.Equal(t, uint64(1), env.balance(receiving))
	require.Equal(t, uint64(300), env.balance(s.payment))
	_, err = env.client.FetchAuction(env.ctx, s.exhibit.Auction)
	require.ErrorIs(t, err, core.ErrEntityNotFound)
}

func TestClient_CancelAndNoBidder(t *testing.T) {
	env := newTestEnv(t)
	s := env.openAuction(100, time.Minute)

	receiving := env.tokens(env.nftMint, s.key.Address(), 0)
	err := env.client.Settle(env.ctx, s.key, s.exhibit.Auction, receiving)
	require.ErrorIs(t, err, core.NoBidderFound)

	require.NoError(t, env.client.Cancel(env.ctx, s.key, s.exhibit.Auction, s.nft))
	require.Equal(t, uint64(1), env.balance(s.nft))
	_, err = env.client.FetchAuction(env.ctx, s.exhibit.Auction)
	require.ErrorIs(t, err, core.ErrEntityNotFound)
}

// racingLedger lets a competitor in right before the first submission.
type racingLedger struct {
	*ledger.Runtime
	once    sync.Once
	compete func()
}

func (l *racingLedger) Submit(ctx context.Context, txn *ledger.Transaction) (*ledger.Receipt, error) {
	for _, ix := range txn.Instructions {
		if ix.ProgramID == escrow.ProgramID {
			l.once.Do(l.compete)
		}
	}
	return l.Runtime.Submit(ctx, txn)
}

func TestClient_BidResubmitsAfterRace(t *testing.T) {
	env := newTestEnv(t)
	s := env.openAuction(100, time.Hour)
	alice := env.buyer(1_000)
	bob := env.buyer(1_000)

	racing := &racingLedger{Runtime: env.runtime}
	racing.compete = func() {
		_, err := env.client.Bid(env.ctx, bob.key, s.exhibit.Auction, bob.source, 200)
		require.NoError(t, err)
	}
	c := New(racing, WithBidAttempts(3, time.Millisecond))

	holding, err := c.Bid(env.ctx, alice.key, s.exhibit.Auction, alice.source, 250)
	require.NoError(t, err)

	record, err := env.client.FetchAuction(env.ctx, s.exhibit.Auction)
	require.NoError(t, err)
	require.Equal(t, alice.key.Address(), record.HighestBidder)
	require.Equal(t, holding, record.BidderHolding)
	require.Equal(t, uint64(1_000), env.balance(bob.source))
	require.Equal(t, uint64(750), env.balance(alice.source))
}

func TestClient_BidBelowRaceIsNotRetried(t *testing.T) {
	env := newTestEnv(t)
	s := env.openAuction(100, time.Hour)
	alice := env.buyer(1_000)
	bob := env.buyer(1_000)

	racing := &racingLedger{Runtime: env.runtime}
	racing.compete = func() {
		_, err := env.client.Bid(env.ctx, bob.key, s.exhibit.Auction, bob.source, 500)
		require.NoError(t, err)
	}
	c := New(racing, WithBidAttempts(3, time.Millisecond))

	_, err := c.Bid(env.ctx, alice.key, s.exhibit.Auction, alice.source, 250)
	require.ErrorIs(t, err, core.InsufficientBidPrice)
	require.Equal(t, uint64(1_000), env.balance(alice.source))
}
