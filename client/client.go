// Package client drives escrow auctions against a local runtime or a remote auctiond.
package client

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"sync/atomic"
	"time"

	"github.com/avast/retry-go"
	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/arnac-io/auctionescrow/pkg/core"
	"github.com/arnac-io/auctionescrow/pkg/escrow"
	"github.com/arnac-io/auctionescrow/pkg/ledger"
	"github.com/arnac-io/auctionescrow/pkg/token"
)

// Ledger executes transactions and serves committed accounts. *ledger.Runtime and *Remote implement it.
type Ledger interface {
	Submit(ctx context.Context, txn *ledger.Transaction) (*ledger.Receipt, error)
	Account(ctx context.Context, addr core.Address) (core.Account, error)
}

type Keypair struct {
	Private ed25519.PrivateKey
}

func NewKeypair() (Keypair, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return Keypair{}, err
	}
	return Keypair{Private: priv}, nil
}

func KeypairFromSeed(seed []byte) Keypair {
	return Keypair{Private: ed25519.NewKeyFromSeed(seed)}
}

func (k Keypair) Address() core.Address {
	return core.AddressFromPublicKey(k.Private.Public().(ed25519.PublicKey))
}

type Client struct {
	ledger    Ledger
	programID core.Address
	rent      ledger.Rent
	logger    *zap.Logger
	attempts  uint
	delay     time.Duration
	nonce     atomic.Uint64
}

func New(l Ledger, opts ...Option) *Client {
	o := &Options{
		programID:   escrow.ProgramID,
		rent:        ledger.DefaultRent,
		logger:      zap.NewNop(),
		bidAttempts: 3,
		retryDelay:  50 * time.Millisecond,
	}
	for i := range opts {
		opts[i](o)
	}
	c := &Client{
		ledger:    l,
		programID: o.programID,
		rent:      o.rent,
		logger:    o.logger,
		attempts:  o.bidAttempts,
		delay:     o.retryDelay,
	}
	c.nonce.Store(uint64(time.Now().UnixNano()))
	return c
}

func (c *Client) ProgramID() core.Address {
	return c.programID
}

// EscrowAuthority is the address that controls escrowed holdings.
func (c *Client) EscrowAuthority() core.Address {
	return escrow.AuthorityAddress(c.programID)
}

func (c *Client) submit(ctx context.Context, signers []Keypair, ix ...ledger.Instruction) (*ledger.Receipt, error) {
	keys := make([]ed25519.PrivateKey, 0, len(signers))
	for _, s := range signers {
		keys = append(keys, s.Private)
	}
	txn := ledger.NewTransaction(c.nonce.Add(1), ix...).Sign(keys...)
	receipt, err := c.ledger.Submit(ctx, txn)
	if err != nil {
		return receipt, err
	}
	c.logger.Debug("transaction committed", zap.String("receipt", receipt.ID.String()))
	return receipt, nil
}

func (c *Client) newAccountInstruction(payer, account core.Address, space int, owner core.Address) ledger.Instruction {
	return ledger.CreateAccountInstruction(payer, account, c.rent.MinimumBalance(space), uint64(space), owner)
}

// CreateMint creates a mint paid for by payer. NFTs are mints with zero decimals.
func (c *Client) CreateMint(ctx context.Context, payer Keypair, authority core.Address, decimals uint8) (core.Address, error) {
	mint, err := NewKeypair()
	if err != nil {
		return core.Address{}, err
	}
	_, err = c.submit(ctx, []Keypair{payer, mint},
		c.newAccountInstruction(payer.Address(), mint.Address(), token.MintLen, token.ProgramID),
		token.InitializeMintInstruction(mint.Address(), decimals, authority))
	if err != nil {
		return core.Address{}, errors.Wrap(err, "create mint")
	}
	return mint.Address(), nil
}

func (c *Client) tokenAccountInstructions(payer, account, mint, owner core.Address) []ledger.Instruction {
	return []ledger.Instruction{
		c.newAccountInstruction(payer, account, token.AccountLen, token.ProgramID),
		token.InitializeAccountInstruction(account, mint, owner),
	}
}

// CreateTokenAccount creates a holding account of mint controlled by owner.
func (c *Client) CreateTokenAccount(ctx context.Context, payer Keypair, mint, owner core.Address) (core.Address, error) {
	acc, err := NewKeypair()
	if err != nil {
		return core.Address{}, err
	}
	_, err = c.submit(ctx, []Keypair{payer, acc}, c.tokenAccountInstructions(payer.Address(), acc.Address(), mint, owner)...)
	if err != nil {
		return core.Address{}, errors.Wrap(err, "create token account")
	}
	return acc.Address(), nil
}

func (c *Client) MintTo(ctx context.Context, authority Keypair, mint, destination core.Address, amount uint64) error {
	if _, err := c.submit(ctx, []Keypair{authority}, token.MintToInstruction(mint, destination, authority.Address(), amount)); err != nil {
		return errors.Wrap(err, "mint to")
	}
	return nil
}

func (c *Client) Transfer(ctx context.Context, owner Keypair, from, to core.Address, amount uint64) error {
	if _, err := c.submit(ctx, []Keypair{owner}, token.TransferInstruction(from, to, owner.Address(), amount)); err != nil {
		return errors.Wrap(err, "transfer")
	}
	return nil
}

func (c *Client) FetchAuction(ctx context.Context, auction core.Address) (core.Auction, error) {
	acc, err := c.ledger.Account(ctx, auction)
	if err != nil {
		return core.Auction{}, err
	}
	if acc.Owner != c.programID {
		return core.Auction{}, errors.Wrapf(core.IllegalOwner, "%v is not an auction", auction.Hex())
	}
	return core.UnpackAuction(acc.Data)
}

func (c *Client) FetchTokenAccount(ctx context.Context, addr core.Address) (token.Account, error) {
	acc, err := c.ledger.Account(ctx, addr)
	if err != nil {
		return token.Account{}, err
	}
	if acc.Owner != token.ProgramID {
		return token.Account{}, errors.Wrapf(core.IllegalOwner, "%v is not a token account", addr.Hex())
	}
	return token.UnpackAccount(acc.Data)
}

func (c *Client) FetchMint(ctx context.Context, addr core.Address) (token.Mint, error) {
	acc, err := c.ledger.Account(ctx, addr)
	if err != nil {
		return token.Mint{}, err
	}
	if acc.Owner != token.ProgramID {
		return token.Mint{}, errors.Wrapf(core.IllegalOwner, "%v is not a mint", addr.Hex())
	}
	return token.UnpackMint(acc.Data)
}

type OpenParams struct {
	// Asset is the exhibitor's holding of the NFT.
	Asset core.Address
	// PaymentDestination receives the winning bid.
	PaymentDestination core.Address
	InitialPrice       uint64
	Duration           time.Duration
}

// Exhibit describes an opened auction.
type Exhibit struct {
	Auction      core.Address
	AssetHolding core.Address
}

// Open puts the NFT held in params.Asset up for auction. The exhibitor pays for the
// escrow holding and the auction record and gets both back on Cancel or Settle.
func (c *Client) Open(ctx context.Context, exhibitor Keypair, params OpenParams) (Exhibit, error) {
	asset, err := c.FetchTokenAccount(ctx, params.Asset)
	if err != nil {
		return Exhibit{}, errors.Wrap(err, "asset")
	}
	holding, err := NewKeypair()
	if err != nil {
		return Exhibit{}, err
	}
	auction, err := NewKeypair()
	if err != nil {
		return Exhibit{}, err
	}
	accounts := escrow.OpenAccounts{
		Exhibitor:          exhibitor.Address(),
		ExhibitorAsset:     params.Asset,
		AssetHolding:       holding.Address(),
		PaymentDestination: params.PaymentDestination,
		Auction:            auction.Address(),
	}
	ix := c.tokenAccountInstructions(exhibitor.Address(), holding.Address(), asset.Mint, exhibitor.Address())
	ix = append(ix,
		c.newAccountInstruction(exhibitor.Address(), auction.Address(), core.AuctionLen, c.programID),
		escrow.OpenInstruction(c.programID, accounts, escrow.OpenCommand{
			InitialPrice:    params.InitialPrice,
			DurationSeconds: uint64(params.Duration / time.Second),
		}))
	if _, err := c.submit(ctx, []Keypair{exhibitor, holding, auction}, ix...); err != nil {
		return Exhibit{}, errors.Wrap(err, "open")
	}
	c.logger.Info("auction opened",
		zap.String("auction", auction.Address().Hex()),
		zap.Uint64("price", params.InitialPrice))
	return Exhibit{Auction: auction.Address(), AssetHolding: holding.Address()}, nil
}

// Bid escrows price units from source, which also receives the refund when the bid is beaten.
// A bid that lost a race against another bidder is rebuilt from the fresh record and resubmitted.
// It returns the new escrow holding of the bid.
func (c *Client) Bid(ctx context.Context, bidder Keypair, auction, source core.Address, price uint64) (core.Address, error) {
	src, err := c.FetchTokenAccount(ctx, source)
	if err != nil {
		return core.Address{}, errors.Wrap(err, "payment source")
	}
	var holding core.Address
	err = retry.Do(func() error {
		record, err := c.FetchAuction(ctx, auction)
		if err != nil {
			return err
		}
		h, err := NewKeypair()
		if err != nil {
			return err
		}
		accounts := escrow.BidAccounts{
			Bidder:               bidder.Address(),
			HighestBidder:        record.HighestBidder,
			HighestBidderHolding: record.BidderHolding,
			HighestBidderRefund:  record.BidderRefund,
			BidderHolding:        h.Address(),
			BidderPaymentSource:  source,
			Auction:              auction,
			PaymentDestination:   record.PaymentDestination,
		}
		ix := c.tokenAccountInstructions(bidder.Address(), h.Address(), src.Mint, bidder.Address())
		ix = append(ix, escrow.BidInstruction(c.programID, accounts, price))
		if _, err := c.submit(ctx, []Keypair{bidder, h}, ix...); err != nil {
			return err
		}
		holding = h.Address()
		return nil
	},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.delay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return errors.Is(err, core.InvalidCommand)
		}),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Info("bid raced, resubmitting",
				zap.String("auction", auction.Hex()),
				zap.Uint("attempt", n+1),
				zap.Error(err))
		}),
	)
	if err != nil {
		return core.Address{}, errors.Wrap(err, "bid")
	}
	return holding, nil
}

// Cancel withdraws an auction nobody has bid on. The NFT goes to assetReturn.
func (c *Client) Cancel(ctx context.Context, exhibitor Keypair, auction, assetReturn core.Address) error {
	record, err := c.FetchAuction(ctx, auction)
	if err != nil {
		return err
	}
	accounts := escrow.CancelAccounts{
		Exhibitor:    exhibitor.Address(),
		AssetHolding: record.AssetHolding,
		AssetReturn:  assetReturn,
		Auction:      auction,
	}
	if _, err := c.submit(ctx, []Keypair{exhibitor}, escrow.CancelInstruction(c.programID, accounts)); err != nil {
		return errors.Wrap(err, "cancel")
	}
	return nil
}

// Settle closes a finished auction on behalf of its winner. The NFT goes to receiving.
func (c *Client) Settle(ctx context.Context, bidder Keypair, auction, receiving core.Address) error {
	record, err := c.FetchAuction(ctx, auction)
	if err != nil {
		return err
	}
	if !record.HasBidder() {
		return core.NoBidderFound
	}
	accounts := escrow.SettleAccounts{
		Bidder:               bidder.Address(),
		Exhibitor:            record.Exhibitor,
		AssetHolding:         record.AssetHolding,
		PaymentDestination:   record.PaymentDestination,
		BidderHolding:        record.BidderHolding,
		BidderAssetReceiving: receiving,
		Auction:              auction,
	}
	if _, err := c.submit(ctx, []Keypair{bidder}, escrow.SettleInstruction(c.programID, accounts)); err != nil {
		return errors.Wrap(err, "settle")
	}
	return nil
}
