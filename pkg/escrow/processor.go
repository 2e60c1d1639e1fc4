package escrow

import (
	"context"
	"math"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/arnac-io/auctionescrow/pkg/core"
	"github.com/arnac-io/auctionescrow/pkg/ledger"
)

// ProgramID is the default identity of the escrow auction program.
var ProgramID = core.MustParseAddress("445582c9c8b9071f45b313da6cabfd55bf7f22cba8d699d961a65473d6c90752")

var authoritySeed = []byte("escrow")

// AuthorityAddress is the derived address that controls every escrowed holding of programID.
func AuthorityAddress(programID core.Address) core.Address {
	return ledger.DeriveAddress(programID, authoritySeed)
}

// Processor implements the escrow auction program.
type Processor struct {
	logger *zap.Logger
	tokens TokenService
}

func NewProcessor(logger *zap.Logger, tokens TokenService) *Processor {
	return &Processor{logger: logger, tokens: tokens}
}

func (p *Processor) Process(ctx context.Context, inv *ledger.Invocation, data []byte) error {
	cmd, err := Decode(data)
	if err != nil {
		instructionsCounterVec.WithLabelValues("unknown", "failure").Inc()
		return err
	}
	err = p.dispatch(inv, cmd)
	result := "success"
	if err != nil {
		result = "failure"
		p.logger.Debug("escrow instruction rejected",
			zap.String("command", cmd.Name()),
			zap.String("code", core.CodeOf(err).Name),
			zap.Error(err))
	}
	instructionsCounterVec.WithLabelValues(cmd.Name(), result).Inc()
	return err
}

func (p *Processor) dispatch(inv *ledger.Invocation, cmd Command) error {
	metas := inv.Accounts()
	switch c := cmd.(type) {
	case OpenCommand:
		accounts, err := OpenAccountsFromMetas(metas)
		if err != nil {
			return err
		}
		return p.Open(inv, c, accounts)
	case BidCommand:
		accounts, err := BidAccountsFromMetas(metas)
		if err != nil {
			return err
		}
		return p.Bid(inv, c, accounts)
	case CancelCommand:
		accounts, err := CancelAccountsFromMetas(metas)
		if err != nil {
			return err
		}
		return p.Cancel(inv, accounts)
	case SettleCommand:
		accounts, err := SettleAccountsFromMetas(metas)
		if err != nil {
			return err
		}
		return p.Settle(inv, accounts)
	}
	return core.InvalidCommand
}

func loadAuction(inv *ledger.Invocation, addr core.Address) (core.Auction, error) {
	raw, err := inv.Load(addr)
	if err != nil {
		return core.Auction{}, err
	}
	if raw.Owner != inv.ProgramID() {
		return core.Auction{}, errors.Wrapf(core.IllegalOwner, "auction %v is owned by %v", addr.Hex(), raw.Owner.Hex())
	}
	return core.UnpackAuction(raw.Data)
}

func storeAuction(inv *ledger.Invocation, addr core.Address, a core.Auction) error {
	raw, err := inv.BorrowMut(addr)
	if err != nil {
		return err
	}
	return a.PackInto(raw.Data)
}

// destroyAuction erases the record and sends its storage balance to recipient.
func destroyAuction(inv *ledger.Invocation, addr, recipient core.Address) error {
	raw, err := inv.BorrowMut(addr)
	if err != nil {
		return err
	}
	lamports := raw.Lamports
	raw.Lamports = 0
	raw.Data = nil
	return inv.Credit(recipient, lamports)
}

func (p *Processor) Open(inv *ledger.Invocation, cmd OpenCommand, accounts OpenAccounts) error {
	exhibitor, err := inv.Signer(accounts.Exhibitor)
	if err != nil {
		return err
	}
	raw, err := inv.BorrowMut(accounts.Auction)
	if err != nil {
		return err
	}
	if !inv.Rent().IsExempt(raw.Lamports, len(raw.Data)) {
		return errors.Wrapf(core.NotRentExempt, "auction %v holds %d lamports", accounts.Auction.Hex(), raw.Lamports)
	}
	auction, err := core.UnpackAuctionUnchecked(raw.Data)
	if err != nil {
		return err
	}
	if auction.Initialized {
		return errors.Wrapf(core.AccountAlreadyInitialized, "auction %v", accounts.Auction.Hex())
	}
	if cmd.DurationSeconds > math.MaxInt64 || inv.Now() > math.MaxInt64-int64(cmd.DurationSeconds) {
		return errors.Wrapf(core.AmountOverflow, "duration %d", cmd.DurationSeconds)
	}
	auction = core.Auction{
		Initialized:        true,
		Exhibitor:          accounts.Exhibitor,
		AssetHolding:       accounts.AssetHolding,
		PaymentDestination: accounts.PaymentDestination,
		Price:              cmd.InitialPrice,
		EndAt:              inv.Now() + int64(cmd.DurationSeconds),
	}
	if err := auction.PackInto(raw.Data); err != nil {
		return err
	}

	escrow := inv.DerivedAuthority(authoritySeed)
	if err := p.tokens.Transfer(inv, accounts.ExhibitorAsset, accounts.AssetHolding, exhibitor, 1); err != nil {
		return errors.Wrap(err, "escrow asset")
	}
	if err := p.tokens.SetAuthority(inv, accounts.AssetHolding, escrow.Address(), exhibitor); err != nil {
		return errors.Wrap(err, "hand asset holding to escrow")
	}
	inv.Logf("open auction %v price %d until %d", accounts.Auction.Hex(), auction.Price, auction.EndAt)
	return nil
}

func (p *Processor) Bid(inv *ledger.Invocation, cmd BidCommand, accounts BidAccounts) error {
	bidder, err := inv.Signer(accounts.Bidder)
	if err != nil {
		return err
	}
	auction, err := loadAuction(inv, accounts.Auction)
	if err != nil {
		return err
	}
	if !auction.Active(inv.Now()) {
		return errors.Wrapf(core.InactiveAuction, "ended at %d", auction.EndAt)
	}
	if cmd.Price <= auction.Price {
		return errors.Wrapf(core.InsufficientBidPrice, "bid %d, current price %d", cmd.Price, auction.Price)
	}
	if accounts.HighestBidderHolding != auction.BidderHolding ||
		accounts.HighestBidderRefund != auction.BidderRefund ||
		accounts.HighestBidder != auction.HighestBidder {
		return errors.Wrap(core.InvalidCommand, "highest bidder accounts do not match the auction")
	}
	if accounts.Bidder == auction.HighestBidder {
		return core.AlreadyBid
	}
	if accounts.PaymentDestination != auction.PaymentDestination {
		return errors.Wrap(core.InvalidCommand, "payment destination does not match the auction")
	}
	if accounts.BidderHolding == accounts.BidderPaymentSource {
		return errors.Wrap(core.InvalidCommand, "bid holding is also the payment source")
	}
	switch accounts.BidderHolding {
	case auction.AssetHolding, auction.PaymentDestination, auction.BidderHolding, auction.BidderRefund:
		return errors.Wrap(core.InvalidCommand, "bid holding is already used by the auction")
	}
	paymentMint, err := p.tokens.MintOf(inv, accounts.PaymentDestination)
	if err != nil {
		return err
	}
	bidMint, err := p.tokens.MintOf(inv, accounts.BidderHolding)
	if err != nil {
		return err
	}
	if paymentMint != bidMint {
		return errors.Wrap(core.ExpectedAmountMismatch, "bid is not in the payment token")
	}

	escrow := inv.DerivedAuthority(authoritySeed)
	if err := p.tokens.Transfer(inv, accounts.BidderPaymentSource, accounts.BidderHolding, bidder, cmd.Price); err != nil {
		return errors.Wrap(err, "escrow bid")
	}
	held, err := p.tokens.Amount(inv, accounts.BidderHolding)
	if err != nil {
		return err
	}
	if held != cmd.Price {
		return errors.Wrapf(core.ExpectedAmountMismatch, "bid holding has %d, want %d", held, cmd.Price)
	}
	if err := p.tokens.SetAuthority(inv, accounts.BidderHolding, escrow.Address(), bidder); err != nil {
		return errors.Wrap(err, "hand bid holding to escrow")
	}

	if auction.HasBidder() {
		refund, err := p.tokens.Amount(inv, auction.BidderHolding)
		if err != nil {
			return err
		}
		if refund != auction.Price {
			return errors.Wrapf(core.ExpectedAmountMismatch, "outbid holding has %d, want %d", refund, auction.Price)
		}
		if err := p.tokens.Transfer(inv, auction.BidderHolding, auction.BidderRefund, escrow, refund); err != nil {
			return errors.Wrap(err, "refund outbid bidder")
		}
		if err := p.tokens.CloseAccount(inv, auction.BidderHolding, auction.HighestBidder, escrow); err != nil {
			return errors.Wrap(err, "close outbid holding")
		}
	}

	auction.Price = cmd.Price
	auction.HighestBidder = accounts.Bidder
	auction.BidderHolding = accounts.BidderHolding
	auction.BidderRefund = accounts.BidderPaymentSource
	if err := storeAuction(inv, accounts.Auction, auction); err != nil {
		return err
	}
	bidPriceHistogram.Observe(float64(cmd.Price))
	inv.Logf("bid %d on %v by %v", cmd.Price, accounts.Auction.Hex(), accounts.Bidder.Hex())
	return nil
}

func (p *Processor) Cancel(inv *ledger.Invocation, accounts CancelAccounts) error {
	if _, err := inv.Signer(accounts.Exhibitor); err != nil {
		return err
	}
	auction, err := loadAuction(inv, accounts.Auction)
	if err != nil {
		return err
	}
	if accounts.Exhibitor != auction.Exhibitor {
		return errors.Wrap(core.InvalidAccountData, "exhibitor does not match the auction")
	}
	if accounts.AssetHolding != auction.AssetHolding {
		return errors.Wrap(core.InvalidAccountData, "asset holding does not match the auction")
	}
	if auction.HasBidder() {
		return core.AlreadyBid
	}

	escrow := inv.DerivedAuthority(authoritySeed)
	amount, err := p.tokens.Amount(inv, accounts.AssetHolding)
	if err != nil {
		return err
	}
	if err := p.tokens.Transfer(inv, accounts.AssetHolding, accounts.AssetReturn, escrow, amount); err != nil {
		return errors.Wrap(err, "return asset")
	}
	if err := p.tokens.CloseAccount(inv, accounts.AssetHolding, accounts.Exhibitor, escrow); err != nil {
		return errors.Wrap(err, "close asset holding")
	}
	if err := destroyAuction(inv, accounts.Auction, accounts.Exhibitor); err != nil {
		return err
	}
	inv.Logf("cancel auction %v", accounts.Auction.Hex())
	return nil
}

func (p *Processor) Settle(inv *ledger.Invocation, accounts SettleAccounts) error {
	if _, err := inv.Signer(accounts.Bidder); err != nil {
		return err
	}
	auction, err := loadAuction(inv, accounts.Auction)
	if err != nil {
		return err
	}
	if auction.Active(inv.Now()) {
		return errors.Wrapf(core.ActiveAuction, "ends at %d", auction.EndAt)
	}
	switch {
	case accounts.Exhibitor != auction.Exhibitor:
		return errors.Wrap(core.InvalidAccountData, "exhibitor does not match the auction")
	case accounts.AssetHolding != auction.AssetHolding:
		return errors.Wrap(core.InvalidAccountData, "asset holding does not match the auction")
	case accounts.PaymentDestination != auction.PaymentDestination:
		return errors.Wrap(core.InvalidAccountData, "payment destination does not match the auction")
	case accounts.BidderHolding != auction.BidderHolding:
		return errors.Wrap(core.InvalidAccountData, "bidder holding does not match the auction")
	case accounts.Bidder != auction.HighestBidder:
		return errors.Wrap(core.InvalidAccountData, "bidder is not the highest bidder")
	}

	escrow := inv.DerivedAuthority(authoritySeed)
	asset, err := p.tokens.Amount(inv, accounts.AssetHolding)
	if err != nil {
		return err
	}
	if err := p.tokens.Transfer(inv, accounts.AssetHolding, accounts.BidderAssetReceiving, escrow, asset); err != nil {
		return errors.Wrap(err, "deliver asset")
	}
	payment, err := p.tokens.Amount(inv, accounts.BidderHolding)
	if err != nil {
		return err
	}
	if err := p.tokens.Transfer(inv, accounts.BidderHolding, accounts.PaymentDestination, escrow, payment); err != nil {
		return errors.Wrap(err, "pay exhibitor")
	}
	if err := p.tokens.CloseAccount(inv, accounts.BidderHolding, accounts.Bidder, escrow); err != nil {
		return errors.Wrap(err, "close bid holding")
	}
	if err := p.tokens.CloseAccount(inv, accounts.AssetHolding, accounts.Exhibitor, escrow); err != nil {
		return errors.Wrap(err, "close asset holding")
	}
	if err := destroyAuction(inv, accounts.Auction, accounts.Exhibitor); err != nil {
		return err
	}
	inv.Logf("settle auction %v at %d", accounts.Auction.Hex(), payment)
	return nil
}
