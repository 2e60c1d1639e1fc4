package api

import (
	"strconv"

	"github.com/go-faster/jx"

	"github.com/arnac-io/auctionescrow/pkg/api/i18n"
	"github.com/arnac-io/auctionescrow/pkg/core"
	"github.com/arnac-io/auctionescrow/pkg/token"
	"github.com/arnac-io/auctionescrow/pkg/wire"
)

// auctionView is an auction record joined with the token state it refers to.
type auctionView struct {
	Address     core.Address
	Auction     core.Auction
	AssetMint   core.Address
	Escrowed    bool
	PaymentMint core.Address
	Decimals    uint8
}

func encodeOptionalAddress(e *jx.Encoder, field string, a core.Address) {
	if core.IsDefault(a) {
		return
	}
	e.FieldStart(field)
	e.Str(a.Hex())
}

func encodeAuctionView(e *jx.Encoder, v auctionView, now int64) {
	a := v.Auction
	e.ObjStart()
	e.FieldStart("address")
	e.Str(v.Address.Hex())
	e.FieldStart("exhibitor")
	e.Str(a.Exhibitor.Hex())
	e.FieldStart("asset_holding")
	e.Str(a.AssetHolding.Hex())
	encodeOptionalAddress(e, "asset_mint", v.AssetMint)
	e.FieldStart("escrowed")
	e.Bool(v.Escrowed)
	e.FieldStart("payment_destination")
	e.Str(a.PaymentDestination.Hex())
	encodeOptionalAddress(e, "payment_mint", v.PaymentMint)
	e.FieldStart("price")
	e.Str(strconv.FormatUint(a.Price, 10))
	e.FieldStart("formatted_price")
	e.Str(i18n.FormatAmount(a.Price, v.Decimals))
	e.FieldStart("decimals")
	e.UInt8(v.Decimals)
	e.FieldStart("end_at")
	e.Int64(a.EndAt)
	e.FieldStart("active")
	e.Bool(a.Active(now))
	encodeOptionalAddress(e, "highest_bidder", a.HighestBidder)
	encodeOptionalAddress(e, "bidder_holding", a.BidderHolding)
	encodeOptionalAddress(e, "bidder_refund", a.BidderRefund)
	e.ObjEnd()
}

func encodeTokenAccount(e *jx.Encoder, acc token.Account, decimals uint8) {
	e.ObjStart()
	e.FieldStart("mint")
	e.Str(acc.Mint.Hex())
	e.FieldStart("owner")
	e.Str(acc.Owner.Hex())
	e.FieldStart("amount")
	e.Str(strconv.FormatUint(acc.Amount, 10))
	e.FieldStart("formatted_amount")
	e.Str(i18n.FormatAmount(acc.Amount, decimals))
	e.ObjEnd()
}

func encodeMint(e *jx.Encoder, m token.Mint) {
	e.ObjStart()
	e.FieldStart("decimals")
	e.UInt8(m.Decimals)
	e.FieldStart("supply")
	e.Str(strconv.FormatUint(m.Supply, 10))
	encodeOptionalAddress(e, "mint_authority", m.MintAuthority)
	e.ObjEnd()
}

// accountView is a raw account with its decoded token or auction state, if any.
type accountView struct {
	Account  core.Account
	Token    *token.Account
	Mint     *token.Mint
	Auction  *auctionView
	Decimals uint8
}

func encodeAccountView(e *jx.Encoder, v accountView, lang string, now int64) {
	e.ObjStart()
	e.FieldStart("account")
	wire.EncodeAccount(e, v.Account)
	e.FieldStart("formatted_balance")
	e.Str(i18n.FormatLamports(lang, v.Account.Lamports))
	if v.Token != nil {
		e.FieldStart("token")
		encodeTokenAccount(e, *v.Token, v.Decimals)
	}
	if v.Mint != nil {
		e.FieldStart("mint")
		encodeMint(e, *v.Mint)
	}
	if v.Auction != nil {
		e.FieldStart("auction")
		encodeAuctionView(e, *v.Auction, now)
	}
	e.ObjEnd()
}
