package core

import (
	"encoding/binary"
)

// AuctionLen is the exact encoded size of an auction record.
const AuctionLen = 209

const (
	offInitialized      = 0
	offExhibitor        = 1
	offAssetHolding     = 33
	offPaymentDest      = 65
	offPrice            = 97
	offEndAt            = 105
	offHighestBidder    = 113
	offBidderHolding    = 145
	offBidderRefundDest = 177
)

// Auction is the persistent state of one auction, stored in its own account.
type Auction struct {
	Initialized bool
	// Exhibitor may cancel the auction and receives the reclaimed storage balance.
	Exhibitor Address
	// AssetHolding custodies the exhibited NFT while the auction runs.
	AssetHolding Address
	// PaymentDestination receives the winning payment.
	PaymentDestination Address
	// Price is the highest accepted bid, or the initial ask before any bid.
	Price uint64
	// EndAt is a unix timestamp; the auction accepts bids while now < EndAt.
	EndAt int64
	// HighestBidder is DefaultAddress until the first bid is accepted.
	HighestBidder Address
	// BidderHolding custodies exactly Price payment units of the highest bidder.
	BidderHolding Address
	// BidderRefund is where the highest bidder's funds return if outbid.
	BidderRefund Address
}

func (a Auction) HasBidder() bool {
	return !IsDefault(a.HighestBidder)
}

// Active reports whether bids are accepted at the given unix time.
func (a Auction) Active(now int64) bool {
	return now < a.EndAt
}

// PackInto encodes the record into dst, which must be at least AuctionLen bytes long.
func (a Auction) PackInto(dst []byte) error {
	if len(dst) < AuctionLen {
		return InvalidAccountData
	}
	dst = dst[:AuctionLen]
	if a.Initialized {
		dst[offInitialized] = 1
	} else {
		dst[offInitialized] = 0
	}
	copy(dst[offExhibitor:offAssetHolding], a.Exhibitor[:])
	copy(dst[offAssetHolding:offPaymentDest], a.AssetHolding[:])
	copy(dst[offPaymentDest:offPrice], a.PaymentDestination[:])
	binary.LittleEndian.PutUint64(dst[offPrice:offEndAt], a.Price)
	binary.LittleEndian.PutUint64(dst[offEndAt:offHighestBidder], uint64(a.EndAt))
	copy(dst[offHighestBidder:offBidderHolding], a.HighestBidder[:])
	copy(dst[offBidderHolding:offBidderRefundDest], a.BidderHolding[:])
	copy(dst[offBidderRefundDest:AuctionLen], a.BidderRefund[:])
	return nil
}

func (a Auction) Pack() []byte {
	buf := make([]byte, AuctionLen)
	_ = a.PackInto(buf)
	return buf
}

// UnpackAuctionUnchecked decodes a record without requiring it to be initialized.
func UnpackAuctionUnchecked(src []byte) (Auction, error) {
	if len(src) < AuctionLen {
		return Auction{}, InvalidAccountData
	}
	var a Auction
	switch src[offInitialized] {
	case 0:
	case 1:
		a.Initialized = true
	default:
		return Auction{}, InvalidAccountData
	}
	copy(a.Exhibitor[:], src[offExhibitor:offAssetHolding])
	copy(a.AssetHolding[:], src[offAssetHolding:offPaymentDest])
	copy(a.PaymentDestination[:], src[offPaymentDest:offPrice])
	a.Price = binary.LittleEndian.Uint64(src[offPrice:offEndAt])
	a.EndAt = int64(binary.LittleEndian.Uint64(src[offEndAt:offHighestBidder]))
	copy(a.HighestBidder[:], src[offHighestBidder:offBidderHolding])
	copy(a.BidderHolding[:], src[offBidderHolding:offBidderRefundDest])
	copy(a.BidderRefund[:], src[offBidderRefundDest:AuctionLen])
	return a, nil
}

// UnpackAuction decodes an initialized record.
func UnpackAuction(src []byte) (Auction, error) {
	a, err := UnpackAuctionUnchecked(src)
	if err != nil {
		return Auction{}, err
	}
	if !a.Initialized {
		return Auction{}, UninitializedAccount
	}
	return a, nil
}
