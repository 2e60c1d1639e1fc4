package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/sourcegraph/conc/iter"

	"github.com/arnac-io/auctionescrow/pkg/core"
	"github.com/arnac-io/auctionescrow/pkg/escrow"
	"github.com/arnac-io/auctionescrow/pkg/token"
)

var errNotAnAuction = badRequest{Reason: "account is not an auction"}

func parseAddress(s string) (core.Address, error) {
	a, err := core.ParseAddress(s)
	if err != nil {
		return core.Address{}, badRequestf("invalid address '%v': %v", s, err)
	}
	return a, nil
}

// tokenAccount loads a holding account and the decimals of its mint.
func (h *Handler) tokenAccount(ctx context.Context, addr core.Address) (token.Account, uint8, error) {
	raw, err := h.ledger.Account(ctx, addr)
	if err != nil {
		return token.Account{}, 0, err
	}
	if raw.Owner != h.tokenProgramID {
		return token.Account{}, 0, core.IllegalOwner
	}
	acc, err := token.UnpackAccount(raw.Data)
	if err != nil {
		return token.Account{}, 0, err
	}
	mint, err := h.mint(ctx, acc.Mint)
	if err != nil {
		return acc, 0, err
	}
	return acc, mint.Decimals, nil
}

func (h *Handler) mint(ctx context.Context, addr core.Address) (token.Mint, error) {
	raw, err := h.ledger.Account(ctx, addr)
	if err != nil {
		return token.Mint{}, err
	}
	if raw.Owner != h.tokenProgramID {
		return token.Mint{}, core.IllegalOwner
	}
	return token.UnpackMint(raw.Data)
}

func (h *Handler) auctionFromAccount(ctx context.Context, raw core.Account) (auctionView, error) {
	if raw.Owner != h.programID {
		return auctionView{}, errNotAnAuction
	}
	a, err := core.UnpackAuction(raw.Data)
	if err != nil {
		return auctionView{}, errNotAnAuction
	}
	v := auctionView{Address: raw.Address, Auction: a}
	// token state is best effort: a settled payment destination may be gone already
	if asset, _, err := h.tokenAccount(ctx, a.AssetHolding); err == nil {
		v.AssetMint = asset.Mint
		v.Escrowed = asset.Amount == 1 && asset.Owner == escrow.AuthorityAddress(h.programID)
	}
	if payment, decimals, err := h.tokenAccount(ctx, a.PaymentDestination); err == nil {
		v.PaymentMint = payment.Mint
		v.Decimals = decimals
	}
	return v, nil
}

func (h *Handler) auction(ctx context.Context, addr core.Address) (auctionView, error) {
	if v, ok := h.auctions.Get(addr); ok {
		return v, nil
	}
	version := h.auctions.Version(addr)
	raw, err := h.ledger.Account(ctx, addr)
	if err != nil {
		return auctionView{}, err
	}
	v, err := h.auctionFromAccount(ctx, raw)
	if err != nil {
		return auctionView{}, err
	}
	h.auctions.SetIfUnchanged(addr, version, v)
	return v, nil
}

// GetAuction handles GET /v2/auctions/{address}.
func (h *Handler) GetAuction(w http.ResponseWriter, r *http.Request) error {
	addr, err := parseAddress(r.PathValue("address"))
	if err != nil {
		return err
	}
	v, err := h.auction(r.Context(), addr)
	if err != nil {
		return err
	}
	now := h.ledger.Now()
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeAuctionView(e, v, now)
	})
	return nil
}

// GetAuctions handles GET /v2/auctions?addresses=<a1>,<a2>. Unknown auctions are skipped.
func (h *Handler) GetAuctions(w http.ResponseWriter, r *http.Request) error {
	param := r.URL.Query().Get("addresses")
	if param == "" {
		return badRequestf("no addresses given")
	}
	parts := strings.Split(param, ",")
	if !h.limits.isBulkQuantityAllowed(len(parts)) {
		return badRequestf("the maximum number of addresses to request at once: %v", h.limits.BulkLimits)
	}
	addrs := make([]core.Address, 0, len(parts))
	for _, p := range parts {
		a, err := parseAddress(p)
		if err != nil {
			return err
		}
		addrs = append(addrs, a)
	}
	ctx := r.Context()
	views, err := iter.MapErr(addrs, func(addr *core.Address) (*auctionView, error) {
		v, err := h.auction(ctx, *addr)
		if errors.Is(err, core.ErrEntityNotFound) || errors.Is(err, errNotAnAuction) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return &v, nil
	})
	if err != nil {
		return err
	}
	now := h.ledger.Now()
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("auctions")
		e.ArrStart()
		for _, v := range views {
			if v != nil {
				encodeAuctionView(e, *v, now)
			}
		}
		e.ArrEnd()
		e.ObjEnd()
	})
	return nil
}

// GetEscrowAuthority handles GET /v2/escrow/authority.
func (h *Handler) GetEscrowAuthority(w http.ResponseWriter, r *http.Request) error {
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("program_id")
		e.Str(h.programID.Hex())
		e.FieldStart("token_program_id")
		e.Str(h.tokenProgramID.Hex())
		e.FieldStart("authority")
		e.Str(escrow.AuthorityAddress(h.programID).Hex())
		e.ObjEnd()
	})
	return nil
}
