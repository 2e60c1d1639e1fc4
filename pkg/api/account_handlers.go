package api

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/arnac-io/auctionescrow/pkg/token"
)

// GetAccount handles GET /v2/accounts/{address}.
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) error {
	addr, err := parseAddress(r.PathValue("address"))
	if err != nil {
		return err
	}
	ctx := r.Context()
	raw, err := h.ledger.Account(ctx, addr)
	if err != nil {
		return err
	}
	v := accountView{Account: raw}
	switch raw.Owner {
	case h.tokenProgramID:
		switch len(raw.Data) {
		case token.AccountLen:
			if acc, decimals, err := h.tokenAccount(ctx, addr); err == nil {
				v.Token = &acc
				v.Decimals = decimals
			}
		case token.MintLen:
			if m, err := token.UnpackMint(raw.Data); err == nil {
				v.Mint = &m
			}
		}
	case h.programID:
		if a, err := h.auctionFromAccount(ctx, raw); err == nil {
			v.Auction = &a
		}
	}
	lang := languageOf(r)
	now := h.ledger.Now()
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeAccountView(e, v, lang, now)
	})
	return nil
}
