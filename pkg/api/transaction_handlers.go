package api

import (
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/google/uuid"

	"github.com/arnac-io/auctionescrow/pkg/cache"
	"github.com/arnac-io/auctionescrow/pkg/core"
	"github.com/arnac-io/auctionescrow/pkg/wire"
)

// SubmitTransaction handles POST /v2/transactions. The receipt is returned with 200 when
// the transaction is committed and with 422 when it is rejected.
func (h *Handler) SubmitTransaction(w http.ResponseWriter, r *http.Request) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.limits.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return badRequestf("transaction is larger than %v bytes", tooLarge.Limit)
		}
		return badRequestf("failed to read body: %v", err)
	}
	txn, err := wire.DecodeTransaction(jx.DecodeBytes(body))
	if err != nil {
		return badRequestf("%v", err)
	}
	if len(txn.Instructions) == 0 {
		return badRequestf("transaction has no instructions")
	}
	if !h.limits.isInstructionCountAllowed(len(txn.Instructions)) {
		return badRequestf("the maximum number of instructions per transaction: %v", h.limits.MaxInstructions)
	}
	receipt, err := h.ledger.Submit(r.Context(), txn)
	if receipt == nil {
		if err == nil {
			err = errors.New("no receipt")
		}
		return errors.Wrap(err, "submit")
	}
	status := http.StatusOK
	if !receipt.Success {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, func(e *jx.Encoder) {
		wire.EncodeReceipt(e, *receipt)
	})
	return nil
}

// GetReceipt handles GET /v2/receipts/{id}.
func (h *Handler) GetReceipt(w http.ResponseWriter, r *http.Request) error {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return badRequestf("invalid receipt id: %v", err)
	}
	receipt, err := h.receipts.Get(r.Context(), id.String())
	if errors.Is(err, cache.ErrNotFound) {
		return core.ErrEntityNotFound
	}
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		wire.EncodeReceipt(e, receipt)
	})
	return nil
}
