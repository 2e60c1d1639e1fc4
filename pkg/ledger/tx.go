package ledger

import (
	"bytes"
	"context"
	"math/bits"

	"github.com/go-faster/errors"

	"github.com/arnac-io/auctionescrow/pkg/core"
)

type stagedAccount struct {
	orig core.Account
	cur  core.Account
}

func (s *stagedAccount) changed() bool {
	return s.orig.Lamports != s.cur.Lamports ||
		s.orig.Owner != s.cur.Owner ||
		!bytes.Equal(s.orig.Data, s.cur.Data)
}

// Tx is the unit of work of one transaction. Account changes are staged here
// and reach the store only through Runtime.Submit after every instruction succeeded.
type Tx struct {
	ctx    context.Context
	store  Store
	staged map[core.Address]*stagedAccount
	order  []core.Address
}

func newTx(ctx context.Context, store Store) *Tx {
	return &Tx{
		ctx:    ctx,
		store:  store,
		staged: map[core.Address]*stagedAccount{},
	}
}

// account returns the staged copy, loading it on first use.
// Missing accounts are staged as empty system accounts.
func (tx *Tx) account(addr core.Address) (*stagedAccount, error) {
	if s, ok := tx.staged[addr]; ok {
		return s, nil
	}
	acc, err := tx.store.Get(tx.ctx, addr)
	switch {
	case errors.Is(err, core.ErrEntityNotFound):
		acc = core.Account{Address: addr, Owner: SystemProgramID}
	case err != nil:
		return nil, errors.Wrapf(err, "load account %v", addr.Hex())
	}
	s := &stagedAccount{orig: acc.Clone(), cur: acc.Clone()}
	tx.staged[addr] = s
	tx.order = append(tx.order, addr)
	return s, nil
}

// changes lists the accounts that differ from what was loaded.
func (tx *Tx) changes() []core.Account {
	var res []core.Account
	for _, addr := range tx.order {
		s := tx.staged[addr]
		if s.changed() {
			res = append(res, s.cur.Clone())
		}
	}
	return res
}

// checkBalance makes sure no lamports were created or destroyed.
func (tx *Tx) checkBalance() error {
	var before, after uint64
	for _, s := range tx.staged {
		var carry uint64
		before, carry = bits.Add64(before, s.orig.Lamports, 0)
		if carry != 0 {
			return core.ArithmeticOverflow
		}
		after, carry = bits.Add64(after, s.cur.Lamports, 0)
		if carry != 0 {
			return core.ArithmeticOverflow
		}
	}
	if before != after {
		return errors.Wrapf(core.UnbalancedTransaction, "lamports before %d, after %d", before, after)
	}
	return nil
}
