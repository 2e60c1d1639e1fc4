package wire

import (
	"testing"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/arnac-io/auctionescrow/pkg/core"
	"github.com/arnac-io/auctionescrow/pkg/ledger"
	"github.com/arnac-io/auctionescrow/pkg/token"
)

var (
	alice = core.MustParseAddress("0101010101010101010101010101010101010101010101010101010101010101")
	bob   = core.MustParseAddress("0202020202020202020202020202020202020202020202020202020202020202")
)

func TestTransaction(t *testing.T) {
	txn := ledger.NewTransaction(7,
		ledger.TransferInstruction(alice, bob, 10),
		token.TransferInstruction(alice, bob, alice, 3))
	txn.Signatures = []ledger.Signature{{Signer: alice, Signature: []byte{1, 2, 3}}}

	var e jx.Encoder
	EncodeTransaction(&e, txn)
	got, err := DecodeTransaction(jx.DecodeBytes(e.Bytes()))
	require.NoError(t, err)
	require.Equal(t, txn, got)
	require.Equal(t, txn.Message(), got.Message())

	_, err = DecodeTransaction(jx.DecodeStr(`{"nonce":1,"instructions":[{"program_id":"zz"}]}`))
	require.Error(t, err)
}

func TestReceipt(t *testing.T) {
	code := core.CodeOf(errors.Wrap(core.InsufficientBidPrice, "bid 5"))
	r := ledger.Receipt{
		ID:       uuid.New(),
		Time:     1700000000,
		Signers:  []core.Address{alice},
		Programs: []core.Address{bob},
		Accounts: []core.Address{alice, bob},
		Logs:     []string{"hello"},
		Err:      &code,
		Message:  "instruction 0: bid 5: insufficient bid price",
	}
	var e jx.Encoder
	EncodeReceipt(&e, r)
	got, err := DecodeReceipt(jx.DecodeBytes(e.Bytes()))
	require.NoError(t, err)
	require.Equal(t, r, got)

	err = Err(got)
	require.ErrorIs(t, err, core.InsufficientBidPrice)
	require.Equal(t, r.Message, err.Error())
}

func TestErrorOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "auction", err: core.AlreadyBid},
		{name: "program", err: core.MissingRequiredSignature},
		{name: "token", err: token.ErrMintMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ErrorOf(core.CodeOf(tt.err), "")
			require.ErrorIs(t, got, tt.err)
		})
	}
	require.EqualError(t, ErrorOf(core.CodeOf(errors.New("boom")), "boom"), "boom")
}

func TestAccount(t *testing.T) {
	acc := core.Account{Address: alice, Lamports: 42, Owner: bob, Data: []byte{0, 1, 2}}
	var e jx.Encoder
	EncodeAccount(&e, acc)
	got, err := DecodeAccount(jx.DecodeBytes(e.Bytes()))
	require.NoError(t, err)
	require.Equal(t, acc, got)
}
