package ledger

import (
	"context"
	"crypto/ed25519"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/arnac-io/auctionescrow/pkg/core"
)

func testKey(seed byte) (ed25519.PrivateKey, core.Address) {
	s := make([]byte, ed25519.SeedSize)
	for i := range s {
		s[i] = seed
	}
	k := ed25519.NewKeyFromSeed(s)
	return k, core.AddressFromPublicKey(k.Public().(ed25519.PublicKey))
}

// programFunc adapts a function to the Program interface.
type programFunc func(ctx context.Context, inv *Invocation, data []byte) error

func (f programFunc) Process(ctx context.Context, inv *Invocation, data []byte) error {
	return f(ctx, inv, data)
}

func newTestRuntime(t *testing.T) (*Runtime, *ManualClock) {
	clock := NewManualClock(1_000)
	return NewRuntime(zap.NewNop(), NewMemoryStore(), WithClock(clock)), clock
}

func balance(t *testing.T, r *Runtime, addr core.Address) uint64 {
	acc, err := r.Account(context.Background(), addr)
	if err != nil {
		require.ErrorIs(t, err, core.ErrEntityNotFound)
		return 0
	}
	return acc.Lamports
}

func TestRuntime_CreateAccount(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRuntime(t)
	payerKey, payer := testKey(1)
	newKey, newAcc := testKey(2)
	_, owner := testKey(3)
	require.NoError(t, r.Airdrop(ctx, payer, 1_000_000))

	txn := NewTransaction(1, CreateAccountInstruction(payer, newAcc, 400_000, 64, owner)).Sign(payerKey, newKey)
	receipt, err := r.Submit(ctx, txn)
	require.NoError(t, err)
	require.True(t, receipt.Success)
	require.ElementsMatch(t, []core.Address{payer, newAcc}, receipt.Written)

	acc, err := r.Account(ctx, newAcc)
	require.NoError(t, err)
	require.Equal(t, uint64(400_000), acc.Lamports)
	require.Equal(t, owner, acc.Owner)
	require.Len(t, acc.Data, 64)
	require.Equal(t, uint64(600_000), balance(t, r, payer))

	// the same account cannot be created twice
	txn = NewTransaction(2, CreateAccountInstruction(payer, newAcc, 1, 0, owner)).Sign(payerKey, newKey)
	_, err = r.Submit(ctx, txn)
	require.ErrorIs(t, err, core.AccountExists)
}

func TestRuntime_Signatures(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRuntime(t)
	fromKey, from := testKey(1)
	otherKey, to := testKey(2)
	require.NoError(t, r.Airdrop(ctx, from, 100))

	tests := []struct {
		name string
		txn  *Transaction
	}{
		{
			name: "unsigned",
			txn:  NewTransaction(1, TransferInstruction(from, to, 10)),
		},
		{
			name: "signed by someone else",
			txn:  NewTransaction(1, TransferInstruction(from, to, 10)).Sign(otherKey),
		},
		{
			name: "tampered after signing",
			txn: func() *Transaction {
				txn := NewTransaction(1, TransferInstruction(from, to, 10)).Sign(fromKey)
				txn.Instructions[0].Data[1] = 99
				return txn
			}(),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			receipt, err := r.Submit(ctx, tt.txn)
			require.ErrorIs(t, err, core.MissingRequiredSignature)
			require.False(t, receipt.Success)
			require.Equal(t, "MissingRequiredSignature", receipt.Err.Name)
			require.Equal(t, uint64(100), balance(t, r, from))
		})
	}
}

func TestRuntime_FailedInstructionDiscardsEverything(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRuntime(t)
	fromKey, from := testKey(1)
	_, to := testKey(2)
	require.NoError(t, r.Airdrop(ctx, from, 100))

	txn := NewTransaction(1,
		TransferInstruction(from, to, 60),
		TransferInstruction(from, to, 60),
	).Sign(fromKey)
	_, err := r.Submit(ctx, txn)
	require.ErrorIs(t, err, core.InsufficientFunds)
	require.Equal(t, uint64(100), balance(t, r, from))
	require.Equal(t, uint64(0), balance(t, r, to))
}

func TestRuntime_UnbalancedTransaction(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRuntime(t)
	_, programID := testKey(9)
	_, victim := testKey(1)
	r.RegisterProgram(programID, programFunc(func(ctx context.Context, inv *Invocation, data []byte) error {
		return inv.Credit(victim, 1)
	}))
	_, err := r.Submit(ctx, NewTransaction(1, Instruction{
		ProgramID: programID,
		Accounts:  []AccountMeta{Writable(victim, false)},
	}))
	require.ErrorIs(t, err, core.UnbalancedTransaction)
	require.Equal(t, uint64(0), balance(t, r, victim))
}

func TestRuntime_Ownership(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRuntime(t)
	_, programID := testKey(9)
	_, foreign := testKey(1)
	require.NoError(t, r.Airdrop(ctx, foreign, 10))
	r.RegisterProgram(programID, programFunc(func(ctx context.Context, inv *Invocation, data []byte) error {
		_, err := inv.BorrowMut(foreign)
		return err
	}))

	_, err := r.Submit(ctx, NewTransaction(1, Instruction{
		ProgramID: programID,
		Accounts:  []AccountMeta{Writable(foreign, false)},
	}))
	require.ErrorIs(t, err, core.IllegalOwner)

	_, err = r.Submit(ctx, NewTransaction(2, Instruction{
		ProgramID: programID,
		Accounts:  []AccountMeta{Readonly(foreign, false)},
	}))
	require.ErrorIs(t, err, core.ReadonlyAccount)

	_, err = r.Submit(ctx, NewTransaction(3, Instruction{ProgramID: programID}))
	require.ErrorIs(t, err, core.NotEnoughAccountKeys)
}

func TestRuntime_DerivedAuthority(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRuntime(t)
	_, programID := testKey(9)
	var issued Authority
	r.RegisterProgram(programID, programFunc(func(ctx context.Context, inv *Invocation, data []byte) error {
		a := inv.DerivedAuthority([]byte("escrow"))
		require.Equal(t, DeriveAddress(programID, []byte("escrow")), a.Address())
		require.True(t, a.ValidIn(inv))
		child, err := inv.Invoke(SystemProgramID)
		require.NoError(t, err)
		require.True(t, a.ValidIn(child))
		require.False(t, issued.ValidIn(inv))
		issued = a
		return nil
	}))
	for nonce := uint64(1); nonce <= 2; nonce++ {
		_, err := r.Submit(ctx, NewTransaction(nonce, Instruction{ProgramID: programID}))
		require.NoError(t, err)
	}
	require.False(t, Authority{}.ValidIn(nil))
	require.NotEqual(t, DeriveAddress(programID, []byte("escrow")), DeriveAddress(programID, []byte("other")))
}

func TestRuntime_UnknownProgram(t *testing.T) {
	r, _ := newTestRuntime(t)
	_, programID := testKey(9)
	_, err := r.Submit(context.Background(), NewTransaction(1, Instruction{ProgramID: programID}))
	require.ErrorIs(t, err, core.IncorrectProgramID)
}

func TestRuntime_ConcurrentTransfersConserveLamports(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRuntime(t)
	aKey, a := testKey(1)
	bKey, b := testKey(2)
	require.NoError(t, r.Airdrop(ctx, a, 10_000))
	require.NoError(t, r.Airdrop(ctx, b, 10_000))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(n uint64) {
			defer wg.Done()
			_, _ = r.Submit(ctx, NewTransaction(n, TransferInstruction(a, b, 7)).Sign(aKey))
		}(uint64(i))
		go func(n uint64) {
			defer wg.Done()
			_, _ = r.Submit(ctx, NewTransaction(n, TransferInstruction(b, a, 3)).Sign(bKey))
		}(uint64(i))
	}
	wg.Wait()
	require.Equal(t, uint64(10_000-50*7+50*3), balance(t, r, a))
	require.Equal(t, uint64(20_000), balance(t, r, a)+balance(t, r, b))
}

func TestRuntime_Subscribe(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRuntime(t)
	fromKey, from := testKey(1)
	_, to := testKey(2)
	require.NoError(t, r.Airdrop(ctx, from, 100))

	var got []Receipt
	cancel := r.Subscribe(func(rc Receipt) { got = append(got, rc) })
	_, err := r.Submit(ctx, NewTransaction(1, TransferInstruction(from, to, 10)).Sign(fromKey))
	require.NoError(t, err)
	cancel()
	_, err = r.Submit(ctx, NewTransaction(2, TransferInstruction(from, to, 10)).Sign(fromKey))
	require.NoError(t, err)

	require.Len(t, got, 1)
	require.True(t, got[0].Success)
	require.Equal(t, int64(1_000), got[0].Time)
}

func TestRuntime_DefaultAddressIsNeverLocked(t *testing.T) {
	r, _ := newTestRuntime(t)
	_, a := testKey(1)
	_, b := testKey(2)

	unlock := r.lockAccounts([]core.Address{core.DefaultAddress, a})
	defer unlock()
	done := make(chan struct{})
	go func() {
		r.lockAccounts([]core.Address{core.DefaultAddress, b})()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("transactions sharing only the default address were serialized")
	}
}

func TestRuntime_DefaultAddressIsReadonly(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRuntime(t)
	fromKey, from := testKey(1)
	require.NoError(t, r.Airdrop(ctx, from, 100))

	_, err := r.Submit(ctx, NewTransaction(1, TransferInstruction(from, core.DefaultAddress, 10)).Sign(fromKey))
	require.ErrorIs(t, err, core.ReadonlyAccount)
	require.Equal(t, uint64(100), balance(t, r, from))
	require.ErrorIs(t, r.Airdrop(ctx, core.DefaultAddress, 1), core.ReadonlyAccount)
}
