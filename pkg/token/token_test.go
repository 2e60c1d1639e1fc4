package token

import (
	"context"
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/arnac-io/auctionescrow/pkg/core"
	"github.com/arnac-io/auctionescrow/pkg/ledger"
)

func testKey(seed byte) (ed25519.PrivateKey, core.Address) {
	s := make([]byte, ed25519.SeedSize)
	for i := range s {
		s[i] = seed
	}
	k := ed25519.NewKeyFromSeed(s)
	return k, core.AddressFromPublicKey(k.Public().(ed25519.PublicKey))
}

type fixture struct {
	t        *testing.T
	r        *ledger.Runtime
	payerKey ed25519.PrivateKey
	payer    core.Address
	nonce    uint64
}

func newFixture(t *testing.T) *fixture {
	r := ledger.NewRuntime(zap.NewNop(), ledger.NewMemoryStore(), ledger.WithClock(ledger.NewManualClock(100)))
	r.RegisterProgram(ProgramID, NewProgram())
	payerKey, payer := testKey(200)
	require.NoError(t, r.Airdrop(context.Background(), payer, 1_000_000_000))
	return &fixture{t: t, r: r, payerKey: payerKey, payer: payer}
}

func (f *fixture) submit(keys []ed25519.PrivateKey, ix ...ledger.Instruction) error {
	f.nonce++
	_, err := f.r.Submit(context.Background(), ledger.NewTransaction(f.nonce, ix...).Sign(append([]ed25519.PrivateKey{f.payerKey}, keys...)...))
	return err
}

func (f *fixture) createMint(seed byte, decimals uint8, authority core.Address) core.Address {
	key, mint := testKey(seed)
	lamports := f.r.Rent().MinimumBalance(MintLen)
	require.NoError(f.t, f.submit([]ed25519.PrivateKey{key},
		ledger.CreateAccountInstruction(f.payer, mint, lamports, MintLen, ProgramID),
		InitializeMintInstruction(mint, decimals, authority)))
	return mint
}

func (f *fixture) createAccount(seed byte, mint, owner core.Address) core.Address {
	key, acc := testKey(seed)
	lamports := f.r.Rent().MinimumBalance(AccountLen)
	require.NoError(f.t, f.submit([]ed25519.PrivateKey{key},
		ledger.CreateAccountInstruction(f.payer, acc, lamports, AccountLen, ProgramID),
		InitializeAccountInstruction(acc, mint, owner)))
	return acc
}

func (f *fixture) holding(addr core.Address) Account {
	raw, err := f.r.Account(context.Background(), addr)
	require.NoError(f.t, err)
	acc, err := UnpackAccount(raw.Data)
	require.NoError(f.t, err)
	return acc
}

func TestStateLayout(t *testing.T) {
	_, authority := testKey(1)
	m := Mint{Initialized: true, Decimals: 9, Supply: 77, MintAuthority: authority}
	raw := m.Pack()
	require.Len(t, raw, MintLen)
	got, err := UnpackMint(raw)
	require.NoError(t, err)
	require.Equal(t, m, got)

	_, err = UnpackMint(raw[:MintLen-1])
	require.ErrorIs(t, err, core.InvalidAccountData)
	raw[0] = 2
	_, err = UnpackMint(raw)
	require.ErrorIs(t, err, core.InvalidAccountData)

	a := Account{Initialized: true, Mint: authority, Owner: authority, Amount: 5}
	_, err = UnpackAccount(append(a.Pack(), 0))
	require.ErrorIs(t, err, core.InvalidAccountData)
}

func TestProgram_MintAndTransfer(t *testing.T) {
	f := newFixture(t)
	authorityKey, authority := testKey(1)
	aliceKey, alice := testKey(2)
	_, bob := testKey(3)

	mint := f.createMint(10, 6, authority)
	aliceAcc := f.createAccount(11, mint, alice)
	bobAcc := f.createAccount(12, mint, bob)

	require.NoError(t, f.submit([]ed25519.PrivateKey{authorityKey}, MintToInstruction(mint, aliceAcc, authority, 1_000)))
	require.Equal(t, uint64(1_000), f.holding(aliceAcc).Amount)

	tests := []struct {
		name    string
		keys    []ed25519.PrivateKey
		ix      ledger.Instruction
		wantErr error
	}{
		{
			name:    "mint without authority",
			keys:    []ed25519.PrivateKey{aliceKey},
			ix:      MintToInstruction(mint, aliceAcc, alice, 1),
			wantErr: ErrOwnerMismatch,
		},
		{
			name:    "transfer more than held",
			keys:    []ed25519.PrivateKey{aliceKey},
			ix:      TransferInstruction(aliceAcc, bobAcc, alice, 1_001),
			wantErr: ErrInsufficientFunds,
		},
		{
			name:    "transfer by a stranger",
			keys:    []ed25519.PrivateKey{authorityKey},
			ix:      TransferInstruction(aliceAcc, bobAcc, authority, 1),
			wantErr: ErrOwnerMismatch,
		},
		{
			name:    "unsigned transfer",
			ix:      TransferInstruction(aliceAcc, bobAcc, alice, 1),
			wantErr: core.MissingRequiredSignature,
		},
		{
			name:    "unknown instruction",
			ix:      ledger.Instruction{ProgramID: ProgramID, Data: []byte{99}},
			wantErr: ErrInvalidInstruction,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.submit(tt.keys, tt.ix)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}

	require.NoError(t, f.submit([]ed25519.PrivateKey{aliceKey}, TransferInstruction(aliceAcc, bobAcc, alice, 400)))
	require.Equal(t, uint64(600), f.holding(aliceAcc).Amount)
	require.Equal(t, uint64(400), f.holding(bobAcc).Amount)
}

func TestProgram_MintMismatch(t *testing.T) {
	f := newFixture(t)
	authorityKey, authority := testKey(1)
	aliceKey, alice := testKey(2)

	usd := f.createMint(10, 6, authority)
	eur := f.createMint(11, 6, authority)
	usdAcc := f.createAccount(12, usd, alice)
	eurAcc := f.createAccount(13, eur, alice)
	require.NoError(t, f.submit([]ed25519.PrivateKey{authorityKey}, MintToInstruction(usd, usdAcc, authority, 10)))

	err := f.submit([]ed25519.PrivateKey{aliceKey}, TransferInstruction(usdAcc, eurAcc, alice, 1))
	require.ErrorIs(t, err, ErrMintMismatch)
	err = f.submit([]ed25519.PrivateKey{authorityKey}, MintToInstruction(usd, eurAcc, authority, 1))
	require.ErrorIs(t, err, ErrMintMismatch)
}

func TestProgram_InitializeTwice(t *testing.T) {
	f := newFixture(t)
	_, authority := testKey(1)
	_, alice := testKey(2)
	mint := f.createMint(10, 0, authority)
	acc := f.createAccount(11, mint, alice)

	err := f.submit(nil, InitializeAccountInstruction(acc, mint, alice))
	require.ErrorIs(t, err, ErrAlreadyInUse)
	err = f.submit(nil, InitializeMintInstruction(mint, 0, alice))
	require.ErrorIs(t, err, ErrAlreadyInUse)
}

func TestProgram_SetAuthorityAndClose(t *testing.T) {
	f := newFixture(t)
	authorityKey, authority := testKey(1)
	aliceKey, alice := testKey(2)
	bobKey, bob := testKey(3)

	mint := f.createMint(10, 0, authority)
	acc := f.createAccount(11, mint, alice)
	sink := f.createAccount(12, mint, bob)
	require.NoError(t, f.submit([]ed25519.PrivateKey{authorityKey}, MintToInstruction(mint, acc, authority, 1)))

	require.NoError(t, f.submit([]ed25519.PrivateKey{aliceKey}, SetAuthorityInstruction(acc, bob, alice)))
	require.Equal(t, bob, f.holding(acc).Owner)

	err := f.submit([]ed25519.PrivateKey{aliceKey}, TransferInstruction(acc, sink, alice, 1))
	require.ErrorIs(t, err, ErrOwnerMismatch)

	err = f.submit([]ed25519.PrivateKey{bobKey}, CloseAccountInstruction(acc, bob, bob))
	require.ErrorIs(t, err, ErrNonZeroBalance)

	rentBefore, err := f.r.Account(context.Background(), acc)
	require.NoError(t, err)
	require.NoError(t, f.submit([]ed25519.PrivateKey{bobKey},
		TransferInstruction(acc, sink, bob, 1),
		CloseAccountInstruction(acc, bob, bob)))

	_, err = f.r.Account(context.Background(), acc)
	require.ErrorIs(t, err, core.ErrEntityNotFound)
	bobAcc, err := f.r.Account(context.Background(), bob)
	require.NoError(t, err)
	require.Equal(t, rentBefore.Lamports, bobAcc.Lamports)
	require.Equal(t, uint64(1), f.holding(sink).Amount)
}
