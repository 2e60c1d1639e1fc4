package token

import (
	"math/bits"

	"github.com/go-faster/errors"

	"github.com/arnac-io/auctionescrow/pkg/core"
	"github.com/arnac-io/auctionescrow/pkg/ledger"
)

// ProgramID owns every mint and holding account.
var ProgramID = core.MustParseAddress("06ddf6e1d765a193d9cbe146ceeb79ac1cb485ed5f5b37913a8cf5857eff00a9")

// Service moves token balances on behalf of the program running inv.
// Every call runs inside the caller's transaction and commits or aborts with it.
type Service struct{}

func invoke(inv *ledger.Invocation) (*ledger.Invocation, error) {
	if inv.ProgramID() == ProgramID {
		return inv, nil
	}
	return inv.Invoke(ProgramID)
}

func checkAuthority(inv *ledger.Invocation, authority ledger.Authority, owner core.Address) error {
	if !authority.ValidIn(inv) || authority.Address() != owner {
		return errors.Wrapf(ErrOwnerMismatch, "expected %v", owner.Hex())
	}
	return nil
}

func loadAccount(inv *ledger.Invocation, addr core.Address) (Account, error) {
	raw, err := inv.Load(addr)
	if err != nil {
		return Account{}, err
	}
	if raw.Owner != ProgramID {
		return Account{}, errors.Wrapf(core.IllegalOwner, "%v is not a token account", addr.Hex())
	}
	acc, err := UnpackAccount(raw.Data)
	if err != nil {
		return Account{}, err
	}
	if !acc.Initialized {
		return Account{}, errors.Wrapf(ErrUninitializedState, "%v", addr.Hex())
	}
	return acc, nil
}

func storeAccount(inv *ledger.Invocation, addr core.Address, acc Account) error {
	raw, err := inv.BorrowMut(addr)
	if err != nil {
		return err
	}
	raw.Data = acc.Pack()
	return nil
}

func loadMint(inv *ledger.Invocation, addr core.Address) (Mint, error) {
	raw, err := inv.Load(addr)
	if err != nil {
		return Mint{}, err
	}
	if raw.Owner != ProgramID {
		return Mint{}, errors.Wrapf(core.IllegalOwner, "%v is not a mint", addr.Hex())
	}
	m, err := UnpackMint(raw.Data)
	if err != nil {
		return Mint{}, err
	}
	if !m.Initialized {
		return Mint{}, errors.Wrapf(ErrUninitializedState, "%v", addr.Hex())
	}
	return m, nil
}

func (Service) InitializeMint(inv *ledger.Invocation, mint core.Address, decimals uint8, authority core.Address) error {
	inv, err := invoke(inv)
	if err != nil {
		return err
	}
	raw, err := inv.BorrowMut(mint)
	if err != nil {
		return err
	}
	if len(raw.Data) != MintLen {
		return errors.Wrapf(core.InvalidAccountData, "mint %v has %d bytes", mint.Hex(), len(raw.Data))
	}
	if raw.Data[0] != 0 {
		return errors.Wrapf(ErrAlreadyInUse, "%v", mint.Hex())
	}
	if !inv.Rent().IsExempt(raw.Lamports, len(raw.Data)) {
		return errors.Wrapf(core.InsufficientFunds, "mint %v is not rent exempt", mint.Hex())
	}
	raw.Data = Mint{Initialized: true, Decimals: decimals, MintAuthority: authority}.Pack()
	return nil
}

func (Service) InitializeAccount(inv *ledger.Invocation, account, mint, owner core.Address) error {
	inv, err := invoke(inv)
	if err != nil {
		return err
	}
	if _, err := loadMint(inv, mint); err != nil {
		return err
	}
	raw, err := inv.BorrowMut(account)
	if err != nil {
		return err
	}
	if len(raw.Data) != AccountLen {
		return errors.Wrapf(core.InvalidAccountData, "account %v has %d bytes", account.Hex(), len(raw.Data))
	}
	if raw.Data[0] != 0 {
		return errors.Wrapf(ErrAlreadyInUse, "%v", account.Hex())
	}
	if !inv.Rent().IsExempt(raw.Lamports, len(raw.Data)) {
		return errors.Wrapf(core.InsufficientFunds, "account %v is not rent exempt", account.Hex())
	}
	raw.Data = Account{Initialized: true, Mint: mint, Owner: owner}.Pack()
	return nil
}

func (Service) MintTo(inv *ledger.Invocation, mint, destination core.Address, authority ledger.Authority, amount uint64) error {
	inv, err := invoke(inv)
	if err != nil {
		return err
	}
	m, err := loadMint(inv, mint)
	if err != nil {
		return err
	}
	if err := checkAuthority(inv, authority, m.MintAuthority); err != nil {
		return err
	}
	dst, err := loadAccount(inv, destination)
	if err != nil {
		return err
	}
	if dst.Mint != mint {
		return ErrMintMismatch
	}
	var carry uint64
	if m.Supply, carry = bits.Add64(m.Supply, amount, 0); carry != 0 {
		return ErrOverflow
	}
	if dst.Amount, carry = bits.Add64(dst.Amount, amount, 0); carry != 0 {
		return ErrOverflow
	}
	rawMint, err := inv.BorrowMut(mint)
	if err != nil {
		return err
	}
	rawMint.Data = m.Pack()
	return storeAccount(inv, destination, dst)
}

// Transfer moves amount units from one holding account to another of the same mint.
func (Service) Transfer(inv *ledger.Invocation, from, to core.Address, authority ledger.Authority, amount uint64) error {
	inv, err := invoke(inv)
	if err != nil {
		return err
	}
	src, err := loadAccount(inv, from)
	if err != nil {
		return err
	}
	dst, err := loadAccount(inv, to)
	if err != nil {
		return err
	}
	if src.Mint != dst.Mint {
		return errors.Wrapf(ErrMintMismatch, "%v -> %v", from.Hex(), to.Hex())
	}
	if err := checkAuthority(inv, authority, src.Owner); err != nil {
		return err
	}
	if src.Amount < amount {
		return errors.Wrapf(ErrInsufficientFunds, "%v holds %d, needs %d", from.Hex(), src.Amount, amount)
	}
	if from == to {
		return nil
	}
	src.Amount -= amount
	var carry uint64
	if dst.Amount, carry = bits.Add64(dst.Amount, amount, 0); carry != 0 {
		return ErrOverflow
	}
	if err := storeAccount(inv, from, src); err != nil {
		return err
	}
	return storeAccount(inv, to, dst)
}

// SetAuthority hands control over a holding account to newAuthority.
func (Service) SetAuthority(inv *ledger.Invocation, account, newAuthority core.Address, current ledger.Authority) error {
	inv, err := invoke(inv)
	if err != nil {
		return err
	}
	acc, err := loadAccount(inv, account)
	if err != nil {
		return err
	}
	if err := checkAuthority(inv, current, acc.Owner); err != nil {
		return err
	}
	acc.Owner = newAuthority
	return storeAccount(inv, account, acc)
}

// CloseAccount deletes an empty holding account and sends its lamports to destination.
func (Service) CloseAccount(inv *ledger.Invocation, account, destination core.Address, authority ledger.Authority) error {
	inv, err := invoke(inv)
	if err != nil {
		return err
	}
	acc, err := loadAccount(inv, account)
	if err != nil {
		return err
	}
	if err := checkAuthority(inv, authority, acc.Owner); err != nil {
		return err
	}
	if acc.Amount != 0 {
		return errors.Wrapf(ErrNonZeroBalance, "%v holds %d", account.Hex(), acc.Amount)
	}
	if account == destination {
		return errors.Wrap(core.InvalidArgument, "cannot close an account into itself")
	}
	raw, err := inv.BorrowMut(account)
	if err != nil {
		return err
	}
	lamports := raw.Lamports
	raw.Lamports = 0
	raw.Data = nil
	return inv.Credit(destination, lamports)
}

func (Service) Amount(inv *ledger.Invocation, account core.Address) (uint64, error) {
	acc, err := loadAccount(inv, account)
	if err != nil {
		return 0, err
	}
	return acc.Amount, nil
}

// MintOf returns the mint of a holding account.
func (Service) MintOf(inv *ledger.Invocation, account core.Address) (core.Address, error) {
	acc, err := loadAccount(inv, account)
	if err != nil {
		return core.Address{}, err
	}
	return acc.Mint, nil
}
