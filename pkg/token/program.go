package token

import (
	"context"
	"encoding/binary"

	"github.com/go-faster/errors"

	"github.com/arnac-io/auctionescrow/pkg/core"
	"github.com/arnac-io/auctionescrow/pkg/ledger"
)

const (
	tagInitializeMint byte = iota
	tagInitializeAccount
	tagMintTo
	tagTransfer
	tagSetAuthority
	tagCloseAccount
)

// Program exposes Service to transactions submitted by clients.
type Program struct {
	svc Service
}

func NewProgram() *Program {
	return &Program{}
}

func (p *Program) Process(ctx context.Context, inv *ledger.Invocation, data []byte) error {
	if len(data) == 0 {
		return ErrInvalidInstruction
	}
	accounts := inv.Accounts()
	need := func(n int) error {
		if len(accounts) < n {
			return errors.Wrapf(core.NotEnoughAccountKeys, "need %d accounts, got %d", n, len(accounts))
		}
		return nil
	}
	switch data[0] {
	case tagInitializeMint:
		if len(data) != 1+1+32 {
			return ErrInvalidInstruction
		}
		if err := need(1); err != nil {
			return err
		}
		var authority core.Address
		copy(authority[:], data[2:34])
		return p.svc.InitializeMint(inv, accounts[0].Address, data[1], authority)
	case tagInitializeAccount:
		if err := need(3); err != nil {
			return err
		}
		return p.svc.InitializeAccount(inv, accounts[0].Address, accounts[1].Address, accounts[2].Address)
	case tagMintTo, tagTransfer:
		if len(data) != 9 {
			return ErrInvalidInstruction
		}
		if err := need(3); err != nil {
			return err
		}
		auth, err := inv.Signer(accounts[2].Address)
		if err != nil {
			return err
		}
		amount := binary.LittleEndian.Uint64(data[1:9])
		if data[0] == tagMintTo {
			return p.svc.MintTo(inv, accounts[0].Address, accounts[1].Address, auth, amount)
		}
		return p.svc.Transfer(inv, accounts[0].Address, accounts[1].Address, auth, amount)
	case tagSetAuthority:
		if len(data) != 1+32 {
			return ErrInvalidInstruction
		}
		if err := need(2); err != nil {
			return err
		}
		auth, err := inv.Signer(accounts[1].Address)
		if err != nil {
			return err
		}
		var newAuthority core.Address
		copy(newAuthority[:], data[1:33])
		return p.svc.SetAuthority(inv, accounts[0].Address, newAuthority, auth)
	case tagCloseAccount:
		if err := need(3); err != nil {
			return err
		}
		auth, err := inv.Signer(accounts[2].Address)
		if err != nil {
			return err
		}
		return p.svc.CloseAccount(inv, accounts[0].Address, accounts[1].Address, auth)
	}
	return ErrInvalidInstruction
}

func InitializeMintInstruction(mint core.Address, decimals uint8, authority core.Address) ledger.Instruction {
	data := []byte{tagInitializeMint, decimals}
	data = append(data, authority[:]...)
	return ledger.Instruction{
		ProgramID: ProgramID,
		Accounts:  []ledger.AccountMeta{ledger.Writable(mint, false)},
		Data:      data,
	}
}

func InitializeAccountInstruction(account, mint, owner core.Address) ledger.Instruction {
	return ledger.Instruction{
		ProgramID: ProgramID,
		Accounts: []ledger.AccountMeta{
			ledger.Writable(account, false),
			ledger.Readonly(mint, false),
			ledger.Readonly(owner, false),
		},
		Data: []byte{tagInitializeAccount},
	}
}

func MintToInstruction(mint, destination, authority core.Address, amount uint64) ledger.Instruction {
	return ledger.Instruction{
		ProgramID: ProgramID,
		Accounts: []ledger.AccountMeta{
			ledger.Writable(mint, false),
			ledger.Writable(destination, false),
			ledger.Readonly(authority, true),
		},
		Data: binary.LittleEndian.AppendUint64([]byte{tagMintTo}, amount),
	}
}

func TransferInstruction(from, to, authority core.Address, amount uint64) ledger.Instruction {
	return ledger.Instruction{
		ProgramID: ProgramID,
		Accounts: []ledger.AccountMeta{
			ledger.Writable(from, false),
			ledger.Writable(to, false),
			ledger.Readonly(authority, true),
		},
		Data: binary.LittleEndian.AppendUint64([]byte{tagTransfer}, amount),
	}
}

func SetAuthorityInstruction(account, newAuthority, current core.Address) ledger.Instruction {
	return ledger.Instruction{
		ProgramID: ProgramID,
		Accounts: []ledger.AccountMeta{
			ledger.Writable(account, false),
			ledger.Readonly(current, true),
		},
		Data: append([]byte{tagSetAuthority}, newAuthority[:]...),
	}
}

func CloseAccountInstruction(account, destination, authority core.Address) ledger.Instruction {
	return ledger.Instruction{
		ProgramID: ProgramID,
		Accounts: []ledger.AccountMeta{
			ledger.Writable(account, false),
			ledger.Writable(destination, false),
			ledger.Readonly(authority, true),
		},
		Data: []byte{tagCloseAccount},
	}
}
