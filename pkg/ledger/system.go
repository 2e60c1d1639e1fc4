package ledger

import (
	"context"
	"encoding/binary"

	"github.com/go-faster/errors"

	"github.com/arnac-io/auctionescrow/pkg/core"
)

// SystemProgramID owns every account that was never assigned to a program.
var SystemProgramID = core.DefaultAddress

const maxAccountDataLen = 10 * 1024 * 1024

const (
	systemCreateAccount byte = 0
	systemTransfer      byte = 1
)

// CreateAccountInstruction funds a new account, allocates space bytes of data and assigns it to owner.
// Both payer and the new account must sign.
func CreateAccountInstruction(payer, account core.Address, lamports, space uint64, owner core.Address) Instruction {
	data := []byte{systemCreateAccount}
	data = binary.LittleEndian.AppendUint64(data, lamports)
	data = binary.LittleEndian.AppendUint64(data, space)
	data = append(data, owner[:]...)
	return Instruction{
		ProgramID: SystemProgramID,
		Accounts:  []AccountMeta{Writable(payer, true), Writable(account, true)},
		Data:      data,
	}
}

func TransferInstruction(from, to core.Address, lamports uint64) Instruction {
	data := []byte{systemTransfer}
	data = binary.LittleEndian.AppendUint64(data, lamports)
	return Instruction{
		ProgramID: SystemProgramID,
		Accounts:  []AccountMeta{Writable(from, true), Writable(to, false)},
		Data:      data,
	}
}

type systemProgram struct{}

func (systemProgram) Process(ctx context.Context, inv *Invocation, data []byte) error {
	if len(data) == 0 {
		return core.InvalidArgument
	}
	accounts := inv.Accounts()
	switch data[0] {
	case systemCreateAccount:
		if len(data) < 1+8+8+32 || len(accounts) < 2 {
			return core.InvalidArgument
		}
		lamports := binary.LittleEndian.Uint64(data[1:9])
		space := binary.LittleEndian.Uint64(data[9:17])
		var owner core.Address
		copy(owner[:], data[17:49])
		return createAccount(inv, accounts[0].Address, accounts[1].Address, lamports, space, owner)
	case systemTransfer:
		if len(data) < 9 || len(accounts) < 2 {
			return core.InvalidArgument
		}
		return transferLamports(inv, accounts[0].Address, accounts[1].Address, binary.LittleEndian.Uint64(data[1:9]))
	}
	return core.InvalidArgument
}

func debit(inv *Invocation, from core.Address, lamports uint64) error {
	if !inv.IsSigner(from) {
		return errors.Wrapf(core.MissingRequiredSignature, "%v", from.Hex())
	}
	payer, err := inv.BorrowMut(from)
	if err != nil {
		return err
	}
	if len(payer.Data) != 0 {
		return errors.Wrap(core.InvalidArgument, "payer must not carry data")
	}
	if payer.Lamports < lamports {
		return errors.Wrapf(core.InsufficientFunds, "%v has %d lamports, needs %d", from.Hex(), payer.Lamports, lamports)
	}
	payer.Lamports -= lamports
	return nil
}

func createAccount(inv *Invocation, payer, account core.Address, lamports, space uint64, owner core.Address) error {
	if space > maxAccountDataLen {
		return errors.Wrapf(core.InvalidArgument, "space %d", space)
	}
	if !inv.IsSigner(account) {
		return errors.Wrapf(core.MissingRequiredSignature, "%v", account.Hex())
	}
	acc, err := inv.BorrowMut(account)
	if err != nil {
		return err
	}
	if acc.Lamports != 0 || len(acc.Data) != 0 {
		return errors.Wrapf(core.AccountExists, "%v", account.Hex())
	}
	if err := debit(inv, payer, lamports); err != nil {
		return err
	}
	acc.Lamports = lamports
	acc.Data = make([]byte, space)
	acc.Owner = owner
	inv.Logf("create account %v owned by %v", account.Hex(), owner.Hex())
	return nil
}

func transferLamports(inv *Invocation, from, to core.Address, lamports uint64) error {
	if err := debit(inv, from, lamports); err != nil {
		return err
	}
	return inv.Credit(to, lamports)
}
