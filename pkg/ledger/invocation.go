package ledger

import (
	"context"
	"fmt"
	"math/bits"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/arnac-io/auctionescrow/pkg/core"
)

const maxInvocationDepth = 4

// Invocation is what a program sees while it processes one instruction.
type Invocation struct {
	ctx       context.Context
	logger    *zap.Logger
	tx        *Tx
	programID core.Address
	accounts  []AccountMeta
	metas     map[core.Address]AccountMeta
	signers   map[core.Address]struct{}
	now       int64
	rent      Rent
	logs      *[]string
	depth     int
}

func newInvocation(ctx context.Context, logger *zap.Logger, tx *Tx, ix Instruction, signers map[core.Address]struct{}, now int64, rent Rent, logs *[]string) *Invocation {
	metas := make(map[core.Address]AccountMeta, len(ix.Accounts))
	for _, m := range ix.Accounts {
		prev := metas[m.Address]
		prev.Address = m.Address
		prev.IsSigner = prev.IsSigner || m.IsSigner
		prev.IsWritable = prev.IsWritable || m.IsWritable
		metas[m.Address] = prev
	}
	return &Invocation{
		ctx:       ctx,
		logger:    logger,
		tx:        tx,
		programID: ix.ProgramID,
		accounts:  ix.Accounts,
		metas:     metas,
		signers:   signers,
		now:       now,
		rent:      rent,
		logs:      logs,
	}
}

func (inv *Invocation) Context() context.Context {
	return inv.ctx
}

func (inv *Invocation) ProgramID() core.Address {
	return inv.programID
}

// Accounts returns the instruction's accounts in the order the caller supplied them.
func (inv *Invocation) Accounts() []AccountMeta {
	return inv.accounts
}

// Now is the unix time shared by all instructions of the transaction.
func (inv *Invocation) Now() int64 {
	return inv.now
}

func (inv *Invocation) Rent() Rent {
	return inv.rent
}

// IsSigner reports whether addr is listed by the instruction and signed the transaction.
func (inv *Invocation) IsSigner(addr core.Address) bool {
	if _, ok := inv.metas[addr]; !ok {
		return false
	}
	_, ok := inv.signers[addr]
	return ok
}

// Signer returns the authority of a verified signer.
func (inv *Invocation) Signer(addr core.Address) (Authority, error) {
	if !inv.IsSigner(addr) {
		return Authority{}, errors.Wrapf(core.MissingRequiredSignature, "%v", addr.Hex())
	}
	return Authority{address: addr, tx: inv.tx}, nil
}

// DerivedAuthority lets the running program act as DeriveAddress(ProgramID(), seeds...).
func (inv *Invocation) DerivedAuthority(seeds ...[]byte) Authority {
	return Authority{address: DeriveAddress(inv.programID, seeds...), tx: inv.tx}
}

// Invoke returns an invocation of another program sharing this transaction, its accounts and signers.
func (inv *Invocation) Invoke(programID core.Address) (*Invocation, error) {
	if inv.depth+1 > maxInvocationDepth {
		return nil, errors.Wrap(core.InvalidArgument, "invocation depth exceeded")
	}
	child := *inv
	child.programID = programID
	child.depth = inv.depth + 1
	return &child, nil
}

func (inv *Invocation) meta(addr core.Address) (AccountMeta, error) {
	m, ok := inv.metas[addr]
	if !ok {
		return AccountMeta{}, errors.Wrapf(core.NotEnoughAccountKeys, "account %v is not part of the instruction", addr.Hex())
	}
	return m, nil
}

// Load returns a copy of the account's current state.
func (inv *Invocation) Load(addr core.Address) (core.Account, error) {
	if _, err := inv.meta(addr); err != nil {
		return core.Account{}, err
	}
	s, err := inv.tx.account(addr)
	if err != nil {
		return core.Account{}, err
	}
	return s.cur.Clone(), nil
}

// BorrowMut gives write access to an account owned by the running program.
func (inv *Invocation) BorrowMut(addr core.Address) (*core.Account, error) {
	m, err := inv.meta(addr)
	if err != nil {
		return nil, err
	}
	if !m.IsWritable || core.IsDefault(addr) {
		return nil, errors.Wrapf(core.ReadonlyAccount, "%v", addr.Hex())
	}
	s, err := inv.tx.account(addr)
	if err != nil {
		return nil, err
	}
	if s.cur.Owner != inv.programID {
		return nil, errors.Wrapf(core.IllegalOwner, "%v is owned by %v", addr.Hex(), s.cur.Owner.Hex())
	}
	return &s.cur, nil
}

// Credit adds lamports to any writable account.
func (inv *Invocation) Credit(addr core.Address, lamports uint64) error {
	m, err := inv.meta(addr)
	if err != nil {
		return err
	}
	if !m.IsWritable || core.IsDefault(addr) {
		return errors.Wrapf(core.ReadonlyAccount, "%v", addr.Hex())
	}
	s, err := inv.tx.account(addr)
	if err != nil {
		return err
	}
	sum, carry := bits.Add64(s.cur.Lamports, lamports, 0)
	if carry != 0 {
		return core.ArithmeticOverflow
	}
	s.cur.Lamports = sum
	return nil
}

// Logf records a line in the transaction receipt.
func (inv *Invocation) Logf(format string, args ...any) {
	line := fmt.Sprintf(format, args...)
	*inv.logs = append(*inv.logs, line)
	inv.logger.Debug("program log",
		zap.String("program", inv.programID.Hex()),
		zap.String("line", line))
}
