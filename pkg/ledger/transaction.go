package ledger

import (
	"crypto/ed25519"
	"encoding/binary"

	"github.com/go-faster/errors"

	"github.com/arnac-io/auctionescrow/pkg/core"
)

type AccountMeta struct {
	Address    core.Address
	IsSigner   bool
	IsWritable bool
}

func Writable(a core.Address, signer bool) AccountMeta {
	return AccountMeta{Address: a, IsSigner: signer, IsWritable: true}
}

func Readonly(a core.Address, signer bool) AccountMeta {
	return AccountMeta{Address: a, IsSigner: signer}
}

// Instruction asks one program to process Data against an ordered list of accounts.
type Instruction struct {
	ProgramID core.Address
	Accounts  []AccountMeta
	Data      []byte
}

type Signature struct {
	Signer    core.Address
	Signature []byte
}

// Transaction is the unit submitted to the runtime. Its instructions succeed or fail together.
type Transaction struct {
	// Nonce distinguishes otherwise identical transactions.
	Nonce        uint64
	Instructions []Instruction
	Signatures   []Signature
}

func NewTransaction(nonce uint64, instructions ...Instruction) *Transaction {
	return &Transaction{Nonce: nonce, Instructions: instructions}
}

// Message returns the bytes covered by signatures.
func (t *Transaction) Message() []byte {
	buf := binary.LittleEndian.AppendUint64(nil, t.Nonce)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(t.Instructions)))
	for _, ix := range t.Instructions {
		buf = append(buf, ix.ProgramID[:]...)
		buf = binary.LittleEndian.AppendUint16(buf, uint16(len(ix.Accounts)))
		for _, m := range ix.Accounts {
			buf = append(buf, m.Address[:]...)
			var flags byte
			if m.IsSigner {
				flags |= 1
			}
			if m.IsWritable {
				flags |= 2
			}
			buf = append(buf, flags)
		}
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(ix.Data)))
		buf = append(buf, ix.Data...)
	}
	return buf
}

// Sign appends one signature per key. Instructions must not change afterwards.
func (t *Transaction) Sign(keys ...ed25519.PrivateKey) *Transaction {
	msg := t.Message()
	for _, k := range keys {
		pub := k.Public().(ed25519.PublicKey)
		t.Signatures = append(t.Signatures, Signature{
			Signer:    core.AddressFromPublicKey(pub),
			Signature: ed25519.Sign(k, msg),
		})
	}
	return t
}

// verifySignatures returns the set of addresses that signed the transaction.
// Every account flagged as a signer in any instruction must be in that set.
func (t *Transaction) verifySignatures() (map[core.Address]struct{}, error) {
	msg := t.Message()
	signers := make(map[core.Address]struct{}, len(t.Signatures))
	for _, s := range t.Signatures {
		if !ed25519.Verify(ed25519.PublicKey(s.Signer[:]), msg, s.Signature) {
			return nil, errors.Wrapf(core.MissingRequiredSignature, "bad signature of %v", s.Signer.Hex())
		}
		signers[s.Signer] = struct{}{}
	}
	for _, ix := range t.Instructions {
		for _, m := range ix.Accounts {
			if !m.IsSigner {
				continue
			}
			if _, ok := signers[m.Address]; !ok {
				return nil, errors.Wrapf(core.MissingRequiredSignature, "%v did not sign", m.Address.Hex())
			}
		}
	}
	return signers, nil
}

// referencedAccounts returns every distinct account the transaction touches.
func (t *Transaction) referencedAccounts() []core.Address {
	seen := map[core.Address]struct{}{}
	var res []core.Address
	for _, ix := range t.Instructions {
		for _, m := range ix.Accounts {
			if _, ok := seen[m.Address]; ok {
				continue
			}
			seen[m.Address] = struct{}{}
			res = append(res, m.Address)
		}
	}
	return res
}
