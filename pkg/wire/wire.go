// Package wire holds the JSON representation of ledger objects shared by the HTTP API and its client.
package wire

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/google/uuid"

	"github.com/arnac-io/auctionescrow/pkg/core"
	"github.com/arnac-io/auctionescrow/pkg/ledger"
	"github.com/arnac-io/auctionescrow/pkg/token"
)

func wrapField(err error, key string) error {
	if err != nil {
		return errors.Wrap(err, key)
	}
	return nil
}

func encodeAddresses(e *jx.Encoder, addrs []core.Address) {
	e.ArrStart()
	for _, a := range addrs {
		e.Str(a.Hex())
	}
	e.ArrEnd()
}

func decodeAddress(d *jx.Decoder) (core.Address, error) {
	s, err := d.Str()
	if err != nil {
		return core.Address{}, err
	}
	a, err := core.ParseAddress(s)
	if err != nil {
		return core.Address{}, errors.Wrapf(err, "address %q", s)
	}
	return a, nil
}

func decodeAddresses(d *jx.Decoder) ([]core.Address, error) {
	var res []core.Address
	err := d.Arr(func(d *jx.Decoder) error {
		a, err := decodeAddress(d)
		if err != nil {
			return err
		}
		res = append(res, a)
		return nil
	})
	return res, err
}

func EncodeAccount(e *jx.Encoder, a core.Account) {
	e.ObjStart()
	e.FieldStart("address")
	e.Str(a.Address.Hex())
	e.FieldStart("lamports")
	e.UInt64(a.Lamports)
	e.FieldStart("owner")
	e.Str(a.Owner.Hex())
	e.FieldStart("data")
	e.Base64(a.Data)
	e.ObjEnd()
}

func DecodeAccount(d *jx.Decoder) (core.Account, error) {
	var a core.Account
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "address":
			a.Address, err = decodeAddress(d)
		case "lamports":
			a.Lamports, err = d.UInt64()
		case "owner":
			a.Owner, err = decodeAddress(d)
		case "data":
			a.Data, err = d.Base64()
		default:
			err = d.Skip()
		}
		return wrapField(err, key)
	})
	if err != nil {
		return core.Account{}, errors.Wrap(err, "decode account")
	}
	return a, nil
}

func encodeInstruction(e *jx.Encoder, ix ledger.Instruction) {
	e.ObjStart()
	e.FieldStart("program_id")
	e.Str(ix.ProgramID.Hex())
	e.FieldStart("accounts")
	e.ArrStart()
	for _, m := range ix.Accounts {
		e.ObjStart()
		e.FieldStart("address")
		e.Str(m.Address.Hex())
		e.FieldStart("signer")
		e.Bool(m.IsSigner)
		e.FieldStart("writable")
		e.Bool(m.IsWritable)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.FieldStart("data")
	e.Base64(ix.Data)
	e.ObjEnd()
}

func decodeMeta(d *jx.Decoder) (ledger.AccountMeta, error) {
	var m ledger.AccountMeta
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "address":
			m.Address, err = decodeAddress(d)
		case "signer":
			m.IsSigner, err = d.Bool()
		case "writable":
			m.IsWritable, err = d.Bool()
		default:
			err = d.Skip()
		}
		return wrapField(err, key)
	})
	return m, err
}

func decodeInstruction(d *jx.Decoder) (ledger.Instruction, error) {
	var ix ledger.Instruction
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "program_id":
			ix.ProgramID, err = decodeAddress(d)
		case "accounts":
			err = d.Arr(func(d *jx.Decoder) error {
				m, err := decodeMeta(d)
				if err != nil {
					return err
				}
				ix.Accounts = append(ix.Accounts, m)
				return nil
			})
		case "data":
			ix.Data, err = d.Base64()
		default:
			err = d.Skip()
		}
		return wrapField(err, key)
	})
	return ix, err
}

func EncodeTransaction(e *jx.Encoder, t *ledger.Transaction) {
	e.ObjStart()
	e.FieldStart("nonce")
	e.UInt64(t.Nonce)
	e.FieldStart("instructions")
	e.ArrStart()
	for _, ix := range t.Instructions {
		encodeInstruction(e, ix)
	}
	e.ArrEnd()
	e.FieldStart("signatures")
	e.ArrStart()
	for _, s := range t.Signatures {
		e.ObjStart()
		e.FieldStart("signer")
		e.Str(s.Signer.Hex())
		e.FieldStart("signature")
		e.Base64(s.Signature)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.ObjEnd()
}

func DecodeTransaction(d *jx.Decoder) (*ledger.Transaction, error) {
	var t ledger.Transaction
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "nonce":
			t.Nonce, err = d.UInt64()
		case "instructions":
			err = d.Arr(func(d *jx.Decoder) error {
				ix, err := decodeInstruction(d)
				if err != nil {
					return err
				}
				t.Instructions = append(t.Instructions, ix)
				return nil
			})
		case "signatures":
			err = d.Arr(func(d *jx.Decoder) error {
				var s ledger.Signature
				err := d.Obj(func(d *jx.Decoder, key string) error {
					var err error
					switch key {
					case "signer":
						s.Signer, err = decodeAddress(d)
					case "signature":
						s.Signature, err = d.Base64()
					default:
						err = d.Skip()
					}
					return err
				})
				t.Signatures = append(t.Signatures, s)
				return err
			})
		default:
			err = d.Skip()
		}
		return wrapField(err, key)
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode transaction")
	}
	return &t, nil
}

func EncodeErrorCode(e *jx.Encoder, c core.ErrorCode) {
	e.ObjStart()
	e.FieldStart("kind")
	e.Str(c.Kind)
	e.FieldStart("code")
	e.UInt32(c.Code)
	e.FieldStart("name")
	e.Str(c.Name)
	e.ObjEnd()
}

func DecodeErrorCode(d *jx.Decoder) (core.ErrorCode, error) {
	var c core.ErrorCode
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "kind":
			c.Kind, err = d.Str()
		case "code":
			c.Code, err = d.UInt32()
		case "name":
			c.Name, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	return c, err
}

// ErrorOf turns a reported code back into the typed error, so errors.Is works across the API.
func ErrorOf(c core.ErrorCode, message string) error {
	var base error
	switch c.Kind {
	case "auction":
		base = core.AuctionError(c.Code)
	case "program":
		base = core.ProgramError(c.Code)
	case "token":
		base = token.Error(c.Code)
	default:
		return errors.New(message)
	}
	if message == "" {
		return base
	}
	return &remoteError{message: message, base: base}
}

// remoteError keeps the server's message while matching the typed error.
type remoteError struct {
	message string
	base    error
}

func (e *remoteError) Error() string { return e.message }
func (e *remoteError) Unwrap() error { return e.base }

func EncodeReceipt(e *jx.Encoder, r ledger.Receipt) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(r.ID.String())
	e.FieldStart("time")
	e.Int64(r.Time)
	e.FieldStart("signers")
	encodeAddresses(e, r.Signers)
	e.FieldStart("programs")
	encodeAddresses(e, r.Programs)
	e.FieldStart("accounts")
	encodeAddresses(e, r.Accounts)
	e.FieldStart("written")
	encodeAddresses(e, r.Written)
	e.FieldStart("logs")
	e.ArrStart()
	for _, l := range r.Logs {
		e.Str(l)
	}
	e.ArrEnd()
	e.FieldStart("success")
	e.Bool(r.Success)
	if r.Err != nil {
		e.FieldStart("error")
		EncodeErrorCode(e, *r.Err)
		e.FieldStart("message")
		e.Str(r.Message)
	}
	e.ObjEnd()
}

func DecodeReceipt(d *jx.Decoder) (ledger.Receipt, error) {
	var r ledger.Receipt
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			var s string
			if s, err = d.Str(); err == nil {
				r.ID, err = uuid.Parse(s)
			}
		case "time":
			r.Time, err = d.Int64()
		case "signers":
			r.Signers, err = decodeAddresses(d)
		case "programs":
			r.Programs, err = decodeAddresses(d)
		case "accounts":
			r.Accounts, err = decodeAddresses(d)
		case "written":
			r.Written, err = decodeAddresses(d)
		case "logs":
			err = d.Arr(func(d *jx.Decoder) error {
				l, err := d.Str()
				r.Logs = append(r.Logs, l)
				return err
			})
		case "success":
			r.Success, err = d.Bool()
		case "error":
			var c core.ErrorCode
			if c, err = DecodeErrorCode(d); err == nil {
				r.Err = &c
			}
		case "message":
			r.Message, err = d.Str()
		default:
			err = d.Skip()
		}
		return wrapField(err, key)
	})
	if err != nil {
		return ledger.Receipt{}, errors.Wrap(err, "decode receipt")
	}
	return r, nil
}

// Err returns the failure recorded in a receipt, or nil.
func Err(r ledger.Receipt) error {
	if r.Success || r.Err == nil {
		return nil
	}
	return ErrorOf(*r.Err, r.Message)
}
