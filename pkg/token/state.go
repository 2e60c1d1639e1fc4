package token

import (
	"encoding/binary"

	"github.com/arnac-io/auctionescrow/pkg/core"
)

const (
	MintLen    = 42
	AccountLen = 73
)

// Mint describes a token: NFTs are mints with zero decimals and a supply of one.
type Mint struct {
	Initialized   bool
	Decimals      uint8
	Supply        uint64
	MintAuthority core.Address
}

func (m Mint) Pack() []byte {
	buf := make([]byte, MintLen)
	if m.Initialized {
		buf[0] = 1
	}
	buf[1] = m.Decimals
	binary.LittleEndian.PutUint64(buf[2:10], m.Supply)
	copy(buf[10:42], m.MintAuthority[:])
	return buf
}

func UnpackMint(src []byte) (Mint, error) {
	if len(src) != MintLen {
		return Mint{}, core.InvalidAccountData
	}
	var m Mint
	switch src[0] {
	case 0:
	case 1:
		m.Initialized = true
	default:
		return Mint{}, core.InvalidAccountData
	}
	m.Decimals = src[1]
	m.Supply = binary.LittleEndian.Uint64(src[2:10])
	copy(m.MintAuthority[:], src[10:42])
	return m, nil
}

// Account is a holding account: it custodies Amount units of Mint on behalf of Owner.
type Account struct {
	Initialized bool
	Mint        core.Address
	// Owner is the authority allowed to move the balance or close the account.
	Owner  core.Address
	Amount uint64
}

func (a Account) Pack() []byte {
	buf := make([]byte, AccountLen)
	if a.Initialized {
		buf[0] = 1
	}
	copy(buf[1:33], a.Mint[:])
	copy(buf[33:65], a.Owner[:])
	binary.LittleEndian.PutUint64(buf[65:73], a.Amount)
	return buf
}

func UnpackAccount(src []byte) (Account, error) {
	if len(src) != AccountLen {
		return Account{}, core.InvalidAccountData
	}
	var a Account
	switch src[0] {
	case 0:
	case 1:
		a.Initialized = true
	default:
		return Account{}, core.InvalidAccountData
	}
	copy(a.Mint[:], src[1:33])
	copy(a.Owner[:], src[33:65])
	a.Amount = binary.LittleEndian.Uint64(src[65:73])
	return a, nil
}
