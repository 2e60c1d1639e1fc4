package core

import (
	"errors"
	"fmt"
)

var ErrEntityNotFound = errors.New("entity not found")

// AuctionError is the closed set of failures raised by the escrow auction program.
// The numeric value is the caller-visible custom code.
type AuctionError uint32

const (
	InvalidCommand AuctionError = iota
	NotRentExempt
	ExpectedAmountMismatch
	AmountOverflow
	InsufficientBidPrice
	AlreadyBid
	InactiveAuction
	ActiveAuction
	NoBidderFound
)

var auctionErrorNames = [...]string{
	InvalidCommand:         "InvalidCommand",
	NotRentExempt:          "NotRentExempt",
	ExpectedAmountMismatch: "ExpectedAmountMismatch",
	AmountOverflow:         "AmountOverflow",
	InsufficientBidPrice:   "InsufficientBidPrice",
	AlreadyBid:             "AlreadyBid",
	InactiveAuction:        "InactiveAuction",
	ActiveAuction:          "ActiveAuction",
	NoBidderFound:          "NoBidderFound",
}

func (e AuctionError) Name() string {
	if int(e) < len(auctionErrorNames) {
		return auctionErrorNames[e]
	}
	return fmt.Sprintf("AuctionError(%d)", uint32(e))
}

func (e AuctionError) Error() string {
	switch e {
	case InvalidCommand:
		return "invalid command"
	case NotRentExempt:
		return "not rent exempt"
	case ExpectedAmountMismatch:
		return "expected amount mismatch"
	case AmountOverflow:
		return "amount overflow"
	case InsufficientBidPrice:
		return "insufficient bid price"
	case AlreadyBid:
		return "already bid"
	case InactiveAuction:
		return "inactive auction"
	case ActiveAuction:
		return "active auction"
	case NoBidderFound:
		return "no bidder found"
	}
	return e.Name()
}

// ProgramError is a failure reported by the ledger runtime or by any program for generic conditions.
type ProgramError uint32

const (
	InvalidArgument ProgramError = iota + 1
	InvalidAccountData
	AccountAlreadyInitialized
	UninitializedAccount
	NotEnoughAccountKeys
	MissingRequiredSignature
	IncorrectProgramID
	ReadonlyAccount
	IllegalOwner
	InsufficientFunds
	ArithmeticOverflow
	UnbalancedTransaction
	AccountNotFound
	AccountExists
)

var programErrorNames = [...]string{
	InvalidArgument:           "InvalidArgument",
	InvalidAccountData:        "InvalidAccountData",
	AccountAlreadyInitialized: "AccountAlreadyInitialized",
	UninitializedAccount:      "UninitializedAccount",
	NotEnoughAccountKeys:      "NotEnoughAccountKeys",
	MissingRequiredSignature:  "MissingRequiredSignature",
	IncorrectProgramID:        "IncorrectProgramID",
	ReadonlyAccount:           "ReadonlyAccount",
	IllegalOwner:              "IllegalOwner",
	InsufficientFunds:         "InsufficientFunds",
	ArithmeticOverflow:        "ArithmeticOverflow",
	UnbalancedTransaction:     "UnbalancedTransaction",
	AccountNotFound:           "AccountNotFound",
	AccountExists:             "AccountExists",
}

func (e ProgramError) Name() string {
	if e > 0 && int(e) < len(programErrorNames) {
		return programErrorNames[e]
	}
	return fmt.Sprintf("ProgramError(%d)", uint32(e))
}

func (e ProgramError) Error() string {
	return e.Name()
}

// ErrorCode describes an error the way it is reported to callers.
type ErrorCode struct {
	// Kind is "auction", "program" or "internal".
	Kind string
	Code uint32
	Name string
}

// CodeOf classifies err. Wrapped errors are unwrapped.
func CodeOf(err error) ErrorCode {
	var ae AuctionError
	if errors.As(err, &ae) {
		return ErrorCode{Kind: "auction", Code: uint32(ae), Name: ae.Name()}
	}
	var pe ProgramError
	if errors.As(err, &pe) {
		return ErrorCode{Kind: "program", Code: uint32(pe), Name: pe.Name()}
	}
	var coded interface{ CodeName() (uint32, string) }
	if errors.As(err, &coded) {
		code, name := coded.CodeName()
		return ErrorCode{Kind: "token", Code: code, Name: name}
	}
	return ErrorCode{Kind: "internal", Name: "Internal"}
}
