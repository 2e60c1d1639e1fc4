package token

import "fmt"

// Error is a failure of the token program.
type Error uint32

const (
	ErrOwnerMismatch Error = iota + 1
	ErrMintMismatch
	ErrNonZeroBalance
	ErrUninitializedState
	ErrAlreadyInUse
	ErrOverflow
	ErrInsufficientFunds
	ErrInvalidInstruction
)

var errorNames = [...]string{
	ErrOwnerMismatch:      "OwnerMismatch",
	ErrMintMismatch:       "MintMismatch",
	ErrNonZeroBalance:     "NonZeroBalance",
	ErrUninitializedState: "UninitializedState",
	ErrAlreadyInUse:       "AlreadyInUse",
	ErrOverflow:           "Overflow",
	ErrInsufficientFunds:  "InsufficientFunds",
	ErrInvalidInstruction: "InvalidInstruction",
}

func (e Error) Error() string {
	if e > 0 && int(e) < len(errorNames) {
		return "token: " + errorNames[e]
	}
	return fmt.Sprintf("token: error %d", uint32(e))
}

// CodeName lets core.CodeOf classify token errors.
func (e Error) CodeName() (uint32, string) {
	if e > 0 && int(e) < len(errorNames) {
		return uint32(e), errorNames[e]
	}
	return uint32(e), e.Error()
}
