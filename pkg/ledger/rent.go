package ledger

// Rent decides which balances exempt an account from storage fees.
type Rent struct {
	LamportsPerByteYear uint64
	ExemptionYears      uint64
	// AccountOverhead is the per-account storage charged on top of its data.
	AccountOverhead uint64
}

var DefaultRent = Rent{
	LamportsPerByteYear: 3480,
	ExemptionYears:      2,
	AccountOverhead:     128,
}

// MinimumBalance returns the lamports an account with dataLen bytes needs to be rent exempt.
func (r Rent) MinimumBalance(dataLen int) uint64 {
	return (uint64(dataLen) + r.AccountOverhead) * r.LamportsPerByteYear * r.ExemptionYears
}

func (r Rent) IsExempt(lamports uint64, dataLen int) bool {
	return lamports >= r.MinimumBalance(dataLen)
}
