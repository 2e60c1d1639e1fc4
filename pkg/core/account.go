package core

// Account is a ledger account. Only the program named by Owner may change Data or debit Lamports.
type Account struct {
	Address  Address
	Lamports uint64
	Owner    Address
	Data     []byte
}

// Clone returns a deep copy of the account.
func (a Account) Clone() Account {
	c := a
	if a.Data != nil {
		c.Data = make([]byte, len(a.Data))
		copy(c.Data, a.Data)
	}
	return c
}

// Closed reports whether the account was drained and should be removed from storage.
func (a Account) Closed() bool {
	return a.Lamports == 0
}
