package api

type Limits struct {
	// BulkLimits stands for a number of entities a user is allowed to request at once with a bulk query.
	BulkLimits int
	// MaxBodyBytes caps the size of a submitted transaction.
	MaxBodyBytes    int64
	MaxInstructions int
}

func DefaultLimits() Limits {
	return Limits{
		BulkLimits:      100,
		MaxBodyBytes:    64 << 10,
		MaxInstructions: 16,
	}
}

func (lim *Limits) isBulkQuantityAllowed(quantity int) bool {
	if lim.BulkLimits <= 0 {
		return true
	}
	return quantity <= lim.BulkLimits
}

func (lim *Limits) isInstructionCountAllowed(n int) bool {
	if lim.MaxInstructions <= 0 {
		return true
	}
	return n <= lim.MaxInstructions
}
