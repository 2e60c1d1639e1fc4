package ledger

import (
	"sync/atomic"
	"time"
)

// Clock supplies the unix time observed by every instruction of a transaction.
type Clock interface {
	Now() int64
}

type SystemClock struct{}

func (SystemClock) Now() int64 {
	return time.Now().Unix()
}

// ManualClock only moves when told to.
type ManualClock struct {
	now atomic.Int64
}

func NewManualClock(now int64) *ManualClock {
	c := &ManualClock{}
	c.now.Store(now)
	return c
}

func (c *ManualClock) Now() int64 {
	return c.now.Load()
}

func (c *ManualClock) Set(now int64) {
	c.now.Store(now)
}

// Advance moves the clock forward and returns the new time.
func (c *ManualClock) Advance(d time.Duration) int64 {
	return c.now.Add(int64(d / time.Second))
}
