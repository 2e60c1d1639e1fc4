package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arnac-io/auctionescrow/pkg/core"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	_, a := testKey(1)
	_, b := testKey(2)
	s := NewMemoryStore(core.Account{Address: a, Lamports: 5, Data: []byte{1}})

	got, err := s.Get(ctx, a)
	require.NoError(t, err)
	got.Data[0] = 9
	again, err := s.Get(ctx, a)
	require.NoError(t, err)
	require.Equal(t, []byte{1}, again.Data)

	_, err = s.Get(ctx, b)
	require.ErrorIs(t, err, core.ErrEntityNotFound)

	require.NoError(t, s.Apply(ctx, []core.Account{
		{Address: a, Lamports: 0},
		{Address: b, Lamports: 3},
	}))
	_, err = s.Get(ctx, a)
	require.ErrorIs(t, err, core.ErrEntityNotFound)

	all, err := s.Accounts(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, b, all[0].Address)
}

func TestRent(t *testing.T) {
	require.Equal(t, uint64(2_345_520), DefaultRent.MinimumBalance(core.AuctionLen))
	require.True(t, DefaultRent.IsExempt(2_345_520, core.AuctionLen))
	require.False(t, DefaultRent.IsExempt(2_345_519, core.AuctionLen))
}

func TestManualClock(t *testing.T) {
	c := NewManualClock(10)
	require.Equal(t, int64(10), c.Now())
	require.Equal(t, int64(70), c.Advance(time.Minute))
	c.Set(5)
	require.Equal(t, int64(5), c.Now())
}
