package escrow

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arnac-io/auctionescrow/pkg/core"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		want    Command
		wantErr bool
	}{
		{
			name: "open",
			data: OpenCommand{InitialPrice: 100, DurationSeconds: 3600}.Encode(),
			want: OpenCommand{InitialPrice: 100, DurationSeconds: 3600},
		},
		{
			name: "open with max values",
			data: OpenCommand{InitialPrice: math.MaxUint64, DurationSeconds: math.MaxUint64}.Encode(),
			want: OpenCommand{InitialPrice: math.MaxUint64, DurationSeconds: math.MaxUint64},
		},
		{
			name: "bid",
			data: []byte{1, 0xc8, 0, 0, 0, 0, 0, 0, 0},
			want: BidCommand{Price: 200},
		},
		{
			name: "bid with trailing bytes",
			data: []byte{1, 1, 0, 0, 0, 0, 0, 0, 0, 0xff, 0xff},
			want: BidCommand{Price: 1},
		},
		{name: "cancel", data: []byte{2}, want: CancelCommand{}},
		{name: "settle", data: []byte{3, 9}, want: SettleCommand{}},
		{name: "empty", data: nil, wantErr: true},
		{name: "unknown tag", data: []byte{4}, wantErr: true},
		{name: "short bid", data: []byte{1, 1, 2, 3}, wantErr: true},
		{name: "open without duration", data: []byte{0, 1, 0, 0, 0, 0, 0, 0, 0, 5}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.data)
			if tt.wantErr {
				require.ErrorIs(t, err, core.InvalidCommand)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestAccountsFromMetas(t *testing.T) {
	accounts := BidAccounts{
		Bidder:               core.MustParseAddress("0101010101010101010101010101010101010101010101010101010101010101"),
		HighestBidder:        core.MustParseAddress("0202020202020202020202020202020202020202020202020202020202020202"),
		HighestBidderHolding: core.MustParseAddress("0303030303030303030303030303030303030303030303030303030303030303"),
		HighestBidderRefund:  core.MustParseAddress("0404040404040404040404040404040404040404040404040404040404040404"),
		BidderHolding:        core.MustParseAddress("0505050505050505050505050505050505050505050505050505050505050505"),
		BidderPaymentSource:  core.MustParseAddress("0606060606060606060606060606060606060606060606060606060606060606"),
		Auction:              core.MustParseAddress("0707070707070707070707070707070707070707070707070707070707070707"),
		PaymentDestination:   core.MustParseAddress("0808080808080808080808080808080808080808080808080808080808080808"),
	}
	got, err := BidAccountsFromMetas(accounts.Metas())
	require.NoError(t, err)
	require.Equal(t, accounts, got)

	for _, m := range accounts.Metas()[1:4] {
		require.True(t, m.IsWritable)
	}

	first := accounts
	first.HighestBidder, first.HighestBidderHolding, first.HighestBidderRefund = core.DefaultAddress, core.DefaultAddress, core.DefaultAddress
	for _, m := range first.Metas()[1:4] {
		require.False(t, m.IsWritable)
	}
	got, err = BidAccountsFromMetas(first.Metas())
	require.NoError(t, err)
	require.Equal(t, first, got)

	_, err = BidAccountsFromMetas(accounts.Metas()[:7])
	require.ErrorIs(t, err, core.NotEnoughAccountKeys)
	_, err = SettleAccountsFromMetas(nil)
	require.ErrorIs(t, err, core.NotEnoughAccountKeys)
}
