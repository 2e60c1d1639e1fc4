package i18n

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		name     string
		amount   uint64
		decimals uint8
		want     string
	}{
		{
			name:     "zero",
			amount:   0,
			decimals: 6,
			want:     "0",
		},
		{
			name:     "nft",
			amount:   1,
			decimals: 0,
			want:     "1",
		},
		{
			name:     "large amount",
			amount:   33000_144_000_000,
			decimals: 6,
			want:     "33 000 144",
		},
		{
			name:     "fraction",
			amount:   143_145,
			decimals: 6,
			want:     "0.143",
		},
		{
			name:     "small fraction",
			amount:   1_249_000_000,
			decimals: 9,
			want:     "1.24",
		},
		{
			name:     "max",
			amount:   math.MaxUint64,
			decimals: 0,
			want:     "18 446 744 073 709 551 615",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, FormatAmount(tt.amount, tt.decimals))
		})
	}
}

func TestFormatLamports(t *testing.T) {
	tests := []struct {
		name   string
		lang   string
		amount uint64
		want   string
	}{
		{
			name:   "rent of an auction record",
			lang:   "en",
			amount: 2_345_520,
			want:   "0.00234552",
		},
		{
			name:   "grouped",
			lang:   "en-US,en;q=0.9",
			amount: 1_234_500_000_000,
			want:   "1,234.5",
		},
		{
			name:   "whole",
			lang:   "en",
			amount: 5_000_000_000,
			want:   "5",
		},
		{
			name:   "russian separator",
			lang:   "ru",
			amount: 1_500_000_000,
			want:   "1,5",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, FormatLamports(tt.lang, tt.amount))
		})
	}
}
