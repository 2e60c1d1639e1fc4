package i18n

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arnac-io/auctionescrow/pkg/core"
)

func TestConvertLang(t *testing.T) {
	tests := []struct {
		name string
		want string
		lang string
	}{
		{
			name: "helloWorld",
			want: "Hello world!",
			lang: "en-EN,ru;q=0.5",
		},
		{
			name: "helloWorld",
			want: "Hello world!",
			lang: "en",
		},
		{
			name: "helloWorld",
			want: "Привет, мир!",
			lang: "ru-RU,ru;q=0.5",
		},
		{
			name: "unknownName",
			want: "",
			lang: "ru-RU,ru;q=0.5",
		},
		{
			name: "helloWorld",
			want: "Hello world!",
			lang: "unknownLang", // default en
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := T(tt.lang, C{
				DefaultMessage: &M{
					ID: tt.name,
				},
			})
			require.Equal(t, tt.want, got)
		})
	}
}

func TestError(t *testing.T) {
	tests := []struct {
		name string
		lang string
		code core.ErrorCode
		want string
	}{
		{
			name: "auction error",
			lang: "en",
			code: core.CodeOf(core.InsufficientBidPrice),
			want: "The bid must be higher than the current price.",
		},
		{
			name: "auction error in russian",
			lang: "ru",
			code: core.CodeOf(core.InactiveAuction),
			want: "Аукцион уже завершён.",
		},
		{
			name: "program error",
			lang: "en",
			code: core.CodeOf(core.MissingRequiredSignature),
			want: "A required signature is missing.",
		},
		{
			name: "token error",
			lang: "en",
			code: core.ErrorCode{Kind: "token", Code: 2, Name: "MintMismatch"},
			want: "The token accounts belong to different mints.",
		},
		{
			name: "untranslated code falls back to its name",
			lang: "en",
			code: core.ErrorCode{Kind: "token", Code: 8, Name: "InvalidInstruction"},
			want: "InvalidInstruction",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Error(tt.lang, tt.code))
		})
	}
}

func TestLanguages(t *testing.T) {
	require.Len(t, Languages(), 2)
}
