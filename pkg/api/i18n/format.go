package i18n

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// LamportDecimals is the number of decimals of the native currency.
const LamportDecimals = 9

// FormatAmount translates a token amount in indivisible units into a user-friendly form
// taking into account decimals according to the scheme (# ### or #.##).
func FormatAmount(amount uint64, decimals uint8) string {
	x := decimal.NewFromBigInt(new(big.Int).SetUint64(amount), -int32(decimals))
	x = truncate(x, 3)
	intPart := x.BigInt().String()
	if x.Equal(x.Truncate(0)) {
		return groupDigits(intPart)
	}
	parts := strings.Split(x.String(), ".")
	if len(parts) != 2 {
		return groupDigits(intPart)
	}
	return fmt.Sprintf("%s.%s", groupDigits(intPart), parts[1])
}

// FormatLamports formats a native balance according to the given locale (#,###.##).
func FormatLamports(lang string, amount uint64) string {
	tag, _ := language.MatchStrings(language.NewMatcher(Languages()), lang)
	p := message.NewPrinter(tag)
	x := decimal.NewFromBigInt(new(big.Int).SetUint64(amount), -LamportDecimals)
	intPart := p.Sprintf("%v", x.IntPart())
	if x.Equal(x.Truncate(0)) {
		return intPart
	}
	parts := strings.Split(x.String(), ".")
	if len(parts) != 2 {
		return intPart
	}
	return intPart + string(decimalSeparator(tag)) + parts[1]
}

func decimalSeparator(tag language.Tag) rune {
	base, _ := tag.Base()
	if base.String() == "ru" {
		return ','
	}
	return '.'
}

// truncate keeps n significant digits of the fractional part of small values
// and drops the fractional part of values with at least n integer digits.
func truncate(d decimal.Decimal, n int32) decimal.Decimal {
	if n <= 0 {
		return d.Truncate(n)
	}
	if d.IsZero() {
		return decimal.Zero
	}
	dn := decimal.New(1, n-1)
	if d.Abs().GreaterThanOrEqual(dn) {
		return d.Truncate(0)
	}
	for i := int32(0); i < 32; i++ {
		if d.Abs().Shift(i).GreaterThanOrEqual(dn) {
			return d.Truncate(i)
		}
	}
	return d
}

func groupDigits(s string) string {
	length := len(s)
	if length <= 3 {
		return s
	}
	var result []string
	for length > 3 {
		result = append([]string{s[length-3:]}, result...)
		length -= 3
	}
	result = append([]string{s[:length]}, result...)
	return strings.Join(result, " ")
}
