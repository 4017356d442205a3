package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// MoneyPlaces is the number of fractional digits kept for currency amounts
const MoneyPlaces = 2

// ErrSubCent is returned by ParseMoney for amounts finer than currency precision
var ErrSubCent = errors.New("amount has more than 2 decimal places")

var (
	// Epsilon is the tolerance under which a remaining debt counts as settled
	Epsilon = decimal.New(1, -MoneyPlaces)

	hundred = decimal.NewFromInt(100)
)

// RoundMoney rounds d half away from zero to currency precision
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// PercentOf returns base * pct / 100 rounded to currency precision
func PercentOf(base, pct decimal.Decimal) decimal.Decimal {
	return RoundMoney(base.Mul(pct).Div(hundred))
}

// Outstanding returns amount - paid, floored at zero
func Outstanding(amount, paid decimal.Decimal) decimal.Decimal {
	return decimal.Max(decimal.Zero, amount.Sub(paid))
}

// ParseMoney parses a decimal string at currency precision. Trailing zeros
// past the second fractional digit are accepted, any other sub-cent digit
// fails with ErrSubCent. An empty string parses as zero.
func ParseMoney(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	rounded := RoundMoney(d)
	if !d.Equal(rounded) {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrSubCent, s)
	}
	return rounded, nil
}

// FormatMoney renders d with exactly two fractional digits
func FormatMoney(d decimal.Decimal) string {
	return d.StringFixed(MoneyPlaces)
}
