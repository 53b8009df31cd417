package domain

import (
	"github.com/shopspring/decimal"
)

// PercentPlaces is the precision percentages are displayed with.
const PercentPlaces = 2

// MoneyPlaces is the precision dollar amounts are displayed with.
const MoneyPlaces = 2

// Hundred is 100 as a decimal.
var Hundred = decimal.NewFromInt(100)

func init() {
	// Amounts go out as JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// SafeParse parses a string into a decimal, returning zero for invalid or empty input.
func SafeParse(value string) decimal.Decimal {
	if value == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Percent returns 100*part/total, or zero when total is zero.
func Percent(part, total decimal.Decimal) decimal.Decimal {
	if total.IsZero() {
		return decimal.Zero
	}
	return part.Mul(Hundred).Div(total)
}

// OfPercent returns total*pct/100.
func OfPercent(total, pct decimal.Decimal) decimal.Decimal {
	return total.Mul(pct).Div(Hundred)
}

// RoundPercent rounds a percentage to display precision.
func RoundPercent(pct decimal.Decimal) decimal.Decimal {
	return pct.Round(PercentPlaces)
}

// RoundMoney rounds an amount to cents.
func RoundMoney(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(MoneyPlaces)
}
