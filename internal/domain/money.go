package domain

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Currency is the single currency amounts are tracked in.
const Currency = money.USD

// FormatMoney renders an amount as e.g. "$11,200.00" or "-$5.00".
func FormatMoney(amount decimal.Decimal) string {
	cur := money.GetCurrency(Currency)
	cents := amount.Shift(int32(cur.Fraction)).Round(0).IntPart()
	return money.New(cents, Currency).Display()
}

// FormatPercent renders a percentage with display precision, e.g. "12.35%".
func FormatPercent(pct decimal.Decimal) string {
	return pct.StringFixed(PercentPlaces) + "%"
}
