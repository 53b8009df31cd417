package domain

import "github.com/shopspring/decimal"

// PriceQuote is the result of one quote lookup.
type PriceQuote struct {
	Ticker   string          `json:"ticker"`
	Price    decimal.Decimal `json:"price"`
	Name     string          `json:"name,omitempty"`
	Category string          `json:"category,omitempty"`
}
