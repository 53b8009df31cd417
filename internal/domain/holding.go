package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const purchaseDateLayout = "2006-01-02"

// Holding is a single tracked position.
type Holding struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Ticker       string          `json:"ticker"`
	Category     string          `json:"category"`
	AssetType    AssetType       `json:"asset_type"`
	Shares       decimal.Decimal `json:"shares"`
	CostBasis    decimal.Decimal `json:"cost_basis"`
	CurrentValue decimal.Decimal `json:"current_value"`
	PurchaseDate string          `json:"purchase_date"`
	Notes        string          `json:"notes"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// IsCash reports whether the holding is tracked by the cash sentinel.
func (h Holding) IsCash() bool {
	return IsCashTicker(h.Ticker)
}

// PricePerShare returns current_value/shares, or false when shares is zero.
func (h Holding) PricePerShare() (decimal.Decimal, bool) {
	if !h.Shares.IsPositive() {
		return decimal.Zero, false
	}
	return h.CurrentValue.Div(h.Shares), true
}

// GainLoss returns current value minus cost basis.
func (h Holding) GainLoss() decimal.Decimal {
	return h.CurrentValue.Sub(h.CostBasis)
}

// GainLossPct returns the gain relative to cost basis in percent, zero when there is no cost basis.
func (h Holding) GainLossPct() decimal.Decimal {
	return Percent(h.GainLoss(), h.CostBasis)
}

// HoldingInput carries the caller-editable fields of a holding.
type HoldingInput struct {
	Name         string
	Ticker       string
	Category     string
	AssetType    string
	Shares       decimal.Decimal
	CostBasis    decimal.Decimal
	CurrentValue decimal.Decimal
	PurchaseDate string
	Notes        string
}

// NewHolding validates in and returns a normalized Holding.
// The cash sentinel forces asset_type cash and current_value = shares.
func NewHolding(in HoldingInput) (Holding, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Holding{}, Invalid("name", "must not be empty")
	}

	ticker := NormalizeTicker(in.Ticker)

	var assetType AssetType
	if ticker == CashTicker {
		assetType = AssetTypeCash
	} else {
		t, err := ParseAssetType(in.AssetType)
		if err != nil {
			return Holding{}, err
		}
		assetType = t
	}

	if in.Shares.IsNegative() {
		return Holding{}, Invalid("shares", "must not be negative")
	}
	if in.CostBasis.IsNegative() {
		return Holding{}, Invalid("cost_basis", "must not be negative")
	}
	if in.CurrentValue.IsNegative() {
		return Holding{}, Invalid("current_value", "must not be negative")
	}

	purchaseDate := strings.TrimSpace(in.PurchaseDate)
	if purchaseDate != "" {
		if _, err := time.Parse(purchaseDateLayout, purchaseDate); err != nil {
			return Holding{}, Invalid("purchase_date", "expected YYYY-MM-DD, got %q", in.PurchaseDate)
		}
	}

	currentValue := in.CurrentValue
	if ticker == CashTicker {
		currentValue = in.Shares
	}

	return Holding{
		Name:         name,
		Ticker:       ticker,
		Category:     strings.TrimSpace(in.Category),
		AssetType:    assetType,
		Shares:       in.Shares,
		CostBasis:    in.CostBasis,
		CurrentValue: currentValue,
		PurchaseDate: purchaseDate,
		Notes:        strings.TrimSpace(in.Notes),
	}, nil
}

// Input returns the editable fields of h, the inverse of NewHolding.
func (h Holding) Input() HoldingInput {
	return HoldingInput{
		Name:         h.Name,
		Ticker:       h.Ticker,
		Category:     h.Category,
		AssetType:    string(h.AssetType),
		Shares:       h.Shares,
		CostBasis:    h.CostBasis,
		CurrentValue: h.CurrentValue,
		PurchaseDate: h.PurchaseDate,
		Notes:        h.Notes,
	}
}
