package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Dimension selects how holdings are grouped for allocation and rebalancing.
type Dimension string

const (
	DimensionAssetType Dimension = "asset_type"
	DimensionCategory  Dimension = "category"
)

// Uncategorized is the group key for holdings without a category.
const Uncategorized = "uncategorized"

// TargetSumTolerance is how far a complete target set may deviate from 100%.
var TargetSumTolerance = decimal.RequireFromString("0.01")

// ParseDimension validates s, defaulting to asset_type when empty.
func ParseDimension(s string) (Dimension, error) {
	switch Dimension(strings.ToLower(strings.TrimSpace(s))) {
	case "", DimensionAssetType:
		return DimensionAssetType, nil
	case DimensionCategory:
		return DimensionCategory, nil
	default:
		return "", Invalid("dimension", "unknown grouping %q, expected asset_type or category", s)
	}
}

// KeyOf returns the group key of h under d.
func (d Dimension) KeyOf(h Holding) string {
	if d == DimensionCategory {
		c := strings.TrimSpace(h.Category)
		if c == "" {
			return Uncategorized
		}
		return c
	}
	return string(h.AssetType)
}

// TargetAllocation is the desired share of the portfolio for one group.
type TargetAllocation struct {
	Dimension        Dimension       `json:"-"`
	GroupKey         string          `json:"group_key"`
	TargetPercentage decimal.Decimal `json:"target_percentage"`
}

// NewTargetAllocation validates a single target row.
func NewTargetAllocation(dim Dimension, key string, pct decimal.Decimal) (TargetAllocation, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return TargetAllocation{}, Invalid("group_key", "must not be empty")
	}
	if dim == DimensionAssetType {
		t, err := ParseAssetType(key)
		if err != nil {
			return TargetAllocation{}, Invalid("group_key", "unknown asset type %q", key)
		}
		key = string(t)
	}
	if pct.IsNegative() {
		return TargetAllocation{}, Invalid("target_percentage", "%s must not be negative", key)
	}
	if pct.GreaterThan(Hundred) {
		return TargetAllocation{}, Invalid("target_percentage", "%s must not exceed 100", key)
	}
	return TargetAllocation{Dimension: dim, GroupKey: key, TargetPercentage: pct}, nil
}

// ValidateTargets checks a target set structurally: every row valid and no duplicate keys.
// It does not require the set to sum to 100.
func ValidateTargets(dim Dimension, targets []TargetAllocation) ([]TargetAllocation, error) {
	seen := make(map[string]bool, len(targets))
	out := make([]TargetAllocation, 0, len(targets))
	for _, t := range targets {
		v, err := NewTargetAllocation(dim, t.GroupKey, t.TargetPercentage)
		if err != nil {
			return nil, err
		}
		if seen[v.GroupKey] {
			return nil, Invalid("group_key", "duplicate target for %q", v.GroupKey)
		}
		seen[v.GroupKey] = true
		out = append(out, v)
	}
	return out, nil
}

// SumTargets adds up the target percentages.
func SumTargets(targets []TargetAllocation) decimal.Decimal {
	sum := decimal.Zero
	for _, t := range targets {
		sum = sum.Add(t.TargetPercentage)
	}
	return sum
}

// CheckTargetSum rejects a target set whose total is not 100 within TargetSumTolerance.
func CheckTargetSum(targets []TargetAllocation) error {
	total := SumTargets(targets)
	if total.Sub(Hundred).Abs().GreaterThan(TargetSumTolerance) {
		return &ValidationError{
			Message: "Allocations must sum to 100% (currently " + total.StringFixed(1) + "%)",
		}
	}
	return nil
}
