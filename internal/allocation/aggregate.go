// Package allocation partitions holdings into groups and computes each group's share of the portfolio.
package allocation

import (
	"slices"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/folio/internal/domain"
)

// Group is one partition of the portfolio. CurrentPct is full precision.
type Group struct {
	GroupKey     string          `json:"group_key"`
	Count        int             `json:"count"`
	CurrentValue decimal.Decimal `json:"current_value"`
	CostBasis    decimal.Decimal `json:"cost_basis"`
	CurrentPct   decimal.Decimal `json:"current_pct"`
}

// Allocation is the portfolio partitioned along one dimension.
type Allocation struct {
	Dimension  domain.Dimension `json:"dimension"`
	TotalValue decimal.Decimal  `json:"total_value"`
	TotalCost  decimal.Decimal  `json:"total_cost"`
	Groups     []Group          `json:"groups"`
}

// Aggregate groups holdings by dim. Groups are sorted by key and every holding lands in
// exactly one of them; holdings without a category fall under domain.Uncategorized.
// When the portfolio is worth nothing every percentage is zero.
func Aggregate(holdings []domain.Holding, dim domain.Dimension) Allocation {
	byKey := lo.GroupBy(holdings, dim.KeyOf)
	keys := lo.Keys(byKey)
	slices.Sort(keys)

	total := sumValue(holdings)
	groups := make([]Group, 0, len(keys))
	for _, key := range keys {
		members := byKey[key]
		value := sumValue(members)
		groups = append(groups, Group{
			GroupKey:     key,
			Count:        len(members),
			CurrentValue: value,
			CostBasis:    sumCost(members),
			CurrentPct:   domain.Percent(value, total),
		})
	}

	return Allocation{
		Dimension:  dim,
		TotalValue: total,
		TotalCost:  sumCost(holdings),
		Groups:     groups,
	}
}

// Lookup returns the group for key, if any holdings fall under it.
func (a Allocation) Lookup(key string) (Group, bool) {
	return lo.Find(a.Groups, func(g Group) bool { return g.GroupKey == key })
}

// Rounded returns a copy with percentages rounded for display.
func (a Allocation) Rounded() Allocation {
	a.Groups = lo.Map(a.Groups, func(g Group, _ int) Group {
		g.CurrentPct = domain.RoundPercent(g.CurrentPct)
		return g
	})
	return a
}

func sumValue(holdings []domain.Holding) decimal.Decimal {
	return lo.Reduce(holdings, func(acc decimal.Decimal, h domain.Holding, _ int) decimal.Decimal {
		return acc.Add(h.CurrentValue)
	}, decimal.Zero)
}

func sumCost(holdings []domain.Holding) decimal.Decimal {
	return lo.Reduce(holdings, func(acc decimal.Decimal, h domain.Holding, _ int) decimal.Decimal {
		return acc.Add(h.CostBasis)
	}, decimal.Zero)
}
