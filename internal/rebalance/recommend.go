// Package rebalance compares current allocation to target allocation and classifies
// an advisory action per group.
package rebalance

import (
	"slices"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/folio/internal/allocation"
	"github.com/mtlprog/folio/internal/domain"
)

// Action is an advisory trade direction.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// NoiseBand is the absolute dollar difference within which a group is left alone.
var NoiseBand = decimal.NewFromInt(1)

// Recommendation is the suggested move for one group. Percentages are rounded to display
// precision and the dollar amounts are derived from those rounded values.
type Recommendation struct {
	GroupKey     string          `json:"group_key"`
	CurrentValue decimal.Decimal `json:"current_value"`
	CurrentPct   decimal.Decimal `json:"current_pct"`
	TargetPct    decimal.Decimal `json:"target_pct"`
	TargetValue  decimal.Decimal `json:"target_value"`
	Difference   decimal.Decimal `json:"difference"`
	Action       Action          `json:"action"`
	HasTarget    bool            `json:"has_target"`
}

// Result is the full rebalance plan for one dimension.
type Result struct {
	Dimension       domain.Dimension `json:"dimension"`
	TotalValue      decimal.Decimal  `json:"total_value"`
	TargetTotal     decimal.Decimal  `json:"target_total"`
	Recommendations []Recommendation `json:"recommendations"`
}

// Classify maps a dollar difference (target minus current) to an action. Exactly
// NoiseBand in either direction holds.
func Classify(difference decimal.Decimal) Action {
	switch {
	case difference.GreaterThan(NoiseBand):
		return ActionBuy
	case difference.LessThan(NoiseBand.Neg()):
		return ActionSell
	default:
		return ActionHold
	}
}

// Recommend joins the current allocation of holdings along dim with targets. Groups held
// without a target get a 0% target; targets with no holdings get a zero current value.
// Targets are used as given and need not sum to 100. Rows of another dimension are ignored
// and a repeated key keeps its last value.
func Recommend(holdings []domain.Holding, targets []domain.TargetAllocation, dim domain.Dimension) Result {
	alloc := allocation.Aggregate(holdings, dim)

	relevant := lo.Filter(targets, func(t domain.TargetAllocation, _ int) bool {
		return t.Dimension == "" || t.Dimension == dim
	})
	targetByKey := lo.KeyBy(relevant, func(t domain.TargetAllocation) string { return t.GroupKey })

	keys := lo.Uniq(append(
		lo.Map(alloc.Groups, func(g allocation.Group, _ int) string { return g.GroupKey }),
		lo.Keys(targetByKey)...,
	))
	slices.Sort(keys)

	recs := make([]Recommendation, 0, len(keys))
	for _, key := range keys {
		current, _ := alloc.Lookup(key)
		target, hasTarget := targetByKey[key]
		recs = append(recs, recommend(alloc.TotalValue, current, target.TargetPercentage, hasTarget, key))
	}

	return Result{
		Dimension:       dim,
		TotalValue:      alloc.TotalValue,
		TargetTotal:     domain.SumTargets(lo.Values(targetByKey)),
		Recommendations: recs,
	}
}

func recommend(total decimal.Decimal, current allocation.Group, targetPct decimal.Decimal, hasTarget bool, key string) Recommendation {
	currentPct := domain.RoundPercent(current.CurrentPct)
	targetPct = domain.RoundPercent(targetPct)

	// Derived from the displayed percentages so equal percentages mean a zero difference.
	difference := domain.RoundMoney(domain.OfPercent(total, targetPct.Sub(currentPct)))

	return Recommendation{
		GroupKey:     key,
		CurrentValue: current.CurrentValue,
		CurrentPct:   currentPct,
		TargetPct:    targetPct,
		TargetValue:  domain.RoundMoney(domain.OfPercent(total, targetPct)),
		Difference:   difference,
		Action:       Classify(difference),
		HasTarget:    hasTarget,
	}
}
