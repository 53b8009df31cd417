package portfolio

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/folio/internal/allocation"
	"github.com/mtlprog/folio/internal/domain"
)

// HoldingLister defines the subset of the holding store used by Service.
type HoldingLister interface {
	List(ctx context.Context) ([]domain.Holding, error)
}

// Summary is the portfolio overview.
type Summary struct {
	TotalValue  decimal.Decimal    `json:"total_value"`
	TotalCost   decimal.Decimal    `json:"total_cost"`
	GainLoss    decimal.Decimal    `json:"gain_loss"`
	GainLossPct decimal.Decimal    `json:"gain_loss_pct"`
	Count       int                `json:"count"`
	Allocation  []allocation.Group `json:"allocation"`
}

// Service builds portfolio summaries from the current holdings.
type Service struct {
	holdings HoldingLister
}

// NewService creates a new portfolio Service.
func NewService(holdings HoldingLister) *Service {
	return &Service{holdings: holdings}
}

// Summary totals the portfolio and breaks it down by asset type.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	holdings, err := s.holdings.List(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("listing holdings: %w", err)
	}
	return Summarize(holdings), nil
}

// Summarize computes a Summary. Gain/loss percentage is zero when nothing was invested.
func Summarize(holdings []domain.Holding) Summary {
	alloc := allocation.Aggregate(holdings, domain.DimensionAssetType).Rounded()
	gain := alloc.TotalValue.Sub(alloc.TotalCost)

	return Summary{
		TotalValue:  alloc.TotalValue,
		TotalCost:   alloc.TotalCost,
		GainLoss:    gain,
		GainLossPct: domain.RoundPercent(domain.Percent(gain, alloc.TotalCost)),
		Count:       len(holdings),
		Allocation:  alloc.Groups,
	}
}
