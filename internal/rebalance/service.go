package rebalance

import (
	"context"
	"fmt"

	"github.com/mtlprog/folio/internal/domain"
)

// Source reads the inputs of a rebalance plan.
type Source interface {
	List(ctx context.Context) ([]domain.Holding, error)
	ListTargets(ctx context.Context, dim domain.Dimension) ([]domain.TargetAllocation, error)
}

// Service computes rebalance plans from stored holdings and targets. Nothing is cached;
// every call reads the current state.
type Service struct {
	source Source
}

// NewService creates a rebalance Service.
func NewService(source Source) *Service {
	return &Service{source: source}
}

// Plan returns the recommendations for dim.
func (s *Service) Plan(ctx context.Context, dim domain.Dimension) (Result, error) {
	holdings, err := s.source.List(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("listing holdings: %w", err)
	}
	targets, err := s.source.ListTargets(ctx, dim)
	if err != nil {
		return Result{}, fmt.Errorf("listing %s targets: %w", dim, err)
	}
	return Recommend(holdings, targets, dim), nil
}
