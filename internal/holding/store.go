// Package holding stores holdings and target allocations and applies validated edits to them.
package holding

import (
	"context"
	"errors"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/folio/internal/domain"
)

// ErrNotFound indicates that the requested holding does not exist.
var ErrNotFound = errors.New("holding not found")

// Store is durable storage for holdings and target allocations.
//
// The embedded Locker serializes writers that read-modify-write holdings (edits and
// price refreshes). Store methods do not take it themselves.
type Store interface {
	sync.Locker
	List(ctx context.Context) ([]domain.Holding, error)
	Get(ctx context.Context, id int64) (domain.Holding, error)
	Create(ctx context.Context, h domain.Holding) (int64, error)
	Update(ctx context.Context, h domain.Holding) error
	Delete(ctx context.Context, id int64) error
	UpdateCurrentValue(ctx context.Context, id int64, value decimal.Decimal) error
	ListTargets(ctx context.Context, dim domain.Dimension) ([]domain.TargetAllocation, error)
	SaveTargets(ctx context.Context, dim domain.Dimension, targets []domain.TargetAllocation) error
}
