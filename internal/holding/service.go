package holding

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/folio/internal/audit"
	"github.com/mtlprog/folio/internal/domain"
)

// Recorder receives an audit line per change.
type Recorder interface {
	Record(action, ticker, name string, fields ...audit.Field) error
}

// Patch is a create or partial-update request. Nil fields are left unchanged on update.
type Patch struct {
	Name         *string          `json:"name"`
	Ticker       *string          `json:"ticker"`
	Category     *string          `json:"category"`
	AssetType    *string          `json:"asset_type"`
	Shares       *decimal.Decimal `json:"shares"`
	CostBasis    *decimal.Decimal `json:"cost_basis"`
	CurrentValue *decimal.Decimal `json:"current_value"`
	PurchaseDate *string          `json:"purchase_date"`
	Notes        *string          `json:"notes"`
}

// missing lists the fields a new holding cannot be created without.
// Cash holdings derive their type and value from the share count.
func (p Patch) missing() []string {
	cash := p.Ticker != nil && domain.IsCashTicker(*p.Ticker)
	var out []string
	if p.Name == nil || strings.TrimSpace(*p.Name) == "" {
		out = append(out, "name")
	}
	if !cash && (p.AssetType == nil || strings.TrimSpace(*p.AssetType) == "") {
		out = append(out, "asset_type")
	}
	if p.CostBasis == nil {
		out = append(out, "cost_basis")
	}
	if !cash && p.CurrentValue == nil {
		out = append(out, "current_value")
	}
	return out
}

func (p Patch) apply(in domain.HoldingInput) domain.HoldingInput {
	setString(&in.Name, p.Name)
	setString(&in.Ticker, p.Ticker)
	setString(&in.Category, p.Category)
	setString(&in.AssetType, p.AssetType)
	setString(&in.PurchaseDate, p.PurchaseDate)
	setString(&in.Notes, p.Notes)
	if p.Shares != nil {
		in.Shares = *p.Shares
	}
	if p.CostBasis != nil {
		in.CostBasis = *p.CostBasis
	}
	if p.CurrentValue != nil {
		in.CurrentValue = *p.CurrentValue
	}
	return in
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

// Service applies validated holding and target allocation changes.
type Service struct {
	store Store
	audit Recorder
}

// NewService creates a holding Service. audit may be nil.
func NewService(store Store, audit Recorder) *Service {
	return &Service{store: store, audit: audit}
}

// List returns all holdings ordered by asset type then name.
func (s *Service) List(ctx context.Context) ([]domain.Holding, error) {
	return s.store.List(ctx)
}

// Get returns one holding.
func (s *Service) Get(ctx context.Context, id int64) (domain.Holding, error) {
	return s.store.Get(ctx, id)
}

// Create validates and stores a new holding, returning its id.
func (s *Service) Create(ctx context.Context, p Patch) (int64, error) {
	if missing := p.missing(); len(missing) > 0 {
		return 0, &domain.ValidationError{Message: "Missing required fields: " + strings.Join(missing, ", ")}
	}

	h, err := domain.NewHolding(p.apply(domain.HoldingInput{}))
	if err != nil {
		return 0, err
	}

	s.store.Lock()
	defer s.store.Unlock()

	id, err := s.store.Create(ctx, h)
	if err != nil {
		return 0, err
	}

	s.record(audit.ActionAdd, h,
		audit.Money("current_value", h.CurrentValue),
		audit.Money("cost_basis", h.CostBasis))
	return id, nil
}

// Update applies p to the stored holding id.
func (s *Service) Update(ctx context.Context, id int64, p Patch) (domain.Holding, error) {
	s.store.Lock()
	defer s.store.Unlock()

	existing, err := s.store.Get(ctx, id)
	if err != nil {
		return domain.Holding{}, err
	}

	h, err := domain.NewHolding(p.apply(existing.Input()))
	if err != nil {
		return domain.Holding{}, err
	}
	h.ID = existing.ID
	h.CreatedAt = existing.CreatedAt

	if err := s.store.Update(ctx, h); err != nil {
		return domain.Holding{}, err
	}

	s.record(audit.ActionEdit, h,
		audit.Money("value_change", h.CurrentValue.Sub(existing.CurrentValue)),
		audit.Money("cost_basis_change", h.CostBasis.Sub(existing.CostBasis)),
		audit.Money("current_value", h.CurrentValue),
		audit.Money("cost_basis", h.CostBasis))
	return h, nil
}

// Delete removes a holding.
func (s *Service) Delete(ctx context.Context, id int64) error {
	s.store.Lock()
	defer s.store.Unlock()

	existing, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}

	s.record(audit.ActionDelete, existing,
		audit.Money("current_value", existing.CurrentValue),
		audit.Money("cost_basis", existing.CostBasis))
	return nil
}

// Targets returns the stored target allocations for dim, as stored. The set is not
// required to sum to 100; rows written before that check existed are returned unchanged.
func (s *Service) Targets(ctx context.Context, dim domain.Dimension) ([]domain.TargetAllocation, error) {
	return s.store.ListTargets(ctx, dim)
}

// SaveTargets replaces the target set for dim. The set must be structurally valid and
// sum to 100 within domain.TargetSumTolerance; nothing is written otherwise.
func (s *Service) SaveTargets(ctx context.Context, dim domain.Dimension, targets []domain.TargetAllocation) error {
	valid, err := domain.ValidateTargets(dim, targets)
	if err != nil {
		return err
	}
	if err := domain.CheckTargetSum(valid); err != nil {
		return err
	}
	if err := s.store.SaveTargets(ctx, dim, valid); err != nil {
		return fmt.Errorf("saving %s targets: %w", dim, err)
	}
	return nil
}

func (s *Service) record(action string, h domain.Holding, fields ...audit.Field) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(action, h.Ticker, h.Name, fields...); err != nil {
		slog.Warn("failed to write audit entry", "action", action, "holding", h.Name, "error", err)
	}
}
