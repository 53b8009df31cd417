package holding

import (
	"context"
	"testing"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtlprog/folio/internal/audit"
	"github.com/mtlprog/folio/internal/domain"
)

type recordedEntry struct {
	action, ticker, name string
	fields               map[string]string
}

type fakeRecorder struct {
	entries []recordedEntry
}

func (f *fakeRecorder) Record(action, ticker, name string, fields ...audit.Field) error {
	e := recordedEntry{action: action, ticker: ticker, name: name, fields: map[string]string{}}
	for _, fl := range fields {
		e.fields[fl.Key] = fl.Value
	}
	f.entries = append(f.entries, e)
	return nil
}

func decPtr(s string) *decimal.Decimal {
	return lo.ToPtr(decimal.RequireFromString(s))
}

func TestServiceCreateMissingFields(t *testing.T) {
	svc := NewService(newTestStore(t), nil)

	_, err := svc.Create(context.Background(), Patch{Name: lo.ToPtr("X")})
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
	assert.Equal(t, "Missing required fields: asset_type, cost_basis, current_value", err.Error())
}

func TestServiceCreateNormalizesAndAudits(t *testing.T) {
	ctx := context.Background()
	rec := &fakeRecorder{}
	svc := NewService(newTestStore(t), rec)

	id, err := svc.Create(ctx, Patch{
		Name:         lo.ToPtr(" Apple Inc. "),
		Ticker:       lo.ToPtr("aapl"),
		AssetType:    lo.ToPtr("stock"),
		Shares:       decPtr("50"),
		CostBasis:    decPtr("7500"),
		CurrentValue: decPtr("11200"),
	})
	require.NoError(t, err)

	h, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "AAPL", h.Ticker)
	assert.Equal(t, "Apple Inc.", h.Name)

	require.Len(t, rec.entries, 1)
	assert.Equal(t, audit.ActionAdd, rec.entries[0].action)
	assert.Equal(t, "AAPL", rec.entries[0].ticker)
	assert.Equal(t, "$11,200.00", rec.entries[0].fields["current_value"])
	assert.Equal(t, "$7,500.00", rec.entries[0].fields["cost_basis"])
}

func TestServiceCreateCashNeedsNoTypeOrValue(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newTestStore(t), nil)

	id, err := svc.Create(ctx, Patch{
		Name:      lo.ToPtr("Cash"),
		Ticker:    lo.ToPtr("$$CASH"),
		Shares:    decPtr("4200"),
		CostBasis: decPtr("4200"),
	})
	require.NoError(t, err)

	h, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.AssetTypeCash, h.AssetType)
	assert.True(t, h.CurrentValue.Equal(decimal.NewFromInt(4200)))
}

func TestServiceCreateRejectsNegativeShares(t *testing.T) {
	svc := NewService(newTestStore(t), nil)

	_, err := svc.Create(context.Background(), Patch{
		Name:         lo.ToPtr("X"),
		AssetType:    lo.ToPtr("stock"),
		Shares:       decPtr("-1"),
		CostBasis:    decPtr("0"),
		CurrentValue: decPtr("0"),
	})
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))

	list, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestServiceUpdatePartial(t *testing.T) {
	ctx := context.Background()
	rec := &fakeRecorder{}
	svc := NewService(newTestStore(t), rec)

	id, err := svc.Create(ctx, Patch{
		Name: lo.ToPtr("Vanguard S&P 500"), Ticker: lo.ToPtr("VOO"), AssetType: lo.ToPtr("etf"),
		Shares: decPtr("40"), CostBasis: decPtr("12000"), CurrentValue: decPtr("15600"),
	})
	require.NoError(t, err)

	h, err := svc.Update(ctx, id, Patch{CurrentValue: decPtr("16000"), Category: lo.ToPtr("US equity")})
	require.NoError(t, err)
	assert.Equal(t, "VOO", h.Ticker)
	assert.Equal(t, "US equity", h.Category)
	assert.True(t, h.Shares.Equal(decimal.NewFromInt(40)))
	assert.True(t, h.CurrentValue.Equal(decimal.NewFromInt(16000)))

	require.Len(t, rec.entries, 2)
	edit := rec.entries[1]
	assert.Equal(t, audit.ActionEdit, edit.action)
	assert.Equal(t, "$400.00", edit.fields["value_change"])
	assert.Equal(t, "$0.00", edit.fields["cost_basis_change"])
}

func TestServiceUpdateNotFound(t *testing.T) {
	svc := NewService(newTestStore(t), nil)
	_, err := svc.Update(context.Background(), 999, Patch{Name: lo.ToPtr("x")})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestServiceDeleteAudits(t *testing.T) {
	ctx := context.Background()
	rec := &fakeRecorder{}
	svc := NewService(newTestStore(t), rec)

	id, err := svc.Create(ctx, Patch{
		Name: lo.ToPtr("US I Bond"), AssetType: lo.ToPtr("bond"),
		CostBasis: decPtr("10000"), CurrentValue: decPtr("11350"),
	})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, id))
	assert.ErrorIs(t, svc.Delete(ctx, id), ErrNotFound)

	require.Len(t, rec.entries, 2)
	assert.Equal(t, audit.ActionDelete, rec.entries[1].action)
	assert.Equal(t, "", rec.entries[1].ticker)
}

func TestServiceSaveTargetsRequiresSum(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newTestStore(t), nil)

	err := svc.SaveTargets(ctx, domain.DimensionCategory, []domain.TargetAllocation{
		{GroupKey: "Tech", TargetPercentage: decimal.NewFromInt(50)},
		{GroupKey: "Healthcare", TargetPercentage: decimal.NewFromInt(40)},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "currently 90.0%")

	require.NoError(t, svc.SaveTargets(ctx, domain.DimensionCategory, []domain.TargetAllocation{
		{GroupKey: "Tech", TargetPercentage: decimal.RequireFromString("50.005")},
		{GroupKey: "Healthcare", TargetPercentage: decimal.NewFromInt(50)},
	}))

	got, err := svc.Targets(ctx, domain.DimensionCategory)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestSeedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newTestStore(t), nil)

	first, err := Seed(ctx, svc)
	require.NoError(t, err)
	assert.Equal(t, len(samples), first.Inserted)
	assert.False(t, first.Targets, "migration already stores default targets")

	second, err := Seed(ctx, svc)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Inserted)
	assert.Equal(t, len(samples), second.Skipped)
}
