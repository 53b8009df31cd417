package holding

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/folio/internal/domain"
)

const pgHoldingColumns = `id, name, ticker, category, asset_type, shares, cost_basis, current_value,
	purchase_date, notes, created_at, updated_at`

// PgRepository implements Store with PostgreSQL.
type PgRepository struct {
	sync.Mutex
	pool *pgxpool.Pool
}

// NewPgRepository creates a new PostgreSQL holding repository.
func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func scanPgHolding(row pgx.Row) (domain.Holding, error) {
	var h domain.Holding
	var assetType string
	err := row.Scan(&h.ID, &h.Name, &h.Ticker, &h.Category, &assetType, &h.Shares, &h.CostBasis,
		&h.CurrentValue, &h.PurchaseDate, &h.Notes, &h.CreatedAt, &h.UpdatedAt)
	h.AssetType = domain.AssetType(assetType)
	return h, err
}

func (r *PgRepository) List(ctx context.Context) ([]domain.Holding, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+pgHoldingColumns+` FROM holdings ORDER BY asset_type, name, id`)
	if err != nil {
		return nil, fmt.Errorf("listing holdings: %w", err)
	}
	defer rows.Close()

	holdings := []domain.Holding{}
	for rows.Next() {
		h, err := scanPgHolding(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning holding: %w", err)
		}
		holdings = append(holdings, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating holdings: %w", err)
	}
	return holdings, nil
}

func (r *PgRepository) Get(ctx context.Context, id int64) (domain.Holding, error) {
	h, err := scanPgHolding(r.pool.QueryRow(ctx,
		`SELECT `+pgHoldingColumns+` FROM holdings WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Holding{}, ErrNotFound
		}
		return domain.Holding{}, fmt.Errorf("getting holding %d: %w", id, err)
	}
	return h, nil
}

func (r *PgRepository) Create(ctx context.Context, h domain.Holding) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO holdings (name, ticker, category, asset_type, shares, cost_basis, current_value,
		                       purchase_date, notes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
		 RETURNING id`,
		h.Name, h.Ticker, h.Category, string(h.AssetType), h.Shares, h.CostBasis, h.CurrentValue,
		h.PurchaseDate, h.Notes, lo.Ternary(h.CreatedAt.IsZero(), time.Now().UTC(), h.CreatedAt)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("creating holding %q: %w", h.Name, err)
	}
	return id, nil
}

func (r *PgRepository) Update(ctx context.Context, h domain.Holding) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE holdings
		 SET name = $2, ticker = $3, category = $4, asset_type = $5, shares = $6, cost_basis = $7,
		     current_value = $8, purchase_date = $9, notes = $10, updated_at = NOW()
		 WHERE id = $1`,
		h.ID, h.Name, h.Ticker, h.Category, string(h.AssetType), h.Shares, h.CostBasis, h.CurrentValue,
		h.PurchaseDate, h.Notes)
	if err != nil {
		return fmt.Errorf("updating holding %d: %w", h.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PgRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM holdings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting holding %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PgRepository) UpdateCurrentValue(ctx context.Context, id int64, value decimal.Decimal) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE holdings SET current_value = $2, updated_at = NOW() WHERE id = $1`, id, value)
	if err != nil {
		return fmt.Errorf("updating current value of holding %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PgRepository) ListTargets(ctx context.Context, dim domain.Dimension) ([]domain.TargetAllocation, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT group_key, target_percentage FROM target_allocations
		 WHERE dimension = $1 ORDER BY group_key`, string(dim))
	if err != nil {
		return nil, fmt.Errorf("listing target allocations: %w", err)
	}
	defer rows.Close()

	targets := []domain.TargetAllocation{}
	for rows.Next() {
		t := domain.TargetAllocation{Dimension: dim}
		if err := rows.Scan(&t.GroupKey, &t.TargetPercentage); err != nil {
			return nil, fmt.Errorf("scanning target allocation: %w", err)
		}
		targets = append(targets, t)
	}
	return targets, rows.Err()
}

// SaveTargets replaces the target set for dim in one transaction.
func (r *PgRepository) SaveTargets(ctx context.Context, dim domain.Dimension, targets []domain.TargetAllocation) error {
	valid, err := domain.ValidateTargets(dim, targets)
	if err != nil {
		return err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("starting target allocation transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	keys := lo.Map(valid, func(t domain.TargetAllocation, _ int) string { return t.GroupKey })
	if _, err := tx.Exec(ctx,
		`DELETE FROM target_allocations WHERE dimension = $1 AND NOT (group_key = ANY($2))`,
		string(dim), keys); err != nil {
		return fmt.Errorf("removing stale target allocations: %w", err)
	}

	for _, t := range valid {
		if _, err := tx.Exec(ctx,
			`INSERT INTO target_allocations (dimension, group_key, target_percentage)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (dimension, group_key) DO UPDATE SET target_percentage = EXCLUDED.target_percentage`,
			string(dim), t.GroupKey, t.TargetPercentage); err != nil {
			return fmt.Errorf("saving target allocation %s: %w", t.GroupKey, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing target allocations: %w", err)
	}
	return nil
}
