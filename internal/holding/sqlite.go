package holding

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/folio/internal/domain"
)

const sqliteHoldingColumns = `id, name, ticker, category, asset_type, shares, cost_basis, current_value,
	purchase_date, notes, created_at, updated_at`

// SQLiteRepository implements Store with SQLite. Amounts are stored as decimal text.
type SQLiteRepository struct {
	sync.Mutex
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteRepository creates a new SQLite holding repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteHolding(row rowScanner) (domain.Holding, error) {
	var (
		h                        domain.Holding
		assetType                string
		shares, costBasis, value string
		createdAt, updatedAt     string
	)
	if err := row.Scan(&h.ID, &h.Name, &h.Ticker, &h.Category, &assetType, &shares, &costBasis,
		&value, &h.PurchaseDate, &h.Notes, &createdAt, &updatedAt); err != nil {
		return domain.Holding{}, err
	}
	h.AssetType = domain.AssetType(assetType)
	h.Shares = domain.SafeParse(shares)
	h.CostBasis = domain.SafeParse(costBasis)
	h.CurrentValue = domain.SafeParse(value)
	h.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	h.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return h, nil
}

func (r *SQLiteRepository) timestamp() string {
	return r.now().Format(time.RFC3339Nano)
}

func (r *SQLiteRepository) List(ctx context.Context) ([]domain.Holding, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sqliteHoldingColumns+` FROM holdings ORDER BY asset_type, name, id`)
	if err != nil {
		return nil, fmt.Errorf("listing holdings: %w", err)
	}
	defer rows.Close()

	holdings := []domain.Holding{}
	for rows.Next() {
		h, err := scanSQLiteHolding(rows)
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

func (r *SQLiteRepository) Get(ctx context.Context, id int64) (domain.Holding, error) {
	h, err := scanSQLiteHolding(r.db.QueryRowContext(ctx,
		`SELECT `+sqliteHoldingColumns+` FROM holdings WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Holding{}, ErrNotFound
		}
		return domain.Holding{}, fmt.Errorf("getting holding %d: %w", id, err)
	}
	return h, nil
}

func (r *SQLiteRepository) Create(ctx context.Context, h domain.Holding) (int64, error) {
	created := lo.Ternary(h.CreatedAt.IsZero(), r.timestamp(), h.CreatedAt.UTC().Format(time.RFC3339Nano))
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO holdings (name, ticker, category, asset_type, shares, cost_basis, current_value,
		                       purchase_date, notes, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		h.Name, h.Ticker, h.Category, string(h.AssetType), h.Shares.String(), h.CostBasis.String(),
		h.CurrentValue.String(), h.PurchaseDate, h.Notes, created, created)
	if err != nil {
		return 0, fmt.Errorf("creating holding %q: %w", h.Name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading new holding id: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) Update(ctx context.Context, h domain.Holding) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE holdings
		 SET name = ?, ticker = ?, category = ?, asset_type = ?, shares = ?, cost_basis = ?,
		     current_value = ?, purchase_date = ?, notes = ?, updated_at = ?
		 WHERE id = ?`,
		h.Name, h.Ticker, h.Category, string(h.AssetType), h.Shares.String(), h.CostBasis.String(),
		h.CurrentValue.String(), h.PurchaseDate, h.Notes, r.timestamp(), h.ID)
	if err != nil {
		return fmt.Errorf("updating holding %d: %w", h.ID, err)
	}
	return expectRow(res)
}

func (r *SQLiteRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM holdings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting holding %d: %w", id, err)
	}
	return expectRow(res)
}

func (r *SQLiteRepository) UpdateCurrentValue(ctx context.Context, id int64, value decimal.Decimal) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE holdings SET current_value = ?, updated_at = ? WHERE id = ?`,
		value.String(), r.timestamp(), id)
	if err != nil {
		return fmt.Errorf("updating current value of holding %d: %w", id, err)
	}
	return expectRow(res)
}

func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) ListTargets(ctx context.Context, dim domain.Dimension) ([]domain.TargetAllocation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT group_key, target_percentage FROM target_allocations
		 WHERE dimension = ? ORDER BY group_key`, string(dim))
	if err != nil {
		return nil, fmt.Errorf("listing target allocations: %w", err)
	}
	defer rows.Close()

	targets := []domain.TargetAllocation{}
	for rows.Next() {
		var key, pct string
		if err := rows.Scan(&key, &pct); err != nil {
			return nil, fmt.Errorf("scanning target allocation: %w", err)
		}
		targets = append(targets, domain.TargetAllocation{
			Dimension:        dim,
			GroupKey:         key,
			TargetPercentage: domain.SafeParse(pct),
		})
	}
	return targets, rows.Err()
}

// SaveTargets replaces the target set for dim in one transaction.
func (r *SQLiteRepository) SaveTargets(ctx context.Context, dim domain.Dimension, targets []domain.TargetAllocation) error {
	valid, err := domain.ValidateTargets(dim, targets)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting target allocation transaction: %w", err)
	}
	defer tx.Rollback()

	deleteQuery := `DELETE FROM target_allocations WHERE dimension = ?`
	args := []any{string(dim)}
	if len(valid) > 0 {
		deleteQuery += ` AND group_key NOT IN (` + strings.TrimSuffix(strings.Repeat("?,", len(valid)), ",") + `)`
		for _, t := range valid {
			args = append(args, t.GroupKey)
		}
	}
	if _, err := tx.ExecContext(ctx, deleteQuery, args...); err != nil {
		return fmt.Errorf("removing stale target allocations: %w", err)
	}

	for _, t := range valid {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO target_allocations (dimension, group_key, target_percentage)
			 VALUES (?, ?, ?)
			 ON CONFLICT (dimension, group_key) DO UPDATE SET target_percentage = excluded.target_percentage`,
			string(dim), t.GroupKey, t.TargetPercentage.String()); err != nil {
			return fmt.Errorf("saving target allocation %s: %w", t.GroupKey, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing target allocations: %w", err)
	}
	return nil
}
