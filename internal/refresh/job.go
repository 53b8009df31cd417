// Package refresh revalues tickered holdings from a quote source.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/mtlprog/folio/internal/audit"
	"github.com/mtlprog/folio/internal/domain"
	"github.com/mtlprog/folio/internal/holding"
	"github.com/mtlprog/folio/internal/quote"
)

// TickerError is a per-ticker failure in a refresh run.
type TickerError struct {
	Ticker string `json:"ticker"`
	Error  string `json:"error"`
}

// Report describes what one refresh run did to each ticker. A ticker appears in at most
// one of the three lists.
type Report struct {
	RunID   string        `json:"-"`
	Updated []string      `json:"updated"`
	Skipped []string      `json:"skipped"`
	Errors  []TickerError `json:"errors"`
}

func newReport() *Report {
	return &Report{
		RunID:   uuid.NewString(),
		Updated: []string{},
		Skipped: []string{},
		Errors:  []TickerError{},
	}
}

// Recorder receives an audit line per revalued holding.
type Recorder interface {
	Record(action, ticker, name string, fields ...audit.Field) error
}

// Job refreshes current values from a quote source.
type Job struct {
	store       holding.Store
	source      quote.Source
	audit       Recorder
	concurrency int
}

// NewJob creates a refresh Job. concurrency bounds parallel quote lookups; audit may be nil.
func NewJob(store holding.Store, source quote.Source, audit Recorder, concurrency int) *Job {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Job{store: store, source: source, audit: audit, concurrency: concurrency}
}

type outcome int

const (
	outcomeUpdated outcome = iota
	outcomeSkipped
	outcomeError
)

type tickerResult struct {
	outcome outcome
	err     error
}

// Run looks up one price per distinct ticker and rewrites current_value for every holding
// carrying it. Quote failures are recorded per ticker and never abort the run. Only a store
// failure or cancellation of ctx is returned as an error, alongside the partial report;
// on cancellation the tickers never priced are listed under Errors.
//
// Holdings without shares are tracked by total value and keep their stored value.
// Runs are serialized with every other writer through the store lock.
func (j *Job) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	report := newReport()

	j.store.Lock()
	defer j.store.Unlock()

	holdings, err := j.store.List(ctx)
	if err != nil {
		return report, fmt.Errorf("listing holdings: %w", err)
	}

	if err := j.syncCash(ctx, holdings); err != nil {
		return report, err
	}

	byTicker := lo.GroupBy(
		lo.Filter(holdings, func(h domain.Holding, _ int) bool {
			return domain.IsPriceable(h.Ticker) && h.Shares.IsPositive()
		}),
		func(h domain.Holding) string { return domain.NormalizeTicker(h.Ticker) },
	)
	tickers := lo.Keys(byTicker)
	slices.Sort(tickers)

	var (
		mu      sync.Mutex
		results = make(map[string]tickerResult, len(tickers))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.concurrency)
	for _, ticker := range tickers {
		g.Go(func() error {
			res, err := j.refreshTicker(gctx, ticker, byTicker[ticker])
			if err != nil {
				return err
			}
			mu.Lock()
			results[ticker] = res
			mu.Unlock()
			return nil
		})
	}
	runErr := g.Wait()

	for _, ticker := range tickers {
		res, ok := results[ticker]
		if !ok {
			if ctx.Err() != nil {
				report.Errors = append(report.Errors, TickerError{
					Ticker: ticker,
					Error:  fmt.Sprintf("refresh cancelled: %v", ctx.Err()),
				})
			}
			continue
		}
		switch res.outcome {
		case outcomeUpdated:
			report.Updated = append(report.Updated, ticker)
		case outcomeSkipped:
			report.Skipped = append(report.Skipped, ticker)
		case outcomeError:
			report.Errors = append(report.Errors, TickerError{Ticker: ticker, Error: res.err.Error()})
		}
	}

	if runErr == nil && ctx.Err() != nil {
		runErr = fmt.Errorf("refresh cancelled: %w", ctx.Err())
	}

	slog.Info("price refresh finished",
		"run_id", report.RunID,
		"tickers", len(tickers),
		"updated", len(report.Updated),
		"skipped", len(report.Skipped),
		"errors", len(report.Errors),
		"duration", time.Since(start),
	)

	return report, runErr
}

// refreshTicker prices one ticker and writes the new value to every holding carrying it.
// A returned error is fatal to the run; quote failures are folded into the result.
func (j *Job) refreshTicker(ctx context.Context, ticker string, holdings []domain.Holding) (tickerResult, error) {
	if err := ctx.Err(); err != nil {
		return tickerResult{}, fmt.Errorf("refresh cancelled: %w", err)
	}

	q, err := j.source.GetPrice(ctx, ticker)
	switch {
	case errors.Is(err, quote.ErrNoData):
		slog.Debug("no price data", "ticker", ticker)
		return tickerResult{outcome: outcomeSkipped}, nil
	case err != nil:
		slog.Warn("price lookup failed", "ticker", ticker, "error", err)
		return tickerResult{outcome: outcomeError, err: err}, nil
	case !q.Price.IsPositive():
		return tickerResult{outcome: outcomeSkipped}, nil
	}

	for _, h := range holdings {
		value := h.Shares.Mul(q.Price)
		if err := j.store.UpdateCurrentValue(ctx, h.ID, value); err != nil {
			return tickerResult{}, fmt.Errorf("updating %s (id %d): %w", ticker, h.ID, err)
		}
		j.record(h, q.Price, value)
	}
	return tickerResult{outcome: outcomeUpdated}, nil
}

// syncCash enforces current_value == shares for cash holdings without reporting them.
func (j *Job) syncCash(ctx context.Context, holdings []domain.Holding) error {
	for _, h := range holdings {
		if !h.IsCash() || h.CurrentValue.Equal(h.Shares) {
			continue
		}
		if err := j.store.UpdateCurrentValue(ctx, h.ID, h.Shares); err != nil {
			return fmt.Errorf("syncing cash holding %d: %w", h.ID, err)
		}
	}
	return nil
}

func (j *Job) record(h domain.Holding, price, value decimal.Decimal) {
	if j.audit == nil {
		return
	}
	err := j.audit.Record(audit.ActionPrice, domain.NormalizeTicker(h.Ticker), h.Name,
		audit.Money("price", price),
		audit.Money("old_value", h.CurrentValue),
		audit.Money("new_value", value))
	if err != nil {
		slog.Warn("failed to write audit entry", "action", audit.ActionPrice, "holding", h.Name, "error", err)
	}
}
