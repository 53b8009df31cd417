package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/mtlprog/folio/internal/refresh"
)

// Refresher runs one price refresh.
type Refresher interface {
	Run(ctx context.Context) (*refresh.Report, error)
}

// AfterRefreshHook is called after each scheduled refresh that did not fail outright.
type AfterRefreshHook interface {
	Sheets(ctx context.Context) (int, error)
}

// RefreshWorker runs price refreshes on a cron schedule.
type RefreshWorker struct {
	refresher Refresher
	schedule  cron.Schedule
	expr      string
	hook      AfterRefreshHook // optional
}

// NewRefreshWorker creates a RefreshWorker. expr is a five-field cron expression or a
// descriptor such as "@every 15m" or "@daily".
func NewRefreshWorker(refresher Refresher, expr string, hook AfterRefreshHook) (*RefreshWorker, error) {
	schedule, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("parsing refresh schedule %q: %w", expr, err)
	}
	return &RefreshWorker{
		refresher: refresher,
		schedule:  schedule,
		expr:      expr,
		hook:      hook,
	}, nil
}

// runOnce performs one refresh and the optional hook.
func (w *RefreshWorker) runOnce(ctx context.Context) {
	report, err := w.refresher.Run(ctx)
	if err != nil {
		slog.Error("RefreshWorker: refresh failed", "error", err)
		return
	}
	slog.Info("RefreshWorker: refresh completed",
		"run_id", report.RunID,
		"updated", len(report.Updated),
		"skipped", len(report.Skipped),
		"errors", len(report.Errors),
	)

	if w.hook == nil {
		return
	}
	if n, err := w.hook.Sheets(ctx); err != nil {
		slog.Error("RefreshWorker: export hook failed", "error", err)
	} else {
		slog.Info("RefreshWorker: export hook completed", "rows", n)
	}
}

// Run starts the scheduler. It blocks until the context is cancelled, then waits for a
// refresh in progress to finish. Overlapping ticks are skipped.
func (w *RefreshWorker) Run(ctx context.Context) {
	slog.Info("RefreshWorker: starting", "schedule", w.expr)

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	c.Schedule(w.schedule, cron.FuncJob(func() { w.runOnce(ctx) }))
	c.Start()

	<-ctx.Done()
	slog.Info("RefreshWorker: shutting down")
	<-c.Stop().Done()
}
