package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mtlprog/folio/internal/audit"
	"github.com/mtlprog/folio/internal/config"
	"github.com/mtlprog/folio/internal/database"
	"github.com/mtlprog/folio/internal/export"
	"github.com/mtlprog/folio/internal/holding"
	"github.com/mtlprog/folio/internal/portfolio"
	"github.com/mtlprog/folio/internal/quote"
	"github.com/mtlprog/folio/internal/rebalance"
	"github.com/mtlprog/folio/internal/refresh"
)

// app wires every service over one store.
type app struct {
	audit     *audit.Log
	quotes    quote.Source
	holdings  *holding.Service
	portfolio *portfolio.Service
	rebalance *rebalance.Service
	refresh   *refresh.Job
	exports   *export.Service
	close     func()
}

// openStore connects to DATABASE_URL, applies pending migrations and returns the matching
// repository.
func openStore(ctx context.Context, databaseURL string) (holding.Store, func(), error) {
	driver := database.DriverFor(databaseURL)
	switch driver {
	case database.DriverPostgres:
		pool, err := database.Connect(ctx, databaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		if err := database.RunMigrations(ctx, pool, database.Migrations(driver)); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("running migrations: %w", err)
		}
		return holding.NewPgRepository(pool), pool.Close, nil

	default:
		db, err := database.OpenSQLite(ctx, databaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("opening sqlite: %w", err)
		}
		if err := database.RunSQLiteMigrations(ctx, db, database.Migrations(driver)); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("running migrations: %w", err)
		}
		return holding.NewSQLiteRepository(db), func() { db.Close() }, nil
	}
}

func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	store, closeStore, err := openStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	slog.Info("store ready", "driver", database.DriverFor(cfg.DatabaseURL))

	var sheets export.SheetWriter
	if cfg.SheetsEnabled() {
		w, err := export.NewSheetsWriter(ctx, cfg.SheetsSpreadsheetID, cfg.GoogleCredentialJSON)
		if err != nil {
			closeStore()
			return nil, fmt.Errorf("creating sheets writer: %w", err)
		}
		sheets = w
	}

	log := audit.NewLog(cfg.AuditLogPath)
	yahoo := quote.NewYahooClient(cfg.QuoteURL, cfg.QuoteTimeout, cfg.QuoteRetryMax, cfg.QuoteRetryBaseDelay)

	return &app{
		audit:     log,
		quotes:    quote.NewCachedSource(yahoo, cfg.QuoteCacheTTL),
		holdings:  holding.NewService(store, log),
		portfolio: portfolio.NewService(store),
		rebalance: rebalance.NewService(store),
		refresh:   refresh.NewJob(store, yahoo, log, cfg.RefreshConcurrency),
		exports:   export.NewService(store, sheets),
		close:     closeStore,
	}, nil
}
