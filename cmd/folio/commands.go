package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/mtlprog/folio/internal/api"
	"github.com/mtlprog/folio/internal/config"
	"github.com/mtlprog/folio/internal/domain"
	"github.com/mtlprog/folio/internal/export"
	"github.com/mtlprog/folio/internal/holding"
	"github.com/mtlprog/folio/internal/rebalance"
	"github.com/mtlprog/folio/internal/worker"
)

func serveCommand(cfg config.Config) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the HTTP API",
		Action: func(c *cli.Context) error {
			ctx := c.Context
			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.close()

			if cfg.RefreshSchedule != "" {
				var hook worker.AfterRefreshHook
				if a.exports.SheetsEnabled() {
					hook = a.exports
				}
				w, err := worker.NewRefreshWorker(a.refresh, cfg.RefreshSchedule, hook)
				if err != nil {
					return err
				}
				go w.Run(ctx)
			}

			if cfg.AdminAPIKey == "" {
				slog.Warn("ADMIN_API_KEY not set, mutating endpoints are unprotected")
			}

			h := api.NewHandler(api.Deps{
				Holdings:  a.holdings,
				Portfolio: a.portfolio,
				Rebalance: a.rebalance,
				Refresher: a.refresh,
				Quotes:    a.quotes,
				Audit:     a.audit,
				Exports:   a.exports,
			})
			srv := api.NewServer(cfg.HTTPPort, h, api.Options{
				AdminAPIKey: cfg.AdminAPIKey,
				CORSOrigins: cfg.CORSOrigins,
			})

			errCh := make(chan error, 1)
			go func() {
				slog.Info("HTTP server listening", "port", cfg.HTTPPort)
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- err
				}
			}()

			select {
			case <-ctx.Done():
			case err := <-errCh:
				return fmt.Errorf("http server: %w", err)
			}
			slog.Info("shutting down")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				slog.Error("HTTP server shutdown error", "error", err)
			}

			slog.Info("shutdown complete")
			return nil
		},
	}
}

func refreshCommand(cfg config.Config) *cli.Command {
	return &cli.Command{
		Name:  "refresh",
		Usage: "refresh current values from live prices and print the report",
		Action: func(c *cli.Context) error {
			a, err := newApp(c.Context, cfg)
			if err != nil {
				return err
			}
			defer a.close()

			report, err := a.refresh.Run(c.Context)
			if report != nil {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				if encErr := enc.Encode(report); encErr != nil {
					return encErr
				}
			}
			return err
		},
	}
}

func rebalanceCommand(cfg config.Config) *cli.Command {
	return &cli.Command{
		Name:  "rebalance",
		Usage: "print rebalance recommendations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dimension",
				Aliases: []string{"d"},
				Value:   string(domain.DimensionAssetType),
				Usage:   "group by asset_type or category",
			},
		},
		Action: func(c *cli.Context) error {
			dim, err := domain.ParseDimension(c.String("dimension"))
			if err != nil {
				return err
			}

			a, err := newApp(c.Context, cfg)
			if err != nil {
				return err
			}
			defer a.close()

			res, err := a.rebalance.Plan(c.Context, dim)
			if err != nil {
				return err
			}
			return printRebalance(res)
		},
	}
}

func printRebalance(res rebalance.Result) error {
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "GROUP\tCURRENT\tCURRENT %\tTARGET %\tTARGET\tDIFFERENCE\tACTION\t")
	for _, r := range res.Recommendations {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			r.GroupKey,
			domain.FormatMoney(r.CurrentValue),
			domain.FormatPercent(r.CurrentPct),
			domain.FormatPercent(r.TargetPct),
			domain.FormatMoney(r.TargetValue),
			domain.FormatMoney(r.Difference),
			r.Action,
		)
	}
	fmt.Fprintf(tw, "TOTAL\t%s\t\t%s\t\t\t\t\n", domain.FormatMoney(res.TotalValue), domain.FormatPercent(res.TargetTotal))
	return tw.Flush()
}

func seedCommand(cfg config.Config) *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "insert the sample holdings that are not already present",
		Action: func(c *cli.Context) error {
			a, err := newApp(c.Context, cfg)
			if err != nil {
				return err
			}
			defer a.close()

			res, err := holding.Seed(c.Context, a.holdings)
			if err != nil {
				return err
			}
			slog.Info("seed complete", "inserted", res.Inserted, "skipped", res.Skipped, "targets", res.Targets)
			return nil
		},
	}
}

func exportCommand(cfg config.Config) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "write all holdings to a file or to Google Sheets",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: "csv", Usage: "csv, xlsx or sheets"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output file (default portfolio_YYYYMMDD.<format>)"},
		},
		Action: func(c *cli.Context) error {
			format := c.String("format")
			if format != "csv" && format != "xlsx" && format != "sheets" {
				return fmt.Errorf("unknown export format %q", format)
			}

			a, err := newApp(c.Context, cfg)
			if err != nil {
				return err
			}
			defer a.close()

			if format == "sheets" {
				n, err := a.exports.Sheets(c.Context)
				if err != nil {
					return err
				}
				slog.Info("export complete", "format", format, "rows", n)
				return nil
			}

			out := c.String("out")
			if out == "" {
				out = export.Filename(time.Now(), format)
			}
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("creating %s: %w", out, err)
			}

			if format == "xlsx" {
				err = a.exports.XLSX(c.Context, f)
			} else {
				err = a.exports.CSV(c.Context, f)
			}
			if closeErr := f.Close(); err == nil {
				err = closeErr
			}
			if err != nil {
				return err
			}
			slog.Info("export complete", "format", format, "file", out)
			return nil
		},
	}
}

func migrateCommand(cfg config.Config) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "apply pending database migrations and exit",
		Action: func(c *cli.Context) error {
			_, closeStore, err := openStore(c.Context, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			closeStore()
			slog.Info("migrations applied")
			return nil
		},
	}
}
