// Package export writes the holdings table to CSV, XLSX and Google Sheets.
package export

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/samber/lo"

	"github.com/mtlprog/folio/internal/domain"
)

// Header is the column set of every export.
var Header = []string{
	"Name", "Ticker", "Asset Type", "Shares",
	"Cost Basis ($)", "Current Value ($)",
	"Gain/Loss ($)", "Gain/Loss (%)",
	"Purchase Date", "Notes",
}

// Row is one exported holding with amounts fixed to cents.
type Row struct {
	Name         string
	Ticker       string
	AssetType    string
	Shares       string
	CostBasis    string
	CurrentValue string
	GainLoss     string
	GainLossPct  string
	PurchaseDate string
	Notes        string
}

// Strings returns the row in Header order.
func (r Row) Strings() []string {
	return []string{
		r.Name, r.Ticker, r.AssetType, r.Shares,
		r.CostBasis, r.CurrentValue, r.GainLoss, r.GainLossPct,
		r.PurchaseDate, r.Notes,
	}
}

// Rows converts holdings to export rows, keeping their order.
func Rows(holdings []domain.Holding) []Row {
	return lo.Map(holdings, func(h domain.Holding, _ int) Row {
		return Row{
			Name:         h.Name,
			Ticker:       h.Ticker,
			AssetType:    h.AssetType.Label(),
			Shares:       h.Shares.String(),
			CostBasis:    h.CostBasis.StringFixed(domain.MoneyPlaces),
			CurrentValue: h.CurrentValue.StringFixed(domain.MoneyPlaces),
			GainLoss:     h.GainLoss().StringFixed(domain.MoneyPlaces),
			GainLossPct:  h.GainLossPct().StringFixed(domain.PercentPlaces),
			PurchaseDate: h.PurchaseDate,
			Notes:        h.Notes,
		}
	})
}

// Filename returns the download name for an export made at t, e.g. portfolio_20240301.csv.
func Filename(t time.Time, ext string) string {
	return fmt.Sprintf("portfolio_%s.%s", t.Format("20060102"), ext)
}

// HoldingLister defines the subset of the holding store used by Service.
type HoldingLister interface {
	List(ctx context.Context) ([]domain.Holding, error)
}

// SheetWriter writes export rows to a spreadsheet destination.
type SheetWriter interface {
	Write(ctx context.Context, rows []Row) error
}

// Service reads the current holdings and delegates to a format writer.
type Service struct {
	holdings HoldingLister
	writer   SheetWriter
}

// NewService creates a new export Service. writer may be nil when Sheets export is not configured.
func NewService(holdings HoldingLister, writer SheetWriter) *Service {
	return &Service{holdings: holdings, writer: writer}
}

// SheetsEnabled reports whether a SheetWriter is configured.
func (s *Service) SheetsEnabled() bool {
	return s.writer != nil
}

func (s *Service) rows(ctx context.Context) ([]Row, error) {
	holdings, err := s.holdings.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing holdings: %w", err)
	}
	return Rows(holdings), nil
}

// CSV writes all holdings as CSV to w.
func (s *Service) CSV(ctx context.Context, w io.Writer) error {
	rows, err := s.rows(ctx)
	if err != nil {
		return err
	}
	return WriteCSV(w, rows)
}

// XLSX writes all holdings as an Excel workbook to w.
func (s *Service) XLSX(ctx context.Context, w io.Writer) error {
	rows, err := s.rows(ctx)
	if err != nil {
		return err
	}
	return WriteXLSX(w, rows)
}

// Sheets rewrites the configured spreadsheet with all holdings.
func (s *Service) Sheets(ctx context.Context) (int, error) {
	if s.writer == nil {
		return 0, ErrSheetsDisabled
	}
	rows, err := s.rows(ctx)
	if err != nil {
		return 0, err
	}
	if err := s.writer.Write(ctx, rows); err != nil {
		return 0, fmt.Errorf("writing sheets: %w", err)
	}
	slog.Info("holdings exported to sheets", "rows", len(rows))
	return len(rows), nil
}
