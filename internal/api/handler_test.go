package api

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtlprog/folio/internal/audit"
	"github.com/mtlprog/folio/internal/database"
	"github.com/mtlprog/folio/internal/domain"
	"github.com/mtlprog/folio/internal/export"
	"github.com/mtlprog/folio/internal/holding"
	"github.com/mtlprog/folio/internal/portfolio"
	"github.com/mtlprog/folio/internal/quote"
	"github.com/mtlprog/folio/internal/rebalance"
	"github.com/mtlprog/folio/internal/refresh"
)

type mockQuotes struct {
	prices map[string]string
	errs   map[string]error
}

func (m *mockQuotes) GetPrice(_ context.Context, ticker string) (domain.PriceQuote, error) {
	t := domain.NormalizeTicker(ticker)
	if err, ok := m.errs[t]; ok {
		return domain.PriceQuote{}, err
	}
	p, ok := m.prices[t]
	if !ok {
		return domain.PriceQuote{}, quote.ErrNotFound
	}
	return domain.PriceQuote{Ticker: t, Price: decimal.RequireFromString(p), Name: t + " Inc."}, nil
}

type testAPI struct {
	router http.Handler
	quotes *mockQuotes
	store  *holding.SQLiteRepository
}

func newTestAPI(t *testing.T, opts Options) *testAPI {
	t.Helper()
	ctx := context.Background()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.NewReplacer("/", "_", " ", "_").Replace(t.Name()))
	db, err := database.OpenSQLite(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.RunSQLiteMigrations(ctx, db, database.Migrations(database.DriverSQLite)))

	store := holding.NewSQLiteRepository(db)
	log := audit.NewLog(filepath.Join(t.TempDir(), "audit.log"))
	quotes := &mockQuotes{prices: map[string]string{}, errs: map[string]error{}}

	h := NewHandler(Deps{
		Holdings:  holding.NewService(store, log),
		Portfolio: portfolio.NewService(store),
		Rebalance: rebalance.NewService(store),
		Refresher: refresh.NewJob(store, quotes, log, 2),
		Quotes:    quotes,
		Audit:     log,
		Exports:   export.NewService(store, nil),
	})

	return &testAPI{router: NewRouter(h, opts), quotes: quotes, store: store}
}

func (a *testAPI) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), "body: %s", w.Body.String())
	return v
}

func (a *testAPI) create(t *testing.T, body string) int64 {
	t.Helper()
	w := a.do(t, http.MethodPost, "/api/holdings", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	resp := decodeBody[struct {
		ID      int64 `json:"id"`
		Success bool  `json:"success"`
	}](t, w)
	require.True(t, resp.Success)
	return resp.ID
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t, Options{})
	w := api.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestHoldingsCRUD(t *testing.T) {
	api := newTestAPI(t, Options{})

	id := api.create(t, `{"name":"Apple Inc.","ticker":" aapl ","asset_type":"stock","shares":50,"cost_basis":7500,"current_value":11200}`)

	w := api.do(t, http.MethodGet, "/api/holdings", "")
	require.Equal(t, http.StatusOK, w.Code)
	holdings := decodeBody[[]domain.Holding](t, w)
	require.Len(t, holdings, 1)
	assert.Equal(t, "AAPL", holdings[0].Ticker)
	assert.Contains(t, w.Body.String(), `"current_value":11200`)

	w = api.do(t, http.MethodPut, fmt.Sprintf("/api/holdings/%d", id), `{"current_value":12000}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	h, err := api.store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, h.CurrentValue.Equal(decimal.NewFromInt(12000)))
	assert.Equal(t, "Apple Inc.", h.Name, "omitted fields keep stored values")

	w = api.do(t, http.MethodDelete, fmt.Sprintf("/api/holdings/%d", id), "")
	require.Equal(t, http.StatusOK, w.Code)

	w = api.do(t, http.MethodDelete, fmt.Sprintf("/api/holdings/%d", id), "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = api.do(t, http.MethodGet, "/api/audit", "")
	require.Equal(t, http.StatusOK, w.Code)
	entries := decodeBody[[]audit.Entry](t, w)
	require.Len(t, entries, 3)
	assert.Equal(t, audit.ActionDelete, entries[0].Action)
	assert.Equal(t, audit.ActionAdd, entries[2].Action)
}

func TestCreateHoldingValidation(t *testing.T) {
	api := newTestAPI(t, Options{})

	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing fields", `{"name":"X"}`, "Missing required fields"},
		{"negative shares", `{"name":"X","asset_type":"stock","shares":-1,"cost_basis":0,"current_value":0}`, "shares"},
		{"unknown type", `{"name":"X","asset_type":"crypto","cost_basis":0,"current_value":0}`, "asset_type"},
		{"malformed json", `{"name":`, "invalid JSON"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := api.do(t, http.MethodPost, "/api/holdings", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), tt.want)
		})
	}
}

func TestUpdateHoldingInvalidID(t *testing.T) {
	api := newTestAPI(t, Options{})
	w := api.do(t, http.MethodPut, "/api/holdings/abc", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(t, http.MethodPut, "/api/holdings/999", `{"name":"X"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAllocations(t *testing.T) {
	api := newTestAPI(t, Options{})

	w := api.do(t, http.MethodGet, "/api/allocations", "")
	require.Equal(t, http.StatusOK, w.Code)
	targets := decodeBody[[]domain.TargetAllocation](t, w)
	assert.Len(t, targets, 4, "migration seeds default targets")

	w = api.do(t, http.MethodPut, "/api/allocations", `[{"group_key":"stock","target_percentage":70},{"group_key":"bond","target_percentage":20}]`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Allocations must sum to 100% (currently 90.0%)")

	w = api.do(t, http.MethodPut, "/api/allocations", `[{"group_key":"stock","target_percentage":70},{"group_key":"bond","target_percentage":30}]`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = api.do(t, http.MethodGet, "/api/allocations?dimension=asset_type", "")
	targets = decodeBody[[]domain.TargetAllocation](t, w)
	assert.Len(t, targets, 2)

	w = api.do(t, http.MethodPut, "/api/allocations?dimension=category", `[{"group_key":"Tech","target_percentage":100}]`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = api.do(t, http.MethodGet, "/api/allocations?dimension=category", "")
	assert.JSONEq(t, `[{"group_key":"Tech","target_percentage":100}]`, w.Body.String())

	w = api.do(t, http.MethodGet, "/api/allocations?dimension=sector", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRebalance(t *testing.T) {
	api := newTestAPI(t, Options{})
	api.create(t, `{"name":"Stocks","asset_type":"stock","cost_basis":0,"current_value":7000}`)
	api.create(t, `{"name":"Bonds","asset_type":"bond","cost_basis":0,"current_value":3000}`)

	w := api.do(t, http.MethodGet, "/api/rebalance", "")
	require.Equal(t, http.StatusOK, w.Code)

	res := decodeBody[struct {
		TotalValue      float64 `json:"total_value"`
		Recommendations []struct {
			GroupKey   string  `json:"group_key"`
			Difference float64 `json:"difference"`
			Action     string  `json:"action"`
		} `json:"recommendations"`
	}](t, w)

	assert.Equal(t, 10000.0, res.TotalValue)
	actions := map[string]string{}
	for _, r := range res.Recommendations {
		actions[r.GroupKey] = r.Action
	}
	assert.Equal(t, map[string]string{"bond": "HOLD", "etf": "BUY", "mutual_fund": "BUY", "stock": "SELL"}, actions)
}

func TestSummary(t *testing.T) {
	api := newTestAPI(t, Options{})
	api.create(t, `{"name":"Stocks","asset_type":"stock","cost_basis":5000,"current_value":7000}`)

	w := api.do(t, http.MethodGet, "/api/portfolio/summary", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"gain_loss":2000`)
	assert.Contains(t, w.Body.String(), `"gain_loss_pct":40`)
}

func TestRefreshPrices(t *testing.T) {
	api := newTestAPI(t, Options{})
	api.create(t, `{"name":"Apple","ticker":"AAPL","asset_type":"stock","shares":10,"cost_basis":0,"current_value":0}`)
	api.create(t, `{"name":"Gone","ticker":"GONE","asset_type":"stock","shares":1,"cost_basis":0,"current_value":5}`)
	api.create(t, `{"name":"Flaky","ticker":"FLKY","asset_type":"stock","shares":1,"cost_basis":0,"current_value":5}`)
	api.create(t, `{"name":"Cash","ticker":"$$CASH","shares":4200,"cost_basis":4200}`)
	api.quotes.prices["AAPL"] = "190"
	api.quotes.errs["FLKY"] = fmt.Errorf("%w: HTTP 503", quote.ErrUnavailable)

	w := api.do(t, http.MethodPost, "/api/prices/refresh", "")
	require.Equal(t, http.StatusOK, w.Code)

	var report refresh.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, []string{"AAPL"}, report.Updated)
	assert.Equal(t, []string{"GONE"}, report.Skipped)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "FLKY", report.Errors[0].Ticker)
	assert.NotContains(t, w.Body.String(), "run_id")
}

type slowRefresher struct {
	deadline bool
}

func (s *slowRefresher) Run(ctx context.Context) (*refresh.Report, error) {
	_, s.deadline = ctx.Deadline()
	<-ctx.Done()
	return &refresh.Report{
		Updated: []string{"AAPL"},
		Skipped: []string{},
		Errors:  []refresh.TickerError{{Ticker: "VTI", Error: "refresh cancelled: " + ctx.Err().Error()}},
	}, fmt.Errorf("refresh cancelled: %w", ctx.Err())
}

func TestRefreshPricesDeadline(t *testing.T) {
	slow := &slowRefresher{}
	h := NewHandler(Deps{Refresher: slow, RefreshTimeout: 20 * time.Millisecond})

	w := httptest.NewRecorder()
	h.RefreshPrices(w, httptest.NewRequest(http.MethodPost, "/api/prices/refresh", nil))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, slow.deadline)

	var report refresh.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, []string{"AAPL"}, report.Updated)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "VTI", report.Errors[0].Ticker)
}

func TestNewHandlerRefreshTimeout(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want time.Duration
	}{
		{0, DefaultRefreshTimeout},
		{-time.Second, DefaultRefreshTimeout},
		{WriteTimeout, DefaultRefreshTimeout},
		{30 * time.Second, 30 * time.Second},
	}
	for _, tt := range tests {
		if got := NewHandler(Deps{RefreshTimeout: tt.in}).refreshTimeout; got != tt.want {
			t.Errorf("refreshTimeout(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
	assert.Less(t, DefaultRefreshTimeout, WriteTimeout)
}

func TestGetQuote(t *testing.T) {
	api := newTestAPI(t, Options{})
	api.quotes.prices["VTI"] = "250.5"
	api.quotes.errs["DOWN"] = quote.ErrUnavailable

	w := api.do(t, http.MethodGet, "/api/quote/vti", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ticker":"VTI","price":250.5,"name":"VTI Inc."}`, w.Body.String())

	w = api.do(t, http.MethodGet, "/api/quote/NOPE", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = api.do(t, http.MethodGet, "/api/quote/DOWN", "")
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestExportCSV(t *testing.T) {
	api := newTestAPI(t, Options{})
	api.create(t, `{"name":"Apple","ticker":"AAPL","asset_type":"stock","shares":10,"cost_basis":1000,"current_value":1500}`)

	w := api.do(t, http.MethodGet, "/api/export/csv", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Regexp(t, `attachment; filename="portfolio_\d{8}\.csv"`, w.Header().Get("Content-Disposition"))

	records, err := csv.NewReader(w.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, export.Header, records[0])
	assert.Equal(t, "50.00", records[1][7])
}

func TestExportXLSX(t *testing.T) {
	api := newTestAPI(t, Options{})
	w := api.do(t, http.MethodGet, "/api/export/xlsx", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Regexp(t, `portfolio_\d{8}\.xlsx`, w.Header().Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "PK"), "xlsx is a zip archive")
}

func TestExportSheetsDisabled(t *testing.T) {
	api := newTestAPI(t, Options{})
	w := api.do(t, http.MethodPost, "/api/export/sheets", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestMutatingRoutesRequireKey(t *testing.T) {
	api := newTestAPI(t, Options{AdminAPIKey: "secret"})

	w := api.do(t, http.MethodPost, "/api/prices/refresh", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = api.do(t, http.MethodGet, "/api/holdings", "")
	assert.Equal(t, http.StatusOK, w.Code, "reads stay open")

	req := httptest.NewRequest(http.MethodPost, "/api/prices/refresh", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec := httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
