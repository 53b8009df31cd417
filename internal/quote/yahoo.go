package quote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/folio/internal/domain"
)

// instrumentCategories maps Yahoo instrument types to holding categories.
var instrumentCategories = map[string]string{
	"EQUITY":      "stock",
	"ETF":         "etf",
	"MUTUALFUND":  "mutual_fund",
	"BOND":        "bond",
	"MONEYMARKET": "cash",
}

// DefaultTimeout bounds GetPrice when the client is built without a positive timeout.
const DefaultTimeout = 10 * time.Second

// YahooClient fetches prices from the Yahoo Finance chart API.
type YahooClient struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	maxRetries int
	baseDelay  time.Duration
}

// NewYahooClient creates a new Yahoo Finance client. timeout bounds each GetPrice call
// including retries; a non-positive timeout falls back to DefaultTimeout.
func NewYahooClient(baseURL string, timeout time.Duration, maxRetries int, baseDelay time.Duration) *YahooClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &YahooClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		timeout:    timeout,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
	}
}

// GetPrice returns the latest regular-market price for ticker.
func (c *YahooClient) GetPrice(ctx context.Context, ticker string) (domain.PriceQuote, error) {
	symbol, err := ValidateTicker(ticker)
	if err != nil {
		return domain.PriceQuote{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=1d", c.baseURL, url.PathEscape(symbol))
	body, err := c.get(ctx, endpoint)
	if err != nil {
		return domain.PriceQuote{}, fmt.Errorf("%s: %w", symbol, err)
	}

	q, err := parseChart(body)
	if err != nil {
		return domain.PriceQuote{}, fmt.Errorf("%s: %w", symbol, err)
	}
	q.Ticker = symbol
	return q, nil
}

// get performs a GET request with retry on 429 and 5xx.
func (c *YahooClient) get(ctx context.Context, endpoint string) ([]byte, error) {
	var lastErr error
	for attempt := range c.maxRetries + 1 {
		if attempt > 0 {
			delay := c.baseDelay * time.Duration(1<<uint(attempt-1))
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %w", ErrUnavailable, ctx.Err())
			case <-time.After(delay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("creating quote request: %w", err)
		}
		req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36")
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: reading response: %w", ErrUnavailable, err)
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			return body, nil
		case resp.StatusCode == http.StatusNotFound:
			return nil, ErrNotFound
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			lastErr = fmt.Errorf("%w: HTTP %d (attempt %d/%d)", ErrUnavailable, resp.StatusCode, attempt+1, c.maxRetries+1)
			continue
		default:
			return nil, fmt.Errorf("%w: HTTP %d: %s", ErrUnavailable, resp.StatusCode, truncate(string(body), 200))
		}
	}

	return nil, lastErr
}

// parseChart extracts price, name and category from a chart payload:
//
//	{"chart":{"result":[{"meta":{"symbol":"AAPL","regularMarketPrice":189.84,"longName":"Apple Inc.","instrumentType":"EQUITY"}}],"error":null}}
func parseChart(body []byte) (domain.PriceQuote, error) {
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return domain.PriceQuote{}, fmt.Errorf("%w: parsing chart response: %w", ErrUnavailable, err)
	}

	if code, ok := lookupString(doc, "$.chart.error.code"); ok && code != "" {
		if strings.EqualFold(code, "Not Found") {
			return domain.PriceQuote{}, ErrNotFound
		}
		desc, _ := lookupString(doc, "$.chart.error.description")
		return domain.PriceQuote{}, fmt.Errorf("%w: %s: %s", ErrUnavailable, code, desc)
	}

	raw, err := jsonpath.Get("$.chart.result[0].meta.regularMarketPrice", doc)
	if err != nil {
		return domain.PriceQuote{}, ErrNoData
	}
	f, ok := raw.(float64)
	if !ok {
		return domain.PriceQuote{}, ErrNoData
	}
	price := decimal.NewFromFloat(f)
	if !price.IsPositive() {
		return domain.PriceQuote{}, ErrNoData
	}

	q := domain.PriceQuote{Price: price}
	if name, ok := lookupString(doc, "$.chart.result[0].meta.longName"); ok && name != "" {
		q.Name = name
	} else if name, ok := lookupString(doc, "$.chart.result[0].meta.shortName"); ok {
		q.Name = name
	}
	if it, ok := lookupString(doc, "$.chart.result[0].meta.instrumentType"); ok {
		q.Category = instrumentCategories[strings.ToUpper(it)]
	}
	return q, nil
}

func lookupString(doc any, path string) (string, bool) {
	v, err := jsonpath.Get(path, doc)
	if err != nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// IsTransient reports whether err is worth retrying later.
func IsTransient(err error) bool {
	return errors.Is(err, ErrUnavailable) || errors.Is(err, context.DeadlineExceeded)
}
