// Package quote looks up live prices for tickers.
package quote

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/mtlprog/folio/internal/domain"
)

var (
	// ErrNoData means the source answered but has no price for the ticker.
	ErrNoData = errors.New("no price data")
	// ErrNotFound means the source does not know the ticker. It is a kind of ErrNoData.
	ErrNotFound = fmt.Errorf("ticker not found: %w", ErrNoData)
	// ErrUnavailable means the source could not be reached or failed to answer.
	ErrUnavailable = errors.New("quote source unavailable")
	// ErrInvalidTicker means the ticker is malformed and was not sent upstream.
	ErrInvalidTicker = errors.New("invalid ticker")
)

// Source returns the current price of one ticker.
type Source interface {
	GetPrice(ctx context.Context, ticker string) (domain.PriceQuote, error)
}

var tickerPattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9.\-=^]{0,19}$`)

// ValidateTicker normalizes ticker and rejects symbols no exchange would issue.
func ValidateTicker(ticker string) (string, error) {
	t := domain.NormalizeTicker(ticker)
	if !tickerPattern.MatchString(t) {
		return "", fmt.Errorf("%w: %q", ErrInvalidTicker, ticker)
	}
	return t, nil
}
