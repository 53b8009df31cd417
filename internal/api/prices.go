package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mtlprog/folio/internal/quote"
)

// RefreshPrices handles POST /api/prices/refresh. Per-ticker failures are part of the
// 200 report; only a store fault fails the request. A run that outlives the refresh
// timeout is cut short and its partial report returned, with unpriced tickers under errors.
func (h *Handler) RefreshPrices(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.refreshTimeout)
	defer cancel()

	report, err := h.refresher.Run(ctx)
	switch {
	case err == nil:
	case report != nil && errors.Is(err, context.DeadlineExceeded) && r.Context().Err() == nil:
		slog.Warn("price refresh hit request deadline", "timeout", h.refreshTimeout, "errors", len(report.Errors))
	default:
		slog.Error("price refresh failed", "error", err)
		writeError(w, http.StatusInternalServerError, "price refresh failed")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// GetQuote handles GET /api/quote/{ticker}.
func (h *Handler) GetQuote(w http.ResponseWriter, r *http.Request) {
	ticker := chi.URLParam(r, "ticker")

	q, err := h.quotes.GetPrice(r.Context(), ticker)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, q)
	case errors.Is(err, quote.ErrInvalidTicker):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, quote.ErrNoData):
		writeError(w, http.StatusNotFound, "No price data for "+ticker)
	default:
		slog.Warn("quote lookup failed", "ticker", ticker, "error", err)
		writeError(w, http.StatusBadGateway, "Quote source unavailable: "+err.Error())
	}
}
