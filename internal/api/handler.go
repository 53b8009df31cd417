package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/mtlprog/folio/internal/audit"
	"github.com/mtlprog/folio/internal/domain"
	"github.com/mtlprog/folio/internal/export"
	"github.com/mtlprog/folio/internal/holding"
	"github.com/mtlprog/folio/internal/portfolio"
	"github.com/mtlprog/folio/internal/quote"
	"github.com/mtlprog/folio/internal/rebalance"
	"github.com/mtlprog/folio/internal/refresh"
)

// Refresher runs one price refresh.
type Refresher interface {
	Run(ctx context.Context) (*refresh.Report, error)
}

// AuditReader lists audit entries, newest first.
type AuditReader interface {
	Entries() ([]audit.Entry, error)
}

// Handler provides HTTP endpoints for the portfolio API.
type Handler struct {
	holdings  *holding.Service
	portfolio *portfolio.Service
	rebalance *rebalance.Service
	refresher Refresher
	quotes    quote.Source
	audit     AuditReader
	exports   *export.Service

	refreshTimeout time.Duration
}

// Deps are the collaborators of a Handler.
type Deps struct {
	Holdings  *holding.Service
	Portfolio *portfolio.Service
	Rebalance *rebalance.Service
	Refresher Refresher
	Quotes    quote.Source
	Audit     AuditReader
	Exports   *export.Service

	// RefreshTimeout bounds POST /api/prices/refresh. Values outside (0, WriteTimeout)
	// use DefaultRefreshTimeout.
	RefreshTimeout time.Duration
}

// NewHandler creates a new API handler.
func NewHandler(d Deps) *Handler {
	refreshTimeout := d.RefreshTimeout
	if refreshTimeout <= 0 || refreshTimeout >= WriteTimeout {
		refreshTimeout = DefaultRefreshTimeout
	}
	return &Handler{
		holdings:  d.Holdings,
		portfolio: d.Portfolio,
		rebalance: d.Rebalance,
		refresher: d.Refresher,
		quotes:    d.Quotes,
		audit:     d.Audit,
		exports:   d.Exports,

		refreshTimeout: refreshTimeout,
	}
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetAudit handles GET /api/audit.
func (h *Handler) GetAudit(w http.ResponseWriter, _ *http.Request) {
	entries, err := h.audit.Entries()
	if err != nil {
		slog.Error("failed to read audit log", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		return &domain.ValidationError{Message: "invalid JSON body: " + err.Error()}
	}
	return nil
}

// writeServiceError maps domain and store errors to responses. Anything unrecognized is
// logged and reported as a generic 500.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, ve.Error())
	case errors.Is(err, holding.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found")
	default:
		slog.Error("request failed", "op", op, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeSuccess(w http.ResponseWriter, status int, extra map[string]any) {
	body := map[string]any{"success": true}
	for k, v := range extra {
		body[k] = v
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("failed to marshal JSON response", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		slog.Warn("failed to write HTTP response body", "error", err)
		return
	}
	_, _ = w.Write([]byte("\n"))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
