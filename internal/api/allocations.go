package api

import (
	"net/http"

	"github.com/mtlprog/folio/internal/domain"
)

// GetSummary handles GET /api/portfolio/summary.
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	s, err := h.portfolio.Summary(r.Context())
	if err != nil {
		writeServiceError(w, "portfolio summary", err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// GetAllocations handles GET /api/allocations?dimension=asset_type|category.
func (h *Handler) GetAllocations(w http.ResponseWriter, r *http.Request) {
	dim, err := domain.ParseDimension(r.URL.Query().Get("dimension"))
	if err != nil {
		writeServiceError(w, "list targets", err)
		return
	}

	targets, err := h.holdings.Targets(r.Context(), dim)
	if err != nil {
		writeServiceError(w, "list targets", err)
		return
	}
	if targets == nil {
		targets = []domain.TargetAllocation{}
	}
	writeJSON(w, http.StatusOK, targets)
}

// PutAllocations handles PUT /api/allocations?dimension=asset_type|category.
// The body replaces the whole target set of the dimension.
func (h *Handler) PutAllocations(w http.ResponseWriter, r *http.Request) {
	dim, err := domain.ParseDimension(r.URL.Query().Get("dimension"))
	if err != nil {
		writeServiceError(w, "save targets", err)
		return
	}

	var targets []domain.TargetAllocation
	if err := decodeJSON(r, &targets); err != nil {
		writeServiceError(w, "save targets", err)
		return
	}

	if err := h.holdings.SaveTargets(r.Context(), dim, targets); err != nil {
		writeServiceError(w, "save targets", err)
		return
	}
	writeSuccess(w, http.StatusOK, nil)
}

// GetRebalance handles GET /api/rebalance?dimension=asset_type|category.
func (h *Handler) GetRebalance(w http.ResponseWriter, r *http.Request) {
	dim, err := domain.ParseDimension(r.URL.Query().Get("dimension"))
	if err != nil {
		writeServiceError(w, "rebalance", err)
		return
	}

	res, err := h.rebalance.Plan(r.Context(), dim)
	if err != nil {
		writeServiceError(w, "rebalance", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
