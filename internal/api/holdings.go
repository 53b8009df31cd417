package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mtlprog/folio/internal/holding"
)

// ListHoldings handles GET /api/holdings.
func (h *Handler) ListHoldings(w http.ResponseWriter, r *http.Request) {
	holdings, err := h.holdings.List(r.Context())
	if err != nil {
		writeServiceError(w, "list holdings", err)
		return
	}
	writeJSON(w, http.StatusOK, holdings)
}

// CreateHolding handles POST /api/holdings.
func (h *Handler) CreateHolding(w http.ResponseWriter, r *http.Request) {
	var p holding.Patch
	if err := decodeJSON(r, &p); err != nil {
		writeServiceError(w, "create holding", err)
		return
	}

	id, err := h.holdings.Create(r.Context(), p)
	if err != nil {
		writeServiceError(w, "create holding", err)
		return
	}
	writeSuccess(w, http.StatusCreated, map[string]any{"id": id})
}

// UpdateHolding handles PUT /api/holdings/{id}.
func (h *Handler) UpdateHolding(w http.ResponseWriter, r *http.Request) {
	id, ok := holdingID(w, r)
	if !ok {
		return
	}

	var p holding.Patch
	if err := decodeJSON(r, &p); err != nil {
		writeServiceError(w, "update holding", err)
		return
	}

	if _, err := h.holdings.Update(r.Context(), id, p); err != nil {
		writeServiceError(w, "update holding", err)
		return
	}
	writeSuccess(w, http.StatusOK, nil)
}

// DeleteHolding handles DELETE /api/holdings/{id}.
func (h *Handler) DeleteHolding(w http.ResponseWriter, r *http.Request) {
	id, ok := holdingID(w, r)
	if !ok {
		return
	}

	if err := h.holdings.Delete(r.Context(), id); err != nil {
		writeServiceError(w, "delete holding", err)
		return
	}
	writeSuccess(w, http.StatusOK, nil)
}

func holdingID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid holding id")
		return 0, false
	}
	return id, true
}
