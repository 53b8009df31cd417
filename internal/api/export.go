package api

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/mtlprog/folio/internal/export"
)

// ExportCSV handles GET /api/export/csv.
func (h *Handler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.exports.CSV(r.Context(), &buf); err != nil {
		writeServiceError(w, "export csv", err)
		return
	}
	writeAttachment(w, "text/csv", export.Filename(time.Now(), "csv"), buf.Bytes())
}

// ExportXLSX handles GET /api/export/xlsx.
func (h *Handler) ExportXLSX(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.exports.XLSX(r.Context(), &buf); err != nil {
		writeServiceError(w, "export xlsx", err)
		return
	}
	writeAttachment(w,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		export.Filename(time.Now(), "xlsx"), buf.Bytes())
}

// ExportSheets handles POST /api/export/sheets.
func (h *Handler) ExportSheets(w http.ResponseWriter, r *http.Request) {
	n, err := h.exports.Sheets(r.Context())
	if errors.Is(err, export.ErrSheetsDisabled) {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	if err != nil {
		writeServiceError(w, "export sheets", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"rows": n})
}

func writeAttachment(w http.ResponseWriter, contentType, filename string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		slog.Warn("failed to write HTTP response body", "error", err)
	}
}
