package handlers

import (
	"io"
	"net/http"

	"github.com/wireline-chat/wireline/internal/ingest"
	"github.com/wireline-chat/wireline/internal/metrics"
)

// ImportResponse reports how many messages a payload batch inserted.
type ImportResponse struct {
	InsertedCount int `json:"inserted_count"`
}

// Import handles POST /api/v1/import: ingests a provider payload batch (a
// single payload object or an array of them). Re-posting the same batch is a
// no-op; malformed elements are skipped, not fatal.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.Error(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	payloads := ingest.DecodeBatch(body, h.logger)
	if len(payloads) == 0 {
		h.Error(w, http.StatusBadRequest, "no payloads to process")
		return
	}

	inserted, err := h.importer.Run(r.Context(), payloads)
	if err != nil {
		h.ServiceError(w, err)
		return
	}

	metrics.MessagesImported.Add(float64(inserted))
	h.JSON(w, http.StatusOK, ImportResponse{InsertedCount: inserted})
}
