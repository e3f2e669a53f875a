package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/wireline-chat/wireline/internal/ingest"
	"github.com/wireline-chat/wireline/internal/service"
	"github.com/wireline-chat/wireline/internal/store"
)

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	accounts *service.AccountService
	messages *service.MessageService
	importer *ingest.Importer
	db       store.DataStore
	logger   zerolog.Logger
}

// NewHandler creates a new Handler with the given services.
func NewHandler(accounts *service.AccountService, messages *service.MessageService, importer *ingest.Importer, db store.DataStore, logger zerolog.Logger) *Handler {
	return &Handler{
		accounts: accounts,
		messages: messages,
		importer: importer,
		db:       db,
		logger:   logger,
	}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}

// ServiceError maps a service-layer error onto its HTTP status. Unrecognized
// errors are internal failures; their message is surfaced to the caller.
func (h *Handler) ServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrBadRequest):
		h.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrUnauthorized):
		h.Error(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrConflict):
		h.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrNotFound):
		h.Error(w, http.StatusNotFound, err.Error())
	default:
		h.logger.Error().Err(err).Msg("internal error")
		h.Error(w, http.StatusInternalServerError, err.Error())
	}
}
