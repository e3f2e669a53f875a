package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wireline-chat/wireline/internal/api/middleware"
	"github.com/wireline-chat/wireline/internal/metrics"
	"github.com/wireline-chat/wireline/internal/models"
)

// SendMessageRequest represents the send message request body.
type SendMessageRequest struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

// SendMessageResponse represents the send message response.
type SendMessageResponse struct {
	Message string         `json:"message"`
	Data    models.Message `json:"data"`
}

// UpdateStatusRequest represents the status update request body.
type UpdateStatusRequest struct {
	WaID   string `json:"wa_id"`
	Status string `json:"status"`
}

// ThreadResponse represents the ordered message list between two parties.
type ThreadResponse struct {
	Messages []models.Message `json:"messages"`
}

// ChatListResponse represents the ordered conversation list.
type ChatListResponse struct {
	Conversations []models.Conversation `json:"conversations"`
}

// SendMessage handles POST /api/v1/send-message.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentityFromContext(r.Context())
	if identity == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	msg, err := h.messages.Send(r.Context(), identity.WaID, req.To, req.Message)
	if err != nil {
		h.ServiceError(w, err)
		return
	}

	metrics.MessagesSent.Inc()
	h.JSON(w, http.StatusCreated, SendMessageResponse{
		Message: "Message stored successfully",
		Data:    *msg,
	})
}

// UpdateStatus handles POST /api/v1/update-status: flips the status of the
// most recent message addressed to the given wa_id.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := h.messages.MarkLatestSeen(r.Context(), req.WaID, req.Status); err != nil {
		h.ServiceError(w, err)
		return
	}

	metrics.StatusUpdates.Inc()
	h.JSON(w, http.StatusOK, map[string]string{"message": "Status updated successfully"})
}

// GetThread handles GET /api/v1/message/{otherWaId}.
func (h *Handler) GetThread(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentityFromContext(r.Context())
	if identity == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	otherWaID := chi.URLParam(r, "otherWaId")

	msgs, err := h.messages.Thread(r.Context(), identity.AccountID, otherWaID)
	if err != nil {
		h.ServiceError(w, err)
		return
	}
	if msgs == nil {
		msgs = []models.Message{}
	}

	h.JSON(w, http.StatusOK, ThreadResponse{Messages: msgs})
}

// ChatList handles GET /api/v1/chat-list.
func (h *Handler) ChatList(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentityFromContext(r.Context())
	if identity == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	conversations, err := h.messages.Conversations(r.Context(), identity.WaID)
	if err != nil {
		h.ServiceError(w, err)
		return
	}
	if conversations == nil {
		conversations = []models.Conversation{}
	}

	h.JSON(w, http.StatusOK, ChatListResponse{Conversations: conversations})
}
