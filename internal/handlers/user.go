package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/wireline-chat/wireline/internal/api/middleware"
	"github.com/wireline-chat/wireline/internal/metrics"
	"github.com/wireline-chat/wireline/internal/models"
)

// CreateUserRequest represents the account creation request body.
type CreateUserRequest struct {
	WaID    string `json:"wa_id"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// CreateUserResponse represents the account creation response.
type CreateUserResponse struct {
	Message string         `json:"message"`
	Contact models.Account `json:"contact"`
}

// LoginRequest represents the login request body.
type LoginRequest struct {
	WaID string `json:"wa_id"`
}

// LoginResponse represents the login response.
type LoginResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}

// CreateUser handles POST /api/v1/create-user.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	account, err := h.accounts.Create(r.Context(), req.WaID, req.Name, req.Picture)
	if err != nil {
		h.ServiceError(w, err)
		return
	}

	metrics.AccountsCreated.Inc()
	h.JSON(w, http.StatusCreated, CreateUserResponse{
		Message: "User created successfully",
		Contact: *account,
	})
}

// LoginUser handles POST /api/v1/login-user.
func (h *Handler) LoginUser(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	token, err := h.accounts.Login(r.Context(), req.WaID)
	if err != nil {
		h.ServiceError(w, err)
		return
	}

	h.JSON(w, http.StatusOK, LoginResponse{
		Message: "Login successful",
		Token:   token,
	})
}

// UserAuth handles GET /api/v1/user-auth: confirms the bearer credential
// still maps to a live account.
func (h *Handler) UserAuth(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentityFromContext(r.Context())
	if identity == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	account, err := h.accounts.Get(r.Context(), identity.WaID)
	if err != nil {
		h.ServiceError(w, err)
		return
	}

	h.JSON(w, http.StatusOK, map[string]string{"wa_id": account.WaID})
}
