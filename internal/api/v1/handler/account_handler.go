package handler

import (
	"encoding/json"
	"net/http"

	"app/internal/api/v1/dto"
	"app/internal/middleware"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// AccountHandler handles registration, login and profile endpoints
type AccountHandler struct {
	accounts service.AccountService
	rewards  service.RewardService
	validate *validator.Validate
	logger   zerolog.Logger
}

// NewAccountHandler creates a new AccountHandler
func NewAccountHandler(accounts service.AccountService, rewards service.RewardService, validate *validator.Validate, logger zerolog.Logger) *AccountHandler {
	return &AccountHandler{accounts: accounts, rewards: rewards, validate: validate, logger: logger}
}

// RegisterRoutes mounts account routes
func (h *AccountHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.HandleFunc("POST /auth/register", h.register)
	mux.HandleFunc("GET /auth/verify", h.verify)
	mux.HandleFunc("POST /auth/login", h.login)
	mux.Handle("GET /me", authMw(http.HandlerFunc(h.me)))
	mux.Handle("POST /me/password", authMw(http.HandlerFunc(h.changePassword)))
}

// register godoc
// @Summary Register a new account
// @Description Creates an unverified account and sends a verification email. An optional referral code links the new account to its referrer.
// @Tags auth
// @Accept json
// @Produce json
// @Param account body dto.RegisterDTO true "Registration request"
// @Success 201 {object} dto.AccountResponseDTO
// @Failure 400 {string} string "Invalid JSON payload or validation failed"
// @Failure 409 {string} string "Email or username already taken"
// @Router /auth/register [post]
func (h *AccountHandler) register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}
	acc, err := h.accounts.Register(r.Context(), req.Username, req.Email, req.Password, req.ReferralCode)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, accountResponse(acc))
}

// verify godoc
// @Summary Verify an account
// @Description Confirms the email address using the token from the verification email.
// @Tags auth
// @Param token query string true "Verification token"
// @Success 204 {string} string "Verified"
// @Failure 401 {string} string "Invalid or expired token"
// @Router /auth/verify [get]
func (h *AccountHandler) verify(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "Missing verification token", http.StatusBadRequest)
		return
	}
	if err := h.accounts.Verify(r.Context(), token); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// login godoc
// @Summary Log in
// @Description Checks credentials and returns a session token. A pending daily quota rollover is applied so the response reflects today's numbers.
// @Tags auth
// @Accept json
// @Produce json
// @Param credentials body dto.LoginDTO true "Login request"
// @Success 200 {object} dto.AuthResponseDTO
// @Failure 401 {string} string "Invalid credentials"
// @Failure 403 {string} string "Account not verified or blocked"
// @Router /auth/login [post]
func (h *AccountHandler) login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}
	token, acc, err := h.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if synced, err := h.rewards.SyncDay(r.Context(), acc.ID); err == nil {
		acc = synced
	}
	writeJSON(w, http.StatusOK, dto.AuthResponseDTO{Token: token, Account: accountResponse(acc)})
}

// me godoc
// @Summary Get own profile
// @Tags accounts
// @Produce json
// @Success 200 {object} dto.AccountResponseDTO
// @Failure 401 {string} string "Unauthorized"
// @Router /me [get]
func (h *AccountHandler) me(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.AccountID(r.Context())
	if accountID == "" {
		http.Error(w, "Unauthorized: Account ID not found in context", http.StatusUnauthorized)
		return
	}
	acc, err := h.rewards.SyncDay(r.Context(), accountID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, accountResponse(acc))
}

// changePassword godoc
// @Summary Change own password
// @Tags accounts
// @Accept json
// @Param passwords body dto.ChangePasswordDTO true "Password change request"
// @Success 204 {string} string "Changed"
// @Failure 401 {string} string "Current password incorrect"
// @Router /me/password [post]
func (h *AccountHandler) changePassword(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.AccountID(r.Context())
	if accountID == "" {
		http.Error(w, "Unauthorized: Account ID not found in context", http.StatusUnauthorized)
		return
	}
	var req dto.ChangePasswordDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.accounts.ChangePassword(r.Context(), accountID, req.CurrentPassword, req.NewPassword); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
