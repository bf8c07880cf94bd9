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

// PayoutHandler handles deposit and withdrawal requests and their admin decisions
type PayoutHandler struct {
	payouts  service.PayoutService
	media    service.MediaService
	validate *validator.Validate
	logger   zerolog.Logger
}

// NewPayoutHandler creates a new PayoutHandler
func NewPayoutHandler(payouts service.PayoutService, media service.MediaService, validate *validator.Validate, logger zerolog.Logger) *PayoutHandler {
	return &PayoutHandler{payouts: payouts, media: media, validate: validate, logger: logger}
}

// RegisterRoutes mounts payout routes
func (h *PayoutHandler) RegisterRoutes(mux *http.ServeMux, authMw, adminMw func(http.Handler) http.Handler) {
	mux.Handle("POST /deposits/proof-upload", authMw(http.HandlerFunc(h.initiateProofUpload)))
	mux.Handle("POST /deposits", authMw(http.HandlerFunc(h.requestDeposit)))
	mux.Handle("POST /withdrawals", authMw(http.HandlerFunc(h.requestWithdrawal)))

	mux.Handle("GET /admin/deposits", adminMw(http.HandlerFunc(h.listPendingDeposits)))
	mux.Handle("POST /admin/deposits/{requestId}/approve", adminMw(http.HandlerFunc(h.approveDeposit)))
	mux.Handle("POST /admin/deposits/{requestId}/reject", adminMw(http.HandlerFunc(h.rejectDeposit)))
	mux.Handle("GET /admin/deposits/{requestId}/proof", adminMw(http.HandlerFunc(h.proofURL)))
	mux.Handle("GET /admin/withdrawals", adminMw(http.HandlerFunc(h.listPendingWithdrawals)))
	mux.Handle("POST /admin/withdrawals/{requestId}/approve", adminMw(http.HandlerFunc(h.approveWithdrawal)))
	mux.Handle("POST /admin/withdrawals/{requestId}/reject", adminMw(http.HandlerFunc(h.rejectWithdrawal)))
}

// initiateProofUpload godoc
// @Summary Get a presigned proof upload URL
// @Description Returns the storage path and a presigned PUT URL for a deposit proof screenshot.
// @Tags payouts
// @Accept json
// @Produce json
// @Param upload body dto.UploadInitDTO true "Upload request"
// @Success 200 {object} dto.UploadInitResponseDTO
// @Router /deposits/proof-upload [post]
func (h *PayoutHandler) initiateProofUpload(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.AccountID(r.Context())
	if accountID == "" {
		http.Error(w, "Unauthorized: Account ID not found in context", http.StatusUnauthorized)
		return
	}
	var req dto.UploadInitDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}
	storagePath, uploadURL, err := h.media.InitiateProofUpload(r.Context(), accountID, req.Filename)
	if err != nil {
		http.Error(w, "Failed to generate upload URL: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, dto.UploadInitResponseDTO{StoragePath: storagePath, UploadURL: uploadURL})
}

// requestDeposit godoc
// @Summary Request a deposit
// @Description Registers a deposit claim with its uploaded proof. Balance is credited only after admin approval.
// @Tags payouts
// @Accept json
// @Produce json
// @Param deposit body dto.DepositRequestDTO true "Deposit request"
// @Success 201 {object} dto.DepositResponseDTO
// @Failure 400 {string} string "Invalid amount or payment method"
// @Router /deposits [post]
func (h *PayoutHandler) requestDeposit(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.AccountID(r.Context())
	if accountID == "" {
		http.Error(w, "Unauthorized: Account ID not found in context", http.StatusUnauthorized)
		return
	}
	var req dto.DepositRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.media.VerifyUploaded(r.Context(), req.Proof); err != nil {
		http.Error(w, "Proof not found in storage", http.StatusBadRequest)
		return
	}
	d, err := h.payouts.RequestDeposit(r.Context(), accountID, req.Amount, req.PaymentMethod, req.Proof, req.TransactionRef)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, depositResponse(d))
}

// requestWithdrawal godoc
// @Summary Request a withdrawal
// @Description Asks for a payout to the given phone number. The amount is held from the balance until an admin decides.
// @Tags payouts
// @Accept json
// @Produce json
// @Param withdrawal body dto.WithdrawalRequestDTO true "Withdrawal request"
// @Success 201 {object} dto.WithdrawalResponseDTO
// @Failure 400 {string} string "Insufficient balance"
// @Router /withdrawals [post]
func (h *PayoutHandler) requestWithdrawal(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.AccountID(r.Context())
	if accountID == "" {
		http.Error(w, "Unauthorized: Account ID not found in context", http.StatusUnauthorized)
		return
	}
	var req dto.WithdrawalRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}
	wd, err := h.payouts.RequestWithdrawal(r.Context(), accountID, req.Amount, req.PaymentMethod, req.PhoneNumber)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, withdrawalResponse(wd))
}

// listPendingDeposits godoc
// @Summary List pending deposits
// @Tags admin
// @Produce json
// @Success 200 {array} dto.DepositResponseDTO
// @Router /admin/deposits [get]
func (h *PayoutHandler) listPendingDeposits(w http.ResponseWriter, r *http.Request) {
	deposits, err := h.payouts.ListPendingDeposits(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	resp := make([]dto.DepositResponseDTO, 0, len(deposits))
	for i := range deposits {
		resp = append(resp, depositResponse(&deposits[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

// approveDeposit godoc
// @Summary Approve a deposit
// @Description Credits the claimed amount to the account and completes the ledger entry.
// @Tags admin
// @Produce json
// @Param requestId path string true "Deposit request ID"
// @Success 200 {object} dto.DepositResponseDTO
// @Failure 404 {string} string "Request not found"
// @Failure 409 {string} string "Request already processed"
// @Router /admin/deposits/{requestId}/approve [post]
func (h *PayoutHandler) approveDeposit(w http.ResponseWriter, r *http.Request) {
	d, err := h.payouts.ApproveDeposit(r.Context(), r.PathValue("requestId"), middleware.AccountID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, depositResponse(d))
}

// rejectDeposit godoc
// @Summary Reject a deposit
// @Tags admin
// @Produce json
// @Param requestId path string true "Deposit request ID"
// @Success 200 {object} dto.DepositResponseDTO
// @Failure 409 {string} string "Request already processed"
// @Router /admin/deposits/{requestId}/reject [post]
func (h *PayoutHandler) rejectDeposit(w http.ResponseWriter, r *http.Request) {
	d, err := h.payouts.RejectDeposit(r.Context(), r.PathValue("requestId"), middleware.AccountID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, depositResponse(d))
}

// proofURL godoc
// @Summary Get a deposit proof download URL
// @Tags admin
// @Produce json
// @Param requestId path string true "Deposit request ID"
// @Success 200 {object} map[string]string
// @Failure 404 {string} string "Request not found"
// @Router /admin/deposits/{requestId}/proof [get]
func (h *PayoutHandler) proofURL(w http.ResponseWriter, r *http.Request) {
	d, err := h.payouts.GetDeposit(r.Context(), r.PathValue("requestId"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	url, err := h.media.DownloadURL(r.Context(), d.Proof)
	if err != nil {
		http.Error(w, "Failed to generate download URL: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"proof_url": url})
}

// listPendingWithdrawals godoc
// @Summary List pending withdrawals
// @Tags admin
// @Produce json
// @Success 200 {array} dto.WithdrawalResponseDTO
// @Router /admin/withdrawals [get]
func (h *PayoutHandler) listPendingWithdrawals(w http.ResponseWriter, r *http.Request) {
	withdrawals, err := h.payouts.ListPendingWithdrawals(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	resp := make([]dto.WithdrawalResponseDTO, 0, len(withdrawals))
	for i := range withdrawals {
		resp = append(resp, withdrawalResponse(&withdrawals[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

// approveWithdrawal godoc
// @Summary Approve a withdrawal
// @Description Marks the payout as sent and completes the ledger entry. A withdrawal the balance no longer covers is auto-rejected.
// @Tags admin
// @Produce json
// @Param requestId path string true "Withdrawal request ID"
// @Success 200 {object} dto.WithdrawalResponseDTO
// @Failure 400 {string} string "Insufficient balance"
// @Failure 409 {string} string "Request already processed"
// @Router /admin/withdrawals/{requestId}/approve [post]
func (h *PayoutHandler) approveWithdrawal(w http.ResponseWriter, r *http.Request) {
	wd, err := h.payouts.ApproveWithdrawal(r.Context(), r.PathValue("requestId"), middleware.AccountID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, withdrawalResponse(wd))
}

// rejectWithdrawal godoc
// @Summary Reject a withdrawal
// @Description Rejects the payout and refunds any held amount.
// @Tags admin
// @Produce json
// @Param requestId path string true "Withdrawal request ID"
// @Success 200 {object} dto.WithdrawalResponseDTO
// @Failure 409 {string} string "Request already processed"
// @Router /admin/withdrawals/{requestId}/reject [post]
func (h *PayoutHandler) rejectWithdrawal(w http.ResponseWriter, r *http.Request) {
	wd, err := h.payouts.RejectWithdrawal(r.Context(), r.PathValue("requestId"), middleware.AccountID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, withdrawalResponse(wd))
}
