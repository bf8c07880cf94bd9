package handler

import (
	"net/http"

	"app/internal/api/v1/dto"
	"app/internal/middleware"
	"app/internal/service"

	"github.com/rs/zerolog"
)

// WalletHandler handles balance, transaction history and referral endpoints
type WalletHandler struct {
	ledger    service.LedgerService
	referrals service.ReferralService
	logger    zerolog.Logger
}

// NewWalletHandler creates a new WalletHandler
func NewWalletHandler(ledger service.LedgerService, referrals service.ReferralService, logger zerolog.Logger) *WalletHandler {
	return &WalletHandler{ledger: ledger, referrals: referrals, logger: logger}
}

// RegisterRoutes mounts wallet routes
func (h *WalletHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("GET /wallet/balance", authMw(http.HandlerFunc(h.balance)))
	mux.Handle("GET /wallet/transactions", authMw(http.HandlerFunc(h.transactions)))
	mux.Handle("GET /wallet/reconcile", authMw(http.HandlerFunc(h.reconcile)))
	mux.Handle("GET /referrals", authMw(http.HandlerFunc(h.referralSummary)))
}

// balance godoc
// @Summary Get wallet balance
// @Tags wallet
// @Produce json
// @Success 200 {object} dto.BalanceResponseDTO
// @Failure 401 {string} string "Unauthorized"
// @Router /wallet/balance [get]
func (h *WalletHandler) balance(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.AccountID(r.Context())
	if accountID == "" {
		http.Error(w, "Unauthorized: Account ID not found in context", http.StatusUnauthorized)
		return
	}
	balance, err := h.ledger.Balance(r.Context(), accountID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.BalanceResponseDTO{Balance: balance})
}

// transactions godoc
// @Summary List wallet transactions
// @Description Returns the account's ledger entries, newest first.
// @Tags wallet
// @Produce json
// @Success 200 {array} dto.LedgerEntryResponseDTO
// @Failure 401 {string} string "Unauthorized"
// @Router /wallet/transactions [get]
func (h *WalletHandler) transactions(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.AccountID(r.Context())
	if accountID == "" {
		http.Error(w, "Unauthorized: Account ID not found in context", http.StatusUnauthorized)
		return
	}
	entries, err := h.ledger.Transactions(r.Context(), accountID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	resp := make([]dto.LedgerEntryResponseDTO, 0, len(entries))
	for i := range entries {
		resp = append(resp, entryResponse(&entries[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

// reconcile godoc
// @Summary Reconcile wallet balance
// @Description Recomputes the balance from the ledger and reports any drift.
// @Tags wallet
// @Produce json
// @Success 200 {object} dto.ReconcileResponseDTO
// @Failure 401 {string} string "Unauthorized"
// @Router /wallet/reconcile [get]
func (h *WalletHandler) reconcile(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.AccountID(r.Context())
	if accountID == "" {
		http.Error(w, "Unauthorized: Account ID not found in context", http.StatusUnauthorized)
		return
	}
	report, err := h.ledger.Reconcile(r.Context(), accountID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ReconcileResponseDTO{
		AccountID: report.AccountID,
		Cached:    report.Cached,
		Derived:   report.Derived,
		Drift:     report.Drift,
	})
}

// referralSummary godoc
// @Summary Get referral summary
// @Description Returns the referral code, shareable link, referred accounts and total bonus earnings.
// @Tags referrals
// @Produce json
// @Success 200 {object} dto.ReferralSummaryResponseDTO
// @Failure 401 {string} string "Unauthorized"
// @Router /referrals [get]
func (h *WalletHandler) referralSummary(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.AccountID(r.Context())
	if accountID == "" {
		http.Error(w, "Unauthorized: Account ID not found in context", http.StatusUnauthorized)
		return
	}
	summary, err := h.referrals.Summary(r.Context(), accountID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	referred := make([]dto.AccountResponseDTO, 0, len(summary.Referred))
	for i := range summary.Referred {
		referred = append(referred, accountResponse(&summary.Referred[i]))
	}
	writeJSON(w, http.StatusOK, dto.ReferralSummaryResponseDTO{
		ReferralCode:  summary.ReferralCode,
		ReferralLink:  summary.ReferralLink,
		Referred:      referred,
		TotalEarnings: summary.TotalEarnings,
	})
}
