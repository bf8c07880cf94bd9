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

// AdminHandler handles account administration and manual ledger adjustments
type AdminHandler struct {
	accounts service.AccountService
	ledger   service.LedgerService
	validate *validator.Validate
	logger   zerolog.Logger
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(accounts service.AccountService, ledger service.LedgerService, validate *validator.Validate, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{accounts: accounts, ledger: ledger, validate: validate, logger: logger}
}

// RegisterRoutes mounts admin account routes
func (h *AdminHandler) RegisterRoutes(mux *http.ServeMux, adminMw func(http.Handler) http.Handler) {
	mux.Handle("GET /admin/accounts", adminMw(http.HandlerFunc(h.listAccounts)))
	mux.Handle("GET /admin/accounts/{accountId}", adminMw(http.HandlerFunc(h.getAccount)))
	mux.Handle("POST /admin/accounts/{accountId}/block", adminMw(http.HandlerFunc(h.block)))
	mux.Handle("POST /admin/accounts/{accountId}/unblock", adminMw(http.HandlerFunc(h.unblock)))
	mux.Handle("POST /admin/accounts/{accountId}/credit", adminMw(http.HandlerFunc(h.manualCredit)))
	mux.Handle("POST /admin/accounts/{accountId}/debit", adminMw(http.HandlerFunc(h.manualDebit)))
	mux.Handle("GET /admin/accounts/{accountId}/reconcile", adminMw(http.HandlerFunc(h.reconcile)))
}

// listAccounts godoc
// @Summary List all accounts
// @Tags admin
// @Produce json
// @Success 200 {array} dto.AccountResponseDTO
// @Router /admin/accounts [get]
func (h *AdminHandler) listAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.accounts.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	resp := make([]dto.AccountResponseDTO, 0, len(accounts))
	for i := range accounts {
		resp = append(resp, accountResponse(&accounts[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

// getAccount godoc
// @Summary Get an account
// @Tags admin
// @Produce json
// @Param accountId path string true "Account ID"
// @Success 200 {object} dto.AccountResponseDTO
// @Failure 404 {string} string "Account not found"
// @Router /admin/accounts/{accountId} [get]
func (h *AdminHandler) getAccount(w http.ResponseWriter, r *http.Request) {
	acc, err := h.accounts.Get(r.Context(), r.PathValue("accountId"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, accountResponse(acc))
}

// block godoc
// @Summary Block an account
// @Description A blocked account cannot log in, watch videos or request payouts.
// @Tags admin
// @Param accountId path string true "Account ID"
// @Success 204 {string} string "Blocked"
// @Failure 404 {string} string "Account not found"
// @Router /admin/accounts/{accountId}/block [post]
func (h *AdminHandler) block(w http.ResponseWriter, r *http.Request) {
	if err := h.accounts.SetBlocked(r.Context(), r.PathValue("accountId"), true); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// unblock godoc
// @Summary Unblock an account
// @Tags admin
// @Param accountId path string true "Account ID"
// @Success 204 {string} string "Unblocked"
// @Failure 404 {string} string "Account not found"
// @Router /admin/accounts/{accountId}/unblock [post]
func (h *AdminHandler) unblock(w http.ResponseWriter, r *http.Request) {
	if err := h.accounts.SetBlocked(r.Context(), r.PathValue("accountId"), false); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// manualCredit godoc
// @Summary Manually credit an account
// @Description Credits the account outside the normal flows, leaving an audit entry naming the admin.
// @Tags admin
// @Accept json
// @Produce json
// @Param accountId path string true "Account ID"
// @Param adjustment body dto.ManualAdjustDTO true "Adjustment request"
// @Success 200 {object} dto.LedgerEntryResponseDTO
// @Failure 400 {string} string "Amount must be positive"
// @Router /admin/accounts/{accountId}/credit [post]
func (h *AdminHandler) manualCredit(w http.ResponseWriter, r *http.Request) {
	h.manualAdjust(w, r, true)
}

// manualDebit godoc
// @Summary Manually debit an account
// @Description Debits the account outside the normal flows; may drive the balance negative.
// @Tags admin
// @Accept json
// @Produce json
// @Param accountId path string true "Account ID"
// @Param adjustment body dto.ManualAdjustDTO true "Adjustment request"
// @Success 200 {object} dto.LedgerEntryResponseDTO
// @Failure 400 {string} string "Amount must be positive"
// @Router /admin/accounts/{accountId}/debit [post]
func (h *AdminHandler) manualDebit(w http.ResponseWriter, r *http.Request) {
	h.manualAdjust(w, r, false)
}

func (h *AdminHandler) manualAdjust(w http.ResponseWriter, r *http.Request, credit bool) {
	adminID := middleware.AccountID(r.Context())
	var req dto.ManualAdjustDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}
	accountID := r.PathValue("accountId")
	if credit {
		e, err := h.ledger.ManualCredit(r.Context(), accountID, adminID, req.Amount, req.Reason)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, entryResponse(e))
		return
	}
	e, err := h.ledger.ManualDebit(r.Context(), accountID, adminID, req.Amount, req.Reason)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entryResponse(e))
}

// reconcile godoc
// @Summary Reconcile an account's balance
// @Tags admin
// @Produce json
// @Param accountId path string true "Account ID"
// @Success 200 {object} dto.ReconcileResponseDTO
// @Failure 404 {string} string "Account not found"
// @Router /admin/accounts/{accountId}/reconcile [get]
func (h *AdminHandler) reconcile(w http.ResponseWriter, r *http.Request) {
	report, err := h.ledger.Reconcile(r.Context(), r.PathValue("accountId"))
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
