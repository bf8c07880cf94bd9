package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"app/internal/api/v1/dto"
	"app/internal/model"
	"app/internal/service"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// writeServiceError maps service sentinel errors onto HTTP status codes.
// Unrecognized errors become opaque 500s.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, service.ErrInvalidCredentials):
		http.Error(w, err.Error(), http.StatusUnauthorized)
	case errors.Is(err, service.ErrNotVerified),
		errors.Is(err, service.ErrBlocked),
		errors.Is(err, service.ErrNoActivePlan),
		errors.Is(err, service.ErrPlanExpired),
		errors.Is(err, service.ErrVideoInactive):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, service.ErrEmailTaken),
		errors.Is(err, service.ErrUsernameTaken),
		errors.Is(err, service.ErrAlreadySubscribed),
		errors.Is(err, service.ErrAlreadyWatchedToday),
		errors.Is(err, service.ErrAlreadyProcessed):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, service.ErrQuotaExceeded):
		http.Error(w, err.Error(), http.StatusTooManyRequests)
	case errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrInvalidMethod),
		errors.Is(err, service.ErrInvalidReferralCode),
		errors.Is(err, service.ErrIncompleteWatch),
		errors.Is(err, service.ErrInsufficientBalance):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func accountResponse(a *model.Account) dto.AccountResponseDTO {
	return dto.AccountResponseDTO{
		ID:                 a.ID,
		Username:           a.Username,
		Email:              a.Email,
		IsVerified:         a.IsVerified,
		IsBlocked:          a.IsBlocked,
		IsAdmin:            a.IsAdmin,
		Balance:            a.Balance,
		CurrentPlanID:      a.CurrentPlanID,
		PlanActivatedAt:    a.PlanActivatedAt,
		PlanExpiresAt:      a.PlanExpiresAt,
		VideosWatchedToday: a.VideosWatchedToday,
		ReferralCode:       a.ReferralCode,
		CreatedAt:          a.CreatedAt,
	}
}

func entryResponse(e *model.LedgerEntry) dto.LedgerEntryResponseDTO {
	return dto.LedgerEntryResponseDTO{
		ID:          e.ID,
		Kind:        string(e.Kind),
		Amount:      e.Amount,
		Description: e.Description,
		Status:      string(e.Status),
		CreatedAt:   e.CreatedAt,
	}
}

func planResponse(p *model.Plan) dto.PlanResponseDTO {
	return dto.PlanResponseDTO{
		ID:           p.ID,
		Name:         p.Name,
		Cost:         p.Cost,
		DailyReward:  p.DailyReward,
		VideosPerDay: p.VideosPerDay,
		DurationDays: p.DurationDays,
		TotalReward:  p.TotalReward,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func videoResponse(v *model.Video) dto.VideoResponseDTO {
	return dto.VideoResponseDTO{
		ID:              v.ID,
		Title:           v.Title,
		VideoURL:        v.VideoURL,
		DurationSeconds: v.DurationSeconds,
		RewardAmount:    v.RewardAmount,
		IsActive:        v.IsActive,
		CreatedAt:       v.CreatedAt,
		UpdatedAt:       v.UpdatedAt,
	}
}

func depositResponse(d *model.DepositRequest) dto.DepositResponseDTO {
	return dto.DepositResponseDTO{
		ID:             d.ID,
		AccountID:      d.AccountID,
		Amount:         d.Amount,
		PaymentMethod:  d.PaymentMethod,
		Proof:          d.Proof,
		TransactionRef: d.TransactionRef,
		Status:         string(d.Status),
		ProcessedBy:    d.ProcessedBy,
		ProcessedAt:    d.ProcessedAt,
		CreatedAt:      d.CreatedAt,
	}
}

func withdrawalResponse(wr *model.WithdrawalRequest) dto.WithdrawalResponseDTO {
	return dto.WithdrawalResponseDTO{
		ID:            wr.ID,
		AccountID:     wr.AccountID,
		Amount:        wr.Amount,
		PaymentMethod: wr.PaymentMethod,
		PhoneNumber:   wr.PhoneNumber,
		Status:        string(wr.Status),
		ProcessedBy:   wr.ProcessedBy,
		ProcessedAt:   wr.ProcessedAt,
		CreatedAt:     wr.CreatedAt,
	}
}
