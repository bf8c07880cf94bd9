package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// RegisterDTO is used for incoming registration requests
type RegisterDTO struct {
	Username     string `json:"username" validate:"required,alphanum,min=3,max=32"`
	Email        string `json:"email" validate:"required,email"`
	Password     string `json:"password" validate:"required,min=8,max=72"`
	ReferralCode string `json:"referral_code,omitempty" validate:"omitempty,len=8"`
}

// LoginDTO is used for incoming login requests
type LoginDTO struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ChangePasswordDTO is used for password change requests
type ChangePasswordDTO struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72"`
}

// AccountResponseDTO is returned in API responses for accounts
type AccountResponseDTO struct {
	ID                 string          `json:"id"`
	Username           string          `json:"username"`
	Email              string          `json:"email"`
	IsVerified         bool            `json:"is_verified"`
	IsBlocked          bool            `json:"is_blocked"`
	IsAdmin            bool            `json:"is_admin"`
	Balance            decimal.Decimal `json:"balance"`
	CurrentPlanID      *string         `json:"current_plan_id,omitempty"`
	PlanActivatedAt    *time.Time      `json:"plan_activated_at,omitempty"`
	PlanExpiresAt      *time.Time      `json:"plan_expires_at,omitempty"`
	VideosWatchedToday int             `json:"videos_watched_today"`
	ReferralCode       string          `json:"referral_code"`
	CreatedAt          time.Time       `json:"created_at"`
}

// AuthResponseDTO is returned after a successful login
type AuthResponseDTO struct {
	Token   string             `json:"token"`
	Account AccountResponseDTO `json:"account"`
}
