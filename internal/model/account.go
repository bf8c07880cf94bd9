package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is a platform user together with its wallet state. Balance is
// denominated in MT and must always equal the reconciled sum of the account's
// ledger entries (see repository.LedgerRepository.ReconcileBalance).
type Account struct {
	ID                 string          `db:"id" json:"id"`
	Username           string          `db:"username" json:"username"`
	Email              string          `db:"email" json:"email"`
	PasswordHash       string          `db:"password_hash" json:"-"`
	IsVerified         bool            `db:"is_verified" json:"is_verified"`
	IsBlocked          bool            `db:"is_blocked" json:"is_blocked"`
	IsAdmin            bool            `db:"is_admin" json:"is_admin"`
	Balance            decimal.Decimal `db:"balance" json:"balance"`
	CurrentPlanID      *string         `db:"current_plan_id" json:"current_plan_id,omitempty"`
	PlanActivatedAt    *time.Time      `db:"plan_activated_at" json:"plan_activated_at,omitempty"`
	PlanExpiresAt      *time.Time      `db:"plan_expires_at" json:"plan_expires_at,omitempty"`
	VideosWatchedToday int             `db:"videos_watched_today" json:"videos_watched_today"`
	LastVideoWatchAt   *time.Time      `db:"last_video_watch_at" json:"last_video_watch_at,omitempty"`
	ReferralCode       string          `db:"referral_code" json:"referral_code"`
	ReferredBy         *string         `db:"referred_by" json:"referred_by,omitempty"`
	CreatedAt          time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time       `db:"updated_at" json:"updated_at"`
}

// ReferralSummary aggregates an account's referral earnings.
type ReferralSummary struct {
	ReferralCode  string          `json:"referral_code"`
	ReferralLink  string          `json:"referral_link"`
	Referred      []Account       `json:"referred_users"`
	TotalEarnings decimal.Decimal `json:"total_earnings"`
}
