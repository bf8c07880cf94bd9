package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// VideoCreateDTO is used for incoming video creation requests
type VideoCreateDTO struct {
	Title           string          `json:"title" validate:"required,max=200"`
	VideoURL        string          `json:"video_url" validate:"omitempty,url"`
	DurationSeconds int             `json:"duration_seconds" validate:"required,gt=0"`
	RewardAmount    decimal.Decimal `json:"reward_amount"`
	IsActive        bool            `json:"is_active"`
}

// VideoUpdateDTO is used for incoming video update requests
type VideoUpdateDTO struct {
	Title           *string          `json:"title,omitempty"`
	VideoURL        *string          `json:"video_url,omitempty" validate:"omitempty,url"`
	DurationSeconds *int             `json:"duration_seconds,omitempty" validate:"omitempty,gt=0"`
	RewardAmount    *decimal.Decimal `json:"reward_amount,omitempty"`
	IsActive        *bool            `json:"is_active,omitempty"`
}

// VideoResponseDTO is returned in API responses for videos
type VideoResponseDTO struct {
	ID              string          `json:"id"`
	Title           string          `json:"title"`
	VideoURL        string          `json:"video_url"`
	DurationSeconds int             `json:"duration_seconds"`
	RewardAmount    decimal.Decimal `json:"reward_amount"`
	IsActive        bool            `json:"is_active"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// WatchDTO reports a completed watch for reward
type WatchDTO struct {
	VideoID        string `json:"video_id" validate:"required,uuid4"`
	WatchedSeconds int    `json:"watched_seconds" validate:"gte=0"`
}

// WatchResponseDTO is returned after a rewarded watch
type WatchResponseDTO struct {
	Reward        decimal.Decimal        `json:"reward"`
	WatchedToday  int                    `json:"videos_watched_today"`
	Quota         int                    `json:"videos_per_day"`
	QuotaComplete bool                   `json:"quota_complete"`
	Entry         LedgerEntryResponseDTO `json:"entry"`
}

// QuotaProgressResponseDTO reports today's quota usage
type QuotaProgressResponseDTO struct {
	WatchedToday int  `json:"videos_watched_today"`
	Quota        int  `json:"videos_per_day"`
	CanWatch     bool `json:"can_watch"`
}
