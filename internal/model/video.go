package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Video is shared reference data; IsActive gates availability to watchers.
// RewardAmount is only consulted under the video-level reward model.
type Video struct {
	ID              string          `db:"id" json:"id"`
	Title           string          `db:"title" json:"title"`
	VideoURL        string          `db:"video_url" json:"video_url"`
	StoragePath     string          `db:"storage_path" json:"storage_path,omitempty"`
	DurationSeconds int             `db:"duration_seconds" json:"duration_seconds"`
	RewardAmount    decimal.Decimal `db:"reward_amount" json:"reward_amount"`
	IsActive        bool            `db:"is_active" json:"is_active"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}

// WatchRecord is one successful rewarded watch. WatchDay is the localized
// calendar date of the watch; at most one record may exist per
// (account, video, watch day).
type WatchRecord struct {
	ID           string          `db:"id" json:"id"`
	AccountID    string          `db:"account_id" json:"account_id"`
	VideoID      string          `db:"video_id" json:"video_id"`
	WatchedAt    time.Time       `db:"watched_at" json:"watched_at"`
	WatchDay     time.Time       `db:"watch_day" json:"watch_day"`
	RewardEarned decimal.Decimal `db:"reward_earned" json:"reward_earned"`
}
