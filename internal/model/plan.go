package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Plan is a purchasable subscription defining the daily video quota and the
// reward rate. Editing a plan never retroactively changes subscriptions that
// were activated against its previous values.
type Plan struct {
	ID           string          `db:"id" json:"id"`
	Name         string          `db:"name" json:"name"`
	Cost         decimal.Decimal `db:"cost" json:"cost"`
	DailyReward  decimal.Decimal `db:"daily_reward" json:"daily_reward"`
	VideosPerDay int             `db:"videos_per_day" json:"videos_per_day"`
	DurationDays int             `db:"duration_days" json:"duration_days"`
	TotalReward  decimal.Decimal `db:"total_reward" json:"total_reward"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

// RewardPerVideo normalizes the plan-level daily reward to a per-video amount.
func (p *Plan) RewardPerVideo() decimal.Decimal {
	if p.VideosPerDay <= 0 {
		return decimal.Zero
	}
	return p.DailyReward.Div(decimal.NewFromInt(int64(p.VideosPerDay)))
}
