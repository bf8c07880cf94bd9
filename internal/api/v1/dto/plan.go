package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// PlanCreateDTO is used for incoming plan creation requests
type PlanCreateDTO struct {
	Name         string          `json:"name" validate:"required,max=100"`
	Cost         decimal.Decimal `json:"cost" validate:"required"`
	DailyReward  decimal.Decimal `json:"daily_reward" validate:"required"`
	VideosPerDay int             `json:"videos_per_day" validate:"required,gt=0"`
	DurationDays int             `json:"duration_days" validate:"omitempty,gte=0"`
	TotalReward  decimal.Decimal `json:"total_reward"`
}

// PlanUpdateDTO is used for incoming plan update requests
type PlanUpdateDTO struct {
	Name         *string          `json:"name,omitempty"`
	Cost         *decimal.Decimal `json:"cost,omitempty"`
	DailyReward  *decimal.Decimal `json:"daily_reward,omitempty"`
	VideosPerDay *int             `json:"videos_per_day,omitempty" validate:"omitempty,gt=0"`
	DurationDays *int             `json:"duration_days,omitempty" validate:"omitempty,gte=0"`
	TotalReward  *decimal.Decimal `json:"total_reward,omitempty"`
}

// PlanResponseDTO is returned in API responses for plans
type PlanResponseDTO struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Cost         decimal.Decimal `json:"cost"`
	DailyReward  decimal.Decimal `json:"daily_reward"`
	VideosPerDay int             `json:"videos_per_day"`
	DurationDays int             `json:"duration_days"`
	TotalReward  decimal.Decimal `json:"total_reward"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// PurchaseDTO is used for plan purchase requests
type PurchaseDTO struct {
	PlanID string `json:"plan_id" validate:"required,uuid4"`
}
