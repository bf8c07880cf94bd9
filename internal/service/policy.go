package service

import (
	"fmt"

	"app/internal/config"

	"github.com/shopspring/decimal"
)

// RewardModel decides where the per-video reward amount comes from.
type RewardModel string

const (
	// RewardFromPlan divides the plan's daily reward evenly across its quota.
	RewardFromPlan RewardModel = "plan"
	// RewardFromVideo pays each video's own reward amount.
	RewardFromVideo RewardModel = "video"
)

// ExpiryModel decides whether plans ever stop paying.
type ExpiryModel string

const (
	ExpiryPerpetual ExpiryModel = "perpetual"
	ExpiryDuration  ExpiryModel = "duration"
)

// CascadeTrigger decides when the referrer earns the daily bonus.
type CascadeTrigger string

const (
	CascadePerVideo      CascadeTrigger = "per_video"
	CascadeQuotaComplete CascadeTrigger = "quota_complete"
)

// DebitTiming decides when a withdrawal actually leaves the balance.
type DebitTiming string

const (
	DebitOnRequest  DebitTiming = "on_request"
	DebitOnApproval DebitTiming = "on_approval"
)

// Policy carries the reward engine's configurable behavior in typed form.
type Policy struct {
	RewardModel       RewardModel
	ExpiryModel       ExpiryModel
	CascadeTrigger    CascadeTrigger
	WithdrawalDebit   DebitTiming
	PlanReferralRate  decimal.Decimal
	VideoReferralRate decimal.Decimal
	WatchTolerance    int
}

// PolicyFromConfig validates the raw config knobs into a Policy.
func PolicyFromConfig(cfg *config.Config) (Policy, error) {
	p := Policy{
		RewardModel:       RewardModel(cfg.RewardModel),
		ExpiryModel:       ExpiryModel(cfg.PlanExpiryModel),
		CascadeTrigger:    CascadeTrigger(cfg.CascadeTrigger),
		WithdrawalDebit:   DebitTiming(cfg.WithdrawalDebit),
		PlanReferralRate:  decimal.NewFromFloat(cfg.PlanReferralRate),
		VideoReferralRate: decimal.NewFromFloat(cfg.VideoReferralRate),
		WatchTolerance:    cfg.WatchToleranceSec,
	}
	switch p.RewardModel {
	case RewardFromPlan, RewardFromVideo:
	default:
		return Policy{}, fmt.Errorf("invalid reward model %q", cfg.RewardModel)
	}
	switch p.ExpiryModel {
	case ExpiryPerpetual, ExpiryDuration:
	default:
		return Policy{}, fmt.Errorf("invalid plan expiry model %q", cfg.PlanExpiryModel)
	}
	switch p.CascadeTrigger {
	case CascadePerVideo, CascadeQuotaComplete:
	default:
		return Policy{}, fmt.Errorf("invalid cascade trigger %q", cfg.CascadeTrigger)
	}
	switch p.WithdrawalDebit {
	case DebitOnRequest, DebitOnApproval:
	default:
		return Policy{}, fmt.Errorf("invalid withdrawal debit timing %q", cfg.WithdrawalDebit)
	}
	return p, nil
}
