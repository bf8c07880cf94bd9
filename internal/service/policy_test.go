package service

import (
	"testing"

	"app/internal/config"
)

func TestPolicyFromConfig(t *testing.T) {
	cfg := &config.Config{
		RewardModel:       "plan",
		PlanExpiryModel:   "perpetual",
		CascadeTrigger:    "per_video",
		WithdrawalDebit:   "on_request",
		PlanReferralRate:  0.10,
		VideoReferralRate: 0.05,
		WatchToleranceSec: 1,
	}
	p, err := PolicyFromConfig(cfg)
	if err != nil {
		t.Fatalf("PolicyFromConfig: %v", err)
	}
	if p.RewardModel != RewardFromPlan || p.WithdrawalDebit != DebitOnRequest {
		t.Fatalf("unexpected policy: %+v", p)
	}
	assertDecimal(t, p.PlanReferralRate, "0.1")

	for _, corrupt := range []func(*config.Config){
		func(c *config.Config) { c.RewardModel = "lottery" },
		func(c *config.Config) { c.PlanExpiryModel = "never" },
		func(c *config.Config) { c.CascadeTrigger = "hourly" },
		func(c *config.Config) { c.WithdrawalDebit = "eventually" },
	} {
		bad := *cfg
		corrupt(&bad)
		if _, err := PolicyFromConfig(&bad); err == nil {
			t.Fatalf("expected error for corrupted config %+v", bad)
		}
	}
}
