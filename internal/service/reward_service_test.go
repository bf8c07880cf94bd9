package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestPurchaseThenWatchPaysRewardAndCascade(t *testing.T) {
	env := newTestEnv(t, testPolicy())
	ctx := context.Background()

	referrer := env.seedAccount("referrer", decimal.Zero, nil)
	buyer := env.seedAccount("buyer", decimal.NewFromInt(150), &referrer.ID)
	plan := env.seedPlan("starter", 100, 30, 3, 30)
	video := env.seedVideo("intro", 60, 2, true)

	acc, err := env.plans.Purchase(ctx, buyer.ID, plan.ID)
	if err != nil {
		t.Fatalf("Purchase: %v", err)
	}
	assertDecimal(t, acc.Balance, "50")
	// Referrer earns 10% of the plan cost.
	assertDecimal(t, env.balance(t, referrer.ID), "10")

	res, err := env.rewards.Watch(ctx, buyer.ID, video.ID, 60)
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	// 30 MT daily reward over 3 videos is 10 MT per watch.
	assertDecimal(t, res.Reward, "10")
	if res.WatchedToday != 1 || res.Quota != 3 || res.QuotaComplete {
		t.Fatalf("unexpected watch result: %+v", res)
	}
	assertDecimal(t, env.balance(t, buyer.ID), "60")
	// Referrer earns 5% of the watch reward on top of the purchase bonus.
	assertDecimal(t, env.balance(t, referrer.ID), "10.5")
}

func TestWatchToleranceBoundary(t *testing.T) {
	env := newTestEnv(t, testPolicy())
	ctx := context.Background()

	acc := env.seedAccount("viewer", decimal.NewFromInt(100), nil)
	plan := env.seedPlan("starter", 100, 30, 3, 30)
	video := env.seedVideo("clip", 60, 2, true)
	if _, err := env.plans.Purchase(ctx, acc.ID, plan.ID); err != nil {
		t.Fatalf("Purchase: %v", err)
	}

	// One second short of the tolerance is rejected.
	if _, err := env.rewards.Watch(ctx, acc.ID, video.ID, 58); !errors.Is(err, ErrIncompleteWatch) {
		t.Fatalf("expected ErrIncompleteWatch, got %v", err)
	}
	// Exactly duration minus tolerance passes.
	if _, err := env.rewards.Watch(ctx, acc.ID, video.ID, 59); err != nil {
		t.Fatalf("Watch at tolerance boundary: %v", err)
	}
}

func TestWatchSameVideoTwiceInOneDay(t *testing.T) {
	env := newTestEnv(t, testPolicy())
	ctx := context.Background()

	acc := env.seedAccount("viewer", decimal.NewFromInt(100), nil)
	plan := env.seedPlan("starter", 100, 30, 3, 30)
	video := env.seedVideo("clip", 60, 2, true)
	if _, err := env.plans.Purchase(ctx, acc.ID, plan.ID); err != nil {
		t.Fatalf("Purchase: %v", err)
	}

	if _, err := env.rewards.Watch(ctx, acc.ID, video.ID, 60); err != nil {
		t.Fatalf("first watch: %v", err)
	}
	if _, err := env.rewards.Watch(ctx, acc.ID, video.ID, 60); !errors.Is(err, ErrAlreadyWatchedToday) {
		t.Fatalf("expected ErrAlreadyWatchedToday, got %v", err)
	}
}

func TestQuotaExhaustionAndLazyRollover(t *testing.T) {
	env := newTestEnv(t, testPolicy())
	ctx := context.Background()

	acc := env.seedAccount("viewer", decimal.NewFromInt(100), nil)
	plan := env.seedPlan("starter", 100, 30, 2, 30)
	v1 := env.seedVideo("one", 60, 2, true)
	v2 := env.seedVideo("two", 60, 2, true)
	v3 := env.seedVideo("three", 60, 2, true)
	if _, err := env.plans.Purchase(ctx, acc.ID, plan.ID); err != nil {
		t.Fatalf("Purchase: %v", err)
	}

	res, err := env.rewards.Watch(ctx, acc.ID, v1.ID, 60)
	if err != nil {
		t.Fatalf("watch 1: %v", err)
	}
	if res.QuotaComplete {
		t.Fatal("quota must not be complete after 1 of 2")
	}
	res, err = env.rewards.Watch(ctx, acc.ID, v2.ID, 60)
	if err != nil {
		t.Fatalf("watch 2: %v", err)
	}
	if !res.QuotaComplete {
		t.Fatal("quota should be complete after 2 of 2")
	}
	if _, err := env.rewards.Watch(ctx, acc.ID, v3.ID, 60); !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}

	// Crossing the local midnight resets the counter without any job running.
	lastWatch := *env.store.accounts[acc.ID].LastVideoWatchAt
	env.clock.advance(24 * time.Hour)
	synced, err := env.rewards.SyncDay(ctx, acc.ID)
	if err != nil {
		t.Fatalf("SyncDay: %v", err)
	}
	if synced.VideosWatchedToday != 0 {
		t.Fatalf("expected counter reset, got %d", synced.VideosWatchedToday)
	}
	// The rollover only zeroes the counter; the last-watch timestamp still
	// records the actual watch from yesterday.
	if got := env.store.accounts[acc.ID].LastVideoWatchAt; got == nil || !got.Equal(lastWatch) {
		t.Fatalf("expected last watch timestamp %v preserved, got %v", lastWatch, got)
	}
	if _, err := env.rewards.Watch(ctx, acc.ID, v3.ID, 60); err != nil {
		t.Fatalf("watch after rollover: %v", err)
	}
	// The same video watched yesterday is eligible again today.
	if _, err := env.rewards.Watch(ctx, acc.ID, v1.ID, 60); err != nil {
		t.Fatalf("re-watch after rollover: %v", err)
	}
}

func TestWatchRequiresActivePlan(t *testing.T) {
	env := newTestEnv(t, testPolicy())
	ctx := context.Background()

	acc := env.seedAccount("planless", decimal.NewFromInt(100), nil)
	video := env.seedVideo("clip", 60, 2, true)

	if _, err := env.rewards.Watch(ctx, acc.ID, video.ID, 60); !errors.Is(err, ErrNoActivePlan) {
		t.Fatalf("expected ErrNoActivePlan, got %v", err)
	}

	progress, err := env.rewards.Progress(ctx, acc.ID)
	if err != nil {
		t.Fatalf("Progress: %v", err)
	}
	if progress.CanWatch || progress.Quota != 0 {
		t.Fatalf("planless account must report empty progress, got %+v", progress)
	}
}

func TestWatchInactiveVideo(t *testing.T) {
	env := newTestEnv(t, testPolicy())
	ctx := context.Background()

	acc := env.seedAccount("viewer", decimal.NewFromInt(100), nil)
	plan := env.seedPlan("starter", 100, 30, 3, 30)
	video := env.seedVideo("retired", 60, 2, false)
	if _, err := env.plans.Purchase(ctx, acc.ID, plan.ID); err != nil {
		t.Fatalf("Purchase: %v", err)
	}

	if _, err := env.rewards.Watch(ctx, acc.ID, video.ID, 60); !errors.Is(err, ErrVideoInactive) {
		t.Fatalf("expected ErrVideoInactive, got %v", err)
	}
}

func TestExpiredPlanStopsPaying(t *testing.T) {
	policy := testPolicy()
	policy.ExpiryModel = ExpiryDuration
	env := newTestEnv(t, policy)
	ctx := context.Background()

	acc := env.seedAccount("viewer", decimal.NewFromInt(100), nil)
	plan := env.seedPlan("starter", 100, 30, 3, 30)
	video := env.seedVideo("clip", 60, 2, true)
	if _, err := env.plans.Purchase(ctx, acc.ID, plan.ID); err != nil {
		t.Fatalf("Purchase: %v", err)
	}

	env.clock.advance(31 * 24 * time.Hour)
	if _, err := env.rewards.Watch(ctx, acc.ID, video.ID, 60); !errors.Is(err, ErrPlanExpired) {
		t.Fatalf("expected ErrPlanExpired, got %v", err)
	}
}

func TestVideoLevelRewardModel(t *testing.T) {
	policy := testPolicy()
	policy.RewardModel = RewardFromVideo
	env := newTestEnv(t, policy)
	ctx := context.Background()

	acc := env.seedAccount("viewer", decimal.NewFromInt(100), nil)
	plan := env.seedPlan("starter", 100, 30, 3, 30)
	video := env.seedVideo("clip", 60, 7, true)
	if _, err := env.plans.Purchase(ctx, acc.ID, plan.ID); err != nil {
		t.Fatalf("Purchase: %v", err)
	}

	res, err := env.rewards.Watch(ctx, acc.ID, video.ID, 60)
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	// Under the video model the video's own amount wins over the plan rate.
	assertDecimal(t, res.Reward, "7")
}

func TestQuotaCompleteCascadeTrigger(t *testing.T) {
	policy := testPolicy()
	policy.CascadeTrigger = CascadeQuotaComplete
	env := newTestEnv(t, policy)
	ctx := context.Background()

	referrer := env.seedAccount("referrer", decimal.Zero, nil)
	viewer := env.seedAccount("viewer", decimal.NewFromInt(100), &referrer.ID)
	plan := env.seedPlan("starter", 100, 30, 2, 30)
	v1 := env.seedVideo("one", 60, 2, true)
	v2 := env.seedVideo("two", 60, 2, true)
	if _, err := env.plans.Purchase(ctx, viewer.ID, plan.ID); err != nil {
		t.Fatalf("Purchase: %v", err)
	}
	// 10 from the purchase bonus only; nothing paid mid-quota.
	assertDecimal(t, env.balance(t, referrer.ID), "10")

	if _, err := env.rewards.Watch(ctx, viewer.ID, v1.ID, 60); err != nil {
		t.Fatalf("watch 1: %v", err)
	}
	assertDecimal(t, env.balance(t, referrer.ID), "10")

	if _, err := env.rewards.Watch(ctx, viewer.ID, v2.ID, 60); err != nil {
		t.Fatalf("watch 2: %v", err)
	}
	// Completing the quota pays 5% of the full daily reward.
	assertDecimal(t, env.balance(t, referrer.ID), "11.5")
}

func TestBlockedAccountCannotWatch(t *testing.T) {
	env := newTestEnv(t, testPolicy())
	ctx := context.Background()

	acc := env.seedAccount("viewer", decimal.NewFromInt(100), nil)
	plan := env.seedPlan("starter", 100, 30, 3, 30)
	video := env.seedVideo("clip", 60, 2, true)
	if _, err := env.plans.Purchase(ctx, acc.ID, plan.ID); err != nil {
		t.Fatalf("Purchase: %v", err)
	}
	env.store.accounts[acc.ID].IsBlocked = true

	if _, err := env.rewards.Watch(ctx, acc.ID, video.ID, 60); !errors.Is(err, ErrBlocked) {
		t.Fatalf("expected ErrBlocked, got %v", err)
	}
}
