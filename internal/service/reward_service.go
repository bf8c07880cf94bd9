package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"app/internal/clock"
	"app/internal/model"
	"app/internal/pubsub"
	"app/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// RewardService runs the daily watch-to-earn state machine. All day
// arithmetic happens in the configured reward timezone; the day rolls over
// lazily on the first interaction after local midnight, there is no scheduled
// reset job.
type RewardService interface {
	// Watch validates a completed watch and pays the reward. The account must
	// hold an active plan, have quota left for the local day, not have been
	// rewarded for this video today, and have watched the video to within the
	// configured tolerance of its full duration.
	Watch(ctx context.Context, accountID, videoID string, watchedSeconds int) (*WatchResult, error)
	// SyncDay applies a pending day rollover without watching anything.
	// Callers use it to show fresh quota numbers on login.
	SyncDay(ctx context.Context, accountID string) (*model.Account, error)
	// Progress reports the account's quota usage for the current local day.
	Progress(ctx context.Context, accountID string) (*QuotaProgress, error)
}

// WatchResult is the outcome of a successful rewarded watch.
type WatchResult struct {
	Entry         *model.LedgerEntry `json:"entry"`
	Reward        decimal.Decimal    `json:"reward"`
	WatchedToday  int                `json:"videos_watched_today"`
	Quota         int                `json:"videos_per_day"`
	QuotaComplete bool               `json:"quota_complete"`
}

// QuotaProgress summarizes how much of today's quota an account has used.
type QuotaProgress struct {
	WatchedToday int  `json:"videos_watched_today"`
	Quota        int  `json:"videos_per_day"`
	CanWatch     bool `json:"can_watch"`
}

type rewardService struct {
	accounts  repository.AccountRepository
	plans     repository.PlanRepository
	videos    repository.VideoRepository
	watches   repository.WatchRepository
	referrals ReferralService
	publisher pubsub.Publisher
	topic     string
	policy    Policy
	days      *clock.DayPolicy
	logger    zerolog.Logger
}

// NewRewardService creates a new RewardService with a scoped logger.
func NewRewardService(accounts repository.AccountRepository, plans repository.PlanRepository, videos repository.VideoRepository, watches repository.WatchRepository, referrals ReferralService, publisher pubsub.Publisher, topic string, policy Policy, days *clock.DayPolicy, logger zerolog.Logger) RewardService {
	return &rewardService{
		accounts:  accounts,
		plans:     plans,
		videos:    videos,
		watches:   watches,
		referrals: referrals,
		publisher: publisher,
		topic:     topic,
		policy:    policy,
		days:      days,
		logger:    logger.With().Str("service", "RewardService").Logger(),
	}
}

func (s *rewardService) Watch(ctx context.Context, accountID, videoID string, watchedSeconds int) (*WatchResult, error) {
	acc, plan, err := s.loadForWatch(ctx, accountID)
	if err != nil {
		return nil, err
	}

	video, err := s.videos.GetByID(ctx, videoID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if !video.IsActive {
		return nil, ErrVideoInactive
	}

	if acc.VideosWatchedToday >= plan.VideosPerDay {
		return nil, ErrQuotaExceeded
	}
	if watchedSeconds < video.DurationSeconds-s.policy.WatchTolerance {
		return nil, ErrIncompleteWatch
	}

	now := s.days.Now()
	today := s.days.DayOf(now)
	watched, err := s.watches.HasWatchedOn(ctx, accountID, videoID, today)
	if err != nil {
		return nil, err
	}
	if watched {
		return nil, ErrAlreadyWatchedToday
	}

	reward := plan.RewardPerVideo()
	if s.policy.RewardModel == RewardFromVideo {
		reward = video.RewardAmount
	}

	rec := &model.WatchRecord{
		ID:           uuid.NewString(),
		AccountID:    accountID,
		VideoID:      videoID,
		WatchedAt:    now,
		WatchDay:     today,
		RewardEarned: reward,
	}
	desc := fmt.Sprintf("Reward for watching %q", video.Title)
	entry, newCount, err := s.watches.RecordWatch(ctx, rec, plan.VideosPerDay, desc)
	switch {
	case errors.Is(err, repository.ErrDuplicateWatch):
		return nil, ErrAlreadyWatchedToday
	case errors.Is(err, repository.ErrQuotaExhausted):
		return nil, ErrQuotaExceeded
	case err != nil:
		s.logger.Error().Err(err).Str("account_id", accountID).Str("video_id", videoID).Msg("Failed to record watch")
		return nil, err
	}

	quotaComplete := newCount >= plan.VideosPerDay
	s.logger.Info().
		Str("account_id", accountID).
		Str("video_id", videoID).
		Str("reward", reward.String()).
		Int("watched_today", newCount).
		Msg("Video watch rewarded")

	switch s.policy.CascadeTrigger {
	case CascadePerVideo:
		s.referrals.OnVideoReward(ctx, acc, reward, entry.ID)
	case CascadeQuotaComplete:
		if quotaComplete {
			s.referrals.OnVideoReward(ctx, acc, plan.DailyReward, entry.ID)
		}
	}
	s.publishEntry(ctx, entry)

	return &WatchResult{
		Entry:         entry,
		Reward:        reward,
		WatchedToday:  newCount,
		Quota:         plan.VideosPerDay,
		QuotaComplete: quotaComplete,
	}, nil
}

func (s *rewardService) SyncDay(ctx context.Context, accountID string) (*model.Account, error) {
	acc, err := s.accounts.GetByID(ctx, accountID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.rolloverIfStale(ctx, acc)
}

func (s *rewardService) Progress(ctx context.Context, accountID string) (*QuotaProgress, error) {
	acc, plan, err := s.loadForWatch(ctx, accountID)
	if errors.Is(err, ErrNoActivePlan) || errors.Is(err, ErrPlanExpired) {
		return &QuotaProgress{}, nil
	}
	if err != nil {
		return nil, err
	}
	return &QuotaProgress{
		WatchedToday: acc.VideosWatchedToday,
		Quota:        plan.VideosPerDay,
		CanWatch:     acc.VideosWatchedToday < plan.VideosPerDay,
	}, nil
}

// loadForWatch fetches the account, applies any pending rollover and resolves
// the active plan.
func (s *rewardService) loadForWatch(ctx context.Context, accountID string) (*model.Account, *model.Plan, error) {
	acc, err := s.accounts.GetByID(ctx, accountID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	if acc.IsBlocked {
		return nil, nil, ErrBlocked
	}
	acc, err = s.rolloverIfStale(ctx, acc)
	if err != nil {
		return nil, nil, err
	}

	if acc.CurrentPlanID == nil {
		return nil, nil, ErrNoActivePlan
	}
	if s.policy.ExpiryModel == ExpiryDuration && acc.PlanExpiresAt != nil && !s.days.Now().Before(*acc.PlanExpiresAt) {
		return nil, nil, ErrPlanExpired
	}

	plan, err := s.plans.GetByID(ctx, *acc.CurrentPlanID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil, ErrNoActivePlan
	}
	if err != nil {
		return nil, nil, err
	}
	return acc, plan, nil
}

// rolloverIfStale zeroes the daily counter when the last watch happened on an
// earlier local day. The last-watch timestamp stays untouched; the zeroed
// counter alone keeps the reset from re-applying.
func (s *rewardService) rolloverIfStale(ctx context.Context, acc *model.Account) (*model.Account, error) {
	if acc.VideosWatchedToday == 0 || acc.LastVideoWatchAt == nil {
		return acc, nil
	}
	if !s.days.BeforeDay(*acc.LastVideoWatchAt, s.days.Now()) {
		return acc, nil
	}
	if err := s.accounts.ResetDailyCount(ctx, acc.ID); err != nil {
		s.logger.Error().Err(err).Str("account_id", acc.ID).Msg("Failed to roll over daily count")
		return nil, err
	}
	s.logger.Info().Str("account_id", acc.ID).Msg("Daily quota rolled over")
	acc.VideosWatchedToday = 0
	return acc, nil
}

func (s *rewardService) publishEntry(ctx context.Context, entry *model.LedgerEntry) {
	if s.publisher == nil {
		return
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		s.logger.Error().Err(err).Str("entry_id", entry.ID).Msg("Failed to marshal ledger event")
		return
	}
	if _, err := s.publisher.Publish(ctx, s.topic, payload); err != nil {
		s.logger.Error().Err(err).Str("entry_id", entry.ID).Msg("Failed to publish ledger event")
	}
}
