package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"app/internal/clock"
	"app/internal/model"
	"app/internal/pubsub"
	"app/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// PlanService manages the plan catalog and plan purchases.
type PlanService interface {
	CreatePlan(ctx context.Context, p *model.Plan) (*model.Plan, error)
	GetPlan(ctx context.Context, id string) (*model.Plan, error)
	ListPlans(ctx context.Context) ([]model.Plan, error)
	UpdatePlan(ctx context.Context, p *model.Plan) (*model.Plan, error)
	DeletePlan(ctx context.Context, id string) error
	// Purchase debits the plan cost, activates the plan and resets the daily
	// quota, then pays the referral bonus. Buying while already on the same
	// plan is rejected; switching plans is allowed and restarts the quota.
	Purchase(ctx context.Context, accountID, planID string) (*model.Account, error)
}

type planService struct {
	plans     repository.PlanRepository
	accounts  repository.AccountRepository
	referrals ReferralService
	publisher pubsub.Publisher
	topic     string
	policy    Policy
	days      *clock.DayPolicy
	logger    zerolog.Logger
}

// NewPlanService creates a new PlanService with a scoped logger.
func NewPlanService(plans repository.PlanRepository, accounts repository.AccountRepository, referrals ReferralService, publisher pubsub.Publisher, topic string, policy Policy, days *clock.DayPolicy, logger zerolog.Logger) PlanService {
	return &planService{
		plans:     plans,
		accounts:  accounts,
		referrals: referrals,
		publisher: publisher,
		topic:     topic,
		policy:    policy,
		days:      days,
		logger:    logger.With().Str("service", "PlanService").Logger(),
	}
}

func (s *planService) CreatePlan(ctx context.Context, p *model.Plan) (*model.Plan, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if !p.Cost.IsPositive() || !p.DailyReward.IsPositive() || p.VideosPerDay <= 0 {
		return nil, ErrInvalidAmount
	}
	if err := s.plans.Create(ctx, p); err != nil {
		s.logger.Error().Err(err).Str("plan_name", p.Name).Msg("Failed to create plan")
		return nil, err
	}
	return p, nil
}

func (s *planService) GetPlan(ctx context.Context, id string) (*model.Plan, error) {
	p, err := s.plans.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	return p, err
}

func (s *planService) ListPlans(ctx context.Context) ([]model.Plan, error) {
	return s.plans.List(ctx)
}

func (s *planService) UpdatePlan(ctx context.Context, p *model.Plan) (*model.Plan, error) {
	if err := s.plans.Update(ctx, p); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		s.logger.Error().Err(err).Str("plan_id", p.ID).Msg("Failed to update plan")
		return nil, err
	}
	return p, nil
}

func (s *planService) DeletePlan(ctx context.Context, id string) error {
	err := s.plans.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *planService) Purchase(ctx context.Context, accountID, planID string) (*model.Account, error) {
	acc, err := s.accounts.GetByID(ctx, accountID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	plan, err := s.plans.GetByID(ctx, planID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if acc.CurrentPlanID != nil && *acc.CurrentPlanID == planID && s.planStillActive(acc) {
		return nil, ErrAlreadySubscribed
	}

	now := s.days.Now()
	var expiresAt *time.Time
	if s.policy.ExpiryModel == ExpiryDuration && plan.DurationDays > 0 {
		t := now.AddDate(0, 0, plan.DurationDays)
		expiresAt = &t
	}

	entry, err := s.accounts.ActivatePlan(ctx, accountID, plan, now, expiresAt)
	if errors.Is(err, repository.ErrInsufficientBalance) {
		return nil, ErrInsufficientBalance
	}
	if err != nil {
		s.logger.Error().Err(err).Str("account_id", accountID).Str("plan_id", planID).Msg("Failed to activate plan")
		return nil, err
	}
	s.logger.Info().
		Str("account_id", accountID).
		Str("plan_id", planID).
		Str("cost", plan.Cost.String()).
		Msg("Plan purchased")

	s.referrals.OnPlanPurchase(ctx, acc, plan, entry.ID)
	s.publishEntry(ctx, entry)

	return s.accounts.GetByID(ctx, accountID)
}

// planStillActive reports whether the account's current plan has not lapsed
// under the duration expiry model. Perpetual plans never lapse.
func (s *planService) planStillActive(acc *model.Account) bool {
	if s.policy.ExpiryModel == ExpiryPerpetual {
		return true
	}
	return acc.PlanExpiresAt == nil || s.days.Now().Before(*acc.PlanExpiresAt)
}

func (s *planService) publishEntry(ctx context.Context, entry *model.LedgerEntry) {
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
