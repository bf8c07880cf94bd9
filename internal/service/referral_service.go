package service

import (
	"context"
	"errors"
	"fmt"

	"app/internal/model"
	"app/internal/repository"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ReferralService pays referrer bonuses and reports referral earnings.
//
// Bonus payments are best-effort side effects of a purchase or a watch: the
// parent operation has already committed, so a failure here is logged and the
// bonus is retried by keying it on the parent's ledger entry. CreditOnce makes
// a retry of an already-paid bonus a no-op.
type ReferralService interface {
	// OnPlanPurchase pays the buyer's referrer a cut of the plan cost.
	OnPlanPurchase(ctx context.Context, buyer *model.Account, plan *model.Plan, sourceEntryID string)
	// OnVideoReward pays the watcher's referrer a cut of the video reward.
	OnVideoReward(ctx context.Context, watcher *model.Account, reward decimal.Decimal, sourceEntryID string)
	// Summary returns the account's referral code, link, referred accounts
	// and total bonus earnings.
	Summary(ctx context.Context, accountID string) (*model.ReferralSummary, error)
}

type referralService struct {
	accounts      repository.AccountRepository
	ledger        repository.LedgerRepository
	policy        Policy
	publicBaseURL string
	logger        zerolog.Logger
}

// NewReferralService creates a new ReferralService with a scoped logger.
func NewReferralService(accounts repository.AccountRepository, ledger repository.LedgerRepository, policy Policy, publicBaseURL string, logger zerolog.Logger) ReferralService {
	return &referralService{
		accounts:      accounts,
		ledger:        ledger,
		policy:        policy,
		publicBaseURL: publicBaseURL,
		logger:        logger.With().Str("service", "ReferralService").Logger(),
	}
}

func (s *referralService) OnPlanPurchase(ctx context.Context, buyer *model.Account, plan *model.Plan, sourceEntryID string) {
	bonus := plan.Cost.Mul(s.policy.PlanReferralRate)
	desc := fmt.Sprintf("Referral bonus for %s's purchase of plan %q", buyer.Username, plan.Name)
	s.payBonus(ctx, buyer, bonus, model.KindReferralPlanBonus, sourceEntryID, desc)
}

func (s *referralService) OnVideoReward(ctx context.Context, watcher *model.Account, reward decimal.Decimal, sourceEntryID string) {
	bonus := reward.Mul(s.policy.VideoReferralRate)
	desc := fmt.Sprintf("Referral bonus for %s's video activity", watcher.Username)
	s.payBonus(ctx, watcher, bonus, model.KindReferralVideoBonus, sourceEntryID, desc)
}

func (s *referralService) payBonus(ctx context.Context, source *model.Account, bonus decimal.Decimal, kind model.EntryKind, sourceEntryID, desc string) {
	if source.ReferredBy == nil || !bonus.IsPositive() {
		return
	}
	referrerID := *source.ReferredBy

	_, err := s.ledger.CreditOnce(ctx, referrerID, bonus, kind, sourceEntryID, desc)
	switch {
	case errors.Is(err, repository.ErrDuplicateEntry):
		s.logger.Debug().
			Str("referrer_id", referrerID).
			Str("source_entry_id", sourceEntryID).
			Msg("Referral bonus already paid, skipping")
	case errors.Is(err, repository.ErrNotFound):
		s.logger.Warn().
			Str("referrer_id", referrerID).
			Str("account_id", source.ID).
			Msg("Referrer account no longer exists, bonus skipped")
	case err != nil:
		s.logger.Error().Err(err).
			Str("referrer_id", referrerID).
			Str("source_entry_id", sourceEntryID).
			Str("kind", string(kind)).
			Msg("Failed to pay referral bonus")
	default:
		s.logger.Info().
			Str("referrer_id", referrerID).
			Str("account_id", source.ID).
			Str("amount", bonus.String()).
			Str("kind", string(kind)).
			Msg("Referral bonus paid")
	}
}

func (s *referralService) Summary(ctx context.Context, accountID string) (*model.ReferralSummary, error) {
	acc, err := s.accounts.GetByID(ctx, accountID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	referred, err := s.accounts.ListReferred(ctx, accountID)
	if err != nil {
		s.logger.Error().Err(err).Str("account_id", accountID).Msg("Failed to list referred accounts")
		return nil, err
	}
	earnings, err := s.ledger.SumByKinds(ctx, accountID, model.KindReferralPlanBonus, model.KindReferralVideoBonus)
	if err != nil {
		s.logger.Error().Err(err).Str("account_id", accountID).Msg("Failed to sum referral earnings")
		return nil, err
	}

	return &model.ReferralSummary{
		ReferralCode:  acc.ReferralCode,
		ReferralLink:  fmt.Sprintf("%s/register?ref=%s", s.publicBaseURL, acc.ReferralCode),
		Referred:      referred,
		TotalEarnings: earnings,
	}, nil
}
