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

// LedgerService exposes wallet queries and the admin-side manual adjustments.
type LedgerService interface {
	// Balance returns the cached balance for an account.
	Balance(ctx context.Context, accountID string) (decimal.Decimal, error)
	// Transactions returns the account's ledger entries, newest first.
	Transactions(ctx context.Context, accountID string) ([]model.LedgerEntry, error)
	// Reconcile recomputes the balance from the ledger and reports any drift
	// against the cached value.
	Reconcile(ctx context.Context, accountID string) (*ReconcileReport, error)
	// ManualCredit credits an account outside the normal flows.
	ManualCredit(ctx context.Context, accountID, adminID string, amount decimal.Decimal, reason string) (*model.LedgerEntry, error)
	// ManualDebit debits an account outside the normal flows. It may drive
	// the balance negative; the adjustment is deliberate.
	ManualDebit(ctx context.Context, accountID, adminID string, amount decimal.Decimal, reason string) (*model.LedgerEntry, error)
}

// ReconcileReport compares the cached balance with the ledger-derived one.
type ReconcileReport struct {
	AccountID string          `json:"account_id"`
	Cached    decimal.Decimal `json:"cached_balance"`
	Derived   decimal.Decimal `json:"derived_balance"`
	Drift     decimal.Decimal `json:"drift"`
}

type ledgerService struct {
	ledger   repository.LedgerRepository
	accounts repository.AccountRepository
	policy   Policy
	logger   zerolog.Logger
}

// NewLedgerService creates a new LedgerService with a scoped logger.
func NewLedgerService(ledger repository.LedgerRepository, accounts repository.AccountRepository, policy Policy, logger zerolog.Logger) LedgerService {
	return &ledgerService{
		ledger:   ledger,
		accounts: accounts,
		policy:   policy,
		logger:   logger.With().Str("service", "LedgerService").Logger(),
	}
}

func (s *ledgerService) Balance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	acc, err := s.accounts.GetByID(ctx, accountID)
	if errors.Is(err, repository.ErrNotFound) {
		return decimal.Zero, ErrNotFound
	}
	if err != nil {
		s.logger.Error().Err(err).Str("account_id", accountID).Msg("Failed to fetch account balance")
		return decimal.Zero, err
	}
	return acc.Balance, nil
}

func (s *ledgerService) Transactions(ctx context.Context, accountID string) ([]model.LedgerEntry, error) {
	entries, err := s.ledger.ListByAccount(ctx, accountID)
	if err != nil {
		s.logger.Error().Err(err).Str("account_id", accountID).Msg("Failed to list ledger entries")
		return nil, err
	}
	return entries, nil
}

func (s *ledgerService) Reconcile(ctx context.Context, accountID string) (*ReconcileReport, error) {
	// Pending withdrawal holds offset the balance only when withdrawals debit
	// at request time; under deferred debit the balance carries no hold.
	includeHolds := s.policy.WithdrawalDebit == DebitOnRequest
	balance, ledgerSum, err := s.ledger.ReconcileBalance(ctx, accountID, includeHolds)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		s.logger.Error().Err(err).Str("account_id", accountID).Msg("Failed to reconcile balance")
		return nil, err
	}
	report := &ReconcileReport{
		AccountID: accountID,
		Cached:    balance,
		Derived:   ledgerSum,
		Drift:     balance.Sub(ledgerSum),
	}
	if !report.Drift.IsZero() {
		s.logger.Warn().
			Str("account_id", accountID).
			Str("cached", report.Cached.String()).
			Str("derived", report.Derived.String()).
			Msg("Balance drift detected")
	}
	return report, nil
}

func (s *ledgerService) ManualCredit(ctx context.Context, accountID, adminID string, amount decimal.Decimal, reason string) (*model.LedgerEntry, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	desc := fmt.Sprintf("Manual credit by admin: %s", reason)
	entry, err := s.ledger.Credit(ctx, accountID, amount, model.KindManualCredit, &adminID, desc)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		s.logger.Error().Err(err).Str("account_id", accountID).Msg("Failed to apply manual credit")
		return nil, err
	}
	s.logger.Info().Str("account_id", accountID).Str("admin_id", adminID).Str("amount", amount.String()).Msg("Manual credit applied")
	return entry, nil
}

func (s *ledgerService) ManualDebit(ctx context.Context, accountID, adminID string, amount decimal.Decimal, reason string) (*model.LedgerEntry, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	desc := fmt.Sprintf("Manual debit by admin: %s", reason)
	entry, err := s.ledger.Debit(ctx, accountID, amount, model.KindManualDebit, &adminID, desc, true)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		s.logger.Error().Err(err).Str("account_id", accountID).Msg("Failed to apply manual debit")
		return nil, err
	}
	s.logger.Info().Str("account_id", accountID).Str("admin_id", adminID).Str("amount", amount.String()).Msg("Manual debit applied")
	return entry, nil
}
