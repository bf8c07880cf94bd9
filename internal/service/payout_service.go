package service

import (
	"context"
	"errors"

	"app/internal/clock"
	"app/internal/model"
	"app/internal/notifier"
	"app/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// PayoutService handles the deposit and withdrawal approval workflows.
//
// Deposits never touch the balance until an admin approves them. When a
// withdrawal debits depends on the configured timing: under on_request the
// amount is held at request time and refunded on rejection; under on_approval
// the balance is only re-checked and debited when the admin approves, and a
// withdrawal that no longer fits the balance is auto-rejected.
type PayoutService interface {
	RequestDeposit(ctx context.Context, accountID string, amount decimal.Decimal, method, proof, transactionRef string) (*model.DepositRequest, error)
	RequestWithdrawal(ctx context.Context, accountID string, amount decimal.Decimal, method, phoneNumber string) (*model.WithdrawalRequest, error)
	GetDeposit(ctx context.Context, id string) (*model.DepositRequest, error)
	ListPendingDeposits(ctx context.Context) ([]model.DepositRequest, error)
	ListPendingWithdrawals(ctx context.Context) ([]model.WithdrawalRequest, error)
	ApproveDeposit(ctx context.Context, id, adminID string) (*model.DepositRequest, error)
	RejectDeposit(ctx context.Context, id, adminID string) (*model.DepositRequest, error)
	ApproveWithdrawal(ctx context.Context, id, adminID string) (*model.WithdrawalRequest, error)
	RejectWithdrawal(ctx context.Context, id, adminID string) (*model.WithdrawalRequest, error)
}

type payoutService struct {
	payouts  repository.PayoutRepository
	accounts repository.AccountRepository
	notify   notifier.Enqueuer
	policy   Policy
	days     *clock.DayPolicy
	logger   zerolog.Logger
}

// NewPayoutService creates a new PayoutService with a scoped logger.
func NewPayoutService(payouts repository.PayoutRepository, accounts repository.AccountRepository, notify notifier.Enqueuer, policy Policy, days *clock.DayPolicy, logger zerolog.Logger) PayoutService {
	return &payoutService{
		payouts:  payouts,
		accounts: accounts,
		notify:   notify,
		policy:   policy,
		days:     days,
		logger:   logger.With().Str("service", "PayoutService").Logger(),
	}
}

func validMethod(method string) bool {
	return method == model.MethodMPesa || method == model.MethodEMola
}

func (s *payoutService) RequestDeposit(ctx context.Context, accountID string, amount decimal.Decimal, method, proof, transactionRef string) (*model.DepositRequest, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if !validMethod(method) {
		return nil, ErrInvalidMethod
	}
	acc, err := s.accounts.GetByID(ctx, accountID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if acc.IsBlocked {
		return nil, ErrBlocked
	}

	d := &model.DepositRequest{
		ID:            uuid.NewString(),
		AccountID:     accountID,
		Amount:        amount,
		PaymentMethod: method,
		Proof:         proof,
		Status:        model.PayoutPending,
	}
	if transactionRef != "" {
		d.TransactionRef = &transactionRef
	}
	if _, err := s.payouts.CreateDeposit(ctx, d); err != nil {
		s.logger.Error().Err(err).Str("account_id", accountID).Msg("Failed to create deposit request")
		return nil, err
	}
	s.logger.Info().Str("account_id", accountID).Str("amount", amount.String()).Str("method", method).Msg("Deposit requested")
	return d, nil
}

func (s *payoutService) RequestWithdrawal(ctx context.Context, accountID string, amount decimal.Decimal, method, phoneNumber string) (*model.WithdrawalRequest, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if !validMethod(method) {
		return nil, ErrInvalidMethod
	}
	acc, err := s.accounts.GetByID(ctx, accountID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if acc.IsBlocked {
		return nil, ErrBlocked
	}
	// Under on_approval the balance is only checked when the admin decides,
	// but an obviously unaffordable request is still rejected up front.
	if amount.GreaterThan(acc.Balance) {
		return nil, ErrInsufficientBalance
	}

	w := &model.WithdrawalRequest{
		ID:            uuid.NewString(),
		AccountID:     accountID,
		Amount:        amount,
		PaymentMethod: method,
		PhoneNumber:   phoneNumber,
		Status:        model.PayoutPending,
	}
	hold := s.policy.WithdrawalDebit == DebitOnRequest
	if _, err := s.payouts.CreateWithdrawal(ctx, w, hold); err != nil {
		if errors.Is(err, repository.ErrInsufficientBalance) {
			return nil, ErrInsufficientBalance
		}
		s.logger.Error().Err(err).Str("account_id", accountID).Msg("Failed to create withdrawal request")
		return nil, err
	}
	s.logger.Info().Str("account_id", accountID).Str("amount", amount.String()).Bool("held", hold).Msg("Withdrawal requested")
	return w, nil
}

func (s *payoutService) GetDeposit(ctx context.Context, id string) (*model.DepositRequest, error) {
	d, err := s.payouts.GetDeposit(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	return d, err
}

func (s *payoutService) ListPendingDeposits(ctx context.Context) ([]model.DepositRequest, error) {
	return s.payouts.ListPendingDeposits(ctx)
}

func (s *payoutService) ListPendingWithdrawals(ctx context.Context) ([]model.WithdrawalRequest, error) {
	return s.payouts.ListPendingWithdrawals(ctx)
}

func (s *payoutService) ApproveDeposit(ctx context.Context, id, adminID string) (*model.DepositRequest, error) {
	d, err := s.payouts.ApproveDeposit(ctx, id, adminID, s.days.Now())
	if err != nil {
		return nil, s.mapPayoutErr(err, id, "approve deposit")
	}
	s.logger.Info().Str("deposit_id", id).Str("admin_id", adminID).Str("amount", d.Amount.String()).Msg("Deposit approved")
	s.notifyDecision(ctx, d.AccountID, notifier.DepositDecisionEmail("", d.Amount.String(), true))
	return d, nil
}

func (s *payoutService) RejectDeposit(ctx context.Context, id, adminID string) (*model.DepositRequest, error) {
	d, err := s.payouts.RejectDeposit(ctx, id, adminID, s.days.Now())
	if err != nil {
		return nil, s.mapPayoutErr(err, id, "reject deposit")
	}
	s.logger.Info().Str("deposit_id", id).Str("admin_id", adminID).Msg("Deposit rejected")
	s.notifyDecision(ctx, d.AccountID, notifier.DepositDecisionEmail("", d.Amount.String(), false))
	return d, nil
}

func (s *payoutService) ApproveWithdrawal(ctx context.Context, id, adminID string) (*model.WithdrawalRequest, error) {
	debitNow := s.policy.WithdrawalDebit == DebitOnApproval
	w, err := s.payouts.ApproveWithdrawal(ctx, id, adminID, s.days.Now(), debitNow)
	if errors.Is(err, repository.ErrInsufficientBalance) {
		// The balance no longer covers the request; reject it instead of
		// leaving it pending forever. No hold was taken, so no refund.
		s.logger.Warn().Str("withdrawal_id", id).Msg("Balance no longer covers withdrawal, auto-rejecting")
		if _, rejErr := s.payouts.RejectWithdrawal(ctx, id, adminID, s.days.Now(), false); rejErr != nil {
			s.logger.Error().Err(rejErr).Str("withdrawal_id", id).Msg("Failed to auto-reject withdrawal")
		}
		return nil, ErrInsufficientBalance
	}
	if err != nil {
		return nil, s.mapPayoutErr(err, id, "approve withdrawal")
	}
	s.logger.Info().Str("withdrawal_id", id).Str("admin_id", adminID).Str("amount", w.Amount.String()).Msg("Withdrawal approved")
	s.notifyDecision(ctx, w.AccountID, notifier.WithdrawalDecisionEmail("", w.Amount.String(), true))
	return w, nil
}

func (s *payoutService) RejectWithdrawal(ctx context.Context, id, adminID string) (*model.WithdrawalRequest, error) {
	refund := s.policy.WithdrawalDebit == DebitOnRequest
	w, err := s.payouts.RejectWithdrawal(ctx, id, adminID, s.days.Now(), refund)
	if err != nil {
		return nil, s.mapPayoutErr(err, id, "reject withdrawal")
	}
	s.logger.Info().Str("withdrawal_id", id).Str("admin_id", adminID).Bool("refunded", refund).Msg("Withdrawal rejected")
	s.notifyDecision(ctx, w.AccountID, notifier.WithdrawalDecisionEmail("", w.Amount.String(), false))
	return w, nil
}

func (s *payoutService) mapPayoutErr(err error, id, op string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrAlreadyProcessed):
		return ErrAlreadyProcessed
	default:
		s.logger.Error().Err(err).Str("request_id", id).Msgf("Failed to %s", op)
		return err
	}
}

// notifyDecision resolves the account's email and enqueues the notification.
// Delivery is best-effort; the decision has already committed.
func (s *payoutService) notifyDecision(ctx context.Context, accountID string, email notifier.Email) {
	acc, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		s.logger.Error().Err(err).Str("account_id", accountID).Msg("Failed to resolve account for notification")
		return
	}
	email.To = acc.Email
	if err := s.notify.Enqueue(ctx, email); err != nil {
		s.logger.Error().Err(err).Str("account_id", accountID).Msg("Failed to enqueue notification")
	}
}
