package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerEntryResponseDTO is returned for a single ledger entry
type LedgerEntryResponseDTO struct {
	ID          string          `json:"id"`
	Kind        string          `json:"kind"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
}

// BalanceResponseDTO is returned by the balance endpoint
type BalanceResponseDTO struct {
	Balance decimal.Decimal `json:"balance"`
}

// ReconcileResponseDTO compares the cached balance with the ledger sum
type ReconcileResponseDTO struct {
	AccountID string          `json:"account_id"`
	Cached    decimal.Decimal `json:"cached_balance"`
	Derived   decimal.Decimal `json:"derived_balance"`
	Drift     decimal.Decimal `json:"drift"`
}

// ManualAdjustDTO is used for admin manual credit/debit requests
type ManualAdjustDTO struct {
	Amount decimal.Decimal `json:"amount" validate:"required"`
	Reason string          `json:"reason" validate:"required,max=500"`
}

// ReferralSummaryResponseDTO is returned by the referral summary endpoint
type ReferralSummaryResponseDTO struct {
	ReferralCode  string               `json:"referral_code"`
	ReferralLink  string               `json:"referral_link"`
	Referred      []AccountResponseDTO `json:"referred_users"`
	TotalEarnings decimal.Decimal      `json:"total_earnings"`
}
