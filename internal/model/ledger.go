package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryKind classifies a balance change.
type EntryKind string

const (
	KindDeposit            EntryKind = "deposit"
	KindWithdrawal         EntryKind = "withdrawal"
	KindPlanPurchase       EntryKind = "plan_purchase"
	KindVideoReward        EntryKind = "video_reward"
	KindReferralPlanBonus  EntryKind = "referral_plan_bonus"
	KindReferralVideoBonus EntryKind = "referral_daily_bonus"
	KindManualCredit       EntryKind = "manual_credit"
	KindManualDebit        EntryKind = "manual_debit"
)

// EntryStatus applies to deposit/withdrawal entries; every other kind is
// created completed and never transitions.
type EntryStatus string

const (
	EntryCompleted EntryStatus = "completed"
	EntryPending   EntryStatus = "pending"
	EntryFailed    EntryStatus = "failed"
)

// LedgerEntry is the immutable record of a single signed balance change.
// Amount carries the sign: credits are positive, debits negative. The only
// mutation ever allowed is the pending -> completed|failed transition on
// deposit/withdrawal entries.
type LedgerEntry struct {
	ID          string          `db:"id" json:"id"`
	AccountID   string          `db:"account_id" json:"account_id"`
	Kind        EntryKind       `db:"kind" json:"kind"`
	Amount      decimal.Decimal `db:"amount" json:"amount"`
	Description string          `db:"description" json:"description"`
	RelatedID   *string         `db:"related_id" json:"related_id,omitempty"`
	Status      EntryStatus     `db:"status" json:"status"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}
