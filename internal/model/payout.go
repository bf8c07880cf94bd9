package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PayoutStatus is the admin-approval state of a deposit or withdrawal request.
// pending -> approved | rejected; both outcomes are terminal.
type PayoutStatus string

const (
	PayoutPending  PayoutStatus = "pending"
	PayoutApproved PayoutStatus = "approved"
	PayoutRejected PayoutStatus = "rejected"
)

// Payment methods accepted for deposits and withdrawals.
const (
	MethodMPesa = "M-Pesa"
	MethodEMola = "e-Mola"
)

// DepositRequest is a user's claim of having paid; balance is only credited
// once an admin approves it.
type DepositRequest struct {
	ID             string          `db:"id" json:"id"`
	AccountID      string          `db:"account_id" json:"account_id"`
	Amount         decimal.Decimal `db:"amount" json:"amount"`
	PaymentMethod  string          `db:"payment_method" json:"payment_method"`
	Proof          string          `db:"proof" json:"proof"`
	TransactionRef *string         `db:"transaction_ref" json:"transaction_ref,omitempty"`
	Status         PayoutStatus    `db:"status" json:"status"`
	ProcessedBy    *string         `db:"processed_by" json:"processed_by,omitempty"`
	ProcessedAt    *time.Time      `db:"processed_at" json:"processed_at,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
}

// WithdrawalRequest asks the admin to send money to PhoneNumber. Under the
// hold policy the amount is debited at request time and refunded on rejection.
type WithdrawalRequest struct {
	ID            string          `db:"id" json:"id"`
	AccountID     string          `db:"account_id" json:"account_id"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	PaymentMethod string          `db:"payment_method" json:"payment_method"`
	PhoneNumber   string          `db:"phone_number" json:"phone_number"`
	Status        PayoutStatus    `db:"status" json:"status"`
	ProcessedBy   *string         `db:"processed_by" json:"processed_by,omitempty"`
	ProcessedAt   *time.Time      `db:"processed_at" json:"processed_at,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}
