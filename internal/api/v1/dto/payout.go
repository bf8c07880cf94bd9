package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// DepositRequestDTO is used for incoming deposit claims
type DepositRequestDTO struct {
	Amount         decimal.Decimal `json:"amount" validate:"required"`
	PaymentMethod  string          `json:"payment_method" validate:"required,oneof='M-Pesa' 'e-Mola'"`
	Proof          string          `json:"proof" validate:"required"`
	TransactionRef string          `json:"transaction_ref,omitempty"`
}

// WithdrawalRequestDTO is used for incoming withdrawal requests
type WithdrawalRequestDTO struct {
	Amount        decimal.Decimal `json:"amount" validate:"required"`
	PaymentMethod string          `json:"payment_method" validate:"required,oneof='M-Pesa' 'e-Mola'"`
	PhoneNumber   string          `json:"phone_number" validate:"required,e164"`
}

// DepositResponseDTO is returned for a deposit request
type DepositResponseDTO struct {
	ID             string          `json:"id"`
	AccountID      string          `json:"account_id"`
	Amount         decimal.Decimal `json:"amount"`
	PaymentMethod  string          `json:"payment_method"`
	Proof          string          `json:"proof"`
	TransactionRef *string         `json:"transaction_ref,omitempty"`
	Status         string          `json:"status"`
	ProcessedBy    *string         `json:"processed_by,omitempty"`
	ProcessedAt    *time.Time      `json:"processed_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// WithdrawalResponseDTO is returned for a withdrawal request
type WithdrawalResponseDTO struct {
	ID            string          `json:"id"`
	AccountID     string          `json:"account_id"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method"`
	PhoneNumber   string          `json:"phone_number"`
	Status        string          `json:"status"`
	ProcessedBy   *string         `json:"processed_by,omitempty"`
	ProcessedAt   *time.Time      `json:"processed_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// UploadInitDTO asks for a presigned upload URL
type UploadInitDTO struct {
	Filename string `json:"filename" validate:"required,max=255"`
}

// UploadInitResponseDTO carries the presigned upload target
type UploadInitResponseDTO struct {
	StoragePath string `json:"storage_path"`
	UploadURL   string `json:"upload_url"`
}
