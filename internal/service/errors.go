package service

import "errors"

// Sentinel errors returned by the service layer. Handlers map these onto
// HTTP status codes; anything else is treated as an internal failure.
var (
	ErrNotFound            = errors.New("resource not found")
	ErrEmailTaken          = errors.New("email already registered")
	ErrUsernameTaken       = errors.New("username already taken")
	ErrInvalidReferralCode = errors.New("invalid referral code")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrNotVerified         = errors.New("account not verified")
	ErrBlocked             = errors.New("account is blocked")

	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrInvalidMethod       = errors.New("unsupported payment method")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrAlreadySubscribed   = errors.New("account already has this plan")
	ErrNoActivePlan        = errors.New("no active plan")
	ErrPlanExpired         = errors.New("plan has expired")
	ErrQuotaExceeded       = errors.New("daily video quota exhausted")
	ErrIncompleteWatch     = errors.New("video was not watched to completion")
	ErrAlreadyWatchedToday = errors.New("video already watched today")
	ErrVideoInactive       = errors.New("video is not active")
	ErrAlreadyProcessed    = errors.New("request already processed")
)
