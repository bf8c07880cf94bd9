package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"app/internal/model"
	"app/internal/notifier"
	"app/internal/repository"
	"app/internal/util"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	sessionTTL        = 7 * 24 * time.Hour
	verificationTTL   = 24 * time.Hour
	referralCodeChars = 8
)

// AccountService handles registration, verification, login and the
// admin-side account operations.
type AccountService interface {
	// Register creates an unverified account and enqueues the verification
	// and welcome emails. referralCode is optional; when present it must
	// resolve to an existing account, which becomes the referrer.
	Register(ctx context.Context, username, email, password, referralCode string) (*model.Account, error)
	// Verify marks the account from the verification token as verified.
	Verify(ctx context.Context, token string) error
	// Login checks credentials and returns a signed session token.
	Login(ctx context.Context, email, password string) (string, *model.Account, error)
	Get(ctx context.Context, id string) (*model.Account, error)
	List(ctx context.Context) ([]model.Account, error)
	SetBlocked(ctx context.Context, id string, blocked bool) error
	ChangePassword(ctx context.Context, id, currentPassword, newPassword string) error
}

type accountService struct {
	accounts      repository.AccountRepository
	notify        notifier.Enqueuer
	jwtSecret     string
	publicBaseURL string
	logger        zerolog.Logger
}

// NewAccountService creates a new AccountService with a scoped logger.
func NewAccountService(accounts repository.AccountRepository, notify notifier.Enqueuer, jwtSecret, publicBaseURL string, logger zerolog.Logger) AccountService {
	return &accountService{
		accounts:      accounts,
		notify:        notify,
		jwtSecret:     jwtSecret,
		publicBaseURL: publicBaseURL,
		logger:        logger.With().Str("service", "AccountService").Logger(),
	}
}

func (s *accountService) Register(ctx context.Context, username, email, password, referralCode string) (*model.Account, error) {
	if _, err := s.accounts.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if _, err := s.accounts.GetByUsername(ctx, username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	var referredBy *string
	if referralCode != "" {
		referrer, err := s.accounts.GetByReferralCode(ctx, referralCode)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidReferralCode
		}
		if err != nil {
			return nil, err
		}
		referredBy = &referrer.ID
	}

	hash, err := util.HashPassword(password)
	if err != nil {
		return nil, err
	}

	acc := &model.Account{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		ReferredBy:   referredBy,
	}
	// The referral code gets a few attempts in case of a collision.
	for attempt := 0; ; attempt++ {
		code, err := util.NewReferralCode(referralCodeChars)
		if err != nil {
			return nil, err
		}
		acc.ReferralCode = code
		err = s.accounts.Create(ctx, acc)
		if err == nil {
			break
		}
		if errors.Is(err, repository.ErrConflict) && attempt < 2 {
			continue
		}
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrEmailTaken
		}
		s.logger.Error().Err(err).Str("email", email).Msg("Failed to create account")
		return nil, err
	}

	s.logger.Info().Str("account_id", acc.ID).Str("username", username).Msg("Account registered")
	s.sendVerification(ctx, acc)
	if err := s.notify.Enqueue(ctx, notifier.WelcomeEmail(acc.Email, acc.Username)); err != nil {
		s.logger.Error().Err(err).Str("account_id", acc.ID).Msg("Failed to enqueue welcome email")
	}
	return acc, nil
}

func (s *accountService) sendVerification(ctx context.Context, acc *model.Account) {
	token, err := util.GenerateJWT(s.jwtSecret, acc.ID, acc.Email, false, verificationTTL)
	if err != nil {
		s.logger.Error().Err(err).Str("account_id", acc.ID).Msg("Failed to generate verification token")
		return
	}
	link := fmt.Sprintf("%s/v1/auth/verify?token=%s", s.publicBaseURL, token)
	if err := s.notify.Enqueue(ctx, notifier.VerificationEmail(acc.Email, acc.Username, link)); err != nil {
		s.logger.Error().Err(err).Str("account_id", acc.ID).Msg("Failed to enqueue verification email")
	}
}

func (s *accountService) Verify(ctx context.Context, token string) error {
	claims, err := util.ValidateJWT(token, s.jwtSecret)
	if err != nil {
		return ErrInvalidCredentials
	}
	err = s.accounts.SetVerified(ctx, claims.Subject)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		s.logger.Error().Err(err).Str("account_id", claims.Subject).Msg("Failed to verify account")
		return err
	}
	s.logger.Info().Str("account_id", claims.Subject).Msg("Account verified")
	return nil
}

func (s *accountService) Login(ctx context.Context, email, password string) (string, *model.Account, error) {
	acc, err := s.accounts.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, err
	}
	if !util.CheckPassword(acc.PasswordHash, password) {
		return "", nil, ErrInvalidCredentials
	}
	if !acc.IsVerified {
		return "", nil, ErrNotVerified
	}
	if acc.IsBlocked {
		return "", nil, ErrBlocked
	}

	token, err := util.GenerateJWT(s.jwtSecret, acc.ID, acc.Email, acc.IsAdmin, sessionTTL)
	if err != nil {
		s.logger.Error().Err(err).Str("account_id", acc.ID).Msg("Failed to generate session token")
		return "", nil, err
	}
	return token, acc, nil
}

func (s *accountService) Get(ctx context.Context, id string) (*model.Account, error) {
	acc, err := s.accounts.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	return acc, err
}

func (s *accountService) List(ctx context.Context) ([]model.Account, error) {
	return s.accounts.List(ctx)
}

func (s *accountService) SetBlocked(ctx context.Context, id string, blocked bool) error {
	err := s.accounts.SetBlocked(ctx, id, blocked)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	s.logger.Info().Str("account_id", id).Bool("blocked", blocked).Msg("Account block state changed")
	return nil
}

func (s *accountService) ChangePassword(ctx context.Context, id, currentPassword, newPassword string) error {
	acc, err := s.accounts.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if !util.CheckPassword(acc.PasswordHash, currentPassword) {
		return ErrInvalidCredentials
	}
	hash, err := util.HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.accounts.UpdatePassword(ctx, id, hash)
}
