package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"app/internal/util"

	"github.com/shopspring/decimal"
)

func TestRegisterVerifyLogin(t *testing.T) {
	env := newTestEnv(t, testPolicy())
	ctx := context.Background()

	acc, err := env.accounts.Register(ctx, "mario", "mario@example.com", "s3cret-pass", "")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if acc.IsVerified {
		t.Fatal("new accounts must start unverified")
	}
	if len(acc.ReferralCode) != referralCodeChars {
		t.Fatalf("expected %d-char referral code, got %q", referralCodeChars, acc.ReferralCode)
	}
	// Registration sends the verification email and a welcome email.
	if len(env.mail.sent) != 2 {
		t.Fatalf("expected 2 emails, got %+v", env.mail.sent)
	}
	for _, m := range env.mail.sent {
		if m.To != "mario@example.com" {
			t.Fatalf("email addressed to %q", m.To)
		}
	}
	if !strings.Contains(env.mail.sent[0].HTML, "/v1/auth/verify?token=") {
		t.Fatal("verification email must carry the verify link")
	}
	if !strings.Contains(env.mail.sent[1].Subject, "Welcome") {
		t.Fatalf("expected welcome email second, got subject %q", env.mail.sent[1].Subject)
	}

	if _, _, err := env.accounts.Login(ctx, "mario@example.com", "s3cret-pass"); !errors.Is(err, ErrNotVerified) {
		t.Fatalf("expected ErrNotVerified before verification, got %v", err)
	}

	token, err := util.GenerateJWT(testJWTSecret, acc.ID, acc.Email, false, time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}
	if err := env.accounts.Verify(ctx, token); err != nil {
		t.Fatalf("Verify: %v", err)
	}

	session, logged, err := env.accounts.Login(ctx, "mario@example.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if logged.ID != acc.ID {
		t.Fatalf("expected account %s, got %s", acc.ID, logged.ID)
	}
	claims, err := util.ValidateJWT(session, testJWTSecret)
	if err != nil {
		t.Fatalf("ValidateJWT: %v", err)
	}
	if claims.Subject != acc.ID {
		t.Fatalf("expected subject %s, got %s", acc.ID, claims.Subject)
	}
}

func TestRegisterWithReferralCode(t *testing.T) {
	env := newTestEnv(t, testPolicy())
	ctx := context.Background()

	referrer := env.seedAccount("referrer", decimal.Zero, nil)
	acc, err := env.accounts.Register(ctx, "luigi", "luigi@example.com", "s3cret-pass", referrer.ReferralCode)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if acc.ReferredBy == nil || *acc.ReferredBy != referrer.ID {
		t.Fatalf("expected referrer %s, got %v", referrer.ID, acc.ReferredBy)
	}

	if _, err := env.accounts.Register(ctx, "peach", "peach@example.com", "s3cret-pass", "NOSUCH99"); !errors.Is(err, ErrInvalidReferralCode) {
		t.Fatalf("expected ErrInvalidReferralCode, got %v", err)
	}
}

func TestRegisterDuplicates(t *testing.T) {
	env := newTestEnv(t, testPolicy())
	ctx := context.Background()

	if _, err := env.accounts.Register(ctx, "mario", "mario@example.com", "s3cret-pass", ""); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := env.accounts.Register(ctx, "other", "mario@example.com", "s3cret-pass", ""); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	if _, err := env.accounts.Register(ctx, "mario", "other@example.com", "s3cret-pass", ""); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestLoginRejectsBadCredentialsAndBlocked(t *testing.T) {
	env := newTestEnv(t, testPolicy())
	ctx := context.Background()

	acc, err := env.accounts.Register(ctx, "mario", "mario@example.com", "s3cret-pass", "")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	env.store.accounts[acc.ID].IsVerified = true

	if _, _, err := env.accounts.Login(ctx, "mario@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, _, err := env.accounts.Login(ctx, "nobody@example.com", "s3cret-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}

	if err := env.accounts.SetBlocked(ctx, acc.ID, true); err != nil {
		t.Fatalf("SetBlocked: %v", err)
	}
	if _, _, err := env.accounts.Login(ctx, "mario@example.com", "s3cret-pass"); !errors.Is(err, ErrBlocked) {
		t.Fatalf("expected ErrBlocked, got %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t, testPolicy())
	ctx := context.Background()

	acc, err := env.accounts.Register(ctx, "mario", "mario@example.com", "s3cret-pass", "")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	env.store.accounts[acc.ID].IsVerified = true

	if err := env.accounts.ChangePassword(ctx, acc.ID, "wrong", "new-pass-123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if err := env.accounts.ChangePassword(ctx, acc.ID, "s3cret-pass", "new-pass-123"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	if _, _, err := env.accounts.Login(ctx, "mario@example.com", "new-pass-123"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}
