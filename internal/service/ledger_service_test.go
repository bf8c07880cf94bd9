package service

import (
	"context"
	"errors"
	"testing"

	"app/internal/model"

	"github.com/shopspring/decimal"
)

func TestManualAdjustments(t *testing.T) {
	env := newTestEnv(t, testPolicy())
	ctx := context.Background()

	acc := env.seedAccount("subject", decimal.Zero, nil)
	admin := env.seedAccount("admin", decimal.Zero, nil)

	entry, err := env.wallet.ManualCredit(ctx, acc.ID, admin.ID, decimal.NewFromInt(50), "goodwill")
	if err != nil {
		t.Fatalf("ManualCredit: %v", err)
	}
	if entry.Kind != model.KindManualCredit {
		t.Fatalf("expected manual_credit entry, got %s", entry.Kind)
	}
	assertDecimal(t, env.balance(t, acc.ID), "50")

	if _, err := env.wallet.ManualDebit(ctx, acc.ID, admin.ID, decimal.NewFromInt(20), "clawback"); err != nil {
		t.Fatalf("ManualDebit: %v", err)
	}
	assertDecimal(t, env.balance(t, acc.ID), "30")

	// Manual debits may deliberately drive the balance negative.
	if _, err := env.wallet.ManualDebit(ctx, acc.ID, admin.ID, decimal.NewFromInt(100), "fraud reversal"); err != nil {
		t.Fatalf("ManualDebit below zero: %v", err)
	}
	assertDecimal(t, env.balance(t, acc.ID), "-70")

	if _, err := env.wallet.ManualCredit(ctx, acc.ID, admin.ID, decimal.Zero, "noop"); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for zero credit, got %v", err)
	}
}

func TestTransactionsNewestFirst(t *testing.T) {
	env := newTestEnv(t, testPolicy())
	ctx := context.Background()

	acc := env.seedAccount("subject", decimal.Zero, nil)
	admin := env.seedAccount("admin", decimal.Zero, nil)

	if _, err := env.wallet.ManualCredit(ctx, acc.ID, admin.ID, decimal.NewFromInt(10), "first"); err != nil {
		t.Fatalf("ManualCredit: %v", err)
	}
	if _, err := env.wallet.ManualCredit(ctx, acc.ID, admin.ID, decimal.NewFromInt(20), "second"); err != nil {
		t.Fatalf("ManualCredit: %v", err)
	}

	entries, err := env.wallet.Transactions(ctx, acc.ID)
	if err != nil {
		t.Fatalf("Transactions: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	assertDecimal(t, entries[0].Amount, "20")
	assertDecimal(t, entries[1].Amount, "10")
}

func TestReconcileDetectsDrift(t *testing.T) {
	env := newTestEnv(t, testPolicy())
	ctx := context.Background()

	acc := env.seedAccount("subject", decimal.Zero, nil)
	admin := env.seedAccount("admin", decimal.Zero, nil)
	if _, err := env.wallet.ManualCredit(ctx, acc.ID, admin.ID, decimal.NewFromInt(100), "seed"); err != nil {
		t.Fatalf("ManualCredit: %v", err)
	}

	report, err := env.wallet.Reconcile(ctx, acc.ID)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if !report.Drift.IsZero() {
		t.Fatalf("expected zero drift, got %s", report.Drift)
	}

	// Corrupt the cached balance behind the ledger's back.
	env.store.accounts[acc.ID].Balance = decimal.NewFromInt(125)
	report, err = env.wallet.Reconcile(ctx, acc.ID)
	if err != nil {
		t.Fatalf("Reconcile after corruption: %v", err)
	}
	assertDecimal(t, report.Cached, "125")
	assertDecimal(t, report.Derived, "100")
	assertDecimal(t, report.Drift, "25")
}

func TestReconcileUnderDeferredDebit(t *testing.T) {
	policy := testPolicy()
	policy.WithdrawalDebit = DebitOnApproval
	env := newTestEnv(t, policy)
	ctx := context.Background()

	acc := env.seedAccount("subject", decimal.Zero, nil)
	admin := env.seedAccount("admin", decimal.Zero, nil)
	if _, err := env.wallet.ManualCredit(ctx, acc.ID, admin.ID, decimal.NewFromInt(100), "seed"); err != nil {
		t.Fatalf("ManualCredit: %v", err)
	}

	// No hold is taken at request time, so the pending withdrawal entry must
	// not count against the derived balance.
	w, err := env.payouts.RequestWithdrawal(ctx, acc.ID, decimal.NewFromInt(80), model.MethodMPesa, "841234567")
	if err != nil {
		t.Fatalf("RequestWithdrawal: %v", err)
	}
	report, err := env.wallet.Reconcile(ctx, acc.ID)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	assertDecimal(t, report.Cached, "100")
	assertDecimal(t, report.Derived, "100")
	if !report.Drift.IsZero() {
		t.Fatalf("expected zero drift with pending withdrawal, got %s", report.Drift)
	}

	// After approval the debit is a completed entry and the books still close.
	if _, err := env.payouts.ApproveWithdrawal(ctx, w.ID, admin.ID); err != nil {
		t.Fatalf("ApproveWithdrawal: %v", err)
	}
	report, err = env.wallet.Reconcile(ctx, acc.ID)
	if err != nil {
		t.Fatalf("Reconcile after approval: %v", err)
	}
	assertDecimal(t, report.Cached, "20")
	if !report.Drift.IsZero() {
		t.Fatalf("expected zero drift after approval, got %s", report.Drift)
	}
}

func TestBalanceUnknownAccount(t *testing.T) {
	env := newTestEnv(t, testPolicy())
	if _, err := env.wallet.Balance(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
