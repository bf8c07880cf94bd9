package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"app/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PayoutRepository persists deposit and withdrawal requests together with
// their pending ledger entries. Which side of the request/approval boundary
// moves the balance is decided by the caller via the hold/debitNow/refund
// flags; each flagged mutation happens in the same transaction as the state
// transition.
type PayoutRepository interface {
	// CreateDeposit stores the request and its pending ledger entry.
	CreateDeposit(ctx context.Context, d *model.DepositRequest) (*model.LedgerEntry, error)
	// CreateWithdrawal stores the request and its pending entry; with hold it
	// also debits the balance (ErrInsufficientBalance when it cannot).
	CreateWithdrawal(ctx context.Context, w *model.WithdrawalRequest, hold bool) (*model.LedgerEntry, error)
	GetDeposit(ctx context.Context, id string) (*model.DepositRequest, error)
	GetWithdrawal(ctx context.Context, id string) (*model.WithdrawalRequest, error)
	ListPendingDeposits(ctx context.Context) ([]model.DepositRequest, error)
	ListPendingWithdrawals(ctx context.Context) ([]model.WithdrawalRequest, error)
	// ApproveDeposit transitions pending->approved, credits the amount and
	// completes the ledger entry.
	ApproveDeposit(ctx context.Context, id, adminID string, at time.Time) (*model.DepositRequest, error)
	// RejectDeposit transitions pending->rejected and fails the ledger entry.
	RejectDeposit(ctx context.Context, id, adminID string, at time.Time) (*model.DepositRequest, error)
	// ApproveWithdrawal transitions pending->approved and completes the
	// entry; with debitNow it debits the balance first and returns
	// ErrInsufficientBalance (rolling the transition back) when it cannot.
	ApproveWithdrawal(ctx context.Context, id, adminID string, at time.Time, debitNow bool) (*model.WithdrawalRequest, error)
	// RejectWithdrawal transitions pending->rejected and fails the entry;
	// with refund it credits the held amount back.
	RejectWithdrawal(ctx context.Context, id, adminID string, at time.Time, refund bool) (*model.WithdrawalRequest, error)
}

type payoutRepo struct {
	pool *pgxpool.Pool
}

// NewPayoutRepo creates a new PayoutRepository.
func NewPayoutRepo(pool *pgxpool.Pool) PayoutRepository {
	return &payoutRepo{pool: pool}
}

const depositColumns = `id, account_id, amount, payment_method, proof, transaction_ref, status, processed_by, processed_at, created_at`
const withdrawalColumns = `id, account_id, amount, payment_method, phone_number, status, processed_by, processed_at, created_at`

func scanDeposit(row pgx.Row) (*model.DepositRequest, error) {
	var d model.DepositRequest
	err := row.Scan(&d.ID, &d.AccountID, &d.Amount, &d.PaymentMethod, &d.Proof, &d.TransactionRef, &d.Status, &d.ProcessedBy, &d.ProcessedAt, &d.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning deposit request: %w", err)
	}
	return &d, nil
}

func scanWithdrawal(row pgx.Row) (*model.WithdrawalRequest, error) {
	var w model.WithdrawalRequest
	err := row.Scan(&w.ID, &w.AccountID, &w.Amount, &w.PaymentMethod, &w.PhoneNumber, &w.Status, &w.ProcessedBy, &w.ProcessedAt, &w.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning withdrawal request: %w", err)
	}
	return &w, nil
}

func (r *payoutRepo) CreateDeposit(ctx context.Context, d *model.DepositRequest) (*model.LedgerEntry, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("starting deposit request transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	const q = `
        INSERT INTO deposit_requests (id, account_id, amount, payment_method, proof, transaction_ref, status, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, 'pending', NOW())
        RETURNING created_at
    `
	if err := tx.QueryRow(ctx, q, d.ID, d.AccountID, d.Amount, d.PaymentMethod, d.Proof, d.TransactionRef).Scan(&d.CreatedAt); err != nil {
		return nil, fmt.Errorf("creating deposit request for account %s: %w", d.AccountID, err)
	}

	entry := &model.LedgerEntry{
		ID:          uuid.NewString(),
		AccountID:   d.AccountID,
		Kind:        model.KindDeposit,
		Amount:      d.Amount,
		Description: fmt.Sprintf("Deposit request via %s", d.PaymentMethod),
		RelatedID:   &d.ID,
		Status:      model.EntryPending,
	}
	if err := insertEntry(ctx, tx, entry); err != nil {
		return nil, fmt.Errorf("recording pending deposit entry for account %s: %w", d.AccountID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing deposit request for account %s: %w", d.AccountID, err)
	}
	return entry, nil
}

func (r *payoutRepo) CreateWithdrawal(ctx context.Context, w *model.WithdrawalRequest, hold bool) (*model.LedgerEntry, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("starting withdrawal request transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if hold {
		tag, err := tx.Exec(ctx,
			`UPDATE accounts SET balance = balance - $1, updated_at = NOW() WHERE id = $2 AND balance >= $1`,
			w.Amount, w.AccountID)
		if err != nil {
			return nil, fmt.Errorf("holding withdrawal amount for account %s: %w", w.AccountID, err)
		}
		if tag.RowsAffected() == 0 {
			return nil, ErrInsufficientBalance
		}
	}

	const q = `
        INSERT INTO withdrawal_requests (id, account_id, amount, payment_method, phone_number, status, created_at)
        VALUES ($1, $2, $3, $4, $5, 'pending', NOW())
        RETURNING created_at
    `
	if err := tx.QueryRow(ctx, q, w.ID, w.AccountID, w.Amount, w.PaymentMethod, w.PhoneNumber).Scan(&w.CreatedAt); err != nil {
		return nil, fmt.Errorf("creating withdrawal request for account %s: %w", w.AccountID, err)
	}

	entry := &model.LedgerEntry{
		ID:          uuid.NewString(),
		AccountID:   w.AccountID,
		Kind:        model.KindWithdrawal,
		Amount:      w.Amount.Neg(),
		Description: fmt.Sprintf("Withdrawal request via %s to %s", w.PaymentMethod, w.PhoneNumber),
		RelatedID:   &w.ID,
		Status:      model.EntryPending,
	}
	if err := insertEntry(ctx, tx, entry); err != nil {
		return nil, fmt.Errorf("recording pending withdrawal entry for account %s: %w", w.AccountID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing withdrawal request for account %s: %w", w.AccountID, err)
	}
	return entry, nil
}

func (r *payoutRepo) GetDeposit(ctx context.Context, id string) (*model.DepositRequest, error) {
	return scanDeposit(r.pool.QueryRow(ctx, `SELECT `+depositColumns+` FROM deposit_requests WHERE id = $1`, id))
}

func (r *payoutRepo) GetWithdrawal(ctx context.Context, id string) (*model.WithdrawalRequest, error) {
	return scanWithdrawal(r.pool.QueryRow(ctx, `SELECT `+withdrawalColumns+` FROM withdrawal_requests WHERE id = $1`, id))
}

func (r *payoutRepo) ListPendingDeposits(ctx context.Context) ([]model.DepositRequest, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+depositColumns+` FROM deposit_requests WHERE status = 'pending' ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("listing pending deposits: %w", err)
	}
	defer rows.Close()

	var deposits []model.DepositRequest
	for rows.Next() {
		d, err := scanDeposit(rows)
		if err != nil {
			return nil, err
		}
		deposits = append(deposits, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading pending deposits: %w", err)
	}
	return deposits, nil
}

func (r *payoutRepo) ListPendingWithdrawals(ctx context.Context) ([]model.WithdrawalRequest, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+withdrawalColumns+` FROM withdrawal_requests WHERE status = 'pending' ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("listing pending withdrawals: %w", err)
	}
	defer rows.Close()

	var withdrawals []model.WithdrawalRequest
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, err
		}
		withdrawals = append(withdrawals, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading pending withdrawals: %w", err)
	}
	return withdrawals, nil
}

// transition moves a request row out of pending, distinguishing a missing row
// from one that was already processed.
func transition(ctx context.Context, tx pgx.Tx, table, id, adminID string, at time.Time, status model.PayoutStatus) error {
	q := fmt.Sprintf(`UPDATE %s SET status = $2, processed_by = $3, processed_at = $4 WHERE id = $1 AND status = 'pending'`, table)
	tag, err := tx.Exec(ctx, q, id, status, adminID, at)
	if err != nil {
		return fmt.Errorf("transitioning %s %s: %w", table, id, err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)`, table), id).Scan(&exists); err != nil {
			return fmt.Errorf("checking %s %s: %w", table, id, err)
		}
		if !exists {
			return ErrNotFound
		}
		return ErrAlreadyProcessed
	}
	return nil
}

func (r *payoutRepo) ApproveDeposit(ctx context.Context, id, adminID string, at time.Time) (*model.DepositRequest, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("starting deposit approval transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	d, err := scanDeposit(tx.QueryRow(ctx, `SELECT `+depositColumns+` FROM deposit_requests WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	if err := transition(ctx, tx, "deposit_requests", id, adminID, at, model.PayoutApproved); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `UPDATE accounts SET balance = balance + $1, updated_at = NOW() WHERE id = $2`, d.Amount, d.AccountID); err != nil {
		return nil, fmt.Errorf("crediting approved deposit to account %s: %w", d.AccountID, err)
	}
	if _, err := tx.Exec(ctx, `UPDATE ledger_entries SET status = 'completed' WHERE related_id = $1 AND kind = 'deposit' AND status = 'pending'`, id); err != nil {
		return nil, fmt.Errorf("completing deposit entry for request %s: %w", id, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing deposit approval %s: %w", id, err)
	}
	d.Status = model.PayoutApproved
	d.ProcessedBy = &adminID
	d.ProcessedAt = &at
	return d, nil
}

func (r *payoutRepo) RejectDeposit(ctx context.Context, id, adminID string, at time.Time) (*model.DepositRequest, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("starting deposit rejection transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	d, err := scanDeposit(tx.QueryRow(ctx, `SELECT `+depositColumns+` FROM deposit_requests WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	if err := transition(ctx, tx, "deposit_requests", id, adminID, at, model.PayoutRejected); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `UPDATE ledger_entries SET status = 'failed' WHERE related_id = $1 AND kind = 'deposit' AND status = 'pending'`, id); err != nil {
		return nil, fmt.Errorf("failing deposit entry for request %s: %w", id, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing deposit rejection %s: %w", id, err)
	}
	d.Status = model.PayoutRejected
	d.ProcessedBy = &adminID
	d.ProcessedAt = &at
	return d, nil
}

func (r *payoutRepo) ApproveWithdrawal(ctx context.Context, id, adminID string, at time.Time, debitNow bool) (*model.WithdrawalRequest, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("starting withdrawal approval transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	w, err := scanWithdrawal(tx.QueryRow(ctx, `SELECT `+withdrawalColumns+` FROM withdrawal_requests WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	if err := transition(ctx, tx, "withdrawal_requests", id, adminID, at, model.PayoutApproved); err != nil {
		return nil, err
	}
	if debitNow {
		tag, err := tx.Exec(ctx,
			`UPDATE accounts SET balance = balance - $1, updated_at = NOW() WHERE id = $2 AND balance >= $1`,
			w.Amount, w.AccountID)
		if err != nil {
			return nil, fmt.Errorf("debiting approved withdrawal from account %s: %w", w.AccountID, err)
		}
		if tag.RowsAffected() == 0 {
			return nil, ErrInsufficientBalance
		}
	}
	if _, err := tx.Exec(ctx, `UPDATE ledger_entries SET status = 'completed' WHERE related_id = $1 AND kind = 'withdrawal' AND status = 'pending'`, id); err != nil {
		return nil, fmt.Errorf("completing withdrawal entry for request %s: %w", id, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing withdrawal approval %s: %w", id, err)
	}
	w.Status = model.PayoutApproved
	w.ProcessedBy = &adminID
	w.ProcessedAt = &at
	return w, nil
}

func (r *payoutRepo) RejectWithdrawal(ctx context.Context, id, adminID string, at time.Time, refund bool) (*model.WithdrawalRequest, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("starting withdrawal rejection transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	w, err := scanWithdrawal(tx.QueryRow(ctx, `SELECT `+withdrawalColumns+` FROM withdrawal_requests WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	if err := transition(ctx, tx, "withdrawal_requests", id, adminID, at, model.PayoutRejected); err != nil {
		return nil, err
	}
	if refund {
		if _, err := tx.Exec(ctx, `UPDATE accounts SET balance = balance + $1, updated_at = NOW() WHERE id = $2`, w.Amount, w.AccountID); err != nil {
			return nil, fmt.Errorf("refunding rejected withdrawal to account %s: %w", w.AccountID, err)
		}
	}
	if _, err := tx.Exec(ctx, `UPDATE ledger_entries SET status = 'failed' WHERE related_id = $1 AND kind = 'withdrawal' AND status = 'pending'`, id); err != nil {
		return nil, fmt.Errorf("failing withdrawal entry for request %s: %w", id, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing withdrawal rejection %s: %w", id, err)
	}
	w.Status = model.PayoutRejected
	w.ProcessedBy = &adminID
	w.ProcessedAt = &at
	return w, nil
}
