package repository

import (
	"context"
	"errors"
	"fmt"

	"app/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// LedgerRepository pairs every balance mutation with exactly one ledger entry,
// inside a single transaction.
type LedgerRepository interface {
	// Credit increments the balance and appends a completed entry. amount must
	// already be validated positive by the caller.
	Credit(ctx context.Context, accountID string, amount decimal.Decimal, kind model.EntryKind, relatedID *string, description string) (*model.LedgerEntry, error)
	// CreditOnce is Credit with at-most-once semantics per
	// (account, kind, related id); a replay returns ErrDuplicateEntry and
	// leaves the balance untouched.
	CreditOnce(ctx context.Context, accountID string, amount decimal.Decimal, kind model.EntryKind, relatedID string, description string) (*model.LedgerEntry, error)
	// Debit decrements the balance and appends a completed entry with a
	// negative amount. Returns ErrInsufficientBalance unless allowNegative.
	Debit(ctx context.Context, accountID string, amount decimal.Decimal, kind model.EntryKind, relatedID *string, description string, allowNegative bool) (*model.LedgerEntry, error)
	// RecordPending appends a pending entry without touching the balance.
	// amount is signed: positive for deposits, negative for withdrawals.
	RecordPending(ctx context.Context, accountID string, amount decimal.Decimal, kind model.EntryKind, relatedID *string, description string) (*model.LedgerEntry, error)
	// ResolvePendingByRelated transitions the pending entry referencing
	// relatedID to completed or failed. ErrAlreadyProcessed if none is pending.
	ResolvePendingByRelated(ctx context.Context, relatedID string, kind model.EntryKind, status model.EntryStatus) error
	ListByAccount(ctx context.Context, accountID string) ([]model.LedgerEntry, error)
	SumByKinds(ctx context.Context, accountID string, kinds ...model.EntryKind) (decimal.Decimal, error)
	// ReconcileBalance returns the stored balance alongside the ledger sum
	// that must equal it: completed entries, plus pending withdrawal holds
	// when includeHolds is set.
	ReconcileBalance(ctx context.Context, accountID string, includeHolds bool) (balance, ledgerSum decimal.Decimal, err error)
}

type ledgerRepo struct {
	pool *pgxpool.Pool
}

// NewLedgerRepo creates a new LedgerRepository.
func NewLedgerRepo(pool *pgxpool.Pool) LedgerRepository {
	return &ledgerRepo{pool: pool}
}

const insertEntryQ = `
    INSERT INTO ledger_entries (id, account_id, kind, amount, description, related_id, status, created_at)
    VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
    RETURNING created_at
`

func insertEntry(ctx context.Context, tx pgx.Tx, e *model.LedgerEntry) error {
	return tx.QueryRow(ctx, insertEntryQ,
		e.ID, e.AccountID, e.Kind, e.Amount, e.Description, e.RelatedID, e.Status,
	).Scan(&e.CreatedAt)
}

func (r *ledgerRepo) Credit(ctx context.Context, accountID string, amount decimal.Decimal, kind model.EntryKind, relatedID *string, description string) (*model.LedgerEntry, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("starting credit transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	tag, err := tx.Exec(ctx, `UPDATE accounts SET balance = balance + $1, updated_at = NOW() WHERE id = $2`, amount, accountID)
	if err != nil {
		return nil, fmt.Errorf("crediting account %s: %w", accountID, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}

	entry := &model.LedgerEntry{
		ID:          uuid.NewString(),
		AccountID:   accountID,
		Kind:        kind,
		Amount:      amount,
		Description: description,
		RelatedID:   relatedID,
		Status:      model.EntryCompleted,
	}
	if err := insertEntry(ctx, tx, entry); err != nil {
		return nil, fmt.Errorf("recording credit entry for account %s: %w", accountID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing credit for account %s: %w", accountID, err)
	}
	return entry, nil
}

func (r *ledgerRepo) CreditOnce(ctx context.Context, accountID string, amount decimal.Decimal, kind model.EntryKind, relatedID string, description string) (*model.LedgerEntry, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("starting credit-once transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	// The unique index on (account_id, kind, related_id) is the idempotency
	// key; a replayed cascade inserts nothing and must not touch the balance.
	entry := &model.LedgerEntry{
		ID:          uuid.NewString(),
		AccountID:   accountID,
		Kind:        kind,
		Amount:      amount,
		Description: description,
		RelatedID:   &relatedID,
		Status:      model.EntryCompleted,
	}
	const q = `
        INSERT INTO ledger_entries (id, account_id, kind, amount, description, related_id, status, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
        ON CONFLICT (account_id, kind, related_id) DO NOTHING
        RETURNING created_at
    `
	err = tx.QueryRow(ctx, q, entry.ID, entry.AccountID, entry.Kind, entry.Amount, entry.Description, entry.RelatedID, entry.Status).Scan(&entry.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrDuplicateEntry
	}
	if err != nil {
		return nil, fmt.Errorf("recording bonus entry for account %s: %w", accountID, err)
	}

	tag, err := tx.Exec(ctx, `UPDATE accounts SET balance = balance + $1, updated_at = NOW() WHERE id = $2`, amount, accountID)
	if err != nil {
		return nil, fmt.Errorf("crediting bonus to account %s: %w", accountID, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing bonus credit for account %s: %w", accountID, err)
	}
	return entry, nil
}

func (r *ledgerRepo) Debit(ctx context.Context, accountID string, amount decimal.Decimal, kind model.EntryKind, relatedID *string, description string, allowNegative bool) (*model.LedgerEntry, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("starting debit transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	q := `UPDATE accounts SET balance = balance - $1, updated_at = NOW() WHERE id = $2 AND balance >= $1`
	if allowNegative {
		q = `UPDATE accounts SET balance = balance - $1, updated_at = NOW() WHERE id = $2`
	}
	tag, err := tx.Exec(ctx, q, amount, accountID)
	if err != nil {
		return nil, fmt.Errorf("debiting account %s: %w", accountID, err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`, accountID).Scan(&exists); err != nil {
			return nil, fmt.Errorf("checking account %s: %w", accountID, err)
		}
		if !exists {
			return nil, ErrNotFound
		}
		return nil, ErrInsufficientBalance
	}

	entry := &model.LedgerEntry{
		ID:          uuid.NewString(),
		AccountID:   accountID,
		Kind:        kind,
		Amount:      amount.Neg(),
		Description: description,
		RelatedID:   relatedID,
		Status:      model.EntryCompleted,
	}
	if err := insertEntry(ctx, tx, entry); err != nil {
		return nil, fmt.Errorf("recording debit entry for account %s: %w", accountID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing debit for account %s: %w", accountID, err)
	}
	return entry, nil
}

func (r *ledgerRepo) RecordPending(ctx context.Context, accountID string, amount decimal.Decimal, kind model.EntryKind, relatedID *string, description string) (*model.LedgerEntry, error) {
	entry := &model.LedgerEntry{
		ID:          uuid.NewString(),
		AccountID:   accountID,
		Kind:        kind,
		Amount:      amount,
		Description: description,
		RelatedID:   relatedID,
		Status:      model.EntryPending,
	}
	err := r.pool.QueryRow(ctx, insertEntryQ,
		entry.ID, entry.AccountID, entry.Kind, entry.Amount, entry.Description, entry.RelatedID, entry.Status,
	).Scan(&entry.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("recording pending entry for account %s: %w", accountID, err)
	}
	return entry, nil
}

func (r *ledgerRepo) ResolvePendingByRelated(ctx context.Context, relatedID string, kind model.EntryKind, status model.EntryStatus) error {
	const q = `
        UPDATE ledger_entries
        SET status = $3
        WHERE related_id = $1 AND kind = $2 AND status = 'pending'
    `
	tag, err := r.pool.Exec(ctx, q, relatedID, kind, status)
	if err != nil {
		return fmt.Errorf("resolving pending entry for %s: %w", relatedID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyProcessed
	}
	return nil
}

func (r *ledgerRepo) ListByAccount(ctx context.Context, accountID string) ([]model.LedgerEntry, error) {
	const q = `
        SELECT id, account_id, kind, amount, description, related_id, status, created_at
        FROM ledger_entries
        WHERE account_id = $1
        ORDER BY created_at DESC
    `
	rows, err := r.pool.Query(ctx, q, accountID)
	if err != nil {
		return nil, fmt.Errorf("listing ledger entries for account %s: %w", accountID, err)
	}
	defer rows.Close()

	var entries []model.LedgerEntry
	for rows.Next() {
		var e model.LedgerEntry
		if err := rows.Scan(&e.ID, &e.AccountID, &e.Kind, &e.Amount, &e.Description, &e.RelatedID, &e.Status, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning ledger entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading ledger entries for account %s: %w", accountID, err)
	}
	return entries, nil
}

func (r *ledgerRepo) SumByKinds(ctx context.Context, accountID string, kinds ...model.EntryKind) (decimal.Decimal, error) {
	const q = `
        SELECT COALESCE(SUM(amount), 0)
        FROM ledger_entries
        WHERE account_id = $1 AND status = 'completed' AND kind = ANY($2)
    `
	ks := make([]string, len(kinds))
	for i, k := range kinds {
		ks[i] = string(k)
	}
	var sum decimal.Decimal
	if err := r.pool.QueryRow(ctx, q, accountID, ks).Scan(&sum); err != nil {
		return decimal.Zero, fmt.Errorf("summing %v entries for account %s: %w", kinds, accountID, err)
	}
	return sum, nil
}

func (r *ledgerRepo) ReconcileBalance(ctx context.Context, accountID string, includeHolds bool) (decimal.Decimal, decimal.Decimal, error) {
	// When withdrawals debit at request time, a pending withdrawal entry is a
	// hold whose amount has already been taken out of the balance, so it
	// counts toward the reconciled sum. Under deferred debit no hold exists
	// and pending entries are excluded.
	const q = `
        SELECT a.balance,
               COALESCE((
                   SELECT SUM(e.amount)
                   FROM ledger_entries e
                   WHERE e.account_id = a.id
                     AND (e.status = 'completed' OR ($2 AND e.status = 'pending' AND e.kind = 'withdrawal'))
               ), 0)
        FROM accounts a
        WHERE a.id = $1
    `
	var balance, sum decimal.Decimal
	err := r.pool.QueryRow(ctx, q, accountID, includeHolds).Scan(&balance, &sum)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, decimal.Zero, ErrNotFound
	}
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("reconciling balance for account %s: %w", accountID, err)
	}
	return balance, sum, nil
}
