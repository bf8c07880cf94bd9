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

// AccountRepository defines methods for accessing account data.
type AccountRepository interface {
	Create(ctx context.Context, a *model.Account) error
	GetByID(ctx context.Context, id string) (*model.Account, error)
	GetByEmail(ctx context.Context, email string) (*model.Account, error)
	GetByUsername(ctx context.Context, username string) (*model.Account, error)
	GetByReferralCode(ctx context.Context, code string) (*model.Account, error)
	List(ctx context.Context) ([]model.Account, error)
	ListReferred(ctx context.Context, referrerID string) ([]model.Account, error)
	SetVerified(ctx context.Context, id string) error
	SetBlocked(ctx context.Context, id string, blocked bool) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	// ResetDailyCount applies the lazy day rollover: zeroes the daily counter.
	// The last-watch instant is left alone; it records watches, not rollovers.
	ResetDailyCount(ctx context.Context, id string) error
	// ActivatePlan debits the plan cost, activates the plan and resets the
	// daily counters in one transaction, appending the purchase ledger entry.
	ActivatePlan(ctx context.Context, accountID string, plan *model.Plan, activatedAt time.Time, expiresAt *time.Time) (*model.LedgerEntry, error)
}

type accountRepo struct {
	pool *pgxpool.Pool
}

// NewAccountRepo creates a new AccountRepository.
func NewAccountRepo(pool *pgxpool.Pool) AccountRepository {
	return &accountRepo{pool: pool}
}

const accountColumns = `
    id, username, email, password_hash, is_verified, is_blocked, is_admin,
    balance, current_plan_id, plan_activated_at, plan_expires_at,
    videos_watched_today, last_video_watch_at, referral_code, referred_by,
    created_at, updated_at
`

func scanAccount(row pgx.Row) (*model.Account, error) {
	var a model.Account
	err := row.Scan(
		&a.ID, &a.Username, &a.Email, &a.PasswordHash, &a.IsVerified, &a.IsBlocked, &a.IsAdmin,
		&a.Balance, &a.CurrentPlanID, &a.PlanActivatedAt, &a.PlanExpiresAt,
		&a.VideosWatchedToday, &a.LastVideoWatchAt, &a.ReferralCode, &a.ReferredBy,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning account: %w", err)
	}
	return &a, nil
}

func (r *accountRepo) Create(ctx context.Context, a *model.Account) error {
	const q = `
        INSERT INTO accounts (id, username, email, password_hash, is_verified, is_blocked, is_admin,
                              balance, referral_code, referred_by, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, false, $6, $7, $8, $9, NOW(), NOW())
        RETURNING created_at, updated_at
    `
	err := r.pool.QueryRow(ctx, q,
		a.ID, a.Username, a.Email, a.PasswordHash, a.IsVerified, a.IsAdmin,
		a.Balance, a.ReferralCode, a.ReferredBy,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("creating account %s: %w", a.Username, err)
	}
	return nil
}

func (r *accountRepo) GetByID(ctx context.Context, id string) (*model.Account, error) {
	return scanAccount(r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
}

func (r *accountRepo) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	return scanAccount(r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = $1`, email))
}

func (r *accountRepo) GetByUsername(ctx context.Context, username string) (*model.Account, error) {
	return scanAccount(r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE username = $1`, username))
}

func (r *accountRepo) GetByReferralCode(ctx context.Context, code string) (*model.Account, error) {
	return scanAccount(r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE referral_code = $1`, code))
}

func (r *accountRepo) list(ctx context.Context, q string, args ...any) ([]model.Account, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	defer rows.Close()

	var accounts []model.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading accounts: %w", err)
	}
	return accounts, nil
}

func (r *accountRepo) List(ctx context.Context) ([]model.Account, error) {
	return r.list(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY created_at`)
}

func (r *accountRepo) ListReferred(ctx context.Context, referrerID string) ([]model.Account, error) {
	return r.list(ctx, `SELECT `+accountColumns+` FROM accounts WHERE referred_by = $1 ORDER BY created_at`, referrerID)
}

func (r *accountRepo) exec(ctx context.Context, q string, args ...any) error {
	tag, err := r.pool.Exec(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("updating account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *accountRepo) SetVerified(ctx context.Context, id string) error {
	return r.exec(ctx, `UPDATE accounts SET is_verified = true, updated_at = NOW() WHERE id = $1`, id)
}

func (r *accountRepo) SetBlocked(ctx context.Context, id string, blocked bool) error {
	return r.exec(ctx, `UPDATE accounts SET is_blocked = $2, updated_at = NOW() WHERE id = $1`, id, blocked)
}

func (r *accountRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.exec(ctx, `UPDATE accounts SET password_hash = $2, updated_at = NOW() WHERE id = $1`, id, passwordHash)
}

func (r *accountRepo) ResetDailyCount(ctx context.Context, id string) error {
	const q = `
        UPDATE accounts
        SET videos_watched_today = 0, updated_at = NOW()
        WHERE id = $1
    `
	return r.exec(ctx, q, id)
}

func (r *accountRepo) ActivatePlan(ctx context.Context, accountID string, plan *model.Plan, activatedAt time.Time, expiresAt *time.Time) (*model.LedgerEntry, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("starting plan activation transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	const q = `
        UPDATE accounts
        SET balance = balance - $1,
            current_plan_id = $2,
            plan_activated_at = $3,
            plan_expires_at = $4,
            videos_watched_today = 0,
            last_video_watch_at = NULL,
            updated_at = NOW()
        WHERE id = $5 AND balance >= $1
    `
	tag, err := tx.Exec(ctx, q, plan.Cost, plan.ID, activatedAt, expiresAt, accountID)
	if err != nil {
		return nil, fmt.Errorf("activating plan %s for account %s: %w", plan.ID, accountID, err)
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
		Kind:        model.KindPlanPurchase,
		Amount:      plan.Cost.Neg(),
		Description: fmt.Sprintf("Purchase of plan %q", plan.Name),
		RelatedID:   &plan.ID,
		Status:      model.EntryCompleted,
	}
	if err := insertEntry(ctx, tx, entry); err != nil {
		return nil, fmt.Errorf("recording purchase entry for account %s: %w", accountID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing plan activation for account %s: %w", accountID, err)
	}
	return entry, nil
}
