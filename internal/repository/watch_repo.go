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

// WatchRepository persists rewarded watches. RecordWatch is the commit point
// of the daily reward flow: the per-day unique index on watch_records makes
// the duplicate check and the insert effectively atomic under concurrency.
type WatchRepository interface {
	HasWatchedOn(ctx context.Context, accountID, videoID string, day time.Time) (bool, error)
	// RecordWatch atomically inserts the watch record, credits the reward,
	// advances the daily counter (guarded by quota) and appends the reward
	// ledger entry. Returns the entry and the new daily count.
	// ErrDuplicateWatch if a record already exists for the day,
	// ErrQuotaExhausted if the counter is already at quota.
	RecordWatch(ctx context.Context, rec *model.WatchRecord, quota int, description string) (*model.LedgerEntry, int, error)
	CountOn(ctx context.Context, accountID string, day time.Time) (int, error)
}

type watchRepo struct {
	pool *pgxpool.Pool
}

// NewWatchRepo creates a new WatchRepository.
func NewWatchRepo(pool *pgxpool.Pool) WatchRepository {
	return &watchRepo{pool: pool}
}

func (r *watchRepo) HasWatchedOn(ctx context.Context, accountID, videoID string, day time.Time) (bool, error) {
	const q = `
        SELECT EXISTS (
            SELECT 1 FROM watch_records
            WHERE account_id = $1 AND video_id = $2 AND watch_day = $3
        )
    `
	var exists bool
	if err := r.pool.QueryRow(ctx, q, accountID, videoID, day).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking watch record for account %s: %w", accountID, err)
	}
	return exists, nil
}

func (r *watchRepo) RecordWatch(ctx context.Context, rec *model.WatchRecord, quota int, description string) (*model.LedgerEntry, int, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return nil, 0, fmt.Errorf("starting transaction for watch record: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	const insertQ = `
        INSERT INTO watch_records (id, account_id, video_id, watched_at, watch_day, reward_earned)
        VALUES ($1, $2, $3, $4, $5, $6)
    `
	if _, err := tx.Exec(ctx, insertQ, rec.ID, rec.AccountID, rec.VideoID, rec.WatchedAt, rec.WatchDay, rec.RewardEarned); err != nil {
		if isUniqueViolation(err) {
			return nil, 0, ErrDuplicateWatch
		}
		return nil, 0, fmt.Errorf("inserting watch record for account %s: %w", rec.AccountID, err)
	}

	const settleQ = `
        UPDATE accounts
        SET balance = balance + $1,
            videos_watched_today = videos_watched_today + 1,
            last_video_watch_at = $2,
            updated_at = NOW()
        WHERE id = $3 AND videos_watched_today < $4
        RETURNING videos_watched_today
    `
	var newCount int
	err = tx.QueryRow(ctx, settleQ, rec.RewardEarned, rec.WatchedAt, rec.AccountID, quota).Scan(&newCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, 0, ErrQuotaExhausted
	}
	if err != nil {
		return nil, 0, fmt.Errorf("settling watch reward for account %s: %w", rec.AccountID, err)
	}

	entry := &model.LedgerEntry{
		ID:          uuid.NewString(),
		AccountID:   rec.AccountID,
		Kind:        model.KindVideoReward,
		Amount:      rec.RewardEarned,
		Description: description,
		RelatedID:   &rec.VideoID,
		Status:      model.EntryCompleted,
	}
	if err := insertEntry(ctx, tx, entry); err != nil {
		return nil, 0, fmt.Errorf("recording reward entry for account %s: %w", rec.AccountID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, 0, fmt.Errorf("committing watch for account %s: %w", rec.AccountID, err)
	}
	return entry, newCount, nil
}

func (r *watchRepo) CountOn(ctx context.Context, accountID string, day time.Time) (int, error) {
	const q = `SELECT COUNT(*) FROM watch_records WHERE account_id = $1 AND watch_day = $2`
	var count int
	if err := r.pool.QueryRow(ctx, q, accountID, day).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting watches for account %s: %w", accountID, err)
	}
	return count, nil
}
