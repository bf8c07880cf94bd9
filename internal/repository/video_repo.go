package repository

import (
	"context"
	"errors"
	"fmt"

	"app/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// VideoRepository defines methods for accessing the video catalog.
type VideoRepository interface {
	Create(ctx context.Context, v *model.Video) error
	GetByID(ctx context.Context, id string) (*model.Video, error)
	List(ctx context.Context, activeOnly bool) ([]model.Video, error)
	Update(ctx context.Context, v *model.Video) error
	Delete(ctx context.Context, id string) error
}

type videoRepo struct {
	pool *pgxpool.Pool
}

// NewVideoRepo creates a new VideoRepository.
func NewVideoRepo(pool *pgxpool.Pool) VideoRepository {
	return &videoRepo{pool: pool}
}

const videoColumns = `id, title, video_url, storage_path, duration_seconds, reward_amount, is_active, created_at, updated_at`

func scanVideo(row pgx.Row) (*model.Video, error) {
	var v model.Video
	err := row.Scan(&v.ID, &v.Title, &v.VideoURL, &v.StoragePath, &v.DurationSeconds, &v.RewardAmount, &v.IsActive, &v.CreatedAt, &v.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning video: %w", err)
	}
	return &v, nil
}

func (r *videoRepo) Create(ctx context.Context, v *model.Video) error {
	const q = `
        INSERT INTO videos (id, title, video_url, storage_path, duration_seconds, reward_amount, is_active, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
        RETURNING created_at, updated_at
    `
	err := r.pool.QueryRow(ctx, q, v.ID, v.Title, v.VideoURL, v.StoragePath, v.DurationSeconds, v.RewardAmount, v.IsActive).Scan(&v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating video %q: %w", v.Title, err)
	}
	return nil
}

func (r *videoRepo) GetByID(ctx context.Context, id string) (*model.Video, error) {
	return scanVideo(r.pool.QueryRow(ctx, `SELECT `+videoColumns+` FROM videos WHERE id = $1`, id))
}

func (r *videoRepo) List(ctx context.Context, activeOnly bool) ([]model.Video, error) {
	q := `SELECT ` + videoColumns + ` FROM videos ORDER BY created_at`
	if activeOnly {
		q = `SELECT ` + videoColumns + ` FROM videos WHERE is_active ORDER BY created_at`
	}
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("listing videos: %w", err)
	}
	defer rows.Close()

	var videos []model.Video
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		videos = append(videos, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading videos: %w", err)
	}
	return videos, nil
}

func (r *videoRepo) Update(ctx context.Context, v *model.Video) error {
	const q = `
        UPDATE videos
        SET title = $2, video_url = $3, storage_path = $4, duration_seconds = $5,
            reward_amount = $6, is_active = $7, updated_at = NOW()
        WHERE id = $1
    `
	tag, err := r.pool.Exec(ctx, q, v.ID, v.Title, v.VideoURL, v.StoragePath, v.DurationSeconds, v.RewardAmount, v.IsActive)
	if err != nil {
		return fmt.Errorf("updating video %s: %w", v.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *videoRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM videos WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting video %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
