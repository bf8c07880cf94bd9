package repository

import (
	"context"
	"errors"
	"fmt"

	"app/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PlanRepository defines methods for accessing plan reference data.
type PlanRepository interface {
	Create(ctx context.Context, p *model.Plan) error
	GetByID(ctx context.Context, id string) (*model.Plan, error)
	List(ctx context.Context) ([]model.Plan, error)
	Update(ctx context.Context, p *model.Plan) error
	Delete(ctx context.Context, id string) error
}

type planRepo struct {
	pool *pgxpool.Pool
}

// NewPlanRepo creates a new PlanRepository.
func NewPlanRepo(pool *pgxpool.Pool) PlanRepository {
	return &planRepo{pool: pool}
}

const planColumns = `id, name, cost, daily_reward, videos_per_day, duration_days, total_reward, created_at, updated_at`

func scanPlan(row pgx.Row) (*model.Plan, error) {
	var p model.Plan
	err := row.Scan(&p.ID, &p.Name, &p.Cost, &p.DailyReward, &p.VideosPerDay, &p.DurationDays, &p.TotalReward, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning plan: %w", err)
	}
	return &p, nil
}

func (r *planRepo) Create(ctx context.Context, p *model.Plan) error {
	const q = `
        INSERT INTO plans (id, name, cost, daily_reward, videos_per_day, duration_days, total_reward, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
        RETURNING created_at, updated_at
    `
	err := r.pool.QueryRow(ctx, q, p.ID, p.Name, p.Cost, p.DailyReward, p.VideosPerDay, p.DurationDays, p.TotalReward).Scan(&p.CreatedAt, &p.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("creating plan %q: %w", p.Name, err)
	}
	return nil
}

func (r *planRepo) GetByID(ctx context.Context, id string) (*model.Plan, error) {
	return scanPlan(r.pool.QueryRow(ctx, `SELECT `+planColumns+` FROM plans WHERE id = $1`, id))
}

func (r *planRepo) List(ctx context.Context) ([]model.Plan, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+planColumns+` FROM plans ORDER BY cost`)
	if err != nil {
		return nil, fmt.Errorf("listing plans: %w", err)
	}
	defer rows.Close()

	var plans []model.Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading plans: %w", err)
	}
	return plans, nil
}

func (r *planRepo) Update(ctx context.Context, p *model.Plan) error {
	const q = `
        UPDATE plans
        SET name = $2, cost = $3, daily_reward = $4, videos_per_day = $5,
            duration_days = $6, total_reward = $7, updated_at = NOW()
        WHERE id = $1
    `
	tag, err := r.pool.Exec(ctx, q, p.ID, p.Name, p.Cost, p.DailyReward, p.VideosPerDay, p.DurationDays, p.TotalReward)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("updating plan %s: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *planRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM plans WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting plan %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
