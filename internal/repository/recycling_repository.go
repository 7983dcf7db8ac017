package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/maheshrc27/postflow-publisher/internal/models"
)

type RecyclingRepository interface {
	Create(ctx context.Context, rule *models.RecyclingPost) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.RecyclingPost, error)
	GetByPostID(ctx context.Context, postID int64) (*models.RecyclingPost, error)
	List(ctx context.Context) ([]*models.RecyclingPost, error)
	ListDue(ctx context.Context, now time.Time) ([]*models.RecyclingPost, error)
	Update(ctx context.Context, tx *sql.Tx, rule *models.RecyclingPost) error
	Advance(ctx context.Context, tx *sql.Tx, rule *models.RecyclingPost, fromCount int) (bool, error)
	SetActive(ctx context.Context, id int64, active bool) error
	Remove(ctx context.Context, id int64) error
}

type recyclingRepository struct {
	db *sql.DB
}

func NewRecyclingRepository(db *sql.DB) RecyclingRepository {
	return &recyclingRepository{db: db}
}

const recyclingColumns = `id, uuid, post_id, interval_type, interval_value, max_recycles, recycle_count,
	is_active, last_recycled_at, next_recycle_at, created_at, updated_at`

func scanRecycling(row interface{ Scan(...any) error }) (*models.RecyclingPost, error) {
	var rp models.RecyclingPost
	err := row.Scan(&rp.ID, &rp.UUID, &rp.PostID, &rp.IntervalType, &rp.IntervalValue, &rp.MaxRecycles,
		&rp.RecycleCount, &rp.IsActive, &rp.LastRecycledAt, &rp.NextRecycleAt, &rp.CreatedAt, &rp.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &rp, nil
}

func (r *recyclingRepository) Create(ctx context.Context, rule *models.RecyclingPost) (int64, error) {
	query := `
		INSERT INTO recycling_posts (uuid, post_id, interval_type, interval_value, max_recycles,
			recycle_count, is_active, last_recycled_at, next_recycle_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		rule.UUID,
		rule.PostID,
		rule.IntervalType,
		rule.IntervalValue,
		rule.MaxRecycles,
		rule.RecycleCount,
		rule.IsActive,
		rule.LastRecycledAt,
		rule.NextRecycleAt,
	).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return id, nil
}

func (r *recyclingRepository) GetByID(ctx context.Context, id int64) (*models.RecyclingPost, error) {
	return r.get(ctx, `SELECT `+recyclingColumns+` FROM recycling_posts WHERE id = $1`, id)
}

func (r *recyclingRepository) GetByPostID(ctx context.Context, postID int64) (*models.RecyclingPost, error) {
	return r.get(ctx, `SELECT `+recyclingColumns+` FROM recycling_posts WHERE post_id = $1`, postID)
}

func (r *recyclingRepository) get(ctx context.Context, query string, arg int64) (*models.RecyclingPost, error) {
	rp, err := scanRecycling(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return rp, nil
}

func (r *recyclingRepository) List(ctx context.Context) ([]*models.RecyclingPost, error) {
	return r.list(ctx, `SELECT `+recyclingColumns+` FROM recycling_posts ORDER BY id DESC`)
}

// ListDue is a coarse filter; callers still check scheduling.DueNow per rule.
func (r *recyclingRepository) ListDue(ctx context.Context, now time.Time) ([]*models.RecyclingPost, error) {
	query := `
		SELECT ` + recyclingColumns + `
		FROM recycling_posts
		WHERE is_active = TRUE
			AND (max_recycles IS NULL OR recycle_count < max_recycles)
			AND (next_recycle_at IS NULL OR next_recycle_at <= $1)
		ORDER BY next_recycle_at NULLS FIRST, id
	`
	return r.list(ctx, query, now)
}

func (r *recyclingRepository) list(ctx context.Context, query string, args ...any) ([]*models.RecyclingPost, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("query rows: %w", err)
	}
	defer rows.Close()

	var rules []*models.RecyclingPost
	for rows.Next() {
		rp, err := scanRecycling(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, fmt.Errorf("scan row: %w", err)
		}
		rules = append(rules, rp)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return rules, nil
}

// Update persists every mutable field of the rule.
func (r *recyclingRepository) Update(ctx context.Context, tx *sql.Tx, rule *models.RecyclingPost) error {
	query := `
		UPDATE recycling_posts
		SET interval_type = $1,
			interval_value = $2,
			max_recycles = $3,
			recycle_count = $4,
			is_active = $5,
			last_recycled_at = $6,
			next_recycle_at = $7,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $8
	`
	_, err := conn(r.db, tx).ExecContext(ctx, query,
		rule.IntervalType,
		rule.IntervalValue,
		rule.MaxRecycles,
		rule.RecycleCount,
		rule.IsActive,
		rule.LastRecycledAt,
		rule.NextRecycleAt,
		rule.ID,
	)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// Advance stores one recycle on the rule only if nobody else recorded one
// since it was read with recycle_count = fromCount.
func (r *recyclingRepository) Advance(ctx context.Context, tx *sql.Tx, rule *models.RecyclingPost, fromCount int) (bool, error) {
	query := `
		UPDATE recycling_posts
		SET recycle_count = $1,
			is_active = $2,
			last_recycled_at = $3,
			next_recycle_at = $4,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $5
			AND recycle_count = $6
			AND is_active = TRUE
			AND (max_recycles IS NULL OR recycle_count < max_recycles)
	`
	res, err := conn(r.db, tx).ExecContext(ctx, query,
		rule.RecycleCount,
		rule.IsActive,
		rule.LastRecycledAt,
		rule.NextRecycleAt,
		rule.ID,
		fromCount,
	)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affectedOne(res)
}

func (r *recyclingRepository) SetActive(ctx context.Context, id int64, active bool) error {
	query := `UPDATE recycling_posts SET is_active = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, active, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *recyclingRepository) Remove(ctx context.Context, id int64) error {
	query := `DELETE FROM recycling_posts WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
