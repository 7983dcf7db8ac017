package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/maheshrc27/postflow-publisher/internal/models"
)

type QueueRepository interface {
	Create(ctx context.Context, tx *sql.Tx, item *models.QueueItem) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.QueueItem, error)
	ListDue(ctx context.Context, now time.Time) ([]*models.QueueItem, error)
	ListPending(ctx context.Context) ([]*models.QueueItem, error)
	Claim(ctx context.Context, id int64) (bool, error)
	MarkPublished(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, message string) error
	Requeue(ctx context.Context, id int64) (bool, error)
	UpdatePositions(ctx context.Context, positions map[int64]int) error
	Remove(ctx context.Context, id int64) (bool, error)
	Stats(ctx context.Context, since time.Time) (*models.QueueStats, error)
}

type queueRepository struct {
	db *sql.DB
}

func NewQueueRepository(db *sql.DB) QueueRepository {
	return &queueRepository{db: db}
}

const queueColumns = `id, uuid, post_id, schedule_time_id, scheduled_at, status, position, error_message, created_at, updated_at`

func scanQueueItem(row interface{ Scan(...any) error }) (*models.QueueItem, error) {
	var q models.QueueItem
	err := row.Scan(&q.ID, &q.UUID, &q.PostID, &q.ScheduleTimeID, &q.ScheduledAt, &q.Status, &q.Position, &q.ErrorMessage, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// Create appends the item behind every pending item. Position is computed in the
// insert itself and written back to item.
func (r *queueRepository) Create(ctx context.Context, tx *sql.Tx, item *models.QueueItem) (int64, error) {
	query := `
		INSERT INTO queue_items (uuid, post_id, schedule_time_id, scheduled_at, status, position)
		VALUES ($1, $2, $3, $4, $5,
			(SELECT COALESCE(MAX(position), 0) + 1 FROM queue_items WHERE status = $5))
		RETURNING id, position
	`

	var id int64
	err := conn(r.db, tx).QueryRowContext(ctx, query,
		item.UUID,
		item.PostID,
		item.ScheduleTimeID,
		item.ScheduledAt,
		models.QueueStatusPending,
	).Scan(&id, &item.Position)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	item.ID = id
	item.Status = models.QueueStatusPending
	return id, nil
}

func (r *queueRepository) GetByID(ctx context.Context, id int64) (*models.QueueItem, error) {
	query := `SELECT ` + queueColumns + ` FROM queue_items WHERE id = $1`

	item, err := scanQueueItem(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return item, nil
}

// ListDue orders by position first so manual reordering wins over schedule time;
// id breaks duplicate positions.
func (r *queueRepository) ListDue(ctx context.Context, now time.Time) ([]*models.QueueItem, error) {
	query := `
		SELECT ` + queueColumns + `
		FROM queue_items
		WHERE status = $1 AND scheduled_at <= $2
		ORDER BY position, scheduled_at, id
	`
	return r.list(ctx, query, models.QueueStatusPending, now)
}

func (r *queueRepository) ListPending(ctx context.Context) ([]*models.QueueItem, error) {
	query := `
		SELECT ` + queueColumns + `
		FROM queue_items
		WHERE status = $1
		ORDER BY position, scheduled_at, id
	`
	return r.list(ctx, query, models.QueueStatusPending)
}

func (r *queueRepository) list(ctx context.Context, query string, args ...any) ([]*models.QueueItem, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("query rows: %w", err)
	}
	defer rows.Close()

	var items []*models.QueueItem
	for rows.Next() {
		item, err := scanQueueItem(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, fmt.Errorf("scan row: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return items, nil
}

// Claim moves a pending item to processing. It reports false when another
// runner claimed it first or the item is no longer pending.
func (r *queueRepository) Claim(ctx context.Context, id int64) (bool, error) {
	query := `
		UPDATE queue_items
		SET status = $1,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $2 AND status = $3
	`
	res, err := r.db.ExecContext(ctx, query, models.QueueStatusProcessing, id, models.QueueStatusPending)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affectedOne(res)
}

func (r *queueRepository) MarkPublished(ctx context.Context, id int64) error {
	query := `
		UPDATE queue_items
		SET status = $1,
			error_message = NULL,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $2
	`
	_, err := r.db.ExecContext(ctx, query, models.QueueStatusPublished, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *queueRepository) MarkFailed(ctx context.Context, id int64, message string) error {
	query := `
		UPDATE queue_items
		SET status = $1,
			error_message = $2,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $3
	`
	_, err := r.db.ExecContext(ctx, query, models.QueueStatusFailed, message, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// Requeue moves a failed item back to pending and clears its error.
func (r *queueRepository) Requeue(ctx context.Context, id int64) (bool, error) {
	query := `
		UPDATE queue_items
		SET status = $1,
			error_message = NULL,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $2 AND status = $3
	`
	res, err := r.db.ExecContext(ctx, query, models.QueueStatusPending, id, models.QueueStatusFailed)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affectedOne(res)
}

func (r *queueRepository) UpdatePositions(ctx context.Context, positions map[int64]int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	defer tx.Rollback()

	query := `UPDATE queue_items SET position = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`
	for id, position := range positions {
		if _, err := tx.ExecContext(ctx, query, position, id); err != nil {
			slog.Info(err.Error())
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// Remove deletes the item unless a runner is currently publishing it.
func (r *queueRepository) Remove(ctx context.Context, id int64) (bool, error) {
	query := `DELETE FROM queue_items WHERE id = $1 AND status <> $2`
	res, err := r.db.ExecContext(ctx, query, id, models.QueueStatusProcessing)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affectedOne(res)
}

func (r *queueRepository) Stats(ctx context.Context, since time.Time) (*models.QueueStats, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE status = $1),
			COUNT(*) FILTER (WHERE status = $2 AND updated_at >= $3),
			COUNT(*) FILTER (WHERE status = $4)
		FROM queue_items
	`

	var s models.QueueStats
	err := r.db.QueryRowContext(ctx, query,
		models.QueueStatusPending,
		models.QueueStatusPublished,
		since,
		models.QueueStatusFailed,
	).Scan(&s.Pending, &s.PublishedToday, &s.Failed)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return &s, nil
}
