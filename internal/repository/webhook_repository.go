package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/maheshrc27/postflow-publisher/internal/models"
)

type WebhookRepository interface {
	Create(ctx context.Context, w *models.Webhook) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Webhook, error)
	List(ctx context.Context) ([]*models.Webhook, error)
	ListForEvent(ctx context.Context, event string) ([]*models.Webhook, error)
	Update(ctx context.Context, w *models.Webhook) error
	SetActive(ctx context.Context, id int64, active bool) error
	SetSecret(ctx context.Context, id int64, secret string) error
	Remove(ctx context.Context, id int64) error
}

type webhookRepository struct {
	db *sql.DB
}

func NewWebhookRepository(db *sql.DB) WebhookRepository {
	return &webhookRepository{db: db}
}

const webhookColumns = `id, name, url, secret, events, is_active, headers, timeout, retry_count, created_at, updated_at`

func scanWebhook(row interface{ Scan(...any) error }) (*models.Webhook, error) {
	var w models.Webhook
	err := row.Scan(&w.ID, &w.Name, &w.URL, &w.Secret, &w.Events, &w.IsActive, &w.Headers, &w.Timeout, &w.RetryCount, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *webhookRepository) Create(ctx context.Context, w *models.Webhook) (int64, error) {
	query := `
		INSERT INTO webhooks (name, url, secret, events, is_active, headers, timeout, retry_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query, w.Name, w.URL, w.Secret, w.Events, w.IsActive, w.Headers, w.Timeout, w.RetryCount).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return id, nil
}

func (r *webhookRepository) GetByID(ctx context.Context, id int64) (*models.Webhook, error) {
	query := `SELECT ` + webhookColumns + ` FROM webhooks WHERE id = $1`

	w, err := scanWebhook(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return w, nil
}

func (r *webhookRepository) List(ctx context.Context) ([]*models.Webhook, error) {
	return r.list(ctx, `SELECT `+webhookColumns+` FROM webhooks ORDER BY id`)
}

// ListForEvent returns active webhooks whose events array contains event.
func (r *webhookRepository) ListForEvent(ctx context.Context, event string) ([]*models.Webhook, error) {
	query := `SELECT ` + webhookColumns + ` FROM webhooks WHERE is_active = TRUE AND events ? $1 ORDER BY id`
	return r.list(ctx, query, event)
}

func (r *webhookRepository) list(ctx context.Context, query string, args ...any) ([]*models.Webhook, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("query rows: %w", err)
	}
	defer rows.Close()

	var hooks []*models.Webhook
	for rows.Next() {
		w, err := scanWebhook(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, fmt.Errorf("scan row: %w", err)
		}
		hooks = append(hooks, w)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return hooks, nil
}

func (r *webhookRepository) Update(ctx context.Context, w *models.Webhook) error {
	query := `
		UPDATE webhooks
		SET name = $1,
			url = $2,
			events = $3,
			headers = $4,
			timeout = $5,
			retry_count = $6,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $7
	`
	_, err := r.db.ExecContext(ctx, query, w.Name, w.URL, w.Events, w.Headers, w.Timeout, w.RetryCount, w.ID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *webhookRepository) SetActive(ctx context.Context, id int64, active bool) error {
	query := `UPDATE webhooks SET is_active = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, active, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *webhookRepository) SetSecret(ctx context.Context, id int64, secret string) error {
	query := `UPDATE webhooks SET secret = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, secret, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *webhookRepository) Remove(ctx context.Context, id int64) error {
	query := `DELETE FROM webhooks WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
