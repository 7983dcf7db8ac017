package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/maheshrc27/postflow-publisher/internal/models"
)

type WebhookDeliveryRepository interface {
	Create(ctx context.Context, d *models.WebhookDelivery) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.WebhookDelivery, error)
	MarkSuccess(ctx context.Context, id int64, code int, body string, deliveredAt time.Time) error
	MarkFailed(ctx context.Context, id int64, code *int, body *string, message string) error
	BeginRetry(ctx context.Context, id int64, retryCount int) (bool, error)
	ListByWebhook(ctx context.Context, webhookID int64, limit int) ([]*models.WebhookDelivery, error)
	ListRetryable(ctx context.Context, limit int) ([]*models.WebhookDelivery, error)
}

type webhookDeliveryRepository struct {
	db *sql.DB
}

func NewWebhookDeliveryRepository(db *sql.DB) WebhookDeliveryRepository {
	return &webhookDeliveryRepository{db: db}
}

const deliveryColumns = `d.id, d.webhook_id, d.event, d.payload, d.response_code, d.response_body, d.status,
	d.attempt, d.delivered_at, d.error_message, d.created_at, d.updated_at`

func scanDelivery(row interface{ Scan(...any) error }) (*models.WebhookDelivery, error) {
	var d models.WebhookDelivery
	var payload []byte
	err := row.Scan(&d.ID, &d.WebhookID, &d.Event, &payload, &d.ResponseCode, &d.ResponseBody, &d.Status,
		&d.Attempt, &d.DeliveredAt, &d.ErrorMessage, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	d.Payload = payload
	return &d, nil
}

// Create stores the serialized payload verbatim in a text column so retries
// resend identical bytes.
func (r *webhookDeliveryRepository) Create(ctx context.Context, d *models.WebhookDelivery) (int64, error) {
	query := `
		INSERT INTO webhook_deliveries (webhook_id, event, payload, status, attempt)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query, d.WebhookID, d.Event, string(d.Payload), d.Status, d.Attempt).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return id, nil
}

func (r *webhookDeliveryRepository) GetByID(ctx context.Context, id int64) (*models.WebhookDelivery, error) {
	query := `SELECT ` + deliveryColumns + ` FROM webhook_deliveries d WHERE d.id = $1`

	d, err := scanDelivery(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return d, nil
}

func (r *webhookDeliveryRepository) MarkSuccess(ctx context.Context, id int64, code int, body string, deliveredAt time.Time) error {
	query := `
		UPDATE webhook_deliveries
		SET status = $1,
			response_code = $2,
			response_body = $3,
			delivered_at = $4,
			error_message = NULL,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $5
	`
	_, err := r.db.ExecContext(ctx, query, models.DeliveryStatusSuccess, code, body, deliveredAt, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *webhookDeliveryRepository) MarkFailed(ctx context.Context, id int64, code *int, body *string, message string) error {
	query := `
		UPDATE webhook_deliveries
		SET status = $1,
			response_code = $2,
			response_body = $3,
			error_message = $4,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $5
	`
	_, err := r.db.ExecContext(ctx, query, models.DeliveryStatusFailed, code, body, message, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// BeginRetry bumps the attempt counter and resets the delivery to pending, but only
// while it is failed and still under retryCount. It reports whether the row moved.
func (r *webhookDeliveryRepository) BeginRetry(ctx context.Context, id int64, retryCount int) (bool, error) {
	query := `
		UPDATE webhook_deliveries
		SET status = $1,
			attempt = attempt + 1,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $2 AND status = $3 AND attempt < $4
	`
	res, err := r.db.ExecContext(ctx, query, models.DeliveryStatusPending, id, models.DeliveryStatusFailed, retryCount)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affectedOne(res)
}

func (r *webhookDeliveryRepository) ListByWebhook(ctx context.Context, webhookID int64, limit int) ([]*models.WebhookDelivery, error) {
	query := `
		SELECT ` + deliveryColumns + `
		FROM webhook_deliveries d
		WHERE d.webhook_id = $1
		ORDER BY d.created_at DESC, d.id DESC
		LIMIT $2
	`
	return r.list(ctx, query, webhookID, limit)
}

// ListRetryable returns failed deliveries of active webhooks that are still under the retry ceiling.
func (r *webhookDeliveryRepository) ListRetryable(ctx context.Context, limit int) ([]*models.WebhookDelivery, error) {
	query := `
		SELECT ` + deliveryColumns + `
		FROM webhook_deliveries d
		JOIN webhooks w ON w.id = d.webhook_id
		WHERE d.status = $1 AND d.attempt < w.retry_count AND w.is_active = TRUE
		ORDER BY d.updated_at, d.id
		LIMIT $2
	`
	return r.list(ctx, query, models.DeliveryStatusFailed, limit)
}

func (r *webhookDeliveryRepository) list(ctx context.Context, query string, args ...any) ([]*models.WebhookDelivery, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("query rows: %w", err)
	}
	defer rows.Close()

	var deliveries []*models.WebhookDelivery
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, fmt.Errorf("scan row: %w", err)
		}
		deliveries = append(deliveries, d)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return deliveries, nil
}
