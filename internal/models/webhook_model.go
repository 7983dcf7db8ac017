package models

import (
	"encoding/json"
	"time"
)

type Webhook struct {
	ID         int64      `db:"id" json:"id"`
	Name       string     `db:"name" json:"name"`
	URL        string     `db:"url" json:"url"`
	Secret     string     `db:"secret" json:"-"`
	Events     StringList `db:"events" json:"events"`
	IsActive   bool       `db:"is_active" json:"is_active"`
	Headers    HeaderMap  `db:"headers" json:"headers"`
	Timeout    int        `db:"timeout" json:"timeout"` // seconds
	RetryCount int        `db:"retry_count" json:"retry_count"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}

func (w *Webhook) Subscribes(event string) bool {
	return w.IsActive && w.Events.Contains(event)
}

type WebhookDelivery struct {
	ID           int64           `db:"id" json:"id"`
	WebhookID    int64           `db:"webhook_id" json:"webhook_id"`
	Event        string          `db:"event" json:"event"`
	Payload      json.RawMessage `db:"payload" json:"payload"`
	ResponseCode *int            `db:"response_code" json:"response_code"`
	ResponseBody *string         `db:"response_body" json:"response_body"`
	Status       string          `db:"status" json:"status"`
	Attempt      int             `db:"attempt" json:"attempt"`
	DeliveredAt  *time.Time      `db:"delivered_at" json:"delivered_at"`
	ErrorMessage *string         `db:"error_message" json:"error_message"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

// CanRetry reports whether another attempt is allowed under the webhook's retry ceiling.
func (d *WebhookDelivery) CanRetry(retryCount int) bool {
	return d.Status == DeliveryStatusFailed && d.Attempt < retryCount
}

const (
	DeliveryStatusPending = "pending"
	DeliveryStatusSuccess = "success"
	DeliveryStatusFailed  = "failed"
)

const (
	WebhookDefaultTimeout    = 30
	WebhookDefaultRetryCount = 3
)

const (
	EventPostCreated       = "post.created"
	EventPostUpdated       = "post.updated"
	EventPostScheduled     = "post.scheduled"
	EventPostPublished     = "post.published"
	EventPostFailed        = "post.failed"
	EventPostDeleted       = "post.deleted"
	EventAccountAdded      = "account.added"
	EventAccountRemoved    = "account.removed"
	EventApprovalRequested = "approval.requested"
	EventApprovalApproved  = "approval.approved"
	EventApprovalRejected  = "approval.rejected"
	EventTestPing          = "test.ping"
)

var WebhookEvents = []string{
	EventPostCreated,
	EventPostUpdated,
	EventPostScheduled,
	EventPostPublished,
	EventPostFailed,
	EventPostDeleted,
	EventAccountAdded,
	EventAccountRemoved,
	EventApprovalRequested,
	EventApprovalApproved,
	EventApprovalRejected,
}

// WebhookPayload is the body posted to subscribers.
type WebhookPayload struct {
	Event     string `json:"event"`
	Timestamp string `json:"timestamp"`
	Data      any    `json:"data"`
}
