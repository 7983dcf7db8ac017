package transfer

import "time"

// Operator API request bodies.

type EnqueueRequest struct {
	PostID         int64      `json:"post_id" validate:"required,gt=0"`
	ScheduleTimeID *int64     `json:"schedule_time_id" validate:"omitempty,gt=0"`
	ScheduledAt    *time.Time `json:"scheduled_at"`
}

type ReorderRequest struct {
	Items []ReorderItem `json:"items" validate:"required,min=1,dive"`
}

type ReorderItem struct {
	ID       int64 `json:"id" validate:"required,gt=0"`
	Position int   `json:"position" validate:"gte=0"`
}

type SlotRequest struct {
	DayOfWeek *int   `json:"day_of_week" validate:"required,min=0,max=6"`
	Time      string `json:"time" validate:"required"`
}

type RecyclingRequest struct {
	PostID        int64  `json:"post_id" validate:"required,gt=0"`
	IntervalType  string `json:"interval_type" validate:"omitempty,oneof=hours days weeks months"`
	IntervalValue int    `json:"interval_value" validate:"omitempty,min=1,max=365"`
	MaxRecycles   *int   `json:"max_recycles" validate:"omitempty,min=1,max=100"`
}

type RecyclingUpdate struct {
	IntervalType  string `json:"interval_type" validate:"required,oneof=hours days weeks months"`
	IntervalValue int    `json:"interval_value" validate:"required,min=1,max=365"`
	MaxRecycles   *int   `json:"max_recycles" validate:"omitempty,min=1,max=100"`
}

type WebhookRequest struct {
	Name       string            `json:"name" validate:"required,max=255"`
	URL        string            `json:"url" validate:"required,url"`
	Secret     string            `json:"secret" validate:"omitempty,min=16"`
	Events     []string          `json:"events" validate:"required,min=1"`
	Headers    map[string]string `json:"headers"`
	Timeout    int               `json:"timeout" validate:"omitempty,min=1,max=120"`
	RetryCount int               `json:"retry_count" validate:"omitempty,min=1,max=10"`
	IsActive   *bool             `json:"is_active"`
}
