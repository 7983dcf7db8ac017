package models

import "time"

type QueueItem struct {
	ID             int64      `db:"id" json:"id"`
	UUID           string     `db:"uuid" json:"uuid"`
	PostID         int64      `db:"post_id" json:"post_id"`
	ScheduleTimeID *int64     `db:"schedule_time_id" json:"schedule_time_id"`
	ScheduledAt    *time.Time `db:"scheduled_at" json:"scheduled_at"`
	Status         string     `db:"status" json:"status"`
	Position       int        `db:"position" json:"position"`
	ErrorMessage   *string    `db:"error_message" json:"error_message"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

type QueueStats struct {
	Pending        int `json:"pending"`
	PublishedToday int `json:"published_today"`
	Failed         int `json:"failed"`
}

const (
	QueueStatusPending    = "pending"
	QueueStatusProcessing = "processing"
	QueueStatusPublished  = "published"
	QueueStatusFailed     = "failed"
)
