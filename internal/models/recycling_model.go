package models

import "time"

type RecyclingPost struct {
	ID             int64      `db:"id" json:"id"`
	UUID           string     `db:"uuid" json:"uuid"`
	PostID         int64      `db:"post_id" json:"post_id"`
	IntervalType   string     `db:"interval_type" json:"interval_type"`
	IntervalValue  int        `db:"interval_value" json:"interval_value"`
	MaxRecycles    *int       `db:"max_recycles" json:"max_recycles"`
	RecycleCount   int        `db:"recycle_count" json:"recycle_count"`
	IsActive       bool       `db:"is_active" json:"is_active"`
	LastRecycledAt *time.Time `db:"last_recycled_at" json:"last_recycled_at"`
	NextRecycleAt  *time.Time `db:"next_recycle_at" json:"next_recycle_at"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

const (
	IntervalHours  = "hours"
	IntervalDays   = "days"
	IntervalWeeks  = "weeks"
	IntervalMonths = "months"
)
