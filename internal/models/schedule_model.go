package models

import "time"

type PostingSchedule struct {
	ID        int64           `db:"id" json:"id"`
	Name      string          `db:"name" json:"name"`
	IsActive  bool            `db:"is_active" json:"is_active"`
	Slots     []*ScheduleSlot `json:"slots"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

// ScheduleSlot is a weekly recurring posting time. DayOfWeek follows time.Weekday
// (0 = Sunday) and Time is "15:04:05" in the location of the query instant.
type ScheduleSlot struct {
	ID         int64  `db:"id" json:"id"`
	ScheduleID int64  `db:"schedule_id" json:"schedule_id"`
	DayOfWeek  int    `db:"day_of_week" json:"day_of_week"`
	Time       string `db:"time" json:"time"`
	IsActive   bool   `db:"is_active" json:"is_active"`
}

const SlotTimeLayout = "15:04:05"
