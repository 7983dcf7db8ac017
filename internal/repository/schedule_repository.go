package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/maheshrc27/postflow-publisher/internal/models"
)

type ScheduleRepository interface {
	GetDefault(ctx context.Context) (*models.PostingSchedule, error)
	ListSlots(ctx context.Context, scheduleID int64) ([]*models.ScheduleSlot, error)
	GetSlot(ctx context.Context, id int64) (*models.ScheduleSlot, error)
	CreateSlot(ctx context.Context, slot *models.ScheduleSlot) (int64, error)
	SetSlotActive(ctx context.Context, id int64, active bool) error
	RemoveSlot(ctx context.Context, id int64) error
}

type scheduleRepository struct {
	db *sql.DB
}

func NewScheduleRepository(db *sql.DB) ScheduleRepository {
	return &scheduleRepository{db: db}
}

// time columns are read as text so they scan into the "15:04:05" slot representation
const slotColumns = `id, schedule_id, day_of_week, to_char(time, 'HH24:MI:SS'), is_active`

// GetDefault returns the oldest active schedule with its slots, or nil when none exists.
func (r *scheduleRepository) GetDefault(ctx context.Context) (*models.PostingSchedule, error) {
	query := `
		SELECT id, name, is_active, created_at, updated_at
		FROM posting_schedules
		WHERE is_active = TRUE
		ORDER BY id
		LIMIT 1
	`

	var s models.PostingSchedule
	err := r.db.QueryRowContext(ctx, query).Scan(&s.ID, &s.Name, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	s.Slots, err = r.ListSlots(ctx, s.ID)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *scheduleRepository) ListSlots(ctx context.Context, scheduleID int64) ([]*models.ScheduleSlot, error) {
	query := `SELECT ` + slotColumns + ` FROM posting_schedule_times WHERE schedule_id = $1 ORDER BY day_of_week, time`

	rows, err := r.db.QueryContext(ctx, query, scheduleID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var slots []*models.ScheduleSlot
	for rows.Next() {
		var s models.ScheduleSlot
		if err := rows.Scan(&s.ID, &s.ScheduleID, &s.DayOfWeek, &s.Time, &s.IsActive); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		slots = append(slots, &s)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return slots, nil
}

func (r *scheduleRepository) GetSlot(ctx context.Context, id int64) (*models.ScheduleSlot, error) {
	query := `SELECT ` + slotColumns + ` FROM posting_schedule_times WHERE id = $1`

	var s models.ScheduleSlot
	err := r.db.QueryRowContext(ctx, query, id).Scan(&s.ID, &s.ScheduleID, &s.DayOfWeek, &s.Time, &s.IsActive)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return &s, nil
}

func (r *scheduleRepository) CreateSlot(ctx context.Context, slot *models.ScheduleSlot) (int64, error) {
	query := `
		INSERT INTO posting_schedule_times (schedule_id, day_of_week, time, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query, slot.ScheduleID, slot.DayOfWeek, slot.Time, slot.IsActive).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return id, nil
}

func (r *scheduleRepository) SetSlotActive(ctx context.Context, id int64, active bool) error {
	query := `UPDATE posting_schedule_times SET is_active = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, active, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *scheduleRepository) RemoveSlot(ctx context.Context, id int64) error {
	query := `DELETE FROM posting_schedule_times WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
