package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/maheshrc27/postflow-publisher/internal/models"
	"github.com/maheshrc27/postflow-publisher/internal/repository"
	"github.com/maheshrc27/postflow-publisher/internal/scheduling"
)

var (
	ErrNoSchedule      = errors.New("no active posting schedule")
	ErrInvalidDay      = errors.New("day_of_week must be between 0 and 6")
	ErrInvalidSlotTime = errors.New("time must be HH:MM or HH:MM:SS")
)

type ScheduleService interface {
	GetDefault(ctx context.Context) (*models.PostingSchedule, error)
	AddSlot(ctx context.Context, dayOfWeek int, at string) (*models.ScheduleSlot, error)
	ToggleSlot(ctx context.Context, id int64) (*models.ScheduleSlot, error)
	RemoveSlot(ctx context.Context, id int64) error
	NextSlot(ctx context.Context, now time.Time) (*models.ScheduleSlot, *time.Time, error)
}

type scheduleService struct {
	sr repository.ScheduleRepository
}

func NewScheduleService(sr repository.ScheduleRepository) ScheduleService {
	return &scheduleService{
		sr: sr,
	}
}

func (s *scheduleService) GetDefault(ctx context.Context) (*models.PostingSchedule, error) {
	schedule, err := s.sr.GetDefault(ctx)
	if err != nil {
		return nil, err
	}
	if schedule == nil {
		slog.Info(ErrNoSchedule.Error())
		return nil, ErrNoSchedule
	}
	return schedule, nil
}

func (s *scheduleService) AddSlot(ctx context.Context, dayOfWeek int, at string) (*models.ScheduleSlot, error) {
	if dayOfWeek < 0 || dayOfWeek > 6 {
		return nil, ErrInvalidDay
	}
	if !scheduling.ValidSlotTime(at) {
		return nil, ErrInvalidSlotTime
	}
	at = normalizeSlotTime(at)

	schedule, err := s.GetDefault(ctx)
	if err != nil {
		return nil, err
	}

	slot := &models.ScheduleSlot{
		ScheduleID: schedule.ID,
		DayOfWeek:  dayOfWeek,
		Time:       at,
		IsActive:   true,
	}
	id, err := s.sr.CreateSlot(ctx, slot)
	if err != nil {
		return nil, err
	}
	slot.ID = id
	return slot, nil
}

func (s *scheduleService) ToggleSlot(ctx context.Context, id int64) (*models.ScheduleSlot, error) {
	slot, err := s.sr.GetSlot(ctx, id)
	if err != nil {
		return nil, err
	}
	if slot == nil {
		return nil, ErrSlotNotFound
	}

	slot.IsActive = !slot.IsActive
	if err := s.sr.SetSlotActive(ctx, id, slot.IsActive); err != nil {
		return nil, err
	}
	return slot, nil
}

func (s *scheduleService) RemoveSlot(ctx context.Context, id int64) error {
	slot, err := s.sr.GetSlot(ctx, id)
	if err != nil {
		return err
	}
	if slot == nil {
		return ErrSlotNotFound
	}
	return s.sr.RemoveSlot(ctx, id)
}

func (s *scheduleService) NextSlot(ctx context.Context, now time.Time) (*models.ScheduleSlot, *time.Time, error) {
	schedule, err := s.GetDefault(ctx)
	if err != nil {
		return nil, nil, err
	}
	slot, at := scheduling.NextFromSlots(schedule.Slots, now)
	return slot, at, nil
}

func normalizeSlotTime(at string) string {
	for _, layout := range []string{models.SlotTimeLayout, "15:04"} {
		if t, err := time.Parse(layout, at); err == nil {
			return t.Format(models.SlotTimeLayout)
		}
	}
	return at
}
