package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/maheshrc27/postflow-publisher/internal/models"
)

func TestAddSlot(t *testing.T) {
	tests := []struct {
		name     string
		day      int
		at       string
		wantTime string
		wantErr  error
	}{
		{name: "short form", day: 1, at: "09:30", wantTime: "09:30:00"},
		{name: "with seconds", day: 0, at: "18:00:15", wantTime: "18:00:15"},
		{name: "day too large", day: 7, at: "09:00", wantErr: ErrInvalidDay},
		{name: "negative day", day: -1, at: "09:00", wantErr: ErrInvalidDay},
		{name: "bad time", day: 2, at: "25:00", wantErr: ErrInvalidSlotTime},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewScheduleService(&fakeSchedules{schedule: &models.PostingSchedule{ID: 3, IsActive: true}})

			slot, err := svc.AddSlot(context.Background(), tt.day, tt.at)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("AddSlot() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}
			if slot.Time != tt.wantTime || slot.ScheduleID != 3 || !slot.IsActive {
				t.Errorf("AddSlot() = %+v", slot)
			}
		})
	}
}

func TestScheduleWithoutDefault(t *testing.T) {
	svc := NewScheduleService(&fakeSchedules{})

	if _, err := svc.AddSlot(context.Background(), 1, "09:00"); !errors.Is(err, ErrNoSchedule) {
		t.Errorf("AddSlot() error = %v, want ErrNoSchedule", err)
	}
	if _, _, err := svc.NextSlot(context.Background(), time.Now()); !errors.Is(err, ErrNoSchedule) {
		t.Errorf("NextSlot() error = %v, want ErrNoSchedule", err)
	}
}

func TestToggleAndRemoveSlot(t *testing.T) {
	schedule := &models.PostingSchedule{ID: 1, IsActive: true, Slots: []*models.ScheduleSlot{
		{ID: 1, ScheduleID: 1, DayOfWeek: 1, Time: "09:00:00", IsActive: true},
	}}
	svc := NewScheduleService(&fakeSchedules{schedule: schedule})
	ctx := context.Background()

	slot, err := svc.ToggleSlot(ctx, 1)
	if err != nil {
		t.Fatalf("ToggleSlot() error = %v", err)
	}
	if slot.IsActive {
		t.Errorf("slot still active after toggle")
	}

	// Monday 08:00; the only slot is inactive now.
	now := time.Date(2024, time.June, 3, 8, 0, 0, 0, time.UTC)
	if got, at, err := svc.NextSlot(ctx, now); err != nil || got != nil || at != nil {
		t.Errorf("NextSlot() = %v, %v, %v, want nothing", got, at, err)
	}

	if _, err := svc.ToggleSlot(ctx, 99); !errors.Is(err, ErrSlotNotFound) {
		t.Errorf("ToggleSlot(99) error = %v, want ErrSlotNotFound", err)
	}
	if err := svc.RemoveSlot(ctx, 99); !errors.Is(err, ErrSlotNotFound) {
		t.Errorf("RemoveSlot(99) error = %v, want ErrSlotNotFound", err)
	}
	if err := svc.RemoveSlot(ctx, 1); err != nil {
		t.Errorf("RemoveSlot(1) error = %v", err)
	}
}
