package scheduling

import (
	"time"

	"github.com/maheshrc27/postflow-publisher/internal/models"
)

const daysInWeek = 7

// NextSlot returns the earliest active slot strictly after the given instant,
// looking at the rest of today first and then at the following seven days.
// It returns nil when there are no usable slots.
func NextSlot(slots []*models.ScheduleSlot, after time.Time) *models.ScheduleSlot {
	today := int(after.Weekday())
	nowSec := secondsOfDay(after)

	var best *models.ScheduleSlot
	bestSec := 0
	for _, s := range slots {
		sec, ok := slotSeconds(s)
		if !ok || s.DayOfWeek != today || sec <= nowSec {
			continue
		}
		if best == nil || sec < bestSec {
			best, bestSec = s, sec
		}
	}
	if best != nil {
		return best
	}

	for offset := 1; offset <= daysInWeek; offset++ {
		day := (today + offset) % daysInWeek
		for _, s := range slots {
			sec, ok := slotSeconds(s)
			if !ok || s.DayOfWeek != day {
				continue
			}
			if best == nil || sec < bestSec {
				best, bestSec = s, sec
			}
		}
		if best != nil {
			return best
		}
	}
	return nil
}

// NextPublishInstant is the next occurrence of the slot strictly after the given instant,
// in the instant's location. A slot on the same weekday whose time has passed
// (or is now) rolls over a full week.
func NextPublishInstant(slot *models.ScheduleSlot, after time.Time) time.Time {
	sec, _ := parseSlotTime(slot.Time)

	offset := (slot.DayOfWeek - int(after.Weekday()) + daysInWeek) % daysInWeek
	if offset == 0 && secondsOfDay(after) >= sec {
		offset = daysInWeek
	}

	y, m, d := after.Date()
	return time.Date(y, m, d+offset, sec/3600, (sec%3600)/60, sec%60, 0, after.Location())
}

// NextFromSlots combines NextSlot and NextPublishInstant.
func NextFromSlots(slots []*models.ScheduleSlot, after time.Time) (*models.ScheduleSlot, *time.Time) {
	slot := NextSlot(slots, after)
	if slot == nil {
		return nil, nil
	}
	at := NextPublishInstant(slot, after)
	return slot, &at
}

func ValidSlotTime(value string) bool {
	_, ok := parseSlotTime(value)
	return ok
}

func slotSeconds(s *models.ScheduleSlot) (int, bool) {
	if s == nil || !s.IsActive || s.DayOfWeek < 0 || s.DayOfWeek >= daysInWeek {
		return 0, false
	}
	return parseSlotTime(s.Time)
}

func parseSlotTime(value string) (int, bool) {
	t, err := time.Parse(models.SlotTimeLayout, value)
	if err != nil {
		// "15:04" is accepted for slots created without seconds
		t, err = time.Parse("15:04", value)
		if err != nil {
			return 0, false
		}
	}
	return t.Hour()*3600 + t.Minute()*60 + t.Second(), true
}

func secondsOfDay(t time.Time) int {
	return t.Hour()*3600 + t.Minute()*60 + t.Second()
}
