package scheduling

import (
	"errors"
	"time"

	"github.com/maheshrc27/postflow-publisher/internal/models"
)

const (
	DefaultIntervalType  = models.IntervalDays
	DefaultIntervalValue = 7

	MinIntervalValue = 1
	MaxIntervalValue = 365
	MinMaxRecycles   = 1
	MaxMaxRecycles   = 100
)

var (
	ErrIntervalType  = errors.New("interval type must be one of hours, days, weeks, months")
	ErrIntervalValue = errors.New("interval value must be between 1 and 365")
	ErrMaxRecycles   = errors.New("max recycles must be between 1 and 100")
)

// NextRecycleAt adds one interval to base. Days, weeks and months are calendar
// arithmetic; month overflow normalizes the way time.AddDate does.
func NextRecycleAt(intervalType string, value int, base time.Time) time.Time {
	switch intervalType {
	case models.IntervalHours:
		return base.Add(time.Duration(value) * time.Hour)
	case models.IntervalDays:
		return base.AddDate(0, 0, value)
	case models.IntervalWeeks:
		return base.AddDate(0, 0, 7*value)
	case models.IntervalMonths:
		return base.AddDate(0, value, 0)
	default:
		return base.AddDate(0, 0, DefaultIntervalValue)
	}
}

// BaseInstant is the instant the next interval is measured from.
func BaseInstant(rule *models.RecyclingPost, now time.Time) time.Time {
	if rule.LastRecycledAt != nil {
		return *rule.LastRecycledAt
	}
	return now
}

func ComputeNext(rule *models.RecyclingPost, now time.Time) time.Time {
	return NextRecycleAt(rule.IntervalType, rule.IntervalValue, BaseInstant(rule, now))
}

func CanRecycle(rule *models.RecyclingPost) bool {
	if !rule.IsActive {
		return false
	}
	return rule.MaxRecycles == nil || rule.RecycleCount < *rule.MaxRecycles
}

// DueNow treats a rule without a computed next instant as due.
func DueNow(rule *models.RecyclingPost, now time.Time) bool {
	if !CanRecycle(rule) {
		return false
	}
	return rule.NextRecycleAt == nil || !rule.NextRecycleAt.After(now)
}

// MarkRecycled records one recycle on the rule and deactivates it once the
// ceiling is reached.
func MarkRecycled(rule *models.RecyclingPost, now time.Time) {
	rule.RecycleCount++
	last := now
	rule.LastRecycledAt = &last
	next := NextRecycleAt(rule.IntervalType, rule.IntervalValue, now)
	rule.NextRecycleAt = &next

	if rule.MaxRecycles != nil && rule.RecycleCount >= *rule.MaxRecycles {
		rule.IsActive = false
	}
}

func ValidateInterval(intervalType string, value int, maxRecycles *int) error {
	switch intervalType {
	case models.IntervalHours, models.IntervalDays, models.IntervalWeeks, models.IntervalMonths:
	default:
		return ErrIntervalType
	}
	if value < MinIntervalValue || value > MaxIntervalValue {
		return ErrIntervalValue
	}
	if maxRecycles != nil && (*maxRecycles < MinMaxRecycles || *maxRecycles > MaxMaxRecycles) {
		return ErrMaxRecycles
	}
	return nil
}
