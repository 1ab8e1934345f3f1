package slots

import (
	"fmt"
	"time"

	"github.com/vhvplatform/go-outreach-service/internal/domain"
)

// Validate checks a scheduling configuration and returns a structured error
// list rather than failing on the first problem. Pure function with no side
// effects; the campaign setup form calls it on every edit.
func Validate(cfg domain.SchedulingConfig, requested int, now time.Time) []domain.ValidationItem {
	var items []domain.ValidationItem

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		items = append(items, domain.ValidationItem{
			Field:   "timezone",
			Message: fmt.Sprintf("unknown timezone %q", cfg.Timezone),
		})
		loc = time.UTC
	}

	if !cfg.StartDate.IsZero() || !cfg.EndDate.IsZero() {
		start := startOfDay(cfg.StartDate.In(loc))
		end := startOfDay(cfg.EndDate.In(loc))
		today := startOfDay(now.In(loc))
		if end.Before(start) {
			items = append(items, domain.ValidationItem{
				Field:   "end_date",
				Message: "end date must not be before start date",
			})
		}
		if start.Before(today) {
			items = append(items, domain.ValidationItem{
				Field:   "start_date",
				Message: "start date must not be in the past",
			})
		}
	}

	if len(cfg.WeekdaySet()) == 0 {
		items = append(items, domain.ValidationItem{
			Field:   "weekdays",
			Message: "at least one weekday must be selected",
		})
	}

	items = append(items, validateWindow(cfg.Window)...)

	if requested > 0 && len(items) == 0 {
		available, err := Enumerate(cfg, now)
		if err == nil && len(available) < requested {
			items = append(items, domain.ValidationItem{
				Field:   "window",
				Message: fmt.Sprintf("need %d slots, %d available", requested, len(available)),
			})
		}
	}

	return items
}

// AvailableSlotCount returns how many candidate slots the configuration
// admits. Pure function used for live form feedback.
func AvailableSlotCount(cfg domain.SchedulingConfig, now time.Time) (int, error) {
	all, err := Enumerate(cfg, now)
	if err != nil {
		return 0, err
	}
	return len(all), nil
}

func validateWindow(w domain.TimeWindow) []domain.ValidationItem {
	var items []domain.ValidationItem

	if w.StartHour < 0 || w.StartHour > 23 || w.EndHour < 0 || w.EndHour > 23 {
		items = append(items, domain.ValidationItem{
			Field:   "window",
			Message: "hours must be between 0 and 23",
		})
	}
	if w.StartMinute < 0 || w.StartMinute > 59 || w.EndMinute < 0 || w.EndMinute > 59 {
		items = append(items, domain.ValidationItem{
			Field:   "window",
			Message: "minutes must be between 0 and 59",
		})
	}
	if len(items) == 0 && w.StartMinutes() >= w.EndMinutes() {
		items = append(items, domain.ValidationItem{
			Field:   "window",
			Message: "start time must be before end time",
		})
	}
	return items
}
