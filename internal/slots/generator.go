package slots

import (
	"math/rand"
	"sort"
	"time"

	"github.com/vhvplatform/go-outreach-service/internal/domain"
	"github.com/vhvplatform/go-outreach-service/internal/shared/errors"
)

// slotInterval is the grid every candidate send time sits on
const slotInterval = 30 * time.Minute

// Enumerate returns every candidate slot the configuration admits: each
// calendar day inside the resolved date range whose weekday is selected,
// every 30-minute boundary inside the daily window. Wall-clock times are
// converted to absolute instants through the configured timezone, so the
// result is correct across DST transitions.
func Enumerate(cfg domain.SchedulingConfig, now time.Time) ([]domain.CandidateSlot, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, errors.NewValidationError("unknown timezone "+cfg.Timezone, err)
	}

	start, end := ResolveRange(cfg, now, loc)
	weekdays := cfg.WeekdaySet()

	var out []domain.CandidateSlot
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		if !weekdays[day.Weekday()] {
			continue
		}
		for m := cfg.Window.StartMinutes(); m < cfg.Window.EndMinutes(); m += int(slotInterval / time.Minute) {
			local := time.Date(day.Year(), day.Month(), day.Day(), m/60, m%60, 0, 0, loc)
			out = append(out, domain.CandidateSlot{
				At:      local.UTC(),
				Local:   local,
				Weekday: local.Weekday(),
			})
		}
	}
	return out, nil
}

// DrawUnique selects count distinct slots uniformly at random and returns
// them in chronological order. Randomization avoids predictable send
// patterns; the re-sort lets callers index slots by prospect order.
func DrawUnique(slots []domain.CandidateSlot, count int) ([]domain.CandidateSlot, error) {
	if count > len(slots) {
		return nil, &errors.InsufficientSlotsError{Need: count, Available: len(slots)}
	}

	drawn := make([]domain.CandidateSlot, len(slots))
	copy(drawn, slots)
	rand.Shuffle(len(drawn), func(i, j int) {
		drawn[i], drawn[j] = drawn[j], drawn[i]
	})
	drawn = drawn[:count]

	sort.Slice(drawn, func(i, j int) bool {
		return drawn[i].At.Before(drawn[j].At)
	})
	return drawn, nil
}

// ResolveRange returns the inclusive date range of a configuration in the
// target timezone: the explicit dates when set, otherwise a range derived
// from the business-day lead bounds.
func ResolveRange(cfg domain.SchedulingConfig, now time.Time, loc *time.Location) (time.Time, time.Time) {
	if !cfg.StartDate.IsZero() && !cfg.EndDate.IsZero() {
		return startOfDay(cfg.StartDate.In(loc)), startOfDay(cfg.EndDate.In(loc))
	}
	today := startOfDay(now.In(loc))
	return AddBusinessDays(today, cfg.MinLeadDays), AddBusinessDays(today, cfg.MaxLeadDays)
}

// AddBusinessDays advances t by n weekdays, skipping Saturday and Sunday
func AddBusinessDays(t time.Time, n int) time.Time {
	for i := 0; i < n; {
		t = t.AddDate(0, 0, 1)
		if t.Weekday() != time.Saturday && t.Weekday() != time.Sunday {
			i++
		}
	}
	return t
}

// NextQualifyingDay returns the start of the daily window on the next day
// whose weekday is selected, after the given local time
func NextQualifyingDay(local time.Time, cfg domain.SchedulingConfig) time.Time {
	weekdays := cfg.WeekdaySet()
	day := startOfDay(local).AddDate(0, 0, 1)
	for i := 0; i < 8; i++ {
		if weekdays[day.Weekday()] {
			break
		}
		day = day.AddDate(0, 0, 1)
	}
	return time.Date(day.Year(), day.Month(), day.Day(),
		cfg.Window.StartHour, cfg.Window.StartMinute, 0, 0, day.Location())
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
