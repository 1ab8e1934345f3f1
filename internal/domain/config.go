package domain

import "time"

// SchedulingPreset names a documented default bundle for SchedulingConfig.
// Two presets exist because product uses both: classic business hours with a
// lead-time floor, and an afternoon window for near-immediate sends.
type SchedulingPreset string

const (
	PresetBusinessHours SchedulingPreset = "business_hours"
	PresetAfternoon     SchedulingPreset = "afternoon"
)

// SchedulingMode selects how slots are assigned during a campaign run
type SchedulingMode string

const (
	// ModeImmediate schedules on a fixed cadence starting shortly after the run
	ModeImmediate SchedulingMode = "immediate"
	// ModeSpread draws a randomized slot batch across the lead window
	ModeSpread SchedulingMode = "spread"
)

// TimeWindow is a daily wall-clock window [Start, End) in the target timezone
type TimeWindow struct {
	StartHour   int `json:"start_hour" bson:"start_hour"`
	StartMinute int `json:"start_minute" bson:"start_minute"`
	EndHour     int `json:"end_hour" bson:"end_hour"`
	EndMinute   int `json:"end_minute" bson:"end_minute"`
}

// StartMinutes returns the window start as minutes from midnight
func (w TimeWindow) StartMinutes() int { return w.StartHour*60 + w.StartMinute }

// EndMinutes returns the window end as minutes from midnight
func (w TimeWindow) EndMinutes() int { return w.EndHour*60 + w.EndMinute }

// SchedulingConfig governs a scheduling run. It is immutable once a run
// starts; campaigns may override the global default at setup time.
type SchedulingConfig struct {
	Preset             SchedulingPreset `json:"preset,omitempty" bson:"preset,omitempty"`
	Mode               SchedulingMode   `json:"mode" bson:"mode"`
	StartDate          time.Time        `json:"start_date,omitempty" bson:"start_date,omitempty"`
	EndDate            time.Time        `json:"end_date,omitempty" bson:"end_date,omitempty"`
	MinLeadDays        int              `json:"min_lead_days" bson:"min_lead_days"`
	MaxLeadDays        int              `json:"max_lead_days" bson:"max_lead_days"`
	Window             TimeWindow       `json:"window" bson:"window"`
	Weekdays           []time.Weekday   `json:"weekdays" bson:"weekdays"`
	ExcludeWeekends    bool             `json:"exclude_weekends" bson:"exclude_weekends"`
	BusinessHoursOnly  bool             `json:"business_hours_only" bson:"business_hours_only"`
	Timezone           string           `json:"timezone" bson:"timezone"`
	DetectTimezone     bool             `json:"detect_timezone" bson:"detect_timezone"`
	AllowDoubleBooking bool             `json:"allow_double_booking" bson:"allow_double_booking"`
	MaxDoubleBookings  int              `json:"max_double_bookings_per_slot" bson:"max_double_bookings_per_slot"`
	MaxRetries         int              `json:"max_retries" bson:"max_retries"`
}

// WeekdaySet returns the configured weekdays as a lookup set, applying the
// weekend-exclusion flag
func (c SchedulingConfig) WeekdaySet() map[time.Weekday]bool {
	set := make(map[time.Weekday]bool, len(c.Weekdays))
	for _, d := range c.Weekdays {
		if c.ExcludeWeekends && (d == time.Saturday || d == time.Sunday) {
			continue
		}
		set[d] = true
	}
	return set
}

// DefaultSchedulingConfig returns the global default: the business-hours
// preset with a two-business-day lead floor
func DefaultSchedulingConfig() SchedulingConfig {
	return PresetConfig(PresetBusinessHours)
}

// PresetConfig returns the named preset's configuration bundle
func PresetConfig(p SchedulingPreset) SchedulingConfig {
	cfg := SchedulingConfig{
		Preset:             p,
		Mode:               ModeImmediate,
		Weekdays:           []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
		ExcludeWeekends:    true,
		BusinessHoursOnly:  true,
		Timezone:           "UTC",
		AllowDoubleBooking: true,
		MaxDoubleBookings:  2,
		MaxRetries:         3,
	}

	switch p {
	case PresetAfternoon:
		cfg.Window = TimeWindow{StartHour: 12, EndHour: 16}
		cfg.MinLeadDays = 0
		cfg.MaxLeadDays = 14
	default:
		cfg.Window = TimeWindow{StartHour: 9, EndHour: 17}
		cfg.MinLeadDays = 2
		cfg.MaxLeadDays = 30
	}
	return cfg
}

// RetrySchedule is the named cadence policy for immediate-mode scheduling:
// the first item lands InitialDelay out, each subsequent item Step later
type RetrySchedule struct {
	InitialDelay time.Duration
	Step         time.Duration
}

// At returns the offset of the i-th item (0-based) from the run start
func (r RetrySchedule) At(i int) time.Duration {
	return r.InitialDelay + time.Duration(i)*r.Step
}

// DefaultRetrySchedule returns the immediate-mode cadence: 2 minutes out,
// then 30-minute steps, keeping the minimum cooldown between consecutive
// sends from the same identity
func DefaultRetrySchedule() RetrySchedule {
	return RetrySchedule{InitialDelay: 2 * time.Minute, Step: 30 * time.Minute}
}

// ProbeBudget bounds the forward search for a free slot
type ProbeBudget struct {
	Step        time.Duration
	MaxAttempts int
}

// DefaultProbeBudget is the bound for immediate scheduling
func DefaultProbeBudget() ProbeBudget {
	return ProbeBudget{Step: 15 * time.Minute, MaxAttempts: 20}
}

// GlobalProbeBudget is the wider bound used when probing against the global
// booking index
func GlobalProbeBudget() ProbeBudget {
	return ProbeBudget{Step: 15 * time.Minute, MaxAttempts: 50}
}
