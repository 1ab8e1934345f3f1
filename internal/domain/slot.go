package domain

import "time"

// UsageStats is the derived, recomputed-on-demand view of an identity's load.
// It is never the source of truth; the tracker rebuilds it from persisted
// invite records each time a selection decision is needed.
type UsageStats struct {
	IdentityID    string     `json:"identity_id"`
	SentToday     int        `json:"sent_today"`
	SentThisWeek  int        `json:"sent_this_week"`
	SuccessRate   float64    `json:"success_rate"` // percentage over a trailing 7-day window
	CooldownUntil *time.Time `json:"cooldown_until,omitempty"`
	HealthScore   float64    `json:"health_score"`
	IsAvailable   bool       `json:"is_available"`
}

// CandidateSlot is a computed, not yet persisted send time. Pure value,
// regenerated on every planning pass.
type CandidateSlot struct {
	At      time.Time    // absolute instant (UTC)
	Local   time.Time    // wall-clock rendering in the target timezone
	Weekday time.Weekday // weekday of the local rendering
}
