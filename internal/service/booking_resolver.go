package service

import (
	"math/rand"
	"sort"
	"time"

	"github.com/vhvplatform/go-outreach-service/internal/domain"
	"github.com/vhvplatform/go-outreach-service/internal/metrics"
	"github.com/vhvplatform/go-outreach-service/internal/shared/errors"
	"github.com/vhvplatform/go-outreach-service/internal/shared/logger"
	"github.com/vhvplatform/go-outreach-service/internal/slots"
)

// BookingIndex is an in-memory view of the instants already promised to
// identities. It is rebuilt from persisted work items at the start of each
// planning pass and mutated as the pass assigns slots, so concurrent passes
// never share stale state.
type BookingIndex struct {
	byIdentity map[string]map[time.Time][]domain.Booking
	global     map[time.Time]int
}

// NewBookingIndex builds an index from the bookings of one planning pass
func NewBookingIndex(bookings []domain.Booking) *BookingIndex {
	idx := &BookingIndex{
		byIdentity: make(map[string]map[time.Time][]domain.Booking),
		global:     make(map[time.Time]int),
	}
	for _, b := range bookings {
		idx.Add(b)
	}
	return idx
}

// Add records a booking in the index
func (idx *BookingIndex) Add(b domain.Booking) {
	at := b.At.UTC()
	perSlot := idx.byIdentity[b.IdentityID]
	if perSlot == nil {
		perSlot = make(map[time.Time][]domain.Booking)
		idx.byIdentity[b.IdentityID] = perSlot
	}
	perSlot[at] = append(perSlot[at], b)
	idx.global[at]++
}

// CountAt returns how many bookings the identity holds at the instant
func (idx *BookingIndex) CountAt(identityID string, at time.Time) int {
	return len(idx.byIdentity[identityID][at.UTC()])
}

// GlobalCount returns how many bookings exist at the instant across all
// identities
func (idx *BookingIndex) GlobalCount(at time.Time) int {
	return idx.global[at.UTC()]
}

// CandidatesForOverlap returns the identity's bookings at the instant that
// have not drawn a response, least recently created first. Only these may
// absorb a deliberate double-booking.
func (idx *BookingIndex) CandidatesForOverlap(identityID string, at time.Time) []domain.Booking {
	existing := idx.byIdentity[identityID][at.UTC()]
	candidates := make([]domain.Booking, 0, len(existing))
	for _, b := range existing {
		if !b.Responded {
			candidates = append(candidates, b)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
	})
	return candidates
}

// overlapSampleSize bounds how many of an identity's oldest non-responded
// bookings a double-booking may land on
const overlapSampleSize = 3

// Resolution is the resolver's verdict for one requested slot
type Resolution struct {
	At           time.Time
	DoubleBooked bool
}

// BookingResolver turns a requested send time into a conflict-free (or
// deliberately overlapped) booking by probing forward on the slot grid
type BookingResolver struct {
	log *logger.Logger
}

// NewBookingResolver creates a new booking resolver
func NewBookingResolver(log *logger.Logger) *BookingResolver {
	return &BookingResolver{log: log}
}

// Resolve finds a bookable instant at or after the requested time for the
// identity. The requested instant is used unchanged when free; otherwise the
// resolver probes forward in fixed steps, rolling past the daily window to
// the next qualifying day when configured, and falls back to a bounded
// double-booking when the probe budget runs out and policy allows it. The
// winning booking is recorded in the index before returning.
func (r *BookingResolver) Resolve(idx *BookingIndex, identityID string, requested time.Time, cfg domain.SchedulingConfig, budget domain.ProbeBudget) (*Resolution, error) {
	loc := time.UTC
	if cfg.Timezone != "" {
		if l, err := time.LoadLocation(cfg.Timezone); err == nil {
			loc = l
		}
	}

	at := requested
	for attempt := 0; attempt < budget.MaxAttempts; attempt++ {
		if r.slotFree(idx, identityID, at, cfg) {
			idx.Add(domain.Booking{IdentityID: identityID, At: at, CreatedAt: time.Now().UTC()})
			return &Resolution{At: at}, nil
		}
		at = r.advance(at, cfg, budget, loc)
	}
	metrics.ProbeExhausted.Inc()

	if cfg.AllowDoubleBooking {
		if res := r.overlap(idx, identityID, requested, cfg, budget, loc); res != nil {
			return res, nil
		}
	}

	r.log.Warn("No bookable slot for identity", "identity_id", identityID, "requested", requested)
	return nil, &errors.NoAvailableSlotError{IdentityID: identityID, NeedsManualScheduling: true}
}

// slotFree reports whether the identity can take the instant outright. With
// double-booking disabled the instant must be free across every identity,
// not just the requesting one.
func (r *BookingResolver) slotFree(idx *BookingIndex, identityID string, at time.Time, cfg domain.SchedulingConfig) bool {
	if idx.CountAt(identityID, at) > 0 {
		return false
	}
	if !cfg.AllowDoubleBooking && idx.GlobalCount(at) > 0 {
		return false
	}
	return true
}

// advance steps to the next probe instant, rolling to the next qualifying
// day's window start when the step leaves the daily window
func (r *BookingResolver) advance(at time.Time, cfg domain.SchedulingConfig, budget domain.ProbeBudget, loc *time.Location) time.Time {
	next := at.Add(budget.Step)
	if !cfg.BusinessHoursOnly {
		return next
	}
	local := next.In(loc)
	minutes := local.Hour()*60 + local.Minute()
	if minutes >= cfg.Window.EndMinutes() || !cfg.WeekdaySet()[local.Weekday()] {
		return slots.NextQualifyingDay(local, cfg).UTC()
	}
	return next
}

// overlap retries the probe accepting slots whose occupancy is below the
// double-booking cap, sampling among bookings that have not drawn a response
func (r *BookingResolver) overlap(idx *BookingIndex, identityID string, requested time.Time, cfg domain.SchedulingConfig, budget domain.ProbeBudget, loc *time.Location) *Resolution {
	maxPerSlot := cfg.MaxDoubleBookings
	if maxPerSlot <= 0 {
		maxPerSlot = 2
	}

	at := requested
	for attempt := 0; attempt < budget.MaxAttempts; attempt++ {
		occupancy := idx.CountAt(identityID, at)
		if occupancy < maxPerSlot {
			candidates := idx.CandidatesForOverlap(identityID, at)
			if occupancy == 0 || len(candidates) > 0 {
				// Overlap only bookings that have not drawn a response,
				// picking from the oldest few so recent sends keep their
				// slot exclusive.
				if len(candidates) > overlapSampleSize {
					candidates = candidates[:overlapSampleSize]
				}
				idx.Add(domain.Booking{IdentityID: identityID, At: at, CreatedAt: time.Now().UTC()})
				if occupancy > 0 {
					overlapped := candidates[rand.Intn(len(candidates))]
					metrics.DoubleBookings.Inc()
					r.log.Warn("Double-booking slot under policy",
						"identity_id", identityID, "at", at,
						"occupancy", occupancy+1, "overlapped_created_at", overlapped.CreatedAt)
				}
				return &Resolution{At: at, DoubleBooked: occupancy > 0}
			}
		}
		at = r.advance(at, cfg, budget, loc)
	}
	return nil
}
