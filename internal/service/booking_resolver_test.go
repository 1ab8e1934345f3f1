package service

import (
	"testing"
	"time"

	"github.com/vhvplatform/go-outreach-service/internal/domain"
	"github.com/vhvplatform/go-outreach-service/internal/shared/errors"
	"github.com/vhvplatform/go-outreach-service/internal/shared/logger"
)

func resolverConfig() domain.SchedulingConfig {
	cfg := domain.DefaultSchedulingConfig()
	cfg.Timezone = "UTC"
	return cfg
}

// TestResolveFreeSlot checks that an unoccupied requested time passes
// through unchanged
func TestResolveFreeSlot(t *testing.T) {
	resolver := NewBookingResolver(logger.NewNop())
	idx := NewBookingIndex(nil)

	requested := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	res, err := resolver.Resolve(idx, "id-1", requested, resolverConfig(), domain.DefaultProbeBudget())
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !res.At.Equal(requested) {
		t.Errorf("Resolve() = %v, want requested time %v", res.At, requested)
	}
	if res.DoubleBooked {
		t.Error("free slot must not be a double-booking")
	}
	if idx.CountAt("id-1", requested) != 1 {
		t.Error("winning booking not recorded in the index")
	}
}

// TestResolveProbesForward checks the fixed-step forward search past a
// conflict
func TestResolveProbesForward(t *testing.T) {
	resolver := NewBookingResolver(logger.NewNop())
	requested := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	idx := NewBookingIndex([]domain.Booking{
		{IdentityID: "id-1", At: requested, CreatedAt: requested.Add(-time.Hour)},
	})

	res, err := resolver.Resolve(idx, "id-1", requested, resolverConfig(), domain.DefaultProbeBudget())
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	want := requested.Add(15 * time.Minute)
	if !res.At.Equal(want) {
		t.Errorf("Resolve() = %v, want next probe step %v", res.At, want)
	}
}

// TestResolveConflictsAreScoped checks that another identity's booking at
// the same instant is not a conflict
func TestResolveConflictsAreScoped(t *testing.T) {
	resolver := NewBookingResolver(logger.NewNop())
	requested := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	idx := NewBookingIndex([]domain.Booking{
		{IdentityID: "id-2", At: requested, CreatedAt: requested.Add(-time.Hour)},
	})

	res, err := resolver.Resolve(idx, "id-1", requested, resolverConfig(), domain.DefaultProbeBudget())
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !res.At.Equal(requested) {
		t.Errorf("Resolve() = %v, want %v despite other identity's booking", res.At, requested)
	}
}

// TestResolveStrictModeGlobalConflict checks that with double-booking
// disabled an instant held by any identity is a conflict, not just one held
// by the requesting identity
func TestResolveStrictModeGlobalConflict(t *testing.T) {
	resolver := NewBookingResolver(logger.NewNop())
	requested := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	idx := NewBookingIndex([]domain.Booking{
		{IdentityID: "id-2", At: requested, CreatedAt: requested.Add(-time.Hour)},
	})

	cfg := resolverConfig()
	cfg.AllowDoubleBooking = false

	res, err := resolver.Resolve(idx, "id-1", requested, cfg, domain.DefaultProbeBudget())
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	want := requested.Add(15 * time.Minute)
	if !res.At.Equal(want) {
		t.Errorf("Resolve() = %v, want %v past the globally held instant", res.At, want)
	}
	if idx.GlobalCount(requested) != 1 {
		t.Errorf("GlobalCount(requested) = %d, want the original booking only", idx.GlobalCount(requested))
	}
}

// TestResolveRollsToNextDay checks that probing past the daily window lands
// on the next qualifying day's window start
func TestResolveRollsToNextDay(t *testing.T) {
	resolver := NewBookingResolver(logger.NewNop())
	// Monday 16:55, conflict forces a step past the 17:00 window end
	requested := time.Date(2026, 3, 2, 16, 55, 0, 0, time.UTC)
	idx := NewBookingIndex([]domain.Booking{
		{IdentityID: "id-1", At: requested, CreatedAt: requested.Add(-time.Hour)},
	})

	res, err := resolver.Resolve(idx, "id-1", requested, resolverConfig(), domain.DefaultProbeBudget())
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	want := time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC)
	if !res.At.Equal(want) {
		t.Errorf("Resolve() = %v, want next day window start %v", res.At, want)
	}
}

// TestResolveFridayRollsToMonday checks weekend skipping during rollover
func TestResolveFridayRollsToMonday(t *testing.T) {
	resolver := NewBookingResolver(logger.NewNop())
	// Friday 16:55
	requested := time.Date(2026, 3, 6, 16, 55, 0, 0, time.UTC)
	idx := NewBookingIndex([]domain.Booking{
		{IdentityID: "id-1", At: requested, CreatedAt: requested.Add(-time.Hour)},
	})

	res, err := resolver.Resolve(idx, "id-1", requested, resolverConfig(), domain.DefaultProbeBudget())
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	want := time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)
	if !res.At.Equal(want) {
		t.Errorf("Resolve() = %v, want Monday window start %v", res.At, want)
	}
}

// TestResolveDoubleBooking checks the bounded overlap fallback once the
// probe budget is spent
func TestResolveDoubleBooking(t *testing.T) {
	resolver := NewBookingResolver(logger.NewNop())
	requested := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	idx := NewBookingIndex([]domain.Booking{
		{IdentityID: "id-1", At: requested, CreatedAt: requested.Add(-2 * time.Hour)},
		{IdentityID: "id-1", At: requested.Add(15 * time.Minute), CreatedAt: requested.Add(-time.Hour)},
	})

	cfg := resolverConfig()
	budget := domain.ProbeBudget{Step: 15 * time.Minute, MaxAttempts: 2}
	res, err := resolver.Resolve(idx, "id-1", requested, cfg, budget)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !res.DoubleBooked {
		t.Error("expected a double-booking under policy")
	}
	if !res.At.Equal(requested) {
		t.Errorf("Resolve() = %v, want overlap on requested slot %v", res.At, requested)
	}
	if idx.CountAt("id-1", requested) != 2 {
		t.Errorf("index occupancy = %d, want 2", idx.CountAt("id-1", requested))
	}
}

// TestResolveRespondedSlotsNotOverlapped checks that bookings with a
// response never absorb a double-booking
func TestResolveRespondedSlotsNotOverlapped(t *testing.T) {
	resolver := NewBookingResolver(logger.NewNop())
	requested := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	idx := NewBookingIndex([]domain.Booking{
		{IdentityID: "id-1", At: requested, CreatedAt: requested.Add(-2 * time.Hour), Responded: true},
		{IdentityID: "id-1", At: requested.Add(15 * time.Minute), CreatedAt: requested.Add(-time.Hour), Responded: true},
	})

	cfg := resolverConfig()
	budget := domain.ProbeBudget{Step: 15 * time.Minute, MaxAttempts: 2}
	_, err := resolver.Resolve(idx, "id-1", requested, cfg, budget)

	noSlot, ok := err.(*errors.NoAvailableSlotError)
	if !ok {
		t.Fatalf("Resolve() error = %v, want NoAvailableSlotError", err)
	}
	if !noSlot.NeedsManualScheduling {
		t.Error("exhausted resolution should flag manual scheduling")
	}
}

// TestResolveNoDoubleBookingWhenDisallowed checks the hard failure path
func TestResolveNoDoubleBookingWhenDisallowed(t *testing.T) {
	resolver := NewBookingResolver(logger.NewNop())
	requested := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	idx := NewBookingIndex([]domain.Booking{
		{IdentityID: "id-1", At: requested, CreatedAt: requested.Add(-2 * time.Hour)},
		{IdentityID: "id-1", At: requested.Add(15 * time.Minute), CreatedAt: requested.Add(-time.Hour)},
	})

	cfg := resolverConfig()
	cfg.AllowDoubleBooking = false
	budget := domain.ProbeBudget{Step: 15 * time.Minute, MaxAttempts: 2}
	if _, err := resolver.Resolve(idx, "id-1", requested, cfg, budget); err == nil {
		t.Fatal("Resolve() should fail when double-booking is disallowed")
	}
}
