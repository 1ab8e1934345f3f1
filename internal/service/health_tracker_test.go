package service

import (
	"context"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vhvplatform/go-outreach-service/internal/domain"
)

func testIdentity(daily, weekly int) *domain.SendingIdentity {
	return &domain.SendingIdentity{
		ID:              primitive.NewObjectID(),
		AccountID:       "acct-1",
		Email:           "sender@example.com",
		IsActive:        true,
		DailyQuota:      daily,
		WeeklyQuota:     weekly,
		CooldownMinutes: 30,
	}
}

func seedInvites(store *fakeInviteStore, identityID string, at time.Time, success, failed int) {
	ctx := context.Background()
	for i := 0; i < success; i++ {
		store.Create(ctx, &domain.InviteRecord{IdentityID: identityID, Success: true, SentAt: at})
	}
	for i := 0; i < failed; i++ {
		store.Create(ctx, &domain.InviteRecord{IdentityID: identityID, Success: false, SentAt: at})
	}
}

// TestComputeUsageIdleIdentity checks the ceiling case: nothing sent, no
// errors, full score
func TestComputeUsageIdleIdentity(t *testing.T) {
	invites := &fakeInviteStore{}
	tracker := NewHealthTracker(invites, 3)
	tracker.now = func() time.Time { return time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC) }

	identity := testIdentity(30, 150)
	stats, err := tracker.ComputeUsage(context.Background(), identity)
	if err != nil {
		t.Fatalf("ComputeUsage() error = %v", err)
	}

	if stats.HealthScore != 100 {
		t.Errorf("HealthScore = %v, want 100", stats.HealthScore)
	}
	if !stats.IsAvailable {
		t.Error("idle identity should be available")
	}
	if stats.SuccessRate != 100 {
		t.Errorf("SuccessRate = %v, want 100 with no records", stats.SuccessRate)
	}
}

// TestScoreSuccessRateCeiling checks that a poor success rate caps the score
func TestScoreSuccessRateCeiling(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	invites := &fakeInviteStore{}
	tracker := NewHealthTracker(invites, 3)
	tracker.now = func() time.Time { return now }

	// Unlimited quotas isolate the success-rate term
	identity := testIdentity(0, 0)
	seedInvites(invites, identity.ID.Hex(), now.Add(-48*time.Hour), 2, 2)

	stats, err := tracker.ComputeUsage(context.Background(), identity)
	if err != nil {
		t.Fatalf("ComputeUsage() error = %v", err)
	}

	// 50% success rate caps the score at 50*0.4+60 = 80
	if stats.HealthScore != 80 {
		t.Errorf("HealthScore = %v, want 80", stats.HealthScore)
	}
}

// TestScoreDecreasesWithUsage checks usage pressure monotonicity
func TestScoreDecreasesWithUsage(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	prev := 101.0
	for _, sent := range []int{0, 5, 10, 20} {
		invites := &fakeInviteStore{}
		tracker := NewHealthTracker(invites, 3)
		tracker.now = func() time.Time { return now }

		identity := testIdentity(30, 150)
		seedInvites(invites, identity.ID.Hex(), now.Add(-time.Hour), sent, 0)

		stats, err := tracker.ComputeUsage(ctx, identity)
		if err != nil {
			t.Fatalf("ComputeUsage() error = %v", err)
		}
		if stats.HealthScore >= prev {
			t.Errorf("score %v at %d sent did not decrease from %v", stats.HealthScore, sent, prev)
		}
		prev = stats.HealthScore
	}
}

// TestScoreErrorPenalty checks the per-error deduction
func TestScoreErrorPenalty(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	invites := &fakeInviteStore{}
	tracker := NewHealthTracker(invites, 5)
	tracker.now = func() time.Time { return now }

	identity := testIdentity(0, 0)
	identity.ConsecutiveErrors = 2

	stats, err := tracker.ComputeUsage(context.Background(), identity)
	if err != nil {
		t.Fatalf("ComputeUsage() error = %v", err)
	}
	if stats.HealthScore != 80 {
		t.Errorf("HealthScore = %v, want 80 with 2 consecutive errors", stats.HealthScore)
	}
}

// TestScoreInactiveIsZero checks that paused identities always score zero
func TestScoreInactiveIsZero(t *testing.T) {
	invites := &fakeInviteStore{}
	tracker := NewHealthTracker(invites, 3)

	identity := testIdentity(30, 150)
	identity.IsActive = false

	stats, err := tracker.ComputeUsage(context.Background(), identity)
	if err != nil {
		t.Fatalf("ComputeUsage() error = %v", err)
	}
	if stats.HealthScore != 0 {
		t.Errorf("HealthScore = %v, want 0 for inactive identity", stats.HealthScore)
	}
	if stats.IsAvailable {
		t.Error("inactive identity must not be available")
	}
}

// TestCooldownBoundary checks that availability flips exactly at cooldown
// expiry: an identity last used precisely CooldownMinutes ago is available
func TestCooldownBoundary(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		lastUsed time.Time
		want     bool
	}{
		{"inside cooldown", now.Add(-29 * time.Minute), false},
		{"exactly at expiry", now.Add(-30 * time.Minute), true},
		{"past expiry", now.Add(-31 * time.Minute), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			invites := &fakeInviteStore{}
			tracker := NewHealthTracker(invites, 3)
			tracker.now = func() time.Time { return now }

			identity := testIdentity(30, 150)
			lastUsed := tt.lastUsed
			identity.LastUsedAt = &lastUsed

			stats, err := tracker.ComputeUsage(context.Background(), identity)
			if err != nil {
				t.Fatalf("ComputeUsage() error = %v", err)
			}
			if stats.IsAvailable != tt.want {
				t.Errorf("IsAvailable = %v, want %v", stats.IsAvailable, tt.want)
			}
		})
	}
}

// TestQuotaBoundary checks that availability flips exactly at the daily
// quota
func TestQuotaBoundary(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		sentToday int
		want      bool
	}{
		{"under quota", 4, true},
		{"at quota", 5, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			invites := &fakeInviteStore{}
			tracker := NewHealthTracker(invites, 3)
			tracker.now = func() time.Time { return now }

			identity := testIdentity(5, 100)
			identity.CooldownMinutes = 0
			seedInvites(invites, identity.ID.Hex(), now.Add(-time.Hour), tt.sentToday, 0)

			stats, err := tracker.ComputeUsage(context.Background(), identity)
			if err != nil {
				t.Fatalf("ComputeUsage() error = %v", err)
			}
			if stats.IsAvailable != tt.want {
				t.Errorf("IsAvailable = %v with %d sent, want %v", stats.IsAvailable, tt.sentToday, tt.want)
			}
		})
	}
}

// TestErrorThresholdBlocksAvailability checks that the consecutive error
// threshold gates availability even before the identity is paused
func TestErrorThresholdBlocksAvailability(t *testing.T) {
	invites := &fakeInviteStore{}
	tracker := NewHealthTracker(invites, 3)

	identity := testIdentity(30, 150)
	identity.ConsecutiveErrors = 3

	stats, err := tracker.ComputeUsage(context.Background(), identity)
	if err != nil {
		t.Fatalf("ComputeUsage() error = %v", err)
	}
	if stats.IsAvailable {
		t.Error("identity at error threshold must not be available")
	}
}
