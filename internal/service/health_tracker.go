package service

import (
	"context"
	"time"

	"github.com/vhvplatform/go-outreach-service/internal/domain"
)

const (
	// successRateWindow is the trailing window used for the success-rate term
	successRateWindow = 7 * 24 * time.Hour

	// usagePenaltyWeight scales the average quota pressure into score points
	usagePenaltyWeight = 30.0

	// errorPenalty is subtracted per consecutive error
	errorPenalty = 10.0
)

// HealthTracker computes an identity's derived usage view on demand.
// Everything is recomputed from persisted invite records; the tracker holds
// no state of its own.
type HealthTracker struct {
	invites        InviteStore
	pauseThreshold int
	now            func() time.Time
}

// NewHealthTracker creates a new health tracker
func NewHealthTracker(invites InviteStore, pauseThreshold int) *HealthTracker {
	if pauseThreshold <= 0 {
		pauseThreshold = 3
	}
	return &HealthTracker{
		invites:        invites,
		pauseThreshold: pauseThreshold,
		now:            time.Now,
	}
}

// ComputeUsage recomputes an identity's usage stats, health score and
// availability from persisted truth
func (t *HealthTracker) ComputeUsage(ctx context.Context, identity *domain.SendingIdentity) (*domain.UsageStats, error) {
	now := t.now()
	id := identity.ID.Hex()

	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	weekStart := now.Add(-successRateWindow)

	sentToday, err := t.invites.CountSince(ctx, id, dayStart)
	if err != nil {
		return nil, err
	}
	sentWeek, err := t.invites.CountSince(ctx, id, weekStart)
	if err != nil {
		return nil, err
	}
	success, total, err := t.invites.SuccessTally(ctx, id, weekStart)
	if err != nil {
		return nil, err
	}

	successRate := 100.0
	if total > 0 {
		successRate = float64(success) / float64(total) * 100
	}

	stats := &domain.UsageStats{
		IdentityID:   id,
		SentToday:    sentToday,
		SentThisWeek: sentWeek,
		SuccessRate:  successRate,
	}

	if identity.LastUsedAt != nil && identity.CooldownMinutes > 0 {
		until := identity.LastUsedAt.Add(time.Duration(identity.CooldownMinutes) * time.Minute)
		if until.After(now) {
			stats.CooldownUntil = &until
		}
	}

	stats.HealthScore = t.score(identity, stats)
	stats.IsAvailable = identity.IsActive &&
		stats.CooldownUntil == nil &&
		underQuota(sentToday, identity.DailyQuota) &&
		underQuota(sentWeek, identity.WeeklyQuota) &&
		identity.ConsecutiveErrors < t.pauseThreshold

	return stats, nil
}

// PauseThreshold returns the consecutive-error count at which an identity
// is paused
func (t *HealthTracker) PauseThreshold() int {
	return t.pauseThreshold
}

// score applies the health formula: a success-rate ceiling, a usage
// pressure penalty and a per-error penalty, clamped to [0,100]. Inactive
// identities score 0 unconditionally.
func (t *HealthTracker) score(identity *domain.SendingIdentity, stats *domain.UsageStats) float64 {
	if !identity.IsActive {
		return 0
	}

	score := 100.0
	if ceiling := stats.SuccessRate*0.4 + 60; score > ceiling {
		score = ceiling
	}

	score -= usagePenaltyWeight * (quotaRatio(stats.SentToday, identity.DailyQuota) +
		quotaRatio(stats.SentThisWeek, identity.WeeklyQuota)) / 2

	score -= errorPenalty * float64(identity.ConsecutiveErrors)

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func quotaRatio(sent, quota int) float64 {
	if quota <= 0 {
		return 0
	}
	return float64(sent) / float64(quota)
}

func underQuota(sent, quota int) bool {
	return quota <= 0 || sent < quota
}
