package service

import (
	"context"
	"sort"
	"time"

	"github.com/vhvplatform/go-outreach-service/internal/domain"
	"github.com/vhvplatform/go-outreach-service/internal/metrics"
	"github.com/vhvplatform/go-outreach-service/internal/shared/logger"
)

// Selection is the balancer's answer for the next unit of work. When no
// identity qualifies right now, AvailableNow is false and AvailableAt is the
// projected instant the returned identity frees up, so a retrying caller is
// never permanently blocked while any active identity exists.
type Selection struct {
	Identity     *domain.SendingIdentity
	Stats        *domain.UsageStats
	AvailableNow bool
	AvailableAt  time.Time
}

// LoadBalancer ranks and gates sending identities for assignment
type LoadBalancer struct {
	identities  IdentityStore
	tracker     *HealthTracker
	audit       *AuditService
	log         *logger.Logger
	healthFloor float64
	now         func() time.Time
}

// NewLoadBalancer creates a new load balancer
func NewLoadBalancer(identities IdentityStore, tracker *HealthTracker, audit *AuditService, log *logger.Logger, healthFloor float64) *LoadBalancer {
	if healthFloor <= 0 {
		healthFloor = 70
	}
	return &LoadBalancer{
		identities:  identities,
		tracker:     tracker,
		audit:       audit,
		log:         log,
		healthFloor: healthFloor,
		now:         time.Now,
	}
}

// PickBest selects the best identity from the pool for the next unit of
// work. The inflight map carries assignments made earlier in the same
// planning pass that are not yet persisted, so one pass rotates across the
// pool and respects quotas without waiting for send feedback. Returns nil
// when the pool holds no active identity.
func (b *LoadBalancer) PickBest(ctx context.Context, pool []*domain.SendingIdentity, inflight map[string]int) (*Selection, error) {
	if len(pool) == 0 {
		return nil, nil
	}

	type ranked struct {
		sel      *Selection
		poolPos  int
		adjUsage int
	}

	candidates := make([]ranked, 0, len(pool))
	var fallback *Selection

	now := b.now()
	for i, identity := range pool {
		if !identity.IsActive {
			// A paused identity has no projectable availability instant:
			// it only returns to the pool on explicit resume.
			continue
		}
		stats, err := b.tracker.ComputeUsage(ctx, identity)
		if err != nil {
			return nil, err
		}

		id := identity.ID.Hex()
		adjToday := stats.SentToday + inflight[id]
		adjWeek := stats.SentThisWeek + inflight[id]
		available := stats.IsAvailable &&
			underQuota(adjToday, identity.DailyQuota) &&
			underQuota(adjWeek, identity.WeeklyQuota)

		sel := &Selection{Identity: identity, Stats: stats, AvailableNow: available, AvailableAt: now}
		if available && stats.HealthScore >= b.healthFloor {
			candidates = append(candidates, ranked{sel: sel, poolPos: i, adjUsage: adjToday})
			continue
		}

		sel.AvailableNow = false
		sel.AvailableAt = b.earliestAvailableAt(identity, stats, adjToday, now)
		if fallback == nil || sel.AvailableAt.Before(fallback.AvailableAt) {
			fallback = sel
		}
	}

	if len(candidates) > 0 {
		sort.SliceStable(candidates, func(i, j int) bool {
			ci, cj := candidates[i], candidates[j]
			if ci.sel.Stats.HealthScore != cj.sel.Stats.HealthScore {
				return ci.sel.Stats.HealthScore > cj.sel.Stats.HealthScore
			}
			if ci.adjUsage != cj.adjUsage {
				return ci.adjUsage < cj.adjUsage
			}
			return lastUsed(ci.sel.Identity).Before(lastUsed(cj.sel.Identity))
		})
		return candidates[0].sel, nil
	}

	return fallback, nil
}

// RecordUsage feeds a send outcome back into the identity's counters.
// Success resets the consecutive error count and stamps last-used; failure
// increments the count and pauses the identity at the threshold.
func (b *LoadBalancer) RecordUsage(ctx context.Context, identityID string, success bool) error {
	if success {
		if err := b.identities.MarkUsed(ctx, identityID, b.now()); err != nil {
			return err
		}
		b.audit.Record(ctx, "identity.usage", domain.AuditSeverityInfo, "", identityID,
			map[string]any{"success": true})
		return nil
	}

	count, err := b.identities.IncrementErrors(ctx, identityID)
	if err != nil {
		return err
	}
	b.audit.Record(ctx, "identity.usage", domain.AuditSeverityWarning, "", identityID,
		map[string]any{"success": false, "consecutive_errors": count})

	if count >= b.tracker.PauseThreshold() {
		if err := b.identities.SetActive(ctx, identityID, false, "consecutive send errors"); err != nil {
			return err
		}
		metrics.IdentitiesPaused.Inc()
		b.audit.Record(ctx, "identity.paused", domain.AuditSeverityWarning, "", identityID,
			map[string]any{"consecutive_errors": count})
		b.log.Warn("Sending identity paused", "identity_id", identityID, "consecutive_errors", count)
	}
	return nil
}

// Resume reactivates a paused identity and resets its error counter
func (b *LoadBalancer) Resume(ctx context.Context, identityID string) error {
	if err := b.identities.SetActive(ctx, identityID, true, ""); err != nil {
		return err
	}
	b.audit.Record(ctx, "identity.resumed", domain.AuditSeverityInfo, "", identityID, nil)
	return nil
}

// earliestAvailableAt projects when an identity would next qualify:
// the latest of now, its cooldown expiry and the start of the next day if
// its daily quota is spent
func (b *LoadBalancer) earliestAvailableAt(identity *domain.SendingIdentity, stats *domain.UsageStats, adjToday int, now time.Time) time.Time {
	at := now
	if stats.CooldownUntil != nil && stats.CooldownUntil.After(at) {
		at = *stats.CooldownUntil
	}
	if identity.DailyQuota > 0 && adjToday >= identity.DailyQuota {
		nextDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
		if nextDay.After(at) {
			at = nextDay
		}
	}
	return at
}

func lastUsed(identity *domain.SendingIdentity) time.Time {
	if identity.LastUsedAt == nil {
		return time.Time{}
	}
	return *identity.LastUsedAt
}
