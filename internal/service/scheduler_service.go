package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vhvplatform/go-outreach-service/internal/domain"
	"github.com/vhvplatform/go-outreach-service/internal/metrics"
	"github.com/vhvplatform/go-outreach-service/internal/shared/errors"
	"github.com/vhvplatform/go-outreach-service/internal/shared/logger"
	"github.com/vhvplatform/go-outreach-service/internal/slots"
)

// RunSummary reports what one scheduling pass produced for a campaign
type RunSummary struct {
	RunID        string `json:"run_id"`
	Scheduled    int    `json:"scheduled"`
	Skipped      int    `json:"skipped"`
	DoubleBooked int    `json:"double_booked"`
}

// SchedulerService plans campaign sends: it binds each unbound prospect to a
// sending identity and a conflict-free slot, and persists the result as
// pending work items
type SchedulerService struct {
	campaigns  CampaignStore
	prospects  ProspectStore
	workItems  WorkItemStore
	identities IdentityStore
	balancer   *LoadBalancer
	resolver   *BookingResolver
	audit      *AuditService
	log        *logger.Logger
	retries    domain.RetrySchedule
	now        func() time.Time
}

// NewSchedulerService creates a new scheduler service
func NewSchedulerService(
	campaigns CampaignStore,
	prospects ProspectStore,
	workItems WorkItemStore,
	identities IdentityStore,
	balancer *LoadBalancer,
	resolver *BookingResolver,
	audit *AuditService,
	log *logger.Logger,
) *SchedulerService {
	return &SchedulerService{
		campaigns:  campaigns,
		prospects:  prospects,
		workItems:  workItems,
		identities: identities,
		balancer:   balancer,
		resolver:   resolver,
		audit:      audit,
		log:        log,
		retries:    domain.DefaultRetrySchedule(),
		now:        time.Now,
	}
}

// CreateCampaign persists a campaign in draft with its prospect list
func (s *SchedulerService) CreateCampaign(ctx context.Context, req *domain.CreateCampaignRequest) (*domain.Campaign, error) {
	if req.Config != nil {
		if items := slots.Validate(*req.Config, len(req.Prospects), s.now()); len(items) > 0 {
			fields := make([]errors.FieldError, len(items))
			for i, item := range items {
				fields[i] = errors.FieldError{Field: item.Field, Message: item.Message}
			}
			return nil, &errors.ConfigurationError{Fields: fields}
		}
	}

	campaign := &domain.Campaign{
		AccountID:   req.AccountID,
		Name:        req.Name,
		Status:      domain.CampaignStatusDraft,
		IdentityIDs: req.IdentityIDs,
		Config:      req.Config,
	}
	if err := s.campaigns.Create(ctx, campaign); err != nil {
		return nil, err
	}
	if len(req.Prospects) > 0 {
		if err := s.prospects.ReplaceForCampaign(ctx, campaign.ID.Hex(), req.Prospects); err != nil {
			return nil, err
		}
	}
	s.audit.Record(ctx, "campaign.created", domain.AuditSeverityInfo, campaign.ID.Hex(), "",
		map[string]any{"name": req.Name, "identities": len(req.IdentityIDs), "prospects": len(req.Prospects)})
	return campaign, nil
}

// RunCampaign executes one scheduling pass: every prospect without a live
// work item gets an identity and a slot. Re-running is idempotent; prospects
// already bound are skipped, so a pass can be retried safely after a partial
// failure.
func (s *SchedulerService) RunCampaign(ctx context.Context, campaignID string) (*RunSummary, error) {
	campaign, err := s.campaigns.FindByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if campaign.Status == domain.CampaignStatusDraft {
		if err := s.campaigns.UpdateStatus(ctx, campaignID, domain.CampaignStatusActive); err != nil {
			return nil, err
		}
		campaign.Status = domain.CampaignStatusActive
	}
	if campaign.Status != domain.CampaignStatusActive {
		return nil, errors.NewValidationError(fmt.Sprintf("campaign is %s, not runnable", campaign.Status), nil)
	}

	pending, err := s.unboundProspects(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	summary := &RunSummary{RunID: uuid.NewString()}
	if len(pending) == 0 {
		return summary, nil
	}

	pool, err := s.identities.FindByIDs(ctx, campaign.IdentityIDs)
	if err != nil {
		return nil, err
	}
	active := make([]*domain.SendingIdentity, 0, len(pool))
	for _, identity := range pool {
		if identity.IsActive {
			active = append(active, identity)
		}
	}
	if len(active) == 0 {
		return nil, &errors.NoAvailableIdentityError{CampaignID: campaignID}
	}

	cfg := campaign.EffectiveConfig()
	plan, err := s.planSlots(cfg, len(pending))
	if err != nil {
		return nil, err
	}

	idx, err := s.bookingIndex(ctx, campaign.IdentityIDs, cfg)
	if err != nil {
		return nil, err
	}

	inflight := make(map[string]int, len(active))
	for i, prospect := range pending {
		sel, err := s.balancer.PickBest(ctx, active, inflight)
		if err != nil {
			return nil, err
		}
		if sel == nil {
			return nil, &errors.NoAvailableIdentityError{CampaignID: campaignID}
		}

		requested := plan[i]
		if !sel.AvailableNow && sel.AvailableAt.After(requested) {
			requested = sel.AvailableAt
		}

		budget := domain.DefaultProbeBudget()
		if cfg.Mode == domain.ModeSpread {
			budget = domain.GlobalProbeBudget()
		}
		identityID := sel.Identity.ID.Hex()
		res, err := s.resolver.Resolve(idx, identityID, requested, prospectConfig(cfg, prospect), budget)
		if err != nil {
			summary.Skipped++
			s.audit.Record(ctx, "prospect.unschedulable", domain.AuditSeverityWarning, campaignID, identityID,
				map[string]any{"prospect_email": prospect.Email, "error": err.Error()})
			continue
		}

		item := &domain.ScheduledWorkItem{
			CampaignID:    campaignID,
			ProspectEmail: prospect.Email,
			Prospect:      prospect,
			IdentityID:    identityID,
			ScheduledAt:   res.At,
			DoubleBooked:  res.DoubleBooked,
			RunID:         summary.RunID,
		}
		if err := s.workItems.Create(ctx, item); err != nil {
			// Unique index means another pass bound this prospect first;
			// treat it as already scheduled.
			summary.Skipped++
			s.log.Debug("Prospect already bound", "campaign_id", campaignID, "prospect_email", prospect.Email, "error", err)
			continue
		}

		inflight[identityID]++
		summary.Scheduled++
		if res.DoubleBooked {
			summary.DoubleBooked++
		}
		metrics.WorkItemsScheduled.WithLabelValues(campaignID, string(cfg.Mode)).Inc()
	}

	s.audit.Record(ctx, "campaign.run", domain.AuditSeverityInfo, campaignID, "",
		map[string]any{"run_id": summary.RunID, "scheduled": summary.Scheduled, "skipped": summary.Skipped})
	s.log.Info("Campaign run complete", "campaign_id", campaignID,
		"run_id", summary.RunID, "scheduled", summary.Scheduled, "skipped", summary.Skipped)
	return summary, nil
}

// RunSweep plans every active campaign once. A failing campaign is logged
// and skipped; it never blocks the others.
func (s *SchedulerService) RunSweep(ctx context.Context) {
	start := s.now()
	campaigns, err := s.campaigns.FindActive(ctx)
	if err != nil {
		s.log.Error("Sweep could not list active campaigns", "error", err)
		return
	}
	for _, campaign := range campaigns {
		if _, err := s.RunCampaign(ctx, campaign.ID.Hex()); err != nil {
			s.log.Error("Sweep failed for campaign", "campaign_id", campaign.ID.Hex(), "error", err)
		}
	}
	metrics.SweepDuration.Observe(time.Since(start).Seconds())
}

// PauseCampaign halts a campaign and voids its pending work items. Items
// already processing finish; pausing an already paused campaign is a no-op.
func (s *SchedulerService) PauseCampaign(ctx context.Context, campaignID string) (int64, error) {
	campaign, err := s.campaigns.FindByID(ctx, campaignID)
	if err != nil {
		return 0, err
	}
	if campaign.Status == domain.CampaignStatusPaused {
		return 0, nil
	}
	if err := s.campaigns.UpdateStatus(ctx, campaignID, domain.CampaignStatusPaused); err != nil {
		return 0, err
	}
	cancelled, err := s.workItems.CancelPending(ctx, campaignID)
	if err != nil {
		return 0, err
	}
	metrics.WorkItemsCancelled.WithLabelValues(campaignID).Add(float64(cancelled))
	s.audit.Record(ctx, "campaign.paused", domain.AuditSeverityInfo, campaignID, "",
		map[string]any{"cancelled": cancelled})
	return cancelled, nil
}

// ResumeCampaign reactivates a paused campaign. Cancelled items stay
// cancelled; the next run re-binds those prospects.
func (s *SchedulerService) ResumeCampaign(ctx context.Context, campaignID string) error {
	campaign, err := s.campaigns.FindByID(ctx, campaignID)
	if err != nil {
		return err
	}
	if campaign.Status != domain.CampaignStatusPaused {
		return errors.NewValidationError(fmt.Sprintf("campaign is %s, not paused", campaign.Status), nil)
	}
	if err := s.campaigns.UpdateStatus(ctx, campaignID, domain.CampaignStatusActive); err != nil {
		return err
	}
	s.audit.Record(ctx, "campaign.resumed", domain.AuditSeverityInfo, campaignID, "", nil)
	return nil
}

// DeleteCampaign soft-deletes a campaign and voids its pending work items
func (s *SchedulerService) DeleteCampaign(ctx context.Context, campaignID string) error {
	cancelled, err := s.workItems.CancelPending(ctx, campaignID)
	if err != nil {
		return err
	}
	if err := s.campaigns.UpdateStatus(ctx, campaignID, domain.CampaignStatusDeleted); err != nil {
		return err
	}
	metrics.WorkItemsCancelled.WithLabelValues(campaignID).Add(float64(cancelled))
	s.audit.Record(ctx, "campaign.deleted", domain.AuditSeverityInfo, campaignID, "",
		map[string]any{"cancelled": cancelled})
	return nil
}

// prospectConfig applies per-prospect timezone detection: when enabled and
// the prospect carries a parseable timezone, window rollover happens in the
// prospect's local time
func prospectConfig(cfg domain.SchedulingConfig, prospect domain.Prospect) domain.SchedulingConfig {
	if !cfg.DetectTimezone || prospect.Timezone == "" {
		return cfg
	}
	if _, err := time.LoadLocation(prospect.Timezone); err != nil {
		return cfg
	}
	cfg.Timezone = prospect.Timezone
	return cfg
}

// unboundProspects returns the campaign prospects without a live work item,
// in stable list order
func (s *SchedulerService) unboundProspects(ctx context.Context, campaignID string) ([]domain.Prospect, error) {
	all, err := s.prospects.ListByCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	bound, err := s.workItems.BoundEmails(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	pending := make([]domain.Prospect, 0, len(all))
	for _, p := range all {
		if !bound[p.Email] {
			pending = append(pending, p)
		}
	}
	return pending, nil
}

// planSlots produces one requested send instant per prospect. Immediate mode
// uses the retry cadence from now; spread mode draws distinct random slots
// from the configured calendar.
func (s *SchedulerService) planSlots(cfg domain.SchedulingConfig, count int) ([]time.Time, error) {
	now := s.now()
	if cfg.Mode == domain.ModeImmediate {
		plan := make([]time.Time, count)
		for i := range plan {
			plan[i] = now.Add(s.retries.At(i)).UTC()
		}
		return plan, nil
	}

	candidates, err := slots.Enumerate(cfg, now)
	if err != nil {
		return nil, err
	}
	drawn, err := slots.DrawUnique(candidates, count)
	if err != nil {
		return nil, err
	}
	plan := make([]time.Time, count)
	for i, slot := range drawn {
		plan[i] = slot.At
	}
	return plan, nil
}

// bookingIndex rebuilds the in-memory booking view for one pass from the
// live work items of the campaign's identity pool
func (s *SchedulerService) bookingIndex(ctx context.Context, identityIDs []string, cfg domain.SchedulingConfig) (*BookingIndex, error) {
	now := s.now()
	loc := time.UTC
	if cfg.Timezone != "" {
		if l, err := time.LoadLocation(cfg.Timezone); err == nil {
			loc = l
		}
	}
	scope := identityIDs
	if !cfg.AllowDoubleBooking {
		// Strict mode rejects instants held by any identity, so the pass
		// must see bookings outside the campaign's pool too.
		scope = nil
	}
	_, end := slots.ResolveRange(cfg, now, loc)
	bookings, err := s.workItems.Bookings(ctx, scope, now.AddDate(0, 0, -1), end.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	return NewBookingIndex(bookings), nil
}
