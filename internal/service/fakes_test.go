package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vhvplatform/go-outreach-service/internal/domain"
)

// fakeIdentityStore is an in-memory IdentityStore for tests
type fakeIdentityStore struct {
	mu         sync.Mutex
	identities map[string]*domain.SendingIdentity
}

func newFakeIdentityStore(identities ...*domain.SendingIdentity) *fakeIdentityStore {
	f := &fakeIdentityStore{identities: make(map[string]*domain.SendingIdentity)}
	for _, identity := range identities {
		if identity.ID.IsZero() {
			identity.ID = primitive.NewObjectID()
		}
		f.identities[identity.ID.Hex()] = identity
	}
	return f
}

func (f *fakeIdentityStore) FindByIDs(ctx context.Context, ids []string) ([]*domain.SendingIdentity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*domain.SendingIdentity, 0, len(ids))
	for _, id := range ids {
		if identity, ok := f.identities[id]; ok {
			out = append(out, identity)
		}
	}
	return out, nil
}

func (f *fakeIdentityStore) FindByAccount(ctx context.Context, accountID string) ([]*domain.SendingIdentity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.SendingIdentity
	for _, identity := range f.identities {
		if identity.AccountID == accountID {
			out = append(out, identity)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Hex() < out[j].ID.Hex() })
	return out, nil
}

func (f *fakeIdentityStore) MarkUsed(ctx context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	identity, ok := f.identities[id]
	if !ok {
		return fmt.Errorf("identity %s not found", id)
	}
	identity.LastUsedAt = &at
	identity.ConsecutiveErrors = 0
	return nil
}

func (f *fakeIdentityStore) IncrementErrors(ctx context.Context, id string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	identity, ok := f.identities[id]
	if !ok {
		return 0, fmt.Errorf("identity %s not found", id)
	}
	identity.ConsecutiveErrors++
	return identity.ConsecutiveErrors, nil
}

func (f *fakeIdentityStore) SetActive(ctx context.Context, id string, active bool, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	identity, ok := f.identities[id]
	if !ok {
		return fmt.Errorf("identity %s not found", id)
	}
	identity.IsActive = active
	identity.PausedReason = reason
	if active {
		identity.ConsecutiveErrors = 0
	}
	return nil
}

// fakeInviteStore is an in-memory InviteStore for tests
type fakeInviteStore struct {
	mu      sync.Mutex
	invites []*domain.InviteRecord
}

func (f *fakeInviteStore) Create(ctx context.Context, invite *domain.InviteRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invites = append(f.invites, invite)
	return nil
}

func (f *fakeInviteStore) CountSince(ctx context.Context, identityID string, since time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, invite := range f.invites {
		if invite.IdentityID == identityID && !invite.SentAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (f *fakeInviteStore) SuccessTally(ctx context.Context, identityID string, since time.Time) (int, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	success, total := 0, 0
	for _, invite := range f.invites {
		if invite.IdentityID == identityID && !invite.SentAt.Before(since) {
			total++
			if invite.Success {
				success++
			}
		}
	}
	return success, total, nil
}

// fakeWorkItemStore is an in-memory WorkItemStore that enforces the same
// uniqueness guarantee as the partial index: one live item per
// (campaign, prospect email)
type fakeWorkItemStore struct {
	mu    sync.Mutex
	items []*domain.ScheduledWorkItem
}

func (f *fakeWorkItemStore) Create(ctx context.Context, item *domain.ScheduledWorkItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.items {
		if existing.CampaignID == item.CampaignID &&
			existing.ProspectEmail == item.ProspectEmail &&
			existing.Status != domain.WorkItemStatusCancelled {
			return fmt.Errorf("duplicate work item for %s", item.ProspectEmail)
		}
	}
	item.ID = primitive.NewObjectID()
	item.Status = domain.WorkItemStatusPending
	item.CreatedAt = time.Now()
	f.items = append(f.items, item)
	return nil
}

func (f *fakeWorkItemStore) BoundEmails(ctx context.Context, campaignID string) (map[string]bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	bound := make(map[string]bool)
	for _, item := range f.items {
		if item.CampaignID == campaignID && item.Status != domain.WorkItemStatusCancelled {
			bound[item.ProspectEmail] = true
		}
	}
	return bound, nil
}

func (f *fakeWorkItemStore) ListByCampaign(ctx context.Context, campaignID string, status domain.WorkItemStatus) ([]*domain.ScheduledWorkItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.ScheduledWorkItem
	for _, item := range f.items {
		if item.CampaignID != campaignID {
			continue
		}
		if status != "" && item.Status != status {
			continue
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out, nil
}

func (f *fakeWorkItemStore) CancelPending(ctx context.Context, campaignID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var cancelled int64
	for _, item := range f.items {
		if item.CampaignID == campaignID && item.Status == domain.WorkItemStatusPending {
			item.Status = domain.WorkItemStatusCancelled
			cancelled++
		}
	}
	return cancelled, nil
}

func (f *fakeWorkItemStore) Bookings(ctx context.Context, identityIDs []string, from, to time.Time) ([]domain.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make(map[string]bool, len(identityIDs))
	for _, id := range identityIDs {
		ids[id] = true
	}
	var out []domain.Booking
	for _, item := range f.items {
		if len(ids) > 0 && !ids[item.IdentityID] {
			continue
		}
		if item.Status != domain.WorkItemStatusPending && item.Status != domain.WorkItemStatusProcessing {
			continue
		}
		if item.ScheduledAt.Before(from) || item.ScheduledAt.After(to) {
			continue
		}
		out = append(out, domain.Booking{
			IdentityID: item.IdentityID,
			At:         item.ScheduledAt,
			CreatedAt:  item.CreatedAt,
		})
	}
	return out, nil
}

func (f *fakeWorkItemStore) ClaimDue(ctx context.Context, before time.Time, limit int) ([]*domain.ScheduledWorkItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var due []*domain.ScheduledWorkItem
	for _, item := range f.items {
		if item.Status == domain.WorkItemStatusPending && !item.ScheduledAt.After(before) {
			due = append(due, item)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ScheduledAt.Before(due[j].ScheduledAt) })
	if len(due) > limit {
		due = due[:limit]
	}
	for _, item := range due {
		item.Status = domain.WorkItemStatusProcessing
	}
	return due, nil
}

func (f *fakeWorkItemStore) MarkCompleted(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, item := range f.items {
		if item.ID.Hex() == id {
			item.Status = domain.WorkItemStatusCompleted
			return nil
		}
	}
	return fmt.Errorf("work item %s not found", id)
}

func (f *fakeWorkItemStore) MarkFailed(ctx context.Context, id, errMsg string, maxRetries int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, item := range f.items {
		if item.ID.Hex() == id {
			item.AttemptCount++
			item.LastError = errMsg
			if item.AttemptCount < maxRetries {
				item.Status = domain.WorkItemStatusPending
			} else {
				item.Status = domain.WorkItemStatusFailed
			}
			return nil
		}
	}
	return fmt.Errorf("work item %s not found", id)
}

// fakeCampaignStore is an in-memory CampaignStore for tests
type fakeCampaignStore struct {
	mu        sync.Mutex
	campaigns map[string]*domain.Campaign
}

func newFakeCampaignStore(campaigns ...*domain.Campaign) *fakeCampaignStore {
	f := &fakeCampaignStore{campaigns: make(map[string]*domain.Campaign)}
	for _, campaign := range campaigns {
		if campaign.ID.IsZero() {
			campaign.ID = primitive.NewObjectID()
		}
		f.campaigns[campaign.ID.Hex()] = campaign
	}
	return f
}

func (f *fakeCampaignStore) Create(ctx context.Context, campaign *domain.Campaign) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	campaign.ID = primitive.NewObjectID()
	campaign.CreatedAt = time.Now()
	f.campaigns[campaign.ID.Hex()] = campaign
	return nil
}

func (f *fakeCampaignStore) FindByID(ctx context.Context, id string) (*domain.Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	campaign, ok := f.campaigns[id]
	if !ok {
		return nil, fmt.Errorf("campaign %s not found", id)
	}
	return campaign, nil
}

func (f *fakeCampaignStore) FindActive(ctx context.Context) ([]*domain.Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Campaign
	for _, campaign := range f.campaigns {
		if campaign.Status == domain.CampaignStatusActive {
			out = append(out, campaign)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeCampaignStore) UpdateStatus(ctx context.Context, id string, status domain.CampaignStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	campaign, ok := f.campaigns[id]
	if !ok {
		return fmt.Errorf("campaign %s not found", id)
	}
	campaign.Status = status
	return nil
}

// fakeProspectStore is an in-memory ProspectStore for tests
type fakeProspectStore struct {
	mu        sync.Mutex
	prospects map[string][]domain.Prospect
}

func newFakeProspectStore() *fakeProspectStore {
	return &fakeProspectStore{prospects: make(map[string][]domain.Prospect)}
}

func (f *fakeProspectStore) ReplaceForCampaign(ctx context.Context, campaignID string, prospects []domain.Prospect) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prospects[campaignID] = prospects
	return nil
}

func (f *fakeProspectStore) ListByCampaign(ctx context.Context, campaignID string) ([]domain.Prospect, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.prospects[campaignID], nil
}

// fakeAuditStore records audit events for assertions
type fakeAuditStore struct {
	mu     sync.Mutex
	events []*domain.AuditEvent
}

func (f *fakeAuditStore) Create(ctx context.Context, event *domain.AuditEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakeAuditStore) eventTypes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, event := range f.events {
		out = append(out, event.Type)
	}
	return out
}
