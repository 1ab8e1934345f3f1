package service

import (
	"context"
	"time"

	"github.com/vhvplatform/go-outreach-service/internal/domain"
)

// IdentityStore is the persistence contract for sending identities
type IdentityStore interface {
	FindByIDs(ctx context.Context, ids []string) ([]*domain.SendingIdentity, error)
	FindByAccount(ctx context.Context, accountID string) ([]*domain.SendingIdentity, error)
	MarkUsed(ctx context.Context, id string, at time.Time) error
	IncrementErrors(ctx context.Context, id string) (int, error)
	SetActive(ctx context.Context, id string, active bool, reason string) error
}

// InviteStore is the persistence contract for invite outcomes
type InviteStore interface {
	Create(ctx context.Context, invite *domain.InviteRecord) error
	CountSince(ctx context.Context, identityID string, since time.Time) (int, error)
	SuccessTally(ctx context.Context, identityID string, since time.Time) (int, int, error)
}

// WorkItemStore is the persistence contract for scheduled work items
type WorkItemStore interface {
	Create(ctx context.Context, item *domain.ScheduledWorkItem) error
	BoundEmails(ctx context.Context, campaignID string) (map[string]bool, error)
	ListByCampaign(ctx context.Context, campaignID string, status domain.WorkItemStatus) ([]*domain.ScheduledWorkItem, error)
	CancelPending(ctx context.Context, campaignID string) (int64, error)
	Bookings(ctx context.Context, identityIDs []string, from, to time.Time) ([]domain.Booking, error)
	ClaimDue(ctx context.Context, before time.Time, limit int) ([]*domain.ScheduledWorkItem, error)
	MarkCompleted(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id, errMsg string, maxRetries int) error
}

// CampaignStore is the persistence contract for campaigns
type CampaignStore interface {
	Create(ctx context.Context, campaign *domain.Campaign) error
	FindByID(ctx context.Context, id string) (*domain.Campaign, error)
	FindActive(ctx context.Context) ([]*domain.Campaign, error)
	UpdateStatus(ctx context.Context, id string, status domain.CampaignStatus) error
}

// ProspectStore is the persistence contract for campaign prospect lists
type ProspectStore interface {
	ReplaceForCampaign(ctx context.Context, campaignID string, prospects []domain.Prospect) error
	ListByCampaign(ctx context.Context, campaignID string) ([]domain.Prospect, error)
}

// AuditStore is the persistence contract for audit events
type AuditStore interface {
	Create(ctx context.Context, event *domain.AuditEvent) error
}
