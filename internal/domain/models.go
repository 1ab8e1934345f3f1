package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProviderKind represents the calendar/email provider behind a sending identity
type ProviderKind string

const (
	ProviderGoogle    ProviderKind = "google"
	ProviderMicrosoft ProviderKind = "microsoft"
)

// SendingIdentity represents an outbound mailbox capable of sending an invite.
// The account-management collaborator owns the record; the governor only reads
// it and updates usage counters and the active flag.
type SendingIdentity struct {
	ID                primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	AccountID         string             `json:"account_id" bson:"account_id"`
	Email             string             `json:"email" bson:"email"`
	Provider          ProviderKind       `json:"provider" bson:"provider"`
	IsActive          bool               `json:"is_active" bson:"is_active"`
	PausedReason      string             `json:"paused_reason,omitempty" bson:"paused_reason,omitempty"`
	LastUsedAt        *time.Time         `json:"last_used_at,omitempty" bson:"last_used_at,omitempty"`
	DailyQuota        int                `json:"daily_quota" bson:"daily_quota"`
	WeeklyQuota       int                `json:"weekly_quota" bson:"weekly_quota"`
	CooldownMinutes   int                `json:"cooldown_minutes" bson:"cooldown_minutes"`
	ConsecutiveErrors int                `json:"consecutive_errors" bson:"consecutive_errors"`
	CreatedAt         time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at" bson:"updated_at"`
}

// CampaignStatus represents the lifecycle state of a campaign
type CampaignStatus string

const (
	CampaignStatusDraft     CampaignStatus = "draft"
	CampaignStatusActive    CampaignStatus = "active"
	CampaignStatusPaused    CampaignStatus = "paused"
	CampaignStatusCompleted CampaignStatus = "completed"
	CampaignStatusDeleted   CampaignStatus = "deleted"
)

// Campaign represents an outreach campaign. IdentityIDs is the explicitly
// selected identity pool; a run never borrows mailboxes outside it.
type Campaign struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	AccountID   string             `json:"account_id" bson:"account_id"`
	Name        string             `json:"name" bson:"name"`
	Status      CampaignStatus     `json:"status" bson:"status"`
	IdentityIDs []string           `json:"identity_ids" bson:"identity_ids"`
	Config      *SchedulingConfig  `json:"config,omitempty" bson:"config,omitempty"`
	CreatedAt   time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at" bson:"updated_at"`
}

// EffectiveConfig returns the campaign's scheduling override, or the global
// default when none is set
func (c *Campaign) EffectiveConfig() SchedulingConfig {
	if c.Config != nil {
		return *c.Config
	}
	return DefaultSchedulingConfig()
}

// Prospect represents a single outreach target with its merge fields.
// Known columns are typed; anything else from the source row lands in Extra.
type Prospect struct {
	Email    string            `json:"email" bson:"email"`
	Name     string            `json:"name,omitempty" bson:"name,omitempty"`
	Company  string            `json:"company,omitempty" bson:"company,omitempty"`
	Timezone string            `json:"timezone,omitempty" bson:"timezone,omitempty"`
	Extra    map[string]string `json:"extra,omitempty" bson:"extra,omitempty"`
}

// WorkItemStatus represents the lifecycle state of a scheduled work item
type WorkItemStatus string

const (
	WorkItemStatusPending    WorkItemStatus = "pending"
	WorkItemStatusProcessing WorkItemStatus = "processing"
	WorkItemStatusCompleted  WorkItemStatus = "completed"
	WorkItemStatusFailed     WorkItemStatus = "failed"
	WorkItemStatusCancelled  WorkItemStatus = "cancelled"
)

// ScheduledWorkItem is the durable unit the orchestrator produces: send this
// prospect via this identity at this instant. At most one non-cancelled item
// exists per (campaign, prospect email).
type ScheduledWorkItem struct {
	ID            primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	CampaignID    string             `json:"campaign_id" bson:"campaign_id"`
	ProspectEmail string             `json:"prospect_email" bson:"prospect_email"`
	Prospect      Prospect           `json:"prospect" bson:"prospect"`
	IdentityID    string             `json:"identity_id" bson:"identity_id"`
	ScheduledAt   time.Time          `json:"scheduled_at" bson:"scheduled_at"`
	Status        WorkItemStatus     `json:"status" bson:"status"`
	AttemptCount  int                `json:"attempt_count" bson:"attempt_count"`
	LastError     string             `json:"last_error,omitempty" bson:"last_error,omitempty"`
	DoubleBooked  bool               `json:"double_booked,omitempty" bson:"double_booked,omitempty"`
	RunID         string             `json:"run_id" bson:"run_id"`
	CreatedAt     time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at" bson:"updated_at"`
}

// InviteRecord is the persisted outcome of a send attempt through an
// identity. Usage stats are recomputed from these records on demand.
type InviteRecord struct {
	ID            primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	IdentityID    string             `json:"identity_id" bson:"identity_id"`
	CampaignID    string             `json:"campaign_id" bson:"campaign_id"`
	ProspectEmail string             `json:"prospect_email" bson:"prospect_email"`
	Success       bool               `json:"success" bson:"success"`
	Error         string             `json:"error,omitempty" bson:"error,omitempty"`
	SentAt        time.Time          `json:"sent_at" bson:"sent_at"`
}

// Booking is an instant already promised to an identity, derived from
// persisted work items when the booking index is rebuilt
type Booking struct {
	IdentityID string    `bson:"identity_id"`
	At         time.Time `bson:"scheduled_at"`
	CreatedAt  time.Time `bson:"created_at"`
	Responded  bool      `bson:"responded"`
}

// AuditSeverity classifies audit events
type AuditSeverity string

const (
	AuditSeverityInfo    AuditSeverity = "info"
	AuditSeverityWarning AuditSeverity = "warning"
	AuditSeverityError   AuditSeverity = "error"
)

// AuditEvent is a fire-and-forget activity record for operators
type AuditEvent struct {
	ID         string         `json:"id" bson:"_id"`
	Type       string         `json:"type" bson:"type"`
	Severity   AuditSeverity  `json:"severity" bson:"severity"`
	CampaignID string         `json:"campaign_id,omitempty" bson:"campaign_id,omitempty"`
	IdentityID string         `json:"identity_id,omitempty" bson:"identity_id,omitempty"`
	Context    map[string]any `json:"context,omitempty" bson:"context,omitempty"`
	CreatedAt  time.Time      `json:"created_at" bson:"created_at"`
}

// SendResult is the callback payload the send collaborator publishes after
// claiming and executing a work item
type SendResult struct {
	WorkItemID    string    `json:"work_item_id"`
	CampaignID    string    `json:"campaign_id"`
	IdentityID    string    `json:"identity_id"`
	ProspectEmail string    `json:"prospect_email"`
	Success       bool      `json:"success"`
	Error         string    `json:"error,omitempty"`
	SentAt        time.Time `json:"sent_at"`
}
