package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vhvplatform/go-outreach-service/internal/domain"
	"github.com/vhvplatform/go-outreach-service/internal/shared/logger"
)

// AuditService records activity events for operators. Recording is
// fire-and-forget: a failing audit write never fails the scheduling
// operation that produced it.
type AuditService struct {
	store AuditStore
	log   *logger.Logger
}

// NewAuditService creates a new audit service
func NewAuditService(store AuditStore, log *logger.Logger) *AuditService {
	return &AuditService{store: store, log: log}
}

// Record persists an audit event, logging and swallowing any storage error
func (s *AuditService) Record(ctx context.Context, eventType string, severity domain.AuditSeverity, campaignID, identityID string, eventContext map[string]any) {
	event := &domain.AuditEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		Severity:   severity,
		CampaignID: campaignID,
		IdentityID: identityID,
		Context:    eventContext,
		CreatedAt:  time.Now(),
	}

	if err := s.store.Create(ctx, event); err != nil {
		s.log.Error("Failed to record audit event", "error", err, "type", eventType)
	}
}
