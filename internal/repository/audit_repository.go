package repository

import (
	"context"

	"github.com/vhvplatform/go-outreach-service/internal/domain"
	"github.com/vhvplatform/go-outreach-service/internal/shared/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const auditEventsCollection = "audit_events"

// AuditRepository persists activity events for operators
type AuditRepository struct {
	client *mongodb.MongoClient
}

// NewAuditRepository creates a new repository
func NewAuditRepository(client *mongodb.MongoClient) *AuditRepository {
	return &AuditRepository{client: client}
}

// EnsureIndexes creates necessary indexes for optimal query performance
func (r *AuditRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "campaign_id", Value: 1},
				{Key: "created_at", Value: -1},
			},
			Options: options.Index().SetName("campaign_created_idx"),
		},
	}
	return r.client.CreateIndexes(ctx, auditEventsCollection, indexes)
}

// Create persists an audit event
func (r *AuditRepository) Create(ctx context.Context, event *domain.AuditEvent) error {
	_, err := r.client.Collection(auditEventsCollection).InsertOne(ctx, event)
	return err
}

// ListByCampaign returns a campaign's audit trail, newest first
func (r *AuditRepository) ListByCampaign(ctx context.Context, campaignID string, limit int) ([]*domain.AuditEvent, error) {
	cursor, err := r.client.Collection(auditEventsCollection).Find(ctx,
		bson.M{"campaign_id": campaignID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(int64(limit)))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var events []*domain.AuditEvent
	if err = cursor.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}
