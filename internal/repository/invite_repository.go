package repository

import (
	"context"
	"time"

	"github.com/vhvplatform/go-outreach-service/internal/domain"
	"github.com/vhvplatform/go-outreach-service/internal/shared/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const invitesCollection = "invite_records"

// InviteRepository handles persisted invite outcomes. Usage stats are
// recomputed from these records, never cached as truth.
type InviteRepository struct {
	client *mongodb.MongoClient
}

// NewInviteRepository creates a new repository
func NewInviteRepository(client *mongodb.MongoClient) *InviteRepository {
	return &InviteRepository{client: client}
}

// EnsureIndexes creates necessary indexes for optimal query performance
func (r *InviteRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "identity_id", Value: 1},
				{Key: "sent_at", Value: -1},
			},
			Options: options.Index().SetName("identity_sent_idx"),
		},
	}
	return r.client.CreateIndexes(ctx, invitesCollection, indexes)
}

// Create records a send outcome
func (r *InviteRepository) Create(ctx context.Context, invite *domain.InviteRecord) error {
	invite.ID = primitive.NewObjectID()
	if invite.SentAt.IsZero() {
		invite.SentAt = time.Now()
	}
	_, err := r.client.Collection(invitesCollection).InsertOne(ctx, invite)
	return err
}

// CountSince returns how many invites an identity sent at or after the
// given instant
func (r *InviteRepository) CountSince(ctx context.Context, identityID string, since time.Time) (int, error) {
	n, err := r.client.Collection(invitesCollection).CountDocuments(ctx, bson.M{
		"identity_id": identityID,
		"sent_at":     bson.M{"$gte": since},
	})
	return int(n), err
}

// SuccessTally returns the success and total counts for an identity since
// the given instant
func (r *InviteRepository) SuccessTally(ctx context.Context, identityID string, since time.Time) (int, int, error) {
	filter := bson.M{
		"identity_id": identityID,
		"sent_at":     bson.M{"$gte": since},
	}

	total, err := r.client.Collection(invitesCollection).CountDocuments(ctx, filter)
	if err != nil {
		return 0, 0, err
	}

	filter["success"] = true
	success, err := r.client.Collection(invitesCollection).CountDocuments(ctx, filter)
	if err != nil {
		return 0, 0, err
	}

	return int(success), int(total), nil
}
