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

const identitiesCollection = "sending_identities"

// IdentityRepository handles sending identity data operations
type IdentityRepository struct {
	client *mongodb.MongoClient
}

// NewIdentityRepository creates a new repository
func NewIdentityRepository(client *mongodb.MongoClient) *IdentityRepository {
	return &IdentityRepository{client: client}
}

// EnsureIndexes creates necessary indexes for optimal query performance
func (r *IdentityRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "account_id", Value: 1},
				{Key: "is_active", Value: 1},
			},
			Options: options.Index().SetName("account_active_idx"),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName("email_idx").SetUnique(true),
		},
	}
	return r.client.CreateIndexes(ctx, identitiesCollection, indexes)
}

// FindByIDs returns the identities with the given ids, active or not
func (r *IdentityRepository) FindByIDs(ctx context.Context, ids []string) ([]*domain.SendingIdentity, error) {
	objectIDs := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		oid, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			continue
		}
		objectIDs = append(objectIDs, oid)
	}

	cursor, err := r.client.Collection(identitiesCollection).Find(ctx, bson.M{"_id": bson.M{"$in": objectIDs}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var identities []*domain.SendingIdentity
	if err = cursor.All(ctx, &identities); err != nil {
		return nil, err
	}
	return identities, nil
}

// FindByAccount returns all identities belonging to an account
func (r *IdentityRepository) FindByAccount(ctx context.Context, accountID string) ([]*domain.SendingIdentity, error) {
	cursor, err := r.client.Collection(identitiesCollection).Find(ctx, bson.M{"account_id": accountID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var identities []*domain.SendingIdentity
	if err = cursor.All(ctx, &identities); err != nil {
		return nil, err
	}
	return identities, nil
}

// MarkUsed stamps the last-used instant and clears the consecutive error
// counter after a successful send
func (r *IdentityRepository) MarkUsed(ctx context.Context, id string, at time.Time) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	_, err = r.client.Collection(identitiesCollection).UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{
			"last_used_at":       at,
			"consecutive_errors": 0,
			"updated_at":         time.Now(),
		}},
	)
	return err
}

// IncrementErrors bumps the consecutive error counter and returns the new
// value so the caller can apply the pause threshold
func (r *IdentityRepository) IncrementErrors(ctx context.Context, id string) (int, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return 0, err
	}

	var updated domain.SendingIdentity
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err = r.client.Collection(identitiesCollection).FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{
			"$inc": bson.M{"consecutive_errors": 1},
			"$set": bson.M{"updated_at": time.Now()},
		},
		opts,
	).Decode(&updated)
	if err != nil {
		return 0, err
	}
	return updated.ConsecutiveErrors, nil
}

// SetActive flips the active flag. Pausing records the reason; resuming
// clears it and resets the error counter.
func (r *IdentityRepository) SetActive(ctx context.Context, id string, active bool, reason string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}

	set := bson.M{
		"is_active":  active,
		"updated_at": time.Now(),
	}
	if active {
		set["paused_reason"] = ""
		set["consecutive_errors"] = 0
	} else {
		set["paused_reason"] = reason
	}

	_, err = r.client.Collection(identitiesCollection).UpdateOne(ctx,
		bson.M{"_id": oid}, bson.M{"$set": set})
	return err
}
