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

const workItemsCollection = "scheduled_work_items"

// WorkItemRepository handles scheduled work item data operations
type WorkItemRepository struct {
	client *mongodb.MongoClient
}

// NewWorkItemRepository creates a new repository
func NewWorkItemRepository(client *mongodb.MongoClient) *WorkItemRepository {
	return &WorkItemRepository{client: client}
}

// EnsureIndexes creates necessary indexes. The partial unique index enforces
// the invariant that at most one non-cancelled item exists per
// (campaign, prospect email).
func (r *WorkItemRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "campaign_id", Value: 1},
				{Key: "prospect_email", Value: 1},
			},
			Options: options.Index().
				SetName("campaign_prospect_unique_idx").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{
					"status": bson.M{"$in": []domain.WorkItemStatus{
						domain.WorkItemStatusPending,
						domain.WorkItemStatusProcessing,
						domain.WorkItemStatusCompleted,
						domain.WorkItemStatusFailed,
					}},
				}),
		},
		{
			Keys: bson.D{
				{Key: "status", Value: 1},
				{Key: "scheduled_at", Value: 1},
			},
			Options: options.Index().SetName("status_scheduled_idx"),
		},
		{
			Keys: bson.D{
				{Key: "identity_id", Value: 1},
				{Key: "scheduled_at", Value: 1},
			},
			Options: options.Index().SetName("identity_scheduled_idx"),
		},
	}
	return r.client.CreateIndexes(ctx, workItemsCollection, indexes)
}

// Create persists a new work item in pending state
func (r *WorkItemRepository) Create(ctx context.Context, item *domain.ScheduledWorkItem) error {
	item.ID = primitive.NewObjectID()
	item.Status = domain.WorkItemStatusPending
	item.CreatedAt = time.Now()
	item.UpdatedAt = item.CreatedAt

	_, err := r.client.Collection(workItemsCollection).InsertOne(ctx, item)
	return err
}

// BoundEmails returns the prospect emails already bound to a non-cancelled
// work item of the campaign
func (r *WorkItemRepository) BoundEmails(ctx context.Context, campaignID string) (map[string]bool, error) {
	filter := bson.M{
		"campaign_id": campaignID,
		"status":      bson.M{"$ne": domain.WorkItemStatusCancelled},
	}
	values, err := r.client.Collection(workItemsCollection).Distinct(ctx, "prospect_email", filter)
	if err != nil {
		return nil, err
	}

	bound := make(map[string]bool, len(values))
	for _, v := range values {
		if email, ok := v.(string); ok {
			bound[email] = true
		}
	}
	return bound, nil
}

// ListByCampaign returns a campaign's work items, optionally filtered by status
func (r *WorkItemRepository) ListByCampaign(ctx context.Context, campaignID string, status domain.WorkItemStatus) ([]*domain.ScheduledWorkItem, error) {
	filter := bson.M{"campaign_id": campaignID}
	if status != "" {
		filter["status"] = status
	}

	cursor, err := r.client.Collection(workItemsCollection).Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "scheduled_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var items []*domain.ScheduledWorkItem
	if err = cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// CancelPending voids every pending item of a campaign and returns how many
// were cancelled. Processing and completed items are never touched.
func (r *WorkItemRepository) CancelPending(ctx context.Context, campaignID string) (int64, error) {
	res, err := r.client.Collection(workItemsCollection).UpdateMany(ctx,
		bson.M{
			"campaign_id": campaignID,
			"status":      domain.WorkItemStatusPending,
		},
		bson.M{"$set": bson.M{
			"status":     domain.WorkItemStatusCancelled,
			"updated_at": time.Now(),
		}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// Bookings returns the instants already promised to the given identities
// inside the range, for booking index rebuilds
func (r *WorkItemRepository) Bookings(ctx context.Context, identityIDs []string, from, to time.Time) ([]domain.Booking, error) {
	filter := bson.M{
		"status": bson.M{"$in": []domain.WorkItemStatus{
			domain.WorkItemStatusPending,
			domain.WorkItemStatusProcessing,
		}},
		"scheduled_at": bson.M{"$gte": from, "$lte": to},
	}
	if len(identityIDs) > 0 {
		filter["identity_id"] = bson.M{"$in": identityIDs}
	}

	cursor, err := r.client.Collection(workItemsCollection).Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var items []*domain.ScheduledWorkItem
	if err = cursor.All(ctx, &items); err != nil {
		return nil, err
	}

	bookings := make([]domain.Booking, 0, len(items))
	for _, it := range items {
		bookings = append(bookings, domain.Booking{
			IdentityID: it.IdentityID,
			At:         it.ScheduledAt,
			CreatedAt:  it.CreatedAt,
			Responded:  it.Status == domain.WorkItemStatusCompleted,
		})
	}
	return bookings, nil
}

// ClaimDue atomically moves due pending items to processing and returns
// them. The conditional update is the single claim point, so two dispatchers
// can never both take the same item.
func (r *WorkItemRepository) ClaimDue(ctx context.Context, before time.Time, limit int) ([]*domain.ScheduledWorkItem, error) {
	claimed := make([]*domain.ScheduledWorkItem, 0, limit)
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After).
		SetSort(bson.D{{Key: "scheduled_at", Value: 1}})

	for len(claimed) < limit {
		var item domain.ScheduledWorkItem
		err := r.client.Collection(workItemsCollection).FindOneAndUpdate(ctx,
			bson.M{
				"status":       domain.WorkItemStatusPending,
				"scheduled_at": bson.M{"$lte": before},
			},
			bson.M{"$set": bson.M{
				"status":     domain.WorkItemStatusProcessing,
				"updated_at": time.Now(),
			}},
			opts,
		).Decode(&item)
		if err == mongo.ErrNoDocuments {
			break
		}
		if err != nil {
			return claimed, err
		}
		claimed = append(claimed, &item)
	}
	return claimed, nil
}

// MarkCompleted finalizes a successfully sent item
func (r *WorkItemRepository) MarkCompleted(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	_, err = r.client.Collection(workItemsCollection).UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{
			"status":     domain.WorkItemStatusCompleted,
			"updated_at": time.Now(),
		}},
	)
	return err
}

// MarkFailed records a failed attempt. Items under the retry bound go back
// to pending for another pass; the rest stay failed.
func (r *WorkItemRepository) MarkFailed(ctx context.Context, id, errMsg string, maxRetries int) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}

	var updated domain.ScheduledWorkItem
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err = r.client.Collection(workItemsCollection).FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{
			"$inc": bson.M{"attempt_count": 1},
			"$set": bson.M{
				"status":     domain.WorkItemStatusFailed,
				"last_error": errMsg,
				"updated_at": time.Now(),
			},
		},
		opts,
	).Decode(&updated)
	if err != nil {
		return err
	}

	if updated.AttemptCount < maxRetries {
		_, err = r.client.Collection(workItemsCollection).UpdateOne(ctx,
			bson.M{"_id": oid},
			bson.M{"$set": bson.M{"status": domain.WorkItemStatusPending}},
		)
	}
	return err
}
