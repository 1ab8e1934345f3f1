package repository

import (
	"context"
	"time"

	"github.com/vhvplatform/go-outreach-service/internal/domain"
	"github.com/vhvplatform/go-outreach-service/internal/shared/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const prospectsCollection = "campaign_prospects"

type prospectDoc struct {
	CampaignID string          `bson:"campaign_id"`
	Prospect   domain.Prospect `bson:"prospect"`
	CreatedAt  time.Time       `bson:"created_at"`
}

// ProspectRepository handles a campaign's prospect list. The CSV import
// collaborator writes the list; the governor only reads it.
type ProspectRepository struct {
	client *mongodb.MongoClient
}

// NewProspectRepository creates a new repository
func NewProspectRepository(client *mongodb.MongoClient) *ProspectRepository {
	return &ProspectRepository{client: client}
}

// EnsureIndexes creates necessary indexes for optimal query performance
func (r *ProspectRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "campaign_id", Value: 1},
				{Key: "prospect.email", Value: 1},
			},
			Options: options.Index().SetName("campaign_email_idx").SetUnique(true),
		},
	}
	return r.client.CreateIndexes(ctx, prospectsCollection, indexes)
}

// ReplaceForCampaign replaces a campaign's prospect list
func (r *ProspectRepository) ReplaceForCampaign(ctx context.Context, campaignID string, prospects []domain.Prospect) error {
	coll := r.client.Collection(prospectsCollection)
	if _, err := coll.DeleteMany(ctx, bson.M{"campaign_id": campaignID}); err != nil {
		return err
	}

	if len(prospects) == 0 {
		return nil
	}

	docs := make([]interface{}, 0, len(prospects))
	now := time.Now()
	for _, p := range prospects {
		docs = append(docs, prospectDoc{CampaignID: campaignID, Prospect: p, CreatedAt: now})
	}
	_, err := coll.InsertMany(ctx, docs)
	return err
}

// ListByCampaign returns a campaign's prospects in insertion order
func (r *ProspectRepository) ListByCampaign(ctx context.Context, campaignID string) ([]domain.Prospect, error) {
	cursor, err := r.client.Collection(prospectsCollection).Find(ctx,
		bson.M{"campaign_id": campaignID},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []prospectDoc
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	prospects := make([]domain.Prospect, len(docs))
	for i, d := range docs {
		prospects[i] = d.Prospect
	}
	return prospects, nil
}
