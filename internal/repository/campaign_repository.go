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

const campaignsCollection = "campaigns"

// CampaignRepository handles campaign data operations
type CampaignRepository struct {
	client *mongodb.MongoClient
}

// NewCampaignRepository creates a new repository
func NewCampaignRepository(client *mongodb.MongoClient) *CampaignRepository {
	return &CampaignRepository{client: client}
}

// EnsureIndexes creates necessary indexes for optimal query performance
func (r *CampaignRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "account_id", Value: 1},
				{Key: "status", Value: 1},
			},
			Options: options.Index().SetName("account_status_idx"),
		},
	}
	return r.client.CreateIndexes(ctx, campaignsCollection, indexes)
}

// Create creates a new campaign
func (r *CampaignRepository) Create(ctx context.Context, campaign *domain.Campaign) error {
	campaign.ID = primitive.NewObjectID()
	campaign.CreatedAt = time.Now()
	campaign.UpdatedAt = campaign.CreatedAt
	if campaign.Status == "" {
		campaign.Status = domain.CampaignStatusDraft
	}

	_, err := r.client.Collection(campaignsCollection).InsertOne(ctx, campaign)
	return err
}

// FindByID finds a campaign by ID
func (r *CampaignRepository) FindByID(ctx context.Context, id string) (*domain.Campaign, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}

	var campaign domain.Campaign
	err = r.client.Collection(campaignsCollection).FindOne(ctx, bson.M{"_id": oid}).Decode(&campaign)
	if err != nil {
		return nil, err
	}
	return &campaign, nil
}

// FindActive returns every campaign the periodic sweep should visit
func (r *CampaignRepository) FindActive(ctx context.Context) ([]*domain.Campaign, error) {
	cursor, err := r.client.Collection(campaignsCollection).Find(ctx,
		bson.M{"status": domain.CampaignStatusActive})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var campaigns []*domain.Campaign
	if err = cursor.All(ctx, &campaigns); err != nil {
		return nil, err
	}
	return campaigns, nil
}

// UpdateStatus transitions a campaign's lifecycle state
func (r *CampaignRepository) UpdateStatus(ctx context.Context, id string, status domain.CampaignStatus) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	_, err = r.client.Collection(campaignsCollection).UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{
			"status":     status,
			"updated_at": time.Now(),
		}},
	)
	return err
}
