package repository

import (
	"context"
	"errors"
	"time"

	"pawfeed/internal/models"
	"pawfeed/internal/observability"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type mongoProfileRepository struct {
	profiles *mongo.Collection
}

// NewMongoProfileRepository creates a MongoDB-backed profile repository.
func NewMongoProfileRepository(db *mongo.Database) ProfileRepository {
	return &mongoProfileRepository{profiles: db.Collection(profilesCollection)}
}

func (r *mongoProfileRepository) Upsert(ctx context.Context, p *models.Profile) error {
	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := r.profiles.UpdateOne(ctx,
		bson.M{"_id": p.ID},
		bson.M{
			"$set":         bson.M{"name": p.Name, "avatar": p.Avatar},
			"$setOnInsert": bson.M{"posts": []string{}, "created_at": createdAt},
		},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return models.NewUpstreamError("save profile", err)
	}
	return nil
}

func (r *mongoProfileRepository) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	defer observability.TrackQuery(backendMongo, "get", profilesCollection)()

	var p models.Profile
	if err := r.profiles.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.NewNotFoundError("Profile", id)
		}
		return nil, models.NewUpstreamError("get profile", err)
	}
	if p.PostIDs == nil {
		p.PostIDs = []string{}
	}
	return &p, nil
}

func (r *mongoProfileRepository) GetByIDs(ctx context.Context, ids []string) (map[string]*models.Profile, error) {
	out := make(map[string]*models.Profile, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	defer observability.TrackQuery(backendMongo, "get_many", profilesCollection)()

	cur, err := r.profiles.Find(ctx,
		bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetProjection(bson.M{"posts": 0}),
	)
	if err != nil {
		return nil, models.NewUpstreamError("get profiles", err)
	}
	var rows []models.Profile
	if err := cur.All(ctx, &rows); err != nil {
		return nil, models.NewUpstreamError("get profiles", err)
	}
	for i := range rows {
		out[rows[i].ID] = &rows[i]
	}
	return out, nil
}
