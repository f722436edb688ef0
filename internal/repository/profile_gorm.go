package repository

import (
	"context"
	"errors"

	"pawfeed/internal/models"
	"pawfeed/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type profileRepository struct {
	db *gorm.DB
}

// NewProfileRepository creates a GORM-backed profile repository.
func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) Upsert(ctx context.Context, p *models.Profile) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "avatar"}),
	}).Create(p).Error
	if err != nil {
		return models.NewUpstreamError("save profile", err)
	}
	return nil
}

func (r *profileRepository) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	defer observability.TrackQuery(backendSQL, "get", "profiles")()

	var p models.Profile
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Profile", id)
		}
		return nil, models.NewUpstreamError("get profile", err)
	}

	p.PostIDs = []string{}
	err := r.db.WithContext(ctx).Model(&models.AuthorPost{}).
		Where("author_id = ?", id).
		Order("created_at ASC").
		Pluck("post_id", &p.PostIDs).Error
	if err != nil {
		return nil, models.NewUpstreamError("get profile posts", err)
	}
	return &p, nil
}

func (r *profileRepository) GetByIDs(ctx context.Context, ids []string) (map[string]*models.Profile, error) {
	out := make(map[string]*models.Profile, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	defer observability.TrackQuery(backendSQL, "get_many", "profiles")()

	var rows []models.Profile
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, models.NewUpstreamError("get profiles", err)
	}
	for i := range rows {
		out[rows[i].ID] = &rows[i]
	}
	return out, nil
}
