// Package service holds the post interaction engine and the feed and post
// orchestration used by the HTTP boundary.
package service

import (
	"context"
	"errors"

	"pawfeed/internal/cache"
	"pawfeed/internal/events"
	"pawfeed/internal/models"
	"pawfeed/internal/observability"
	"pawfeed/internal/repository"

	"github.com/google/uuid"
)

// ParseID validates a post or profile id.
func ParseID(id, field string) (string, error) {
	if _, err := uuid.Parse(id); err != nil {
		return "", models.NewValidationError("Invalid " + field + " format")
	}
	return id, nil
}

// populator fills post and comment authors from profile summaries, reading
// through the profile cache.
type populator struct {
	profiles repository.ProfileRepository
	cache    *cache.Cache
}

func (p *populator) summaries(ctx context.Context, ids []string) (map[string]*models.AuthorSummary, error) {
	out := make(map[string]*models.AuthorSummary, len(ids))
	var missing []string
	for _, id := range ids {
		if _, seen := out[id]; seen {
			continue
		}
		var s models.AuthorSummary
		if found, err := p.cache.GetJSON(ctx, cache.ProfileKey(id), &s); err == nil && found {
			out[id] = &s
			continue
		}
		out[id] = nil
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return out, nil
	}

	found, err := p.profiles.GetByIDs(ctx, missing)
	if err != nil {
		return nil, err
	}
	for id, prof := range found {
		s := prof.Summary()
		out[id] = s
		_ = p.cache.SetJSON(ctx, cache.ProfileKey(id), s, cache.ProfileTTL)
	}
	return out, nil
}

// posts populates authors of posts and of every comment in them.
func (p *populator) posts(ctx context.Context, posts []models.Post) error {
	var ids []string
	for i := range posts {
		ids = append(ids, posts[i].AuthorID)
		for _, c := range posts[i].Comments {
			ids = append(ids, c.AuthorID)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	byID, err := p.summaries(ctx, ids)
	if err != nil {
		return err
	}
	for i := range posts {
		posts[i].Normalize()
		posts[i].Author = byID[posts[i].AuthorID]
		for j := range posts[i].Comments {
			posts[i].Comments[j].Author = byID[posts[i].Comments[j].AuthorID]
		}
	}
	return nil
}

func (p *populator) comments(ctx context.Context, comments []models.Comment) error {
	if len(comments) == 0 {
		return nil
	}
	ids := make([]string, 0, len(comments))
	for _, c := range comments {
		ids = append(ids, c.AuthorID)
	}
	byID, err := p.summaries(ctx, ids)
	if err != nil {
		return err
	}
	for i := range comments {
		comments[i].Author = byID[comments[i].AuthorID]
	}
	return nil
}

// emit publishes e; failures are logged and counted only.
func emit(ctx context.Context, pub events.Publisher, e events.Event) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, e); err != nil {
		observability.EventPublishFailures.WithLabelValues(pub.Backend(), e.Subject).Inc()
		observability.LogAsyncOperationError(ctx, "publish_event", err, map[string]any{
			"subject": e.Subject,
			"post_id": e.PostID,
		})
	}
}

var errToggleContention = errors.New("like state kept changing under concurrent toggles")
