package service

import (
	"context"
	"time"

	"pawfeed/internal/cache"
	"pawfeed/internal/models"
	"pawfeed/internal/repository"
)

// FeedService serves the three post listings. Every listing is newest first
// and fully populated.
type FeedService struct {
	posts    repository.PostRepository
	profiles repository.ProfileRepository
	cache    *cache.Cache
	ttl      time.Duration
	pop      *populator
}

func NewFeedService(
	posts repository.PostRepository,
	profiles repository.ProfileRepository,
	c *cache.Cache,
	ttl time.Duration,
) *FeedService {
	if ttl <= 0 {
		ttl = cache.FeedTTL
	}
	return &FeedService{
		posts:    posts,
		profiles: profiles,
		cache:    c,
		ttl:      ttl,
		pop:      &populator{profiles: profiles, cache: c},
	}
}

// Feed returns every post.
func (s *FeedService) Feed(ctx context.Context) ([]models.Post, error) {
	key := cache.FeedKey(s.cache.PostsGeneration(ctx))
	var posts []models.Post
	err := s.cache.Aside(ctx, key, &posts, s.ttl, func() error {
		var err error
		if posts, err = s.posts.List(ctx); err != nil {
			return err
		}
		return s.pop.posts(ctx, posts)
	})
	if err != nil {
		return nil, err
	}
	return normalized(posts), nil
}

// Mine returns the viewer's own posts.
func (s *FeedService) Mine(ctx context.Context, viewerID string) ([]models.Post, error) {
	if viewerID == "" {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	return s.byAuthor(ctx, viewerID)
}

// ByAuthor returns authorID's posts. The author must be a known profile.
func (s *FeedService) ByAuthor(ctx context.Context, authorID string) ([]models.Post, error) {
	if _, err := ParseID(authorID, "user ID"); err != nil {
		return nil, err
	}
	if _, err := s.profiles.GetByID(ctx, authorID); err != nil {
		if models.IsNotFound(err) {
			return nil, models.NewNotFoundError("User", authorID)
		}
		return nil, err
	}
	return s.byAuthor(ctx, authorID)
}

func (s *FeedService) byAuthor(ctx context.Context, authorID string) ([]models.Post, error) {
	key := cache.AuthorPostsKey(authorID, s.cache.PostsGeneration(ctx))
	var posts []models.Post
	err := s.cache.Aside(ctx, key, &posts, s.ttl, func() error {
		var err error
		if posts, err = s.posts.ListByAuthor(ctx, authorID); err != nil {
			return err
		}
		return s.pop.posts(ctx, posts)
	})
	if err != nil {
		return nil, err
	}
	return normalized(posts), nil
}

// Profile returns the identity record with its post index.
func (s *FeedService) Profile(ctx context.Context, id string) (*models.Profile, error) {
	if _, err := ParseID(id, "user ID"); err != nil {
		return nil, err
	}
	p, err := s.profiles.GetByID(ctx, id)
	if err != nil {
		if models.IsNotFound(err) {
			return nil, models.NewNotFoundError("User", id)
		}
		return nil, err
	}
	if p.PostIDs == nil {
		p.PostIDs = []string{}
	}
	return p, nil
}

func normalized(posts []models.Post) []models.Post {
	if posts == nil {
		return []models.Post{}
	}
	for i := range posts {
		posts[i].Normalize()
	}
	return posts
}
