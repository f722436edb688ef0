// Package repository provides the post and profile stores. Two backends
// implement the same interfaces: GORM (Postgres or SQLite) and MongoDB.
package repository

import (
	"context"

	"pawfeed/internal/models"
)

// PostRepository persists posts together with their like sets, comment lists
// and the per-author post index. Every mutation is a single atomic store
// operation on one post; none of them read-modify-write a collection.
type PostRepository interface {
	// Create stores post and registers it in its author's index.
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id string) (*models.Post, error)
	Exists(ctx context.Context, id string) (bool, error)
	// Delete removes the post only if it is owned by authorID. It returns
	// NotFound when no such post remains, so among concurrent deletes at
	// most one succeeds.
	Delete(ctx context.Context, id, authorID string) error
	// List returns every post, newest first.
	List(ctx context.Context) ([]models.Post, error)
	// ListByAuthor returns authorID's posts, newest first.
	ListByAuthor(ctx context.Context, authorID string) ([]models.Post, error)
	// AddLike adds actorID to the like set and reports whether membership changed.
	AddLike(ctx context.Context, postID, actorID string) (bool, error)
	// RemoveLike removes actorID from the like set and reports whether membership changed.
	RemoveLike(ctx context.Context, postID, actorID string) (bool, error)
	// AppendComment appends c to the post's comments or returns NotFound.
	AppendComment(ctx context.Context, postID string, c *models.Comment) error
	// ListComments returns the comments in insertion order or NotFound.
	ListComments(ctx context.Context, postID string) ([]models.Comment, error)
	Ping(ctx context.Context) error
}

// ProfileRepository reads identity records used to populate posts.
type ProfileRepository interface {
	// Upsert creates the profile or updates its name and avatar.
	Upsert(ctx context.Context, p *models.Profile) error
	// GetByID returns the profile with its post index.
	GetByID(ctx context.Context, id string) (*models.Profile, error)
	// GetByIDs returns the profiles found among ids, keyed by id.
	GetByIDs(ctx context.Context, ids []string) (map[string]*models.Profile, error)
}

const (
	backendSQL   = "sql"
	backendMongo = "mongo"
)

func likeIDs(rows []models.Like) []string {
	ids := make([]string, 0, len(rows))
	for _, l := range rows {
		ids = append(ids, l.ActorID)
	}
	return ids
}
