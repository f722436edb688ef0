// Package projection holds a viewer's local copy of a post listing and
// applies likes, comments and deletes optimistically, reconciling each one
// with the server's answer or reverting it.
package projection

import (
	"context"

	"pawfeed/internal/client"
	"pawfeed/internal/models"
)

// ViewKind selects which listing a Store projects.
type ViewKind int

const (
	ViewFeed ViewKind = iota
	ViewMine
	ViewByUser
)

// View is a listing target. UserID is only used by ViewByUser.
type View struct {
	Kind   ViewKind
	UserID string
}

func Feed() View               { return View{Kind: ViewFeed} }
func Mine() View               { return View{Kind: ViewMine} }
func ByUser(userID string) View { return View{Kind: ViewByUser, UserID: userID} }

func (v View) String() string {
	switch v.Kind {
	case ViewMine:
		return "mine"
	case ViewByUser:
		return "by-user:" + v.UserID
	default:
		return "feed"
	}
}

// API is the subset of the HTTP client the store calls. *client.Client
// satisfies it.
type API interface {
	Feed(ctx context.Context) ([]models.Post, error)
	Mine(ctx context.Context) ([]models.Post, error)
	UserPosts(ctx context.Context, userID string) ([]models.Post, error)
	ToggleLike(ctx context.Context, postID string) (models.LikeAction, error)
	AddComment(ctx context.Context, postID, text string) (*client.CommentCreated, error)
	Comments(ctx context.Context, postID string) ([]models.Comment, error)
	DeletePost(ctx context.Context, postID string) error
}

var _ API = (*client.Client)(nil)

func fetch(ctx context.Context, api API, v View) ([]models.Post, error) {
	switch v.Kind {
	case ViewMine:
		return api.Mine(ctx)
	case ViewByUser:
		return api.UserPosts(ctx, v.UserID)
	default:
		return api.Feed(ctx)
	}
}
