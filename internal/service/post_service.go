package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"pawfeed/internal/blob"
	"pawfeed/internal/cache"
	"pawfeed/internal/events"
	"pawfeed/internal/models"
	"pawfeed/internal/observability"
	"pawfeed/internal/repository"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

type PostService struct {
	posts  repository.PostRepository
	blobs  blob.Store
	cache  *cache.Cache
	events events.Publisher
	pop    *populator
	now    func() time.Time
}

type CreatePostInput struct {
	AuthorID string
	Caption  string
	Image    *blob.Upload
}

type DeletePostInput struct {
	RequesterID string
	PostID      string
}

func NewPostService(
	posts repository.PostRepository,
	profiles repository.ProfileRepository,
	blobs blob.Store,
	c *cache.Cache,
	pub events.Publisher,
) *PostService {
	if pub == nil {
		pub = events.Noop{}
	}
	return &PostService{
		posts:  posts,
		blobs:  blobs,
		cache:  c,
		events: pub,
		pop:    &populator{profiles: profiles, cache: c},
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// CreatePost uploads the image, then persists the post and its author index
// entry. If persisting fails the uploaded image is released again.
func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (post *models.Post, err error) {
	ctx, span := observability.StartSpan(ctx, "PostService.CreatePost", attribute.String("author.id", in.AuthorID))
	defer func() { observability.EndSpan(span, err) }()

	if in.AuthorID == "" {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	caption := strings.TrimSpace(in.Caption)
	if utf8.RuneCountInString(caption) > models.CaptionMaxLength {
		return nil, models.NewValidationError("Caption too long (max 2200 characters)")
	}
	if in.Image == nil || len(in.Image.Content) == 0 {
		return nil, models.NewValidationError("Image is required")
	}

	upload := *in.Image
	upload.OwnerID = in.AuthorID
	obj, err := s.blobs.Put(ctx, upload)
	if err != nil {
		if models.ErrorCode(err) == models.CodeValidation {
			return nil, err
		}
		return nil, models.NewUpstreamError("upload image", err)
	}

	post = &models.Post{
		ID:          uuid.NewString(),
		AuthorID:    in.AuthorID,
		ImageURL:    obj.URL,
		ImageHandle: obj.Handle,
		Caption:     caption,
		CreatedAt:   s.now(),
	}
	if err = s.posts.Create(ctx, post); err != nil {
		if relErr := s.blobs.Release(ctx, obj.Handle); relErr != nil {
			observability.BlobReleaseFailures.Inc()
			observability.LogAsyncOperationError(ctx, "release_orphan_image", relErr, map[string]any{"handle": obj.Handle})
		}
		return nil, err
	}

	observability.PostsCreated.Inc()
	s.cache.BumpPosts(ctx)
	emit(ctx, s.events, events.Event{
		Subject:    events.SubjectPostCreated,
		PostID:     post.ID,
		AuthorID:   post.AuthorID,
		ActorID:    post.AuthorID,
		OccurredAt: post.CreatedAt,
	})

	one := []models.Post{*post}
	if popErr := s.pop.posts(ctx, one); popErr != nil {
		observability.LogAsyncOperationError(ctx, "populate_post", popErr, map[string]any{"post_id": post.ID})
		one[0].Normalize()
	}
	return &one[0], nil
}

func (s *PostService) GetPost(ctx context.Context, id string) (*models.Post, error) {
	if _, err := ParseID(id, "post ID"); err != nil {
		return nil, err
	}
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	one := []models.Post{*post}
	if err := s.pop.posts(ctx, one); err != nil {
		return nil, err
	}
	return &one[0], nil
}

// DeletePost removes a post owned by the requester and releases its image.
// The ownership check is repeated atomically by the store, so a concurrent
// second delete sees NotFound.
func (s *PostService) DeletePost(ctx context.Context, in DeletePostInput) (err error) {
	ctx, span := observability.StartSpan(ctx, "PostService.DeletePost", attribute.String("post.id", in.PostID))
	defer func() { observability.EndSpan(span, err) }()

	if _, err = ParseID(in.PostID, "post ID"); err != nil {
		return err
	}
	post, err := s.posts.GetByID(ctx, in.PostID)
	if err != nil {
		return err
	}
	if post.AuthorID != in.RequesterID {
		return models.NewForbiddenError("You cannot delete this post")
	}

	if err = s.posts.Delete(ctx, in.PostID, in.RequesterID); err != nil {
		return err
	}

	observability.PostsDeleted.Inc()
	s.cache.BumpPosts(ctx)

	if relErr := s.blobs.Release(ctx, post.ImageHandle); relErr != nil {
		observability.BlobReleaseFailures.Inc()
		observability.LogAsyncOperationError(ctx, "release_image", relErr, map[string]any{
			"post_id": post.ID,
			"handle":  post.ImageHandle,
		})
	}

	emit(ctx, s.events, events.Event{
		Subject:  events.SubjectPostDeleted,
		PostID:   post.ID,
		AuthorID: post.AuthorID,
		ActorID:  in.RequesterID,
	})
	return nil
}
