package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"pawfeed/internal/cache"
	"pawfeed/internal/events"
	"pawfeed/internal/models"
	"pawfeed/internal/observability"
	"pawfeed/internal/repository"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// maxToggleAttempts bounds the like toggle convergence loop.
const maxToggleAttempts = 5

// InteractionEngine applies likes and comments using only the store's
// single-post atomic primitives.
type InteractionEngine struct {
	posts  repository.PostRepository
	cache  *cache.Cache
	events events.Publisher
	pop    *populator
	now    func() time.Time
}

// AddCommentResult is the confirmed comment plus the post's full list.
type AddCommentResult struct {
	Comment  models.Comment   `json:"comment"`
	Comments []models.Comment `json:"comments"`
}

func NewInteractionEngine(
	posts repository.PostRepository,
	profiles repository.ProfileRepository,
	c *cache.Cache,
	pub events.Publisher,
) *InteractionEngine {
	if pub == nil {
		pub = events.Noop{}
	}
	return &InteractionEngine{
		posts:  posts,
		cache:  c,
		events: pub,
		pop:    &populator{profiles: profiles, cache: c},
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// ToggleLike flips actorID's membership in the post's like set and reports
// the resulting state.
//
// Set-add succeeding means the actor was not a member; set-remove succeeding
// means they were. When neither changes membership a toggle by the same
// actor landed in between, so the attempt is repeated.
func (e *InteractionEngine) ToggleLike(ctx context.Context, postID, actorID string) (action models.LikeAction, err error) {
	ctx, span := observability.StartSpan(ctx, "InteractionEngine.ToggleLike",
		attribute.String("post.id", postID),
		attribute.String("actor.id", actorID),
	)
	defer func() { observability.EndSpan(span, err) }()

	if actorID == "" {
		return "", models.NewUnauthorizedError("Authentication required")
	}
	if _, err = ParseID(postID, "post ID"); err != nil {
		return "", err
	}

	for attempt := 0; attempt < maxToggleAttempts; attempt++ {
		if attempt > 0 {
			observability.LikeToggleRetries.Inc()
		}

		var changed bool
		if changed, err = e.posts.AddLike(ctx, postID, actorID); err != nil {
			return "", err
		}
		if changed {
			action = models.ActionLiked
			break
		}
		if changed, err = e.posts.RemoveLike(ctx, postID, actorID); err != nil {
			return "", err
		}
		if changed {
			action = models.ActionUnliked
			break
		}

		var exists bool
		if exists, err = e.posts.Exists(ctx, postID); err != nil {
			return "", err
		}
		if !exists {
			return "", models.NewNotFoundError("Post", postID)
		}
	}
	if action == "" {
		err = models.NewUpstreamError("toggle like", errToggleContention)
		return "", err
	}

	observability.LikesToggled.WithLabelValues(string(action)).Inc()
	span.SetAttributes(attribute.String("like.action", string(action)))
	e.cache.BumpPosts(ctx)
	emit(ctx, e.events, events.Event{
		Subject: events.SubjectPostLiked,
		PostID:  postID,
		ActorID: actorID,
		Action:  string(action),
	})
	return action, nil
}

// AddComment appends a comment and returns it with the post's populated
// comment list.
func (e *InteractionEngine) AddComment(ctx context.Context, postID, actorID, text string) (res *AddCommentResult, err error) {
	ctx, span := observability.StartSpan(ctx, "InteractionEngine.AddComment", attribute.String("post.id", postID))
	defer func() { observability.EndSpan(span, err) }()

	if actorID == "" {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	if _, err = ParseID(postID, "post ID"); err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, models.NewValidationError("Comment text is required")
	}
	if utf8.RuneCountInString(text) > models.CommentMaxLength {
		return nil, models.NewValidationError("Comment too long (max 500 characters)")
	}

	c := &models.Comment{
		ID:        uuid.NewString(),
		AuthorID:  actorID,
		Text:      text,
		CreatedAt: e.now(),
	}
	if err = e.posts.AppendComment(ctx, postID, c); err != nil {
		return nil, err
	}

	observability.CommentsAdded.Inc()
	e.cache.BumpPosts(ctx)
	emit(ctx, e.events, events.Event{
		Subject:   events.SubjectPostCommented,
		PostID:    postID,
		ActorID:   actorID,
		CommentID: c.ID,
	})

	// The comment is stored. Read-back failures are logged, not returned.
	comments, listErr := e.posts.ListComments(ctx, postID)
	if listErr != nil {
		observability.LogAsyncOperationError(ctx, "list_comments_after_append", listErr, map[string]any{"post_id": postID, "comment_id": c.ID})
		comments = []models.Comment{*c}
	}
	if popErr := e.pop.comments(ctx, comments); popErr != nil {
		observability.LogAsyncOperationError(ctx, "populate_comments", popErr, map[string]any{"post_id": postID})
	}
	confirmed := *c
	for _, existing := range comments {
		if existing.ID == c.ID {
			confirmed = existing
			break
		}
	}
	return &AddCommentResult{Comment: confirmed, Comments: comments}, nil
}

// GetComments returns the post's comments in insertion order.
func (e *InteractionEngine) GetComments(ctx context.Context, postID string) ([]models.Comment, error) {
	if _, err := ParseID(postID, "post ID"); err != nil {
		return nil, err
	}
	comments, err := e.posts.ListComments(ctx, postID)
	if err != nil {
		return nil, err
	}
	if err := e.pop.comments(ctx, comments); err != nil {
		return nil, err
	}
	return comments, nil
}
