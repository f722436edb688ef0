package projection

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"pawfeed/internal/client"
	"pawfeed/internal/identity"
	"pawfeed/internal/models"

	"github.com/google/uuid"
)

// PlaceholderPrefix marks comments that exist only locally.
const PlaceholderPrefix = "tmp-"

// mutation is one optimistic action. apply, commit and revert run under the
// store lock; call runs without it. Each closure only touches the state its
// own apply changed.
type mutation[T any] struct {
	op     Op
	postID string
	apply  func() error
	call   func(ctx context.Context) (T, error)
	commit func(T)
	revert func()
}

func run[T any](ctx context.Context, s *Store, m mutation[T]) error {
	s.mu.Lock()
	if err := m.apply(); err != nil {
		if !errors.Is(err, ErrPending) {
			s.notify(m.op, m.postID, err)
		}
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	res, err := m.call(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		m.revert()
		s.notify(m.op, m.postID, err)
		return err
	}
	m.commit(res)
	return nil
}

// ToggleLike flips the viewer's membership in the post's like set at once
// and settles it to whatever the server reports.
func (s *Store) ToggleLike(ctx context.Context, postID string) error {
	var wasLiked bool
	return run(ctx, s, mutation[models.LikeAction]{
		op:     OpLike,
		postID: postID,
		apply: func() error {
			if s.viewer == identity.Anonymous {
				return models.NewUnauthorizedError("Sign in to like posts")
			}
			if s.likePending[postID] {
				return ErrPending
			}
			p := s.find(postID)
			if p == nil {
				return models.NewNotFoundError("Post", postID)
			}
			wasLiked = p.LikedBy(s.viewer)
			setLiked(p, s.viewer, !wasLiked)
			s.likePending[postID] = true
			return nil
		},
		call: func(ctx context.Context) (models.LikeAction, error) {
			return s.api.ToggleLike(ctx, postID)
		},
		commit: func(action models.LikeAction) {
			delete(s.likePending, postID)
			if p := s.find(postID); p != nil {
				setLiked(p, s.viewer, action == models.ActionLiked)
			}
		},
		revert: func() {
			delete(s.likePending, postID)
			if p := s.find(postID); p != nil {
				setLiked(p, s.viewer, wasLiked)
			}
		},
	})
}

// AddComment appends a placeholder right away and swaps it for the server's
// comment in the same position once confirmed. On failure the placeholder is
// dropped and the text goes back into the draft.
func (s *Store) AddComment(ctx context.Context, postID, raw string) error {
	text := strings.TrimSpace(raw)
	tmp := models.Comment{
		ID:       PlaceholderPrefix + uuid.NewString(),
		AuthorID: s.viewer,
		Text:     text,
		Author:   s.self,
	}
	return run(ctx, s, mutation[*client.CommentCreated]{
		op:     OpComment,
		postID: postID,
		apply: func() error {
			if s.viewer == identity.Anonymous {
				return models.NewUnauthorizedError("Sign in to comment")
			}
			if text == "" {
				return models.NewValidationError("Comment text is required")
			}
			if utf8.RuneCountInString(text) > models.CommentMaxLength {
				return models.NewValidationError("Comment is too long")
			}
			p := s.find(postID)
			if p == nil {
				return models.NewNotFoundError("Post", postID)
			}
			tmp.CreatedAt = s.now().UTC()
			p.Comments = append(p.Comments, tmp)
			s.placeholders[postID] = append(s.placeholders[postID], tmp)
			delete(s.drafts, postID)
			return nil
		},
		call: func(ctx context.Context) (*client.CommentCreated, error) {
			return s.api.AddComment(ctx, postID, text)
		},
		commit: func(res *client.CommentCreated) {
			s.dropPlaceholder(postID, tmp.ID)
			p := s.find(postID)
			if p == nil {
				return
			}
			i := commentIndex(p.Comments, tmp.ID)
			if i < 0 {
				return
			}
			if commentIndex(p.Comments, res.Comment.ID) >= 0 {
				// A refresh already brought in the confirmed comment.
				p.Comments = append(p.Comments[:i], p.Comments[i+1:]...)
				return
			}
			p.Comments[i] = res.Comment
		},
		revert: func() {
			s.dropPlaceholder(postID, tmp.ID)
			if p := s.find(postID); p != nil {
				if i := commentIndex(p.Comments, tmp.ID); i >= 0 {
					p.Comments = append(p.Comments[:i], p.Comments[i+1:]...)
				}
			}
			if s.drafts[postID] == "" {
				s.drafts[postID] = raw
			}
		},
	})
}

// DeletePost removes the post from the list at once. If the server refuses,
// it is put back where its creation time places it, unless the store has
// switched to another listing since.
func (s *Store) DeletePost(ctx context.Context, postID string) error {
	var (
		removed     models.Post
		wasSelected bool
		target      uint64
	)
	return run(ctx, s, mutation[struct{}]{
		op:     OpDelete,
		postID: postID,
		apply: func() error {
			if s.deletePending[postID] {
				return ErrPending
			}
			i := s.indexOf(postID)
			if i < 0 {
				return models.NewNotFoundError("Post", postID)
			}
			if s.viewer == identity.Anonymous || s.posts[i].AuthorID != s.viewer {
				return models.NewForbiddenError("You cannot delete this post")
			}
			removed = s.posts[i]
			target = s.target
			s.posts = append(s.posts[:i], s.posts[i+1:]...)
			if s.selected == postID {
				s.selected = ""
				wasSelected = true
			}
			s.deletePending[postID] = true
			return nil
		},
		call: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.api.DeletePost(ctx, postID)
		},
		commit: func(struct{}) {
			delete(s.deletePending, postID)
			delete(s.drafts, postID)
			delete(s.placeholders, postID)
		},
		revert: func() {
			delete(s.deletePending, postID)
			// A different listing is showing now; the post reappears on its next load.
			if target != s.target {
				return
			}
			s.insertByCreatedAt(removed)
			if wasSelected && s.selected == "" {
				s.selected = postID
			}
		},
	})
}

// RefreshComments replaces a post's confirmed comments with the server's
// list. Placeholders still waiting on the server stay after them.
func (s *Store) RefreshComments(ctx context.Context, postID string) error {
	comments, err := s.api.Comments(ctx, postID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.notify(OpComments, postID, err)
		return err
	}
	p := s.find(postID)
	if p == nil {
		return nil
	}
	merged := make([]models.Comment, 0, len(comments)+len(s.placeholders[postID]))
	merged = append(merged, comments...)
	merged = append(merged, s.placeholders[postID]...)
	p.Comments = merged
	return nil
}

func (s *Store) dropPlaceholder(postID, tmpID string) {
	pending := s.placeholders[postID]
	if i := commentIndex(pending, tmpID); i >= 0 {
		pending = append(pending[:i:i], pending[i+1:]...)
	}
	if len(pending) == 0 {
		delete(s.placeholders, postID)
		return
	}
	s.placeholders[postID] = pending
}

// IsPlaceholder reports whether c has not been confirmed by the server yet.
func IsPlaceholder(c models.Comment) bool {
	return strings.HasPrefix(c.ID, PlaceholderPrefix)
}

func setLiked(p *models.Post, actorID string, liked bool) {
	if p.LikedBy(actorID) == liked {
		return
	}
	if liked {
		p.Likes = append(p.Likes, actorID)
		return
	}
	out := make([]string, 0, len(p.Likes))
	for _, id := range p.Likes {
		if id != actorID {
			out = append(out, id)
		}
	}
	p.Likes = out
}

func commentIndex(comments []models.Comment, id string) int {
	for i := range comments {
		if comments[i].ID == id {
			return i
		}
	}
	return -1
}
