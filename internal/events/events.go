// Package events publishes post lifecycle events for downstream consumers
// (feed fan-out, notifications). Publishing is best effort: callers log and
// count failures but never fail the originating request.
package events

import (
	"context"
	"encoding/json"
	"time"
)

// Subjects.
const (
	SubjectPostCreated   = "post.created"
	SubjectPostDeleted   = "post.deleted"
	SubjectPostLiked     = "post.liked"
	SubjectPostCommented = "post.commented"
)

// Event is the payload published for every post mutation.
type Event struct {
	Subject    string    `json:"subject"`
	PostID     string    `json:"post_id"`
	AuthorID   string    `json:"author_id,omitempty"`
	ActorID    string    `json:"actor_id"`
	Action     string    `json:"action,omitempty"`
	CommentID  string    `json:"comment_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher sends events to a broker.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	// Backend names the broker for metrics labels.
	Backend() string
	Close() error
}

func encode(e Event) ([]byte, error) {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	return json.Marshal(e)
}

// Noop discards events.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Backend() string                      { return "none" }
func (Noop) Close() error                         { return nil }
