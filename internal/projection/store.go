package projection

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"pawfeed/internal/identity"
	"pawfeed/internal/models"
	"pawfeed/internal/observability"
)

var (
	// ErrPending rejects a like toggle while another toggle on the same post
	// is in flight.
	ErrPending = errors.New("projection: mutation already pending for this post")
	// ErrSuperseded is returned by a Load that a newer Load or SetTarget
	// replaced before it finished.
	ErrSuperseded = errors.New("projection: load superseded")
)

// Store is the single optimistic state container behind the feed, mine and
// by-user screens. It is safe for concurrent use; network calls run outside
// the lock.
type Store struct {
	api    API
	viewer string
	self   *models.AuthorSummary
	now    func() time.Time

	mu       sync.Mutex
	view     View
	posts    []models.Post
	selected string
	drafts   map[string]string
	notices  []Notice

	gen    uint64
	target uint64 // bumped by SetTarget only
	cancel context.CancelFunc

	likePending   map[string]bool
	deletePending map[string]bool
	placeholders  map[string][]models.Comment
}

// Option configures a Store.
type Option func(*Store)

// WithAuthor sets the summary attached to the viewer's placeholder comments.
func WithAuthor(a *models.AuthorSummary) Option {
	return func(s *Store) { s.self = a }
}

// WithClock replaces time.Now for placeholder timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates a store for viewerID projecting view. An empty viewerID is the
// anonymous viewer.
func New(api API, viewerID string, view View, opts ...Option) *Store {
	s := &Store{
		api:           api,
		viewer:        viewerID,
		now:           time.Now,
		view:          view,
		drafts:        make(map[string]string),
		likePending:   make(map[string]bool),
		deletePending: make(map[string]bool),
		placeholders:  make(map[string][]models.Comment),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// View returns the current listing target.
func (s *Store) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// SetTarget switches the listing, cancelling any load in flight. The list is
// empty until the next Load.
func (s *Store) SetTarget(v View) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.supersede()
	s.target++
	s.view = v
	s.posts = nil
	s.selected = ""
}

// Load fetches the current view's listing. Pending deletes stay hidden and
// pending comment placeholders stay attached to their posts.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	s.supersede()
	gen := s.gen
	view := s.view
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()

	posts, err := fetch(ctx, s.api, view)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return ErrSuperseded
	}
	s.cancel = nil
	if err != nil {
		s.notify(OpLoad, "", err)
		return err
	}

	loaded := make([]models.Post, 0, len(posts))
	for _, p := range posts {
		if s.deletePending[p.ID] {
			continue
		}
		p.Normalize()
		p.Comments = append(p.Comments, s.placeholders[p.ID]...)
		loaded = append(loaded, p)
	}
	s.posts = loaded
	if s.selected != "" && s.indexOf(s.selected) < 0 {
		s.selected = ""
	}
	return nil
}

// supersede invalidates the in-flight load. Callers hold mu.
func (s *Store) supersede() {
	s.gen++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// Posts returns a copy of the projected list, newest first.
func (s *Store) Posts() []models.Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Post, len(s.posts))
	for i := range s.posts {
		out[i] = clonePost(s.posts[i])
	}
	return out
}

// Post returns a copy of one projected post.
func (s *Store) Post(id string) (models.Post, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return models.Post{}, false
	}
	return clonePost(s.posts[i]), true
}

// Select marks a listed post as the open one.
func (s *Store) Select(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexOf(id) < 0 {
		return false
	}
	s.selected = id
	return true
}

// Selected returns the open post, if any.
func (s *Store) Selected() (models.Post, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == "" {
		return models.Post{}, false
	}
	i := s.indexOf(s.selected)
	if i < 0 {
		return models.Post{}, false
	}
	return clonePost(s.posts[i]), true
}

// SetDraft stores unsent comment text for a post.
func (s *Store) SetDraft(postID, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if text == "" {
		delete(s.drafts, postID)
		return
	}
	s.drafts[postID] = text
}

// Draft returns the unsent comment text for a post.
func (s *Store) Draft(postID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drafts[postID]
}

// LikePending reports whether a toggle on postID is in flight, which is when
// the like control is disabled.
func (s *Store) LikePending(postID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.likePending[postID]
}

// CanDelete reports whether the viewer authored the post. It only decides
// whether to offer the action; the server makes the real check.
func (s *Store) CanDelete(postID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(postID)
	return i >= 0 && s.viewer != identity.Anonymous && s.posts[i].AuthorID == s.viewer
}

// Notices drains the messages produced by failed actions.
func (s *Store) Notices() []Notice {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.notices
	s.notices = nil
	return out
}

func (s *Store) notify(op Op, postID string, err error) {
	n := newNotice(op, postID, err)
	s.notices = append(s.notices, n)
	observability.GlobalLogger.Warn("optimistic action reverted",
		slog.String("op", string(op)),
		slog.String("post_id", postID),
		slog.String("view", s.view.String()),
		slog.String("code", n.Code),
		slog.String("error", err.Error()),
	)
}

func (s *Store) indexOf(id string) int {
	for i := range s.posts {
		if s.posts[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) find(id string) *models.Post {
	if i := s.indexOf(id); i >= 0 {
		return &s.posts[i]
	}
	return nil
}

// insertByCreatedAt keeps the list newest first. A post already present is
// left alone.
func (s *Store) insertByCreatedAt(p models.Post) {
	if s.indexOf(p.ID) >= 0 {
		return
	}
	i := sort.Search(len(s.posts), func(i int) bool {
		return s.posts[i].CreatedAt.Before(p.CreatedAt)
	})
	s.posts = append(s.posts, models.Post{})
	copy(s.posts[i+1:], s.posts[i:])
	s.posts[i] = p
}

func clonePost(p models.Post) models.Post {
	p.Likes = append([]string{}, p.Likes...)
	p.Comments = append([]models.Comment{}, p.Comments...)
	return p
}
