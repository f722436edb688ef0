package projection

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"pawfeed/internal/client"
	"pawfeed/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const viewer = "viewer-1"

var errNetwork = &client.APIError{Code: models.CodeUpstream, Message: "network error"}

// gate blocks a fake call until the test releases it.
type gate struct {
	started chan struct{}
	release chan struct{}
}

func newGate() *gate {
	return &gate{started: make(chan struct{}, 1), release: make(chan struct{})}
}

func (g *gate) wait(ctx context.Context) error {
	g.started <- struct{}{}
	select {
	case <-g.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type fakeAPI struct {
	mu       sync.Mutex
	views    []string
	list     func(ctx context.Context, v View) ([]models.Post, error)
	toggle   func(ctx context.Context, postID string) (models.LikeAction, error)
	comment  func(ctx context.Context, postID, text string) (*client.CommentCreated, error)
	comments func(ctx context.Context, postID string) ([]models.Comment, error)
	remove   func(ctx context.Context, postID string) error
}

func (f *fakeAPI) load(ctx context.Context, v View) ([]models.Post, error) {
	f.mu.Lock()
	f.views = append(f.views, v.String())
	f.mu.Unlock()
	return f.list(ctx, v)
}

func (f *fakeAPI) Feed(ctx context.Context) ([]models.Post, error) { return f.load(ctx, Feed()) }
func (f *fakeAPI) Mine(ctx context.Context) ([]models.Post, error) { return f.load(ctx, Mine()) }
func (f *fakeAPI) UserPosts(ctx context.Context, id string) ([]models.Post, error) {
	return f.load(ctx, ByUser(id))
}
func (f *fakeAPI) ToggleLike(ctx context.Context, postID string) (models.LikeAction, error) {
	return f.toggle(ctx, postID)
}
func (f *fakeAPI) AddComment(ctx context.Context, postID, text string) (*client.CommentCreated, error) {
	return f.comment(ctx, postID, text)
}
func (f *fakeAPI) Comments(ctx context.Context, postID string) ([]models.Comment, error) {
	return f.comments(ctx, postID)
}
func (f *fakeAPI) DeletePost(ctx context.Context, postID string) error {
	return f.remove(ctx, postID)
}

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func samplePosts() []models.Post {
	return []models.Post{
		{ID: "p3", AuthorID: viewer, CreatedAt: base.Add(3 * time.Minute),
			Comments: []models.Comment{{ID: "c1", AuthorID: "other", Text: "first"}}},
		{ID: "p2", AuthorID: "other", CreatedAt: base.Add(2 * time.Minute), Likes: []string{"other"}},
		{ID: "p1", AuthorID: viewer, CreatedAt: base.Add(time.Minute)},
	}
}

func loadedStore(t *testing.T, api *fakeAPI) *Store {
	t.Helper()
	if api.list == nil {
		api.list = func(context.Context, View) ([]models.Post, error) { return samplePosts(), nil }
	}
	s := New(api, viewer, Feed(), WithClock(func() time.Time { return base.Add(time.Hour) }))
	require.NoError(t, s.Load(context.Background()))
	return s
}

func ids(posts []models.Post) []string {
	out := make([]string, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.ID)
	}
	return out
}

func commentTexts(t *testing.T, s *Store, postID string) []string {
	t.Helper()
	p, ok := s.Post(postID)
	require.True(t, ok)
	out := make([]string, 0, len(p.Comments))
	for _, c := range p.Comments {
		out = append(out, c.Text)
	}
	return out
}

func TestStore_LoadPerView(t *testing.T) {
	api := &fakeAPI{}
	s := loadedStore(t, api)
	assert.Equal(t, []string{"p3", "p2", "p1"}, ids(s.Posts()))

	p, _ := s.Post("p1")
	assert.NotNil(t, p.Likes)
	assert.NotNil(t, p.Comments)

	s.SetTarget(Mine())
	assert.Empty(t, s.Posts())
	require.NoError(t, s.Load(context.Background()))
	s.SetTarget(ByUser("other"))
	require.NoError(t, s.Load(context.Background()))
	assert.Equal(t, []string{"feed", "mine", "by-user:other"}, api.views)
	assert.Equal(t, ByUser("other"), s.View())
}

func TestStore_LoadSupersededBySetTarget(t *testing.T) {
	slow := newGate()
	api := &fakeAPI{list: func(ctx context.Context, v View) ([]models.Post, error) {
		if v.Kind == ViewFeed {
			if err := slow.wait(ctx); err != nil {
				return nil, err
			}
			return samplePosts(), nil
		}
		return []models.Post{{ID: "mine-1", AuthorID: viewer, CreatedAt: base}}, nil
	}}
	s := New(api, viewer, Feed())

	done := make(chan error, 1)
	go func() { done <- s.Load(context.Background()) }()
	<-slow.started

	s.SetTarget(Mine())
	assert.ErrorIs(t, <-done, ErrSuperseded)
	assert.Empty(t, s.Notices())

	require.NoError(t, s.Load(context.Background()))
	assert.Equal(t, []string{"mine-1"}, ids(s.Posts()))
}

func TestStore_LoadFailureEmitsNotice(t *testing.T) {
	api := &fakeAPI{list: func(context.Context, View) ([]models.Post, error) { return nil, errNetwork }}
	s := New(api, viewer, Feed())

	require.Error(t, s.Load(context.Background()))
	notices := s.Notices()
	require.Len(t, notices, 1)
	assert.Equal(t, OpLoad, notices[0].Op)
	assert.Equal(t, "Couldn't load posts. Please try again.", notices[0].Message)
	assert.Empty(t, s.Notices())
}

func TestStore_ToggleLike(t *testing.T) {
	g := newGate()
	api := &fakeAPI{toggle: func(ctx context.Context, postID string) (models.LikeAction, error) {
		if postID == "p2" {
			if err := g.wait(ctx); err != nil {
				return "", err
			}
		}
		return models.ActionLiked, nil
	}}
	s := loadedStore(t, api)

	done := make(chan error, 1)
	go func() { done <- s.ToggleLike(context.Background(), "p2") }()
	<-g.started

	p, _ := s.Post("p2")
	assert.ElementsMatch(t, []string{"other", viewer}, p.Likes)
	assert.True(t, s.LikePending("p2"))
	assert.ErrorIs(t, s.ToggleLike(context.Background(), "p2"), ErrPending)

	// Other posts are not gated.
	require.NoError(t, s.ToggleLike(context.Background(), "p1"))
	p, _ = s.Post("p1")
	assert.Equal(t, []string{viewer}, p.Likes)

	close(g.release)
	require.NoError(t, <-done)
	assert.False(t, s.LikePending("p2"))
	p, _ = s.Post("p2")
	assert.ElementsMatch(t, []string{"other", viewer}, p.Likes)
	assert.Empty(t, s.Notices())
}

func TestStore_ToggleLike_ServerTagWins(t *testing.T) {
	api := &fakeAPI{toggle: func(context.Context, string) (models.LikeAction, error) {
		return models.ActionUnliked, nil
	}}
	s := loadedStore(t, api)

	require.NoError(t, s.ToggleLike(context.Background(), "p1"))
	p, _ := s.Post("p1")
	assert.Empty(t, p.Likes)
}

func TestStore_ToggleLike_FailureRevertsOnlyItsDelta(t *testing.T) {
	g := newGate()
	api := &fakeAPI{
		toggle: func(ctx context.Context, _ string) (models.LikeAction, error) {
			_ = g.wait(ctx)
			return "", errNetwork
		},
		comment: func(_ context.Context, postID, text string) (*client.CommentCreated, error) {
			return &client.CommentCreated{Comment: models.Comment{ID: "c-new", AuthorID: viewer, Text: text}}, nil
		},
	}
	s := loadedStore(t, api)

	done := make(chan error, 1)
	go func() { done <- s.ToggleLike(context.Background(), "p3") }()
	<-g.started

	require.NoError(t, s.AddComment(context.Background(), "p3", "still here"))
	close(g.release)
	require.Error(t, <-done)

	p, _ := s.Post("p3")
	assert.Empty(t, p.Likes)
	assert.Equal(t, []string{"first", "still here"}, commentTexts(t, s, "p3"))

	notices := s.Notices()
	require.Len(t, notices, 1)
	assert.Equal(t, Notice{
		Op:      OpLike,
		PostID:  "p3",
		Code:    models.CodeUpstream,
		Message: "Couldn't update like. Please try again.",
	}, notices[0])
}

func TestStore_ToggleLike_Rejections(t *testing.T) {
	api := &fakeAPI{list: func(context.Context, View) ([]models.Post, error) { return samplePosts(), nil }}
	anon := New(api, "", Feed())
	require.NoError(t, anon.Load(context.Background()))
	err := anon.ToggleLike(context.Background(), "p1")
	assert.Equal(t, models.CodeUnauthorized, models.ErrorCode(err))

	s := loadedStore(t, &fakeAPI{})
	err = s.ToggleLike(context.Background(), "missing")
	assert.True(t, models.IsNotFound(err))
}

func TestStore_AddComment_PlaceholdersReconcileInOrder(t *testing.T) {
	slowA := newGate()
	var seq int
	var mu sync.Mutex
	api := &fakeAPI{comment: func(ctx context.Context, _ string, text string) (*client.CommentCreated, error) {
		if text == "A" {
			if err := slowA.wait(ctx); err != nil {
				return nil, err
			}
		}
		mu.Lock()
		seq++
		at := base.Add(time.Duration(seq) * time.Second)
		mu.Unlock()
		return &client.CommentCreated{Comment: models.Comment{ID: "srv-" + text, AuthorID: viewer, Text: text, CreatedAt: at}}, nil
	}}
	s := loadedStore(t, api)

	done := make(chan error, 1)
	go func() { done <- s.AddComment(context.Background(), "p3", "A") }()
	<-slowA.started

	p, _ := s.Post("p3")
	require.Len(t, p.Comments, 2)
	assert.True(t, IsPlaceholder(p.Comments[1]))
	assert.Equal(t, base.Add(time.Hour), p.Comments[1].CreatedAt)

	require.NoError(t, s.AddComment(context.Background(), "p3", "B"))
	p, _ = s.Post("p3")
	require.Len(t, p.Comments, 3)
	assert.True(t, IsPlaceholder(p.Comments[1]))
	assert.Equal(t, "srv-B", p.Comments[2].ID)

	close(slowA.release)
	require.NoError(t, <-done)
	p, _ = s.Post("p3")
	assert.Equal(t, []string{"c1", "srv-A", "srv-B"}, []string{p.Comments[0].ID, p.Comments[1].ID, p.Comments[2].ID})
}

func TestStore_AddComment_FailureRestoresDraft(t *testing.T) {
	var sent string
	api := &fakeAPI{comment: func(_ context.Context, _ string, text string) (*client.CommentCreated, error) {
		sent = text
		return nil, errNetwork
	}}
	s := loadedStore(t, api)
	before, _ := s.Post("p3")
	s.SetDraft("p3", "  good boy ")

	err := s.AddComment(context.Background(), "p3", s.Draft("p3"))
	require.Error(t, err)

	after, _ := s.Post("p3")
	assert.Equal(t, before.Comments, after.Comments)
	assert.Equal(t, "good boy", sent)
	assert.Equal(t, "  good boy ", s.Draft("p3"))
	notices := s.Notices()
	require.Len(t, notices, 1)
	assert.Equal(t, OpComment, notices[0].Op)
}

func TestStore_AddComment_Validation(t *testing.T) {
	called := false
	api := &fakeAPI{comment: func(context.Context, string, string) (*client.CommentCreated, error) {
		called = true
		return nil, nil
	}}
	s := loadedStore(t, api)

	for _, text := range []string{"", "   ", strings.Repeat("x", models.CommentMaxLength+1)} {
		err := s.AddComment(context.Background(), "p3", text)
		assert.Equal(t, models.CodeValidation, models.ErrorCode(err))
	}
	assert.False(t, called)
	assert.Equal(t, []string{"first"}, commentTexts(t, s, "p3"))

	notices := s.Notices()
	require.Len(t, notices, 3)
	assert.Equal(t, "Comment text is required", notices[0].Message)
	assert.Equal(t, "Comment is too long", notices[2].Message)
}

func TestStore_RefreshCommentsKeepsPlaceholders(t *testing.T) {
	g := newGate()
	api := &fakeAPI{
		comment: func(ctx context.Context, _ string, text string) (*client.CommentCreated, error) {
			if err := g.wait(ctx); err != nil {
				return nil, err
			}
			return &client.CommentCreated{Comment: models.Comment{ID: "srv-mine", Text: text}}, nil
		},
		comments: func(context.Context, string) ([]models.Comment, error) {
			return []models.Comment{{ID: "c1", Text: "first"}, {ID: "c2", Text: "from elsewhere"}}, nil
		},
	}
	s := loadedStore(t, api)

	done := make(chan error, 1)
	go func() { done <- s.AddComment(context.Background(), "p3", "mine") }()
	<-g.started

	require.NoError(t, s.RefreshComments(context.Background(), "p3"))
	assert.Equal(t, []string{"first", "from elsewhere", "mine"}, commentTexts(t, s, "p3"))

	close(g.release)
	require.NoError(t, <-done)
	p, _ := s.Post("p3")
	assert.Equal(t, "srv-mine", p.Comments[2].ID)
}

func TestStore_AddComment_ConfirmedAlreadyRefreshed(t *testing.T) {
	g := newGate()
	confirmed := models.Comment{ID: "srv-1", AuthorID: viewer, Text: "hi"}
	api := &fakeAPI{
		comment: func(ctx context.Context, _, _ string) (*client.CommentCreated, error) {
			_ = g.wait(ctx)
			return &client.CommentCreated{Comment: confirmed}, nil
		},
		comments: func(context.Context, string) ([]models.Comment, error) {
			return []models.Comment{{ID: "c1", Text: "first"}, confirmed}, nil
		},
	}
	s := loadedStore(t, api)

	done := make(chan error, 1)
	go func() { done <- s.AddComment(context.Background(), "p3", "hi") }()
	<-g.started
	require.NoError(t, s.RefreshComments(context.Background(), "p3"))
	close(g.release)
	require.NoError(t, <-done)

	assert.Equal(t, []string{"first", "hi"}, commentTexts(t, s, "p3"))
}

func TestStore_DeletePost(t *testing.T) {
	g := newGate()
	fail := true
	api := &fakeAPI{remove: func(ctx context.Context, _ string) error {
		if err := g.wait(ctx); err != nil {
			return err
		}
		if fail {
			return errNetwork
		}
		return nil
	}}
	s := loadedStore(t, api)

	assert.True(t, s.CanDelete("p3"))
	assert.False(t, s.CanDelete("p2"))
	require.True(t, s.Select("p3"))

	done := make(chan error, 1)
	go func() { done <- s.DeletePost(context.Background(), "p3") }()
	<-g.started
	assert.Equal(t, []string{"p2", "p1"}, ids(s.Posts()))
	_, selected := s.Selected()
	assert.False(t, selected)

	// A reload while the delete is pending keeps the post hidden.
	require.NoError(t, s.Load(context.Background()))
	assert.Equal(t, []string{"p2", "p1"}, ids(s.Posts()))

	close(g.release)
	require.Error(t, <-done)
	assert.Equal(t, []string{"p3", "p2", "p1"}, ids(s.Posts()))
	sel, selected := s.Selected()
	require.True(t, selected)
	assert.Equal(t, "p3", sel.ID)
	assert.Equal(t, OpDelete, s.Notices()[0].Op)

	fail = false
	g = newGate()
	close(g.release)
	require.NoError(t, s.DeletePost(context.Background(), "p1"))
	assert.Equal(t, []string{"p3", "p2"}, ids(s.Posts()))
}

func TestStore_DeletePost_ReinsertsByCreatedAt(t *testing.T) {
	api := &fakeAPI{remove: func(context.Context, string) error {
		return &client.APIError{Status: 403, Code: models.CodeForbidden, Message: "You cannot delete this post"}
	}}
	s := loadedStore(t, api)

	require.Error(t, s.DeletePost(context.Background(), "p1"))
	assert.Equal(t, []string{"p3", "p2", "p1"}, ids(s.Posts()))
	assert.Equal(t, "You can only delete your own posts.", s.Notices()[0].Message)
}

func TestStore_DeletePost_FailureAfterSwitchingListing(t *testing.T) {
	g := newGate()
	api := &fakeAPI{remove: func(ctx context.Context, _ string) error {
		if err := g.wait(ctx); err != nil {
			return err
		}
		return errNetwork
	}}
	s := loadedStore(t, api)
	require.True(t, s.Select("p3"))

	done := make(chan error, 1)
	go func() { done <- s.DeletePost(context.Background(), "p3") }()
	<-g.started

	api.list = func(context.Context, View) ([]models.Post, error) {
		return []models.Post{{ID: "q1", AuthorID: "someone-else", CreatedAt: base}}, nil
	}
	s.SetTarget(ByUser("someone-else"))
	require.NoError(t, s.Load(context.Background()))

	close(g.release)
	require.Error(t, <-done)
	assert.Equal(t, []string{"q1"}, ids(s.Posts()))
	_, selected := s.Selected()
	assert.False(t, selected)
	notices := s.Notices()
	require.Len(t, notices, 1)
	assert.Equal(t, OpDelete, notices[0].Op)

	// Back on the feed the post shows up again from the server.
	api.list = func(context.Context, View) ([]models.Post, error) { return samplePosts(), nil }
	s.SetTarget(Feed())
	require.NoError(t, s.Load(context.Background()))
	assert.Equal(t, []string{"p3", "p2", "p1"}, ids(s.Posts()))
}

func TestStore_DeletePost_NotOwner(t *testing.T) {
	called := false
	api := &fakeAPI{remove: func(context.Context, string) error {
		called = true
		return nil
	}}
	s := loadedStore(t, api)

	err := s.DeletePost(context.Background(), "p2")
	assert.Equal(t, models.CodeForbidden, models.ErrorCode(err))
	assert.False(t, called)
	assert.Equal(t, []string{"p3", "p2", "p1"}, ids(s.Posts()))
}

func TestStore_PostsAreCopies(t *testing.T) {
	s := loadedStore(t, &fakeAPI{})
	posts := s.Posts()
	posts[1].Likes[0] = "tampered"
	posts[0].Comments = nil

	p, _ := s.Post("p2")
	assert.Equal(t, []string{"other"}, p.Likes)
	assert.Len(t, commentTexts(t, s, "p3"), 1)
}

func TestNewNotice(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"validation keeps message", models.NewValidationError("Comment is too long"), "Comment is too long"},
		{"not found", &client.APIError{Status: 404, Code: models.CodeNotFound, Message: "Post not found"}, "This post is no longer available."},
		{"unauthorized", models.NewUnauthorizedError("nope"), "Please sign in to continue."},
		{"upstream", errNetwork, "Couldn't post your comment. Please try again."},
		{"plain error", errors.New("boom"), "Couldn't post your comment. Please try again."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, newNotice(OpComment, "p1", tt.err).Message)
		})
	}
}
