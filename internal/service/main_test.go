package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"pawfeed/internal/blob"
	"pawfeed/internal/cache"
	"pawfeed/internal/database"
	"pawfeed/internal/events"
	"pawfeed/internal/models"
	"pawfeed/internal/repository"
	"pawfeed/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) Backend() string { return "test" }
func (p *recordingPublisher) Close() error    { return nil }

func (p *recordingPublisher) subjects() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Subject)
	}
	return out
}

type fixture struct {
	posts    repository.PostRepository
	profiles repository.ProfileRepository
	blobs    *testutil.MemoryBlobStore
	cache    *cache.Cache
	redis    *miniredis.Miniredis
	pub      *recordingPublisher

	postSvc *PostService
	feed    *FeedService
	engine  *InteractionEngine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	f := &fixture{
		posts:    repository.NewPostRepository(db),
		profiles: repository.NewProfileRepository(db),
		blobs:    testutil.NewMemoryBlobStore(),
		cache:    cache.New(rdb),
		redis:    mr,
		pub:      &recordingPublisher{},
	}
	f.postSvc = NewPostService(f.posts, f.profiles, f.blobs, f.cache, f.pub)
	f.feed = NewFeedService(f.posts, f.profiles, f.cache, time.Minute)
	f.engine = NewInteractionEngine(f.posts, f.profiles, f.cache, f.pub)

	// Strictly increasing timestamps keep listing order deterministic.
	var (
		clockMu sync.Mutex
		tick    = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	)
	clock := func() time.Time {
		clockMu.Lock()
		defer clockMu.Unlock()
		tick = tick.Add(time.Second)
		return tick
	}
	f.postSvc.now = clock
	f.engine.now = clock
	return f
}

// unreachableProfiles fails every batched profile lookup.
type unreachableProfiles struct {
	repository.ProfileRepository
}

func (unreachableProfiles) GetByIDs(context.Context, []string) (map[string]*models.Profile, error) {
	return nil, models.NewUpstreamError("load profiles", errors.New("connection refused"))
}

func (f *fixture) profile(t *testing.T, name string) *models.Profile {
	t.Helper()
	p := &models.Profile{ID: uuid.NewString(), Name: name, Avatar: "/avatars/" + name + ".png", CreatedAt: time.Now().UTC()}
	require.NoError(t, f.profiles.Upsert(context.Background(), p))
	return p
}

func (f *fixture) post(t *testing.T, authorID, caption string) *models.Post {
	t.Helper()
	post, err := f.postSvc.CreatePost(context.Background(), CreatePostInput{
		AuthorID: authorID,
		Caption:  caption,
		Image:    &blob.Upload{Filename: "dog.png", ContentType: "image/png", Content: testutil.TinyPNG(t, 4, 4)},
	})
	require.NoError(t, err)
	return post
}

func assertCode(t *testing.T, code string, err error) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, code, models.ErrorCode(err), "unexpected error: %v", err)
}
