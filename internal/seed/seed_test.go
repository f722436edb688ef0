package seed

import (
	"context"
	"net/http"
	"testing"

	"pawfeed/internal/cache"
	"pawfeed/internal/database"
	"pawfeed/internal/repository"
	"pawfeed/internal/service"
	"pawfeed/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSeeder(t *testing.T) (*Seeder, *service.FeedService) {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	posts := repository.NewPostRepository(db)
	profiles := repository.NewProfileRepository(db)
	c := cache.New(nil)
	postSvc := service.NewPostService(posts, profiles, testutil.NewMemoryBlobStore(), c, nil)
	engine := service.NewInteractionEngine(posts, profiles, c, nil)
	return NewSeeder(profiles, postSvc, engine, 42), service.NewFeedService(posts, profiles, c, 0)
}

func TestSeeder_Run(t *testing.T) {
	s, feed := newSeeder(t)
	ctx := context.Background()

	summary, err := s.Run(ctx, Options{NumProfiles: 4, NumPosts: 6, MaxLikes: 3, MaxComments: 2})
	require.NoError(t, err)
	assert.Len(t, summary.Profiles, 4)
	assert.Equal(t, 6, summary.Posts)

	posts, err := feed.Feed(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 6)

	var likes, comments int
	for _, p := range posts {
		assert.LessOrEqual(t, len(p.Likes), 3)
		assert.LessOrEqual(t, len(p.Comments), 2)
		require.NotNil(t, p.Author)
		likes += len(p.Likes)
		comments += len(p.Comments)
	}
	assert.Equal(t, summary.Likes, likes)
	assert.Equal(t, summary.Comments, comments)

	for _, p := range summary.Profiles {
		assert.NotEmpty(t, p.Name)
	}
}

func TestSeeder_PickIsDistinct(t *testing.T) {
	s, _ := newSeeder(t)
	for i := 0; i < 20; i++ {
		picked := s.pick(5, 10)
		assert.LessOrEqual(t, len(picked), 5)
		seen := map[int]bool{}
		for _, idx := range picked {
			assert.False(t, seen[idx])
			seen[idx] = true
		}
	}
	assert.Empty(t, s.pick(5, 0))
}

func TestSeeder_ImageIsAccepted(t *testing.T) {
	s, _ := newSeeder(t)
	img, err := s.image()
	require.NoError(t, err)
	assert.Equal(t, "image/png", http.DetectContentType(img))
}
