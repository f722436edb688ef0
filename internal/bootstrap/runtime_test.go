package bootstrap

import (
	"context"
	"path/filepath"
	"testing"

	"pawfeed/internal/config"
	"pawfeed/internal/events"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sqliteConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Env:                  "test",
		StoreBackend:         config.StoreSQLite,
		SQLitePath:           filepath.Join(dir, "pawfeed.db"),
		BlobDir:              filepath.Join(dir, "blobs"),
		ImageMaxUploadSizeMB: 1,
	}
}

func TestInitRuntime_SQLiteWithRedisEvents(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := sqliteConfig(t)
	cfg.RedisURL = mr.Addr()
	cfg.EventsBackend = config.EventsRedis

	ctx := context.Background()
	rt, err := InitRuntime(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close(ctx) })

	require.NotNil(t, rt.Redis)
	assert.Equal(t, "redis", rt.Events.Backend())
	require.NoError(t, rt.Posts.Ping(ctx))

	posts, err := rt.Posts.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestInitRuntime_WithoutRedis(t *testing.T) {
	cfg := sqliteConfig(t)
	cfg.RedisURL = "127.0.0.1:1"
	cfg.EventsBackend = config.EventsNone

	ctx := context.Background()
	rt, err := InitRuntime(ctx, cfg)
	require.NoError(t, err)

	assert.Nil(t, rt.Redis)
	assert.IsType(t, events.Noop{}, rt.Events)
	assert.NoError(t, rt.Close(ctx))
}
