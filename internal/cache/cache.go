package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	postsGenerationKey = "posts:gen"
	feedKeyFormat      = "posts:feed:g%d"
	authorKeyFormat    = "posts:author:%s:g%d"
	profileKeyFormat   = "profile:%s"
)

const (
	ProfileTTL = 5 * time.Minute
	FeedTTL    = 30 * time.Second
)

// FeedKey is the cache key of the global feed at generation gen.
func FeedKey(gen int64) string {
	return fmt.Sprintf(feedKeyFormat, gen)
}

// AuthorPostsKey is the cache key of one author's posts at generation gen.
func AuthorPostsKey(authorID string, gen int64) string {
	return fmt.Sprintf(authorKeyFormat, authorID, gen)
}

// ProfileKey is the cache key of a profile summary.
func ProfileKey(id string) string {
	return fmt.Sprintf(profileKeyFormat, id)
}

// Cache is a JSON cache over Redis. A Cache with a nil client is valid and
// always misses.
type Cache struct {
	client *redis.Client
}

// New wraps client. client may be nil.
func New(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// Enabled reports whether a Redis client is attached.
func (c *Cache) Enabled() bool {
	return c != nil && c.client != nil
}

// GetJSON attempts to get the key from Redis and unmarshal into dest.
// Returns (true, nil) if found and unmarshaled, (false, nil) if not found.
func (c *Cache) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	if !c.Enabled() {
		return false, nil
	}
	b, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(b, dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON marshals v and sets the key with TTL.
func (c *Cache) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	if !c.Enabled() {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, b, ttl).Err()
}

// Aside tries Redis first, on miss it calls fetch (which must populate dest),
// then stores the result in Redis with ttl. Cache errors never fail the read.
func (c *Cache) Aside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() error) error {
	if found, err := c.GetJSON(ctx, key, dest); err == nil && found {
		return nil
	}

	if err := fetch(); err != nil {
		return err
	}

	_ = c.SetJSON(ctx, key, dest, ttl)
	return nil
}

// Invalidate deletes keys.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) {
	if !c.Enabled() || len(keys) == 0 {
		return
	}
	c.client.Del(ctx, keys...)
}

// PostsGeneration returns the current listing generation. Listing keys embed
// it, so bumping it retires every cached feed and author grid at once.
func (c *Cache) PostsGeneration(ctx context.Context) int64 {
	if !c.Enabled() {
		return 0
	}
	gen, err := c.client.Get(ctx, postsGenerationKey).Int64()
	if err != nil {
		return 0
	}
	return gen
}

// BumpPosts retires all cached listings.
func (c *Cache) BumpPosts(ctx context.Context) {
	if !c.Enabled() {
		return
	}
	c.client.Incr(ctx, postsGenerationKey)
}
