// Package bootstrap connects the configured store, cache, event broker and
// blob store for the server and the seed command.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"pawfeed/internal/blob"
	"pawfeed/internal/cache"
	"pawfeed/internal/config"
	"pawfeed/internal/database"
	"pawfeed/internal/events"
	"pawfeed/internal/middleware"
	"pawfeed/internal/repository"

	"github.com/redis/go-redis/v9"
)

// Runtime holds the connected collaborators.
type Runtime struct {
	Posts    repository.PostRepository
	Profiles repository.ProfileRepository
	Blobs    *blob.LocalStore
	Redis    *redis.Client
	Events   events.Publisher

	closers []func(context.Context) error
}

// InitRuntime connects everything cfg selects. Redis is optional: when it is
// unreachable the runtime has no cache, and the Redis event backend degrades
// to dropping events.
func InitRuntime(ctx context.Context, cfg *config.Config) (*Runtime, error) {
	rt := &Runtime{Blobs: blob.NewLocalStore(cfg)}

	if err := rt.connectStore(ctx, cfg); err != nil {
		return nil, err
	}

	rt.Redis = cache.InitRedis(cfg.RedisURL)
	if rt.Redis != nil {
		rdb := rt.Redis
		rt.closers = append(rt.closers, func(context.Context) error { return rdb.Close() })
	}

	pub, err := newPublisher(cfg, rt.Redis)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, err
	}
	rt.Events = pub
	rt.closers = append(rt.closers, func(context.Context) error { return pub.Close() })

	return rt, nil
}

func (rt *Runtime) connectStore(ctx context.Context, cfg *config.Config) error {
	switch cfg.StoreBackend {
	case config.StoreMongo:
		db, err := repository.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return fmt.Errorf("mongo connection failed: %w", err)
		}
		if err := repository.EnsureMongoIndexes(ctx, db); err != nil {
			_ = db.Client().Disconnect(ctx)
			return fmt.Errorf("mongo index setup failed: %w", err)
		}
		rt.Posts = repository.NewMongoPostRepository(db)
		rt.Profiles = repository.NewMongoProfileRepository(db)
		rt.closers = append(rt.closers, func(ctx context.Context) error { return db.Client().Disconnect(ctx) })
	default:
		db, err := database.Connect(ctx, cfg)
		if err != nil {
			return fmt.Errorf("database connection failed: %w", err)
		}
		rt.Posts = repository.NewPostRepository(db)
		rt.Profiles = repository.NewProfileRepository(db)
		rt.closers = append(rt.closers, func(context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		})
	}
	return nil
}

func newPublisher(cfg *config.Config, rdb *redis.Client) (events.Publisher, error) {
	switch cfg.EventsBackend {
	case config.EventsNATS:
		p, err := events.ConnectNATS(cfg.NATSURL)
		if err != nil {
			return nil, err
		}
		middleware.Logger.Info("event publisher ready", slog.String("backend", "nats"))
		return p, nil
	case config.EventsRedis:
		if rdb == nil {
			middleware.Logger.Warn("redis unavailable; post events will be dropped")
		}
		return events.NewRedisPublisher(rdb), nil
	default:
		return events.Noop{}, nil
	}
}

// Close releases connections in reverse order of acquisition.
func (rt *Runtime) Close(ctx context.Context) error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}
