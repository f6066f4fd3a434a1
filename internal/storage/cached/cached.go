// Package cached puts Redis JSON caches in front of the hot read paths of the
// domain stores: the required channel list, the category list and the
// trending chart. Writes through the wrappers invalidate the affected key.
package cached

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/m3rciful/moviebot/core/logger"
	"github.com/m3rciful/moviebot/internal/domain"
)

// Keys used in Redis.
const (
	KeyChannels   = "channels:all"
	KeyCategories = "movies:categories"
	KeyTrending   = "movies:trending"
)

// TTLs configures how long each list stays cached.
type TTLs struct {
	Channels   time.Duration `yaml:"channels_ttl" envconfig:"CACHE_CHANNELS_TTL"`
	Categories time.Duration `yaml:"categories_ttl" envconfig:"CACHE_CATEGORIES_TTL"`
	Trending   time.Duration `yaml:"trending_ttl" envconfig:"CACHE_TRENDING_TTL"`
}

// WithDefaults fills zero TTLs.
func (t TTLs) WithDefaults() TTLs {
	if t.Channels <= 0 {
		t.Channels = time.Hour
	}
	if t.Categories <= 0 {
		t.Categories = 10 * time.Minute
	}
	if t.Trending <= 0 {
		t.Trending = 30 * time.Minute
	}
	return t
}

// Cache is a JSON value cache. Concurrent misses for the same key share one fill.
type Cache struct {
	rdb   *redis.Client
	group singleflight.Group
}

func NewCache(rdb *redis.Client) *Cache {
	return &Cache{rdb: rdb}
}

// load returns the cached value under key, or calls fill and stores its result.
// A Redis failure degrades to calling fill; it never fails the read.
func load[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, fill func(context.Context) (T, error)) (T, error) {
	var zero T
	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var out T
		jsonErr := json.Unmarshal(raw, &out)
		if jsonErr == nil {
			logger.LogEvent(ctx, logger.KV, slog.LevelDebug, "cache.get",
				slog.String("key", key),
				slog.String("cache", "hit"),
			)
			return out, nil
		}
		logger.LogEvent(ctx, logger.KV, slog.LevelWarn, "cache.decode_failed",
			slog.String("key", key),
			slog.String("error", jsonErr.Error()),
		)
	case !errors.Is(err, redis.Nil):
		logger.LogEvent(ctx, logger.KV, slog.LevelWarn, "cache.get_failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}

	v, err, shared := c.group.Do(key, func() (any, error) {
		val, err := fill(ctx)
		if err != nil {
			return nil, err
		}
		if data, encErr := json.Marshal(val); encErr == nil {
			if setErr := c.rdb.Set(ctx, key, data, ttl).Err(); setErr != nil {
				logger.LogEvent(ctx, logger.KV, slog.LevelWarn, "cache.set_failed",
					slog.String("key", key),
					slog.String("error", setErr.Error()),
				)
			}
		}
		return val, nil
	})
	if err != nil {
		return zero, err
	}
	logger.LogEvent(ctx, logger.KV, slog.LevelDebug, "cache.get",
		slog.String("key", key),
		slog.String("cache", "miss"),
		slog.Bool("shared", shared),
	)
	return v.(T), nil
}

// Invalidate drops keys. Failures are logged; the stale entry expires with its TTL.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) {
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		logger.LogEvent(ctx, logger.KV, slog.LevelWarn, "cache.invalidate_failed",
			slog.Any("keys", keys),
			slog.String("error", err.Error()),
		)
	}
}

// Wrap returns svc with the cached wrappers installed.
func Wrap(svc domain.Services, c *Cache, ttls TTLs) domain.Services {
	ttls = ttls.WithDefaults()
	svc.Channels = &Channels{ChannelStore: svc.Channels, cache: c, ttl: ttls.Channels}
	svc.Categories = &Categories{CategoryStore: svc.Categories, cache: c, ttl: ttls.Categories}
	svc.Movies = &Movies{MovieStore: svc.Movies, cache: c, ttl: ttls.Trending}
	return svc
}

type Channels struct {
	domain.ChannelStore
	cache *Cache
	ttl   time.Duration
}

func (s *Channels) List(ctx context.Context) ([]domain.Channel, error) {
	return load(ctx, s.cache, KeyChannels, s.ttl, s.ChannelStore.List)
}

func (s *Channels) Add(ctx context.Context, channelID int64, title, inviteLink string) (domain.Channel, error) {
	ch, err := s.ChannelStore.Add(ctx, channelID, title, inviteLink)
	if err == nil {
		s.cache.Invalidate(ctx, KeyChannels)
	}
	return ch, err
}

func (s *Channels) Update(ctx context.Context, id int64, patch domain.ChannelPatch) error {
	if err := s.ChannelStore.Update(ctx, id, patch); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, KeyChannels)
	return nil
}

func (s *Channels) Delete(ctx context.Context, id int64) error {
	if err := s.ChannelStore.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, KeyChannels)
	return nil
}

type Categories struct {
	domain.CategoryStore
	cache *Cache
	ttl   time.Duration
}

func (s *Categories) List(ctx context.Context) ([]domain.Category, error) {
	return load(ctx, s.cache, KeyCategories, s.ttl, s.CategoryStore.List)
}

func (s *Categories) Add(ctx context.Context, name string) (domain.Category, error) {
	c, err := s.CategoryStore.Add(ctx, name)
	if err == nil {
		s.cache.Invalidate(ctx, KeyCategories)
	}
	return c, err
}

func (s *Categories) Delete(ctx context.Context, id int64) error {
	if err := s.CategoryStore.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, KeyCategories)
	return nil
}

// Movies caches the trending chart. Renames and deletes drop it so the chart
// never links to a movie that is gone.
type Movies struct {
	domain.MovieStore
	cache *Cache
	ttl   time.Duration
}

func trendingKey(limit int) string {
	return fmt.Sprintf("%s:%d", KeyTrending, limit)
}

func (s *Movies) Top(ctx context.Context, limit int) ([]domain.Movie, error) {
	return load(ctx, s.cache, trendingKey(limit), s.ttl, func(ctx context.Context) ([]domain.Movie, error) {
		return s.MovieStore.Top(ctx, limit)
	})
}

func (s *Movies) UpdateTitle(ctx context.Context, id int64, title string) error {
	if err := s.MovieStore.UpdateTitle(ctx, id, title); err != nil {
		return err
	}
	s.dropTrending(ctx)
	return nil
}

func (s *Movies) Delete(ctx context.Context, id int64) error {
	if err := s.MovieStore.Delete(ctx, id); err != nil {
		return err
	}
	s.dropTrending(ctx)
	return nil
}

func (s *Movies) dropTrending(ctx context.Context) {
	var keys []string
	iter := s.cache.rdb.Scan(ctx, 0, KeyTrending+":*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		logger.LogEvent(ctx, logger.KV, slog.LevelWarn, "cache.invalidate_failed",
			slog.String("key", KeyTrending),
			slog.String("error", err.Error()),
		)
		return
	}
	if len(keys) > 0 {
		s.cache.Invalidate(ctx, keys...)
	}
}
