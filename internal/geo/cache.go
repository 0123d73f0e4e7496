package geo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"studio-service/internal/models"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

type RedisCache struct {
	client *redis.Client
	prefix string
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client, prefix: "geo"}
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	const op = "geo.RedisCache.Get"

	val, err := c.client.Get(ctx, c.prefix+":"+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%s: %w", op, err)
	}

	return val, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	const op = "geo.RedisCache.Set"

	if err := c.client.Set(ctx, c.prefix+":"+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Cached memoizes successful lookups of the wrapped provider and collapses
// concurrent identical requests into one upstream call. Cache errors are
// ignored and fall through to the provider.
type Cached struct {
	next  Provider
	cache Cache
	ttl   time.Duration
	group singleflight.Group
}

func NewCached(next Provider, cache Cache, ttl time.Duration) *Cached {
	return &Cached{next: next, cache: cache, ttl: ttl}
}

func (c *Cached) Geocode(ctx context.Context, address string) (models.GeoPoint, error) {
	key := "geocode:" + normalizeAddress(address)

	if val, ok, _ := c.cache.Get(ctx, key); ok {
		if p, err := decodePoint(val); err == nil {
			return p, nil
		}
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		p, err := c.next.Geocode(ctx, address)
		if err != nil {
			return nil, err
		}
		_ = c.cache.Set(ctx, key, encodePoint(p), c.ttl)
		return p, nil
	})
	if err != nil {
		return models.GeoPoint{}, err
	}

	return v.(models.GeoPoint), nil
}

func (c *Cached) DistanceMinutes(ctx context.Context, origin, destination Location) (int, error) {
	key := "distance:" + origin.key() + "|" + destination.key()

	if val, ok, _ := c.cache.Get(ctx, key); ok {
		if n, err := strconv.Atoi(val); err == nil {
			return n, nil
		}
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		n, err := c.next.DistanceMinutes(ctx, origin, destination)
		if err != nil {
			return nil, err
		}
		_ = c.cache.Set(ctx, key, strconv.Itoa(n), c.ttl)
		return n, nil
	})
	if err != nil {
		return 0, err
	}

	return v.(int), nil
}

func encodePoint(p models.GeoPoint) string {
	return strconv.FormatFloat(p.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(p.Lng, 'f', -1, 64)
}

func decodePoint(s string) (models.GeoPoint, error) {
	lat, lng, ok := strings.Cut(s, ",")
	if !ok {
		return models.GeoPoint{}, fmt.Errorf("bad point %q", s)
	}

	la, err := strconv.ParseFloat(lat, 64)
	if err != nil {
		return models.GeoPoint{}, err
	}
	ln, err := strconv.ParseFloat(lng, 64)
	if err != nil {
		return models.GeoPoint{}, err
	}

	return models.GeoPoint{Lat: la, Lng: ln}, nil
}
