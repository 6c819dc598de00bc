// Package cache keeps list and detail query results keyed by resource and
// query, and drops a whole resource at once when it is mutated.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Store is the byte-level backend of the query cache.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Incr atomically increments an integer key, creating it at 1.
	Incr(ctx context.Context, key string) (int64, error)
	Close() error
}

// QueryCache caches loader results under "<prefix>:<resource>:v<version>:<key>".
// Invalidating a resource bumps its version, so every older entry becomes
// unreachable at once and expires on its own TTL.
type QueryCache struct {
	store  Store
	prefix string
	ttl    time.Duration
	group  singleflight.Group
	logger zerolog.Logger
}

// New builds a QueryCache. A nil store disables caching: loaders always run.
func New(store Store, prefix string, ttl time.Duration, logger zerolog.Logger) *QueryCache {
	return &QueryCache{store: store, prefix: prefix, ttl: ttl, logger: logger}
}

// Enabled reports whether a backend is configured.
func (c *QueryCache) Enabled() bool {
	return c != nil && c.store != nil
}

func (c *QueryCache) versionKey(resource string) string {
	return fmt.Sprintf("%s:%s:version", c.prefix, resource)
}

func (c *QueryCache) version(ctx context.Context, resource string) (string, error) {
	raw, ok, err := c.store.Get(ctx, c.versionKey(resource))
	if err != nil {
		return "", err
	}
	if !ok {
		return "0", nil
	}
	return string(raw), nil
}

// Invalidate makes every cached entry of resource stale.
func (c *QueryCache) Invalidate(ctx context.Context, resources ...string) {
	if !c.Enabled() {
		return
	}
	for _, resource := range resources {
		if _, err := c.store.Incr(ctx, c.versionKey(resource)); err != nil {
			c.logger.Warn().Err(err).Str("resource", resource).Msg("Cache invalidation failed")
		}
	}
}

// Close releases the backend.
func (c *QueryCache) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.store.Close()
}

// Remember returns the cached value for (resource, key) or runs load once,
// even when many callers ask concurrently, and caches its result.
// Every caller decodes its own copy. Backend failures fall back to load.
func Remember[T any](ctx context.Context, c *QueryCache, resource, key string, load func(ctx context.Context) (T, error)) (T, error) {
	if !c.Enabled() {
		return load(ctx)
	}

	version, err := c.version(ctx, resource)
	if err != nil {
		c.logger.Warn().Err(err).Str("resource", resource).Msg("Cache unavailable, loading directly")
		return load(ctx)
	}
	fullKey := fmt.Sprintf("%s:%s:v%s:%s", c.prefix, resource, version, key)

	var out T
	if raw, ok, err := c.store.Get(ctx, fullKey); err == nil && ok {
		if err := json.Unmarshal(raw, &out); err == nil {
			return out, nil
		}
		c.logger.Warn().Str("key", fullKey).Msg("Discarding undecodable cache entry")
	}

	raw, err, _ := c.group.Do(fullKey, func() (interface{}, error) {
		value, err := load(ctx)
		if err != nil {
			return nil, err
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("encode cache entry: %w", err)
		}
		if err := c.store.Set(ctx, fullKey, encoded, c.ttl); err != nil {
			c.logger.Warn().Err(err).Str("key", fullKey).Msg("Cache write failed")
		}
		return encoded, nil
	})
	if err != nil {
		return out, err
	}

	if err := json.Unmarshal(raw.([]byte), &out); err != nil {
		return out, fmt.Errorf("decode cache entry: %w", err)
	}
	return out, nil
}

// Key joins key parts with ':' for readability in redis-cli.
func Key(parts ...interface{}) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ":"
		}
		switch v := p.(type) {
		case string:
			out += v
		case int64:
			out += strconv.FormatInt(v, 10)
		case int:
			out += strconv.Itoa(v)
		default:
			out += fmt.Sprint(v)
		}
	}
	return out
}
