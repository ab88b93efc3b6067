// Package cache provides an explicit TTL memo cache over the shared redis
// connection. Callers build a stable key from the operation name and its
// normalized arguments and invoke Do around the expensive lookup; there is no
// transparent decoration of methods.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	redisclient "github.com/avidal-labs/brewshop-backend/pkg/redis"
)

type keyValueStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
}

// Cache memoizes JSON-serializable values with a fixed TTL. Concurrent
// misses on the same key are collapsed into one fill.
type Cache struct {
	store keyValueStore
	ttl   time.Duration
	group singleflight.Group
}

// New builds a cache over the provided store.
func New(store keyValueStore, ttl time.Duration) (*Cache, error) {
	if store == nil {
		return nil, fmt.Errorf("cache store required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("cache ttl must be positive")
	}
	return &Cache{store: store, ttl: ttl}, nil
}

// Key derives a stable cache key from an operation identity and its arguments.
func Key(op string, args ...string) string {
	parts := make([]string, 0, len(args)+2)
	parts = append(parts, "cache", strings.TrimSpace(op))
	for _, arg := range args {
		parts = append(parts, strings.TrimSpace(arg))
	}
	return strings.Join(parts, ":")
}

// Do returns the cached value for key into dest, filling it from fill on a
// miss. Store failures degrade to calling fill directly; a stale cache must
// never block the lookup itself.
func (c *Cache) Do(ctx context.Context, key string, dest any, fill func(context.Context) (any, error)) error {
	raw, err := c.store.Get(ctx, key)
	if err == nil {
		if unmarshalErr := json.Unmarshal([]byte(raw), dest); unmarshalErr == nil {
			return nil
		}
		// A corrupt entry falls through to a fresh fill.
	} else if !errors.Is(err, redisclient.ErrNotFound) {
		return c.fillInto(ctx, key, dest, fill, false)
	}
	return c.fillInto(ctx, key, dest, fill, true)
}

func (c *Cache) fillInto(ctx context.Context, key string, dest any, fill func(context.Context) (any, error), save bool) error {
	encoded, err, _ := c.group.Do(key, func() (any, error) {
		value, err := fill(ctx)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("encoding cache value: %w", err)
		}
		if save {
			// Write failures are not fatal, the value was already computed.
			_ = c.store.Set(ctx, key, string(raw), c.ttl)
		}
		return string(raw), nil
	})
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(encoded.(string)), dest)
}
