package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces result cache keys.
const DefaultRedisPrefix = "catalogsearch:results"

// Redis is a cache shared between instances. Every key embeds a generation
// number; InvalidateAll bumps it, orphaning older keys until their Redis
// TTL removes them.
type Redis[V any] struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

var _ Cache[int] = (*Redis[int])(nil)

// NewRedis creates a Redis-backed cache. If prefix is empty,
// DefaultRedisPrefix is used.
func NewRedis[V any](client *redis.Client, prefix string) *Redis[V] {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &Redis[V]{client: client, prefix: prefix, now: time.Now}
}

func (c *Redis[V]) generationKey() string {
	return c.prefix + ":generation"
}

// Generation returns the current invalidation generation shared by every
// instance using the same prefix.
func (c *Redis[V]) Generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, c.generationKey()).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("%w: redis get generation: %w", ErrUnavailable, err)
	}
	return gen, nil
}

func (c *Redis[V]) key(ctx context.Context, fp Fingerprint) (string, int64, error) {
	gen, err := c.Generation(ctx)
	if err != nil {
		return "", 0, err
	}
	return c.prefix + ":" + strconv.FormatInt(gen, 10) + ":" + string(fp), gen, nil
}

// Get implements Cache.
func (c *Redis[V]) Get(ctx context.Context, fp Fingerprint) (*Entry[V], bool, error) {
	key, gen, err := c.key(ctx, fp)
	if err != nil {
		return nil, false, err
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("%w: redis get entry: %w", ErrUnavailable, err)
	}

	var entry Entry[V]
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false, fmt.Errorf("%w: unmarshal entry: %w", ErrUnavailable, err)
	}
	if entry.Expired(c.now()) {
		return nil, false, nil
	}
	entry.Generation = gen
	return &entry, true, nil
}

// Put implements Cache. Entries that are already expired are not stored.
func (c *Redis[V]) Put(ctx context.Context, fp Fingerprint, entry *Entry[V]) error {
	ttl := entry.ExpiresAt.Sub(c.now())
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("%w: marshal entry: %w", ErrUnavailable, err)
	}

	key, _, err := c.key(ctx, fp)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("%w: redis set entry: %w", ErrUnavailable, err)
	}
	return nil
}

// InvalidateAll implements Cache.
func (c *Redis[V]) InvalidateAll(ctx context.Context) error {
	if err := c.client.Incr(ctx, c.generationKey()).Err(); err != nil {
		return fmt.Errorf("%w: redis bump generation: %w", ErrUnavailable, err)
	}
	return nil
}
