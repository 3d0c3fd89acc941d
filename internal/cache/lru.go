package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// LRU is a bounded in-process cache. The least recently used entry is
// evicted when capacity is reached; expired entries are dropped lazily on
// Get and by the optional janitor.
type LRU[V any] struct {
	// mu orders writers so an expired entry is never removed after a
	// concurrent Put replaced it.
	mu    sync.Mutex
	items *lru.Cache[Fingerprint, *Entry[V]]
	now   func() time.Time
}

var _ Cache[int] = (*LRU[int])(nil)

// LRUOption configures an LRU.
type LRUOption func(*lruOptions)

type lruOptions struct {
	now func() time.Time
}

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) LRUOption {
	return func(o *lruOptions) { o.now = now }
}

// NewLRU creates an LRU holding at most capacity entries.
func NewLRU[V any](capacity int, opts ...LRUOption) (*LRU[V], error) {
	o := lruOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	items, err := lru.New[Fingerprint, *Entry[V]](capacity)
	if err != nil {
		return nil, fmt.Errorf("create lru cache: %w", err)
	}
	return &LRU[V]{items: items, now: o.now}, nil
}

// Get implements Cache. A hit marks the entry most recently used.
func (c *LRU[V]) Get(_ context.Context, key Fingerprint) (*Entry[V], bool, error) {
	entry, ok := c.items.Get(key)
	if !ok {
		return nil, false, nil
	}
	if entry.Expired(c.now()) {
		c.removeIfSame(key, entry)
		return nil, false, nil
	}
	return entry, true, nil
}

// Put implements Cache.
func (c *LRU[V]) Put(_ context.Context, key Fingerprint, entry *Entry[V]) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items.Add(key, entry)
	return nil
}

func (c *LRU[V]) removeIfSame(key Fingerprint, entry *Entry[V]) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.items.Peek(key); ok && cur == entry {
		c.items.Remove(key)
		return true
	}
	return false
}

// InvalidateAll implements Cache.
func (c *LRU[V]) InvalidateAll(context.Context) error {
	c.items.Purge()
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (c *LRU[V]) Len() int {
	return c.items.Len()
}

// Sweep removes every expired entry and returns how many were removed.
func (c *LRU[V]) Sweep() int {
	now := c.now()
	removed := 0
	for _, key := range c.items.Keys() {
		if entry, ok := c.items.Peek(key); ok && entry.Expired(now) && c.removeIfSame(key, entry) {
			removed++
		}
	}
	return removed
}

// Run sweeps expired entries every interval until ctx is cancelled.
func (c *LRU[V]) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			c.Sweep()
		}
	}
}
