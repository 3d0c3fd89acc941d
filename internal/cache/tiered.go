package cache

import (
	"context"
	"errors"
)

// Generational is a shared cache whose InvalidateAll advances a generation
// every instance can read.
type Generational interface {
	Generation(ctx context.Context) (int64, error)
}

// Tiered reads through an in-process L1 to an optional shared L2. L2 hits
// are copied into L1. When L2 is Generational, L1 hits stored under an
// older generation are misses, so an invalidation on one instance reaches
// the L1 of every other.
type Tiered[V any] struct {
	l1  Cache[V]
	l2  Cache[V]
	gen Generational
}

var _ Cache[int] = (*Tiered[int])(nil)

// NewTiered creates a two-level cache. l2 may be nil.
func NewTiered[V any](l1, l2 Cache[V]) *Tiered[V] {
	c := &Tiered[V]{l1: l1, l2: l2}
	if g, ok := l2.(Generational); ok {
		c.gen = g
	}
	return c
}

// Get implements Cache.
func (c *Tiered[V]) Get(ctx context.Context, key Fingerprint) (*Entry[V], bool, error) {
	entry, ok, err := c.l1.Get(ctx, key)
	if c.l2 == nil {
		return entry, ok, err
	}
	if ok {
		current, genErr := c.current(ctx, entry)
		if current {
			return entry, true, errors.Join(err, genErr)
		}
	}

	entry, ok, l2err := c.l2.Get(ctx, key)
	if !ok {
		return nil, false, errors.Join(err, l2err)
	}
	return entry, true, errors.Join(err, c.l1.Put(ctx, key, entry))
}

// current reports whether an L1 entry belongs to the live generation. The
// entry is kept when the generation cannot be read.
func (c *Tiered[V]) current(ctx context.Context, entry *Entry[V]) (bool, error) {
	if c.gen == nil {
		return true, nil
	}
	gen, err := c.gen.Generation(ctx)
	if err != nil {
		return true, err
	}
	return entry.Generation == gen, nil
}

// Put implements Cache. Both levels are written even if one fails.
func (c *Tiered[V]) Put(ctx context.Context, key Fingerprint, entry *Entry[V]) error {
	var err error
	if c.gen != nil {
		var gen int64
		gen, err = c.gen.Generation(ctx)
		stamped := *entry
		stamped.Generation = gen
		entry = &stamped
	}

	err = errors.Join(err, c.l1.Put(ctx, key, entry))
	if c.l2 != nil {
		err = errors.Join(err, c.l2.Put(ctx, key, entry))
	}
	return err
}

// InvalidateAll implements Cache.
func (c *Tiered[V]) InvalidateAll(ctx context.Context) error {
	err := c.l1.InvalidateAll(ctx)
	if c.l2 != nil {
		err = errors.Join(err, c.l2.InvalidateAll(ctx))
	}
	return err
}
