// Package cache stores materialized result pages keyed by a query
// fingerprint.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/utafrali/catalogsearch/internal/domain"
)

// ErrUnavailable wraps every failure of a cache backend. Callers treat it
// as a miss.
var ErrUnavailable = errors.New("cache unavailable")

// Fingerprint identifies a normalized query.
type Fingerprint string

// fingerprintInput is the canonical encoding hashed into a Fingerprint.
// Field order is fixed by the struct.
type fingerprintInput struct {
	Text     string           `json:"text"`
	Locale   domain.Locale    `json:"locale"`
	Filters  domain.FilterSet `json:"filters"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
	Sort     string           `json:"sort"`
}

// NewFingerprint returns the hex SHA-256 of q's canonical JSON form. q is
// normalized first, so logically equal queries share a fingerprint. Queries
// that cannot be encoded, such as ones with non-finite bounds, have no
// fingerprint.
func NewFingerprint(q domain.SearchQuery) (Fingerprint, error) {
	n := q.Normalize()
	data, err := json.Marshal(fingerprintInput{
		Text:     n.Text,
		Locale:   n.Locale,
		Filters:  n.Filters,
		Page:     n.Page,
		PageSize: n.PageSize,
		Sort:     n.Sort,
	})
	if err != nil {
		return "", fmt.Errorf("fingerprint query: %w", err)
	}
	sum := sha256.Sum256(data)
	return Fingerprint(hex.EncodeToString(sum[:])), nil
}

// Entry is a cached payload. Entries are never mutated after Put.
type Entry[V any] struct {
	Key       Fingerprint `json:"key"`
	Payload   V           `json:"payload"`
	Tier      domain.Tier `json:"tier"`
	CreatedAt time.Time   `json:"created_at"`
	ExpiresAt time.Time   `json:"expires_at"`
	// Generation is the shared invalidation generation the entry was stored
	// under. It stays zero without a shared level.
	Generation int64 `json:"generation,omitempty"`
}

// NewEntry creates an entry living for ttl from now.
func NewEntry[V any](key Fingerprint, payload V, tier domain.Tier, now time.Time, ttl time.Duration) *Entry[V] {
	return &Entry[V]{
		Key:       key,
		Payload:   payload,
		Tier:      tier,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// Expired reports whether the entry is past its expiry at now.
func (e *Entry[V]) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// Cache is a keyed store of entries with per-entry expiry.
type Cache[V any] interface {
	// Get returns the live entry for key. Expired entries are misses.
	Get(ctx context.Context, key Fingerprint) (*Entry[V], bool, error)

	// Put stores entry under key, replacing any previous entry.
	Put(ctx context.Context, key Fingerprint, entry *Entry[V]) error

	// InvalidateAll drops every entry.
	InvalidateAll(ctx context.Context) error
}
