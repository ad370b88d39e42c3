// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package searchcache persists raw search-result sets in a key/value store
// with a long TTL. Its last-resort read ignores the TTL and serves stale
// results when every provider is rate-limited.
package searchcache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pdiddy/paper-radar/internal/kv"
	"github.com/pdiddy/paper-radar/internal/logging"
	"github.com/pdiddy/paper-radar/pkg/types"
)

const (
	// DefaultPrefix namespaces search entries inside a shared store.
	DefaultPrefix = "search_cache_"

	// DefaultTTL is the age limit for normal reads.
	DefaultTTL = 24 * time.Hour
)

// entry is the stored JSON document. Timestamp is Unix milliseconds.
type entry struct {
	Data      []types.ResearchResult `json:"data"`
	Timestamp int64                  `json:"timestamp"`
}

// Hit is a cached result set together with the time it was written.
type Hit struct {
	Results  []types.ResearchResult
	StoredAt time.Time
}

// Cache reads and writes search entries through a kv.Store.
type Cache struct {
	store  kv.Store
	prefix string
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithPrefix overrides DefaultPrefix.
func WithPrefix(prefix string) Option {
	return func(c *Cache) {
		if prefix != "" {
			c.prefix = prefix
		}
	}
}

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithLogger sets the logger used for corrupt-entry and storage warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) { c.logger = logger }
}

// New returns a Cache backed by store.
func New(store kv.Store, opts ...Option) *Cache {
	c := &Cache{
		store:  store,
		prefix: DefaultPrefix,
		ttl:    DefaultTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.NewComponentLogger(c.logger, "searchcache")
	return c
}

// Normalize lower-cases q, trims it and collapses internal whitespace.
func Normalize(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}

// Key returns the storage key for q.
func (c *Cache) Key(q string) string {
	return c.prefix + Normalize(q)
}

// Put stores results for q stamped with the current time.
func (c *Cache) Put(ctx context.Context, q string, results []types.ResearchResult) error {
	data, err := json.Marshal(entry{Data: results, Timestamp: c.now().UnixMilli()})
	if err != nil {
		return fmt.Errorf("marshal search cache entry: %w", err)
	}
	if err := c.store.Set(ctx, c.Key(q), string(data)); err != nil {
		return fmt.Errorf("write search cache entry: %w", err)
	}
	return nil
}

// Get returns the entry for q when it is younger than the TTL.
func (c *Cache) Get(ctx context.Context, q string) (Hit, bool) {
	hit, ok := c.read(ctx, q)
	if !ok {
		return Hit{}, false
	}
	if c.now().Sub(hit.StoredAt) > c.ttl {
		return Hit{}, false
	}
	return hit, true
}

// LastResort returns the entry for q regardless of its age.
func (c *Cache) LastResort(ctx context.Context, q string) (Hit, bool) {
	return c.read(ctx, q)
}

func (c *Cache) read(ctx context.Context, q string) (Hit, bool) {
	key := c.Key(q)
	raw, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warn("search cache read failed", logging.Query(q), logging.Error(err))
		return Hit{}, false
	}
	if !ok {
		return Hit{}, false
	}

	var e entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		c.logger.Warn("discarding corrupt search cache entry", logging.Query(q), logging.Error(err))
		if rmErr := c.store.Remove(ctx, key); rmErr != nil {
			c.logger.Warn("remove corrupt search cache entry", logging.Query(q), logging.Error(rmErr))
		}
		return Hit{}, false
	}
	return Hit{Results: e.Data, StoredAt: time.UnixMilli(e.Timestamp)}, true
}
